package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-service-auth"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"Pending":     StatusPending,
		"pending":     StatusPending,
		"In Progress": StatusInProgress,
		"inprogress":  StatusInProgress,
		" Completed ": StatusCompleted,
		"DELIVERED":   StatusDelivered,
	}

	for raw, want := range cases {
		got, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "Shipped", "In-Progress"} {
		_, err := ParseStatus(raw)
		require.ErrorIs(t, err, auth.ErrValidationFailed, raw)
	}
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("(650) 253-0000", "US")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", got)

	got, err = NormalizePhone("+44 20 7031 3000", "US")
	require.NoError(t, err)
	assert.Equal(t, "+442070313000", got)

	_, err = NormalizePhone("12", "US")
	require.ErrorIs(t, err, auth.ErrValidationFailed)

	_, err = NormalizePhone("", "US")
	require.ErrorIs(t, err, ErrInvalidPhone)
}
