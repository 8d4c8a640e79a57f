package jwtware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetExtractorsFollowsLookupOrder(t *testing.T) {
	extractors := GetExtractors("cookie:session, header:Authorization,query:token,param:jwt")
	require.Len(t, extractors, 4)
}

func TestGetExtractorsSkipsMalformedParts(t *testing.T) {
	extractors := GetExtractors("cookie,header:Authorization,unknown:x,")
	require.Len(t, extractors, 1)
}
