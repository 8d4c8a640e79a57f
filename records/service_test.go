package records

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-service-auth"
)

func seed(t *testing.T, svc *Service, in CreateInput) *ServiceRecord {
	t.Helper()
	record, err := svc.Create(context.Background(), admin, in)
	require.NoError(t, err)
	return record
}

func aliceWatch(billNo string) CreateInput {
	return CreateInput{
		BillNo:        billNo,
		OwnerEmail:    "Alice@Example.com",
		CustomerName:  "Alice",
		CustomerPhone: "(650) 253-0000",
		Brand:         "Seiko",
		Model:         "SKX007",
		Complaint:     "loses time",
	}
}

func bobWatch(billNo string) CreateInput {
	return CreateInput{
		BillNo:        billNo,
		OwnerEmail:    "bob@example.com",
		CustomerName:  "Bob",
		CustomerPhone: "+44 20 7031 3000",
		Brand:         "Casio",
	}
}

func TestCreate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	record := seed(t, svc, aliceWatch("B-100"))
	assert.Equal(t, "alice@example.com", record.OwnerEmail)
	assert.Equal(t, "+16502530000", record.CustomerPhone)
	assert.Equal(t, StatusPending, record.Status)

	t.Run("duplicate bill number", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, aliceWatch("B-100"))
		require.ErrorIs(t, err, ErrDuplicateBillNo)

		code, body := auth.ToErrorBody(err)
		assert.Equal(t, 409, code)
		assert.Equal(t, TextCodeDuplicateBillNo, body.Error.TextCode)
	})

	t.Run("customer is forbidden", func(t *testing.T) {
		_, err := svc.Create(ctx, alice, aliceWatch("B-101"))
		require.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("anonymous is unauthenticated", func(t *testing.T) {
		_, err := svc.Create(ctx, anon, aliceWatch("B-102"))
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("invalid input", func(t *testing.T) {
		in := aliceWatch("B-103")
		in.OwnerEmail = "not-an-email"
		_, err := svc.Create(ctx, admin, in)
		require.ErrorIs(t, err, auth.ErrValidationFailed)

		in = aliceWatch("B-104")
		in.CustomerPhone = "12"
		_, err = svc.Create(ctx, admin, in)
		require.ErrorIs(t, err, auth.ErrValidationFailed)
	})
}

func TestCreateKeepsJobDetails(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cost := 149.5
	in := aliceWatch("B-110")
	in.WatchType = " Automatic "
	in.ServiceType = "Full service"
	in.Cost = &cost
	seed(t, svc, in)

	record, err := svc.GetByBillNo(ctx, alice, "B-110")
	require.NoError(t, err)
	require.NotNil(t, record.WatchType)
	require.NotNil(t, record.ServiceType)
	require.NotNil(t, record.Cost)
	assert.Equal(t, "Automatic", *record.WatchType)
	assert.Equal(t, "Full service", *record.ServiceType)
	assert.InDelta(t, 149.5, *record.Cost, 0.001)

	t.Run("details are optional", func(t *testing.T) {
		seed(t, svc, bobWatch("B-111"))

		record, err := svc.GetByBillNo(ctx, bob, "B-111")
		require.NoError(t, err)
		assert.Nil(t, record.WatchType)
		assert.Nil(t, record.ServiceType)
		assert.Nil(t, record.Cost)
	})

	t.Run("negative cost is rejected", func(t *testing.T) {
		negative := -1.0
		in := aliceWatch("B-112")
		in.Cost = &negative
		_, err := svc.Create(ctx, admin, in)
		require.ErrorIs(t, err, auth.ErrValidationFailed)
	})
}

func TestListIsOwnerScoped(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed(t, svc, aliceWatch("A-1"))
	seed(t, svc, aliceWatch("A-2"))
	seed(t, svc, bobWatch("B-1"))

	all, err := svc.List(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.List(ctx, alice, nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, r := range mine {
		assert.Equal(t, "alice@example.com", r.OwnerEmail)
	}

	_, err = svc.List(ctx, anon, nil)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = svc.UpdateStatus(ctx, admin, "A-2", "Completed")
	require.NoError(t, err)

	completed := StatusCompleted
	done, err := svc.List(ctx, alice, &completed)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "A-2", done[0].BillNo)

	done, err = svc.List(ctx, bob, &completed)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestGetByBillNo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed(t, svc, aliceWatch("A-1"))

	record, err := svc.GetByBillNo(ctx, alice, "A-1")
	require.NoError(t, err)
	assert.Equal(t, "A-1", record.BillNo)

	_, err = svc.GetByBillNo(ctx, admin, "A-1")
	require.NoError(t, err)

	_, err = svc.GetByBillNo(ctx, bob, "A-1")
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.GetByBillNo(ctx, alice, "missing")
	require.ErrorIs(t, err, auth.ErrNotFound)

	_, err = svc.GetByBillNo(ctx, anon, "A-1")
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestFindByPhone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed(t, svc, aliceWatch("A-1"))
	seed(t, svc, bobWatch("B-1"))

	found, err := svc.FindByPhone(ctx, alice, "+1 650 253 0000")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "A-1", found[0].BillNo)

	found, err = svc.FindByPhone(ctx, admin, "650-253-0000")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = svc.FindByPhone(ctx, bob, "6502530000")
	require.ErrorIs(t, err, auth.ErrNotFound)

	_, err = svc.FindByPhone(ctx, admin, "12")
	require.ErrorIs(t, err, auth.ErrValidationFailed)
}

func TestUpdateStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed(t, svc, aliceWatch("A-1"))

	record, err := svc.UpdateStatus(ctx, admin, "A-1", "In Progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, record.Status)

	record, err = svc.UpdateStatus(ctx, admin, "A-1", "Pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, record.Status)

	_, err = svc.UpdateStatus(ctx, admin, "A-1", "Lost")
	require.ErrorIs(t, err, auth.ErrValidationFailed)

	_, err = svc.UpdateStatus(ctx, alice, "A-1", "Delivered")
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.UpdateStatus(ctx, admin, "missing", "Delivered")
	require.ErrorIs(t, err, auth.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed(t, svc, aliceWatch("A-1"))

	require.ErrorIs(t, svc.Delete(ctx, alice, "A-1"), auth.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, admin, "A-1"))
	require.ErrorIs(t, svc.Delete(ctx, admin, "A-1"), auth.ErrNotFound)

	_, err := svc.GetByBillNo(ctx, admin, "A-1")
	require.ErrorIs(t, err, auth.ErrNotFound)
}

func TestUpcomingEstimations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	late := aliceWatch("A-late")
	late.EstimatedDelivery = day(20)
	seed(t, svc, late)

	soon := aliceWatch("A-soon")
	soon.EstimatedDelivery = day(5)
	seed(t, svc, soon)

	done := aliceWatch("A-done")
	done.EstimatedDelivery = day(2)
	seed(t, svc, done)
	_, err := svc.UpdateStatus(ctx, admin, "A-done", "Completed")
	require.NoError(t, err)

	other := bobWatch("B-1")
	other.EstimatedDelivery = day(1)
	seed(t, svc, other)

	_, err = svc.UpdateStatus(ctx, admin, "A-late", "InProgress")
	require.NoError(t, err)

	upcoming, err := svc.UpcomingEstimations(ctx, alice)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "A-soon", upcoming[0].BillNo)
	assert.Equal(t, "A-late", upcoming[1].BillNo)

	upcoming, err = svc.UpcomingEstimations(ctx, admin)
	require.NoError(t, err)
	require.Len(t, upcoming, 3)
	assert.Equal(t, "B-1", upcoming[0].BillNo)
}

func TestDeliveredReport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed(t, svc, aliceWatch("A-1"))

	_, err := svc.DeliveredReport(ctx, admin)
	require.ErrorIs(t, err, auth.ErrNotFound)

	_, err = svc.UpdateStatus(ctx, admin, "A-1", "Delivered")
	require.NoError(t, err)

	report, err := svc.DeliveredReport(ctx, admin)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, StatusDelivered, report[0].Status)

	_, err = svc.DeliveredReport(ctx, alice)
	require.ErrorIs(t, err, auth.ErrForbidden)
}
