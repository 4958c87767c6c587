package service_test

import (
	"context"
	"testing"

	"dukapos/internal/apperr"
	"dukapos/internal/dto"
	"dukapos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOpenAndCurrent(t *testing.T) {
	repo := newFakeRegisterRepo()
	svc := service.NewRegisterService(repo)
	cashierID := uuid.New()

	resp, err := svc.Open(context.Background(), cashierID, cashierID, dto.OpenRegisterRequest{
		OpeningFloat: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, "OPEN", resp.Status)
	assert.True(t, resp.OpeningFloat.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 0, resp.SalesCount)

	current, err := svc.GetOpen(context.Background(), cashierID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, current.ID)
}

func TestRegisterOpenRejectsSecondSession(t *testing.T) {
	repo := newFakeRegisterRepo()
	svc := service.NewRegisterService(repo)
	cashierID := uuid.New()

	_, err := svc.Open(context.Background(), cashierID, cashierID, dto.OpenRegisterRequest{})
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), cashierID, cashierID, dto.OpenRegisterRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	// A different cashier is unaffected.
	_, err = svc.Open(context.Background(), uuid.New(), cashierID, dto.OpenRegisterRequest{})
	assert.NoError(t, err)
}

// When two opens race past the pre-check, the partial unique index rejects
// the second insert — and that must surface as a conflict, not a 500.
func TestRegisterOpenLostRaceSurfacesConflict(t *testing.T) {
	repo := newFakeRegisterRepo()
	svc := service.NewRegisterService(repo)
	cashierID := uuid.New()

	_, err := svc.Open(context.Background(), cashierID, cashierID, dto.OpenRegisterRequest{})
	require.NoError(t, err)

	repo.hideOpenOnce = true
	_, err = svc.Open(context.Background(), cashierID, cashierID, dto.OpenRegisterRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestRegisterOpenRejectsNegativeFloat(t *testing.T) {
	svc := service.NewRegisterService(newFakeRegisterRepo())

	_, err := svc.Open(context.Background(), uuid.New(), uuid.New(), dto.OpenRegisterRequest{
		OpeningFloat: decimal.NewFromInt(-5),
	})
	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, kind)
}

func TestRegisterCloseComputesDifference(t *testing.T) {
	repo := newFakeRegisterRepo()
	svc := service.NewRegisterService(repo)
	cashierID := uuid.New()

	opened, err := svc.Open(context.Background(), cashierID, cashierID, dto.OpenRegisterRequest{
		OpeningFloat: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	// Ring up a cash sale directly against the stored session.
	registerID := uuid.MustParse(opened.ID)
	ok, err := repo.AddSaleTx(nil, registerID, decimal.NewFromInt(300), "CASH")
	require.NoError(t, err)
	require.True(t, ok)

	summary, err := svc.Close(context.Background(), cashierID, dto.CloseRegisterRequest{
		ClosingCash: decimal.NewFromInt(790),
	})
	require.NoError(t, err)
	assert.True(t, summary.ExpectedCash.Equal(decimal.NewFromInt(800)), "expected = opening float + cash sales")
	assert.True(t, summary.Difference.Equal(decimal.NewFromInt(-10)), "drawer is 10 short")
	assert.Equal(t, 1, summary.SalesCount)

	// Session is gone from the open view and cannot be closed twice.
	_, err = svc.GetOpen(context.Background(), cashierID)
	assert.True(t, apperr.IsNotFound(err))

	_, err = svc.Close(context.Background(), cashierID, dto.CloseRegisterRequest{
		ClosingCash: decimal.NewFromInt(790),
	})
	assert.True(t, apperr.IsNotFound(err))
}

func TestRegisterCloseWithoutSession(t *testing.T) {
	svc := service.NewRegisterService(newFakeRegisterRepo())

	_, err := svc.Close(context.Background(), uuid.New(), dto.CloseRegisterRequest{
		ClosingCash: decimal.NewFromInt(100),
	})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}
