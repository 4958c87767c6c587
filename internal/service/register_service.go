package service

import (
	"context"
	"errors"
	"time"

	"dukapos/internal/apperr"
	"dukapos/internal/dto"
	"dukapos/internal/model"
	"dukapos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterService manages the cash drawer session lifecycle. The running
// sales counters on a session belong to the checkout engine — this service
// only opens, reads, and closes.
type RegisterService interface {
	Open(ctx context.Context, cashierID, openedByID uuid.UUID, req dto.OpenRegisterRequest) (*dto.RegisterResponse, error)
	Close(ctx context.Context, cashierID uuid.UUID, req dto.CloseRegisterRequest) (*dto.RegisterCloseSummary, error)
	GetOpen(ctx context.Context, cashierID uuid.UUID) (*dto.RegisterResponse, error)
}

type registerService struct {
	repo repository.RegisterRepository
}

func NewRegisterService(repo repository.RegisterRepository) RegisterService {
	return &registerService{repo: repo}
}

func (s *registerService) Open(ctx context.Context, cashierID, openedByID uuid.UUID, req dto.OpenRegisterRequest) (*dto.RegisterResponse, error) {
	if req.OpeningFloat.IsNegative() {
		return nil, apperr.Validation("opening float cannot be negative")
	}

	// Guard: one OPEN register per cashier. The partial unique index on
	// (cashier_id) WHERE status='OPEN' backstops this check under races.
	if existing, err := s.repo.FindOpenByCashier(ctx, cashierID); err == nil && existing != nil {
		return nil, apperr.Conflict("cashier already has an open register session")
	}

	session := &model.RegisterSession{
		CashierID:    cashierID,
		OpenedByID:   openedByID,
		Status:       model.RegisterOpen,
		OpeningFloat: req.OpeningFloat,
		OpenedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return registerToResponse(session), nil
}

func (s *registerService) Close(ctx context.Context, cashierID uuid.UUID, req dto.CloseRegisterRequest) (*dto.RegisterCloseSummary, error) {
	if req.ClosingCash.IsNegative() {
		return nil, apperr.Validation("closing cash cannot be negative")
	}

	session, err := s.repo.FindOpenByCashier(ctx, cashierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no open register session for this cashier")
		}
		return nil, err
	}

	expectedCash := session.ExpectedCash()
	difference := req.ClosingCash.Sub(expectedCash)
	closedAt := time.Now().UTC()

	closingCash := req.ClosingCash
	session.ClosingCash = &closingCash
	session.Notes = req.Notes
	session.ClosedAt = &closedAt

	ok, err := s.repo.CloseSession(ctx, session)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with a concurrent close of the same drawer.
		return nil, apperr.Conflict("register session %s is already closed", session.ID)
	}

	return &dto.RegisterCloseSummary{
		ID:           session.ID.String(),
		OpeningFloat: session.OpeningFloat,
		SalesCount:   session.SalesCount,
		GrossSales:   session.GrossSales,
		CashSales:    session.CashSales,
		MpesaSales:   session.MpesaSales,
		ExpectedCash: expectedCash,
		ClosingCash:  req.ClosingCash,
		Difference:   difference,
		ClosedAt:     closedAt.Format("2006-01-02T15:04:05Z"),
	}, nil
}

func (s *registerService) GetOpen(ctx context.Context, cashierID uuid.UUID) (*dto.RegisterResponse, error) {
	session, err := s.repo.FindOpenByCashier(ctx, cashierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no open register session for this cashier")
		}
		return nil, err
	}
	return registerToResponse(session), nil
}

func registerToResponse(s *model.RegisterSession) *dto.RegisterResponse {
	resp := &dto.RegisterResponse{
		ID:           s.ID.String(),
		CashierID:    s.CashierID.String(),
		OpenedByID:   s.OpenedByID.String(),
		Status:       s.Status,
		OpeningFloat: s.OpeningFloat,
		SalesCount:   s.SalesCount,
		GrossSales:   s.GrossSales,
		CashSales:    s.CashSales,
		MpesaSales:   s.MpesaSales,
		Notes:        s.Notes,
		OpenedAt:     s.OpenedAt.Format("2006-01-02T15:04:05Z"),
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.Format("2006-01-02T15:04:05Z")
		resp.ClosedAt = &t
	}
	return resp
}
