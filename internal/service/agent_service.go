package service

import (
	"context"
	"errors"
	"time"

	"dukapos/internal/apperr"
	"dukapos/internal/dto"
	"dukapos/internal/ledger"
	"dukapos/internal/model"
	"dukapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AgentService manages the mobile-money agent sub-ledger: one open session
// per cashier, append-only typed movements against two running balances,
// reversals as new movements, and a close that reconciles counted against
// expected figures.
type AgentService interface {
	OpenSession(ctx context.Context, cashierID uuid.UUID, req dto.OpenAgentSessionRequest) (*dto.AgentSessionResponse, error)
	Current(ctx context.Context, cashierID uuid.UUID) (*dto.AgentSessionResponse, error)
	RecordMovement(ctx context.Context, cashierID, performedBy uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error)
	Reverse(ctx context.Context, movementID, performedBy uuid.UUID, req dto.ReverseMovementRequest) (*dto.MovementResponse, error)
	ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
	CloseSession(ctx context.Context, cashierID uuid.UUID, req dto.CloseAgentSessionRequest) (*dto.AgentCloseResponse, error)
}

type agentService struct {
	repo repository.AgentRepository
}

func NewAgentService(repo repository.AgentRepository) AgentService {
	return &agentService{repo: repo}
}

func (s *agentService) OpenSession(ctx context.Context, cashierID uuid.UUID, req dto.OpenAgentSessionRequest) (*dto.AgentSessionResponse, error) {
	if req.OpeningCash.IsNegative() || req.OpeningFloat.IsNegative() {
		return nil, apperr.Validation("opening balances cannot be negative")
	}

	if existing, err := s.repo.FindOpenByCashier(ctx, cashierID); err == nil && existing != nil {
		return nil, apperr.Conflict("cashier already has an open agent session")
	}

	session := &model.AgentSession{
		CashierID:    cashierID,
		Status:       model.AgentOpen,
		OpeningCash:  req.OpeningCash,
		OpeningFloat: req.OpeningFloat,
		CurrentCash:  req.OpeningCash,
		CurrentFloat: req.OpeningFloat,
		OpenedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return agentSessionToResponse(session), nil
}

func (s *agentService) Current(ctx context.Context, cashierID uuid.UUID) (*dto.AgentSessionResponse, error) {
	session, err := s.repo.FindOpenByCashier(ctx, cashierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no open agent session for this cashier")
		}
		return nil, err
	}
	return agentSessionToResponse(session), nil
}

// RecordMovement computes the signed deltas for the movement kind and applies
// them together with the movement insert in one transaction. The balance
// update is a single conditional statement (post-image non-negativity in the
// predicate), so a lost race surfaces as zero affected rows — never as a
// negative balance or a dangling movement row.
func (s *agentService) RecordMovement(ctx context.Context, cashierID, performedBy uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error) {
	kind := ledger.MovementKind(req.Kind)
	if !ledger.Valid(kind) {
		return nil, apperr.Validation("unknown movement kind %q", req.Kind)
	}
	cashDelta, floatDelta, err := ledger.Deltas(kind, req.Amount)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.FindOpenByCashier(ctx, cashierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("no open session")
		}
		return nil, err
	}

	movement := &model.AgentMovement{
		SessionID:     session.ID,
		Kind:          kind,
		Amount:        req.Amount,
		CashDelta:     cashDelta,
		FloatDelta:    floatDelta,
		RefCode:       req.RefCode,
		Phone:         req.Phone,
		Note:          req.Note,
		PerformedByID: performedBy,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if req.RefCode != nil {
			exists, err := s.repo.RefCodeExistsTx(tx, *req.RefCode)
			if err != nil {
				return err
			}
			if exists {
				return apperr.Conflict("reference code %s already recorded", *req.RefCode)
			}
		}
		return s.applyAndInsert(ctx, tx, session.ID, movement)
	})
	if txErr != nil {
		return nil, txErr
	}
	return movementToResponse(movement), nil
}

// Reverse creates a new REVERSAL movement negating the original's deltas.
// The original row is never touched; a closed session's history is frozen.
func (s *agentService) Reverse(ctx context.Context, movementID, performedBy uuid.UUID, req dto.ReverseMovementRequest) (*dto.MovementResponse, error) {
	original, err := s.repo.FindMovementByID(ctx, movementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("movement %s not found", movementID)
		}
		return nil, err
	}

	session, err := s.repo.FindSessionByID(ctx, original.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.AgentOpen {
		return nil, apperr.State("agent session %s is closed; its history is frozen", session.ID)
	}

	originalID := original.ID
	reversal := &model.AgentMovement{
		SessionID:     session.ID,
		Kind:          ledger.KindReversal,
		Amount:        original.Amount,
		CashDelta:     original.CashDelta.Neg(),
		FloatDelta:    original.FloatDelta.Neg(),
		Note:          req.Note,
		PerformedByID: performedBy,
		ReversalOfID:  &originalID,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.applyAndInsert(ctx, tx, session.ID, reversal)
	})
	if txErr != nil {
		return nil, txErr
	}
	return movementToResponse(reversal), nil
}

// applyAndInsert is the shared atomic step of RecordMovement and Reverse:
// conditional balance update, then the movement row, all inside the caller's
// transaction. When the conditional update misses, the fresh session state is
// re-read to name the side that would have gone negative.
func (s *agentService) applyAndInsert(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, m *model.AgentMovement) error {
	applied, err := s.repo.ApplyDeltasTx(tx, sessionID, m.CashDelta, m.FloatDelta)
	if err != nil {
		return err
	}
	if !applied {
		fresh, err := s.repo.FindSessionByID(ctx, sessionID)
		if err != nil {
			return apperr.Conflict("movement would drive a balance negative")
		}
		if fresh.Status != model.AgentOpen {
			return apperr.Validation("no open session")
		}
		if fresh.CurrentCash.Add(m.CashDelta).IsNegative() {
			return apperr.Conflict("insufficient cash in hand: balance %s cannot absorb %s", fresh.CurrentCash, m.CashDelta)
		}
		return apperr.Conflict("insufficient float: balance %s cannot absorb %s", fresh.CurrentFloat, m.FloatDelta)
	}
	m.CreatedAt = time.Now().UTC()
	return s.repo.CreateMovementTx(tx, m)
}

func (s *agentService) ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 100
	}
	movements, total, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(movements))
	for i := range movements {
		items = append(items, *movementToResponse(&movements[i]))
	}
	return &dto.MovementListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// CloseSession recomputes the session totals from the movement rows and
// reconciles them against the declared counted amounts. The summed deltas are
// an independent cross-check of the running balances: by invariant the two
// agree, and any divergence is logged and surfaced, never absorbed. The
// session row is locked for the whole transaction, so a movement racing the
// close either lands before the sum or is rejected by the OPEN guard after
// commit — the frozen figures can never miss a committed movement.
func (s *agentService) CloseSession(ctx context.Context, cashierID uuid.UUID, req dto.CloseAgentSessionRequest) (*dto.AgentCloseResponse, error) {
	if req.ClosingCash.IsNegative() || req.ClosingFloat.IsNegative() {
		return nil, apperr.Validation("counted closing balances cannot be negative")
	}

	var resp *dto.AgentCloseResponse
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		session, err := s.repo.FindOpenForUpdateTx(tx, cashierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("no open agent session for this cashier")
			}
			return err
		}

		cashSum, floatSum, err := s.repo.SumDeltasTx(tx, session.ID)
		if err != nil {
			return err
		}

		expectedCash := session.OpeningCash.Add(cashSum)
		expectedFloat := session.OpeningFloat.Add(floatSum)
		cashVariance := req.ClosingCash.Sub(expectedCash)
		floatVariance := req.ClosingFloat.Sub(expectedFloat)

		diverged := !expectedCash.Equal(session.CurrentCash) || !expectedFloat.Equal(session.CurrentFloat)
		if diverged {
			log.Warn().
				Str("session_id", session.ID.String()).
				Str("expected_cash", expectedCash.String()).
				Str("running_cash", session.CurrentCash.String()).
				Str("expected_float", expectedFloat.String()).
				Str("running_float", session.CurrentFloat.String()).
				Msg("agent session balances diverge from summed movement deltas")
		}

		closedAt := time.Now().UTC()
		closingCash, closingFloat := req.ClosingCash, req.ClosingFloat
		session.ClosingCash = &closingCash
		session.ClosingFloat = &closingFloat
		session.ExpectedCash = &expectedCash
		session.ExpectedFloat = &expectedFloat
		session.CashVariance = &cashVariance
		session.FloatVariance = &floatVariance
		session.Notes = req.Notes
		session.ClosedAt = &closedAt

		ok, err := s.repo.CloseSessionTx(tx, session)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("agent session %s is already closed", session.ID)
		}

		resp = &dto.AgentCloseResponse{
			SessionID: session.ID.String(),
			Cash: dto.AgentSideSummary{
				Opening:  session.OpeningCash,
				Expected: expectedCash,
				Counted:  req.ClosingCash,
				Variance: cashVariance,
			},
			Float: dto.AgentSideSummary{
				Opening:  session.OpeningFloat,
				Expected: expectedFloat,
				Counted:  req.ClosingFloat,
				Variance: floatVariance,
			},
			RunningCash:      session.CurrentCash,
			RunningFloat:     session.CurrentFloat,
			BalancesDiverged: diverged,
			Status:           model.AgentClosed,
			ClosedAt:         closedAt.Format("2006-01-02T15:04:05Z"),
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return resp, nil
}

func agentSessionToResponse(s *model.AgentSession) *dto.AgentSessionResponse {
	resp := &dto.AgentSessionResponse{
		ID:           s.ID.String(),
		CashierID:    s.CashierID.String(),
		Status:       s.Status,
		OpeningCash:  s.OpeningCash,
		OpeningFloat: s.OpeningFloat,
		CurrentCash:  s.CurrentCash,
		CurrentFloat: s.CurrentFloat,
		Notes:        s.Notes,
		OpenedAt:     s.OpenedAt.Format("2006-01-02T15:04:05Z"),
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.Format("2006-01-02T15:04:05Z")
		resp.ClosedAt = &t
	}
	return resp
}

func movementToResponse(m *model.AgentMovement) *dto.MovementResponse {
	resp := &dto.MovementResponse{
		ID:            m.ID.String(),
		SessionID:     m.SessionID.String(),
		Kind:          string(m.Kind),
		Amount:        m.Amount,
		CashDelta:     m.CashDelta,
		FloatDelta:    m.FloatDelta,
		RefCode:       m.RefCode,
		Phone:         m.Phone,
		Note:          m.Note,
		PerformedByID: m.PerformedByID.String(),
		CreatedAt:     m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if m.ReversalOfID != nil {
		id := m.ReversalOfID.String()
		resp.ReversalOfID = &id
	}
	return resp
}
