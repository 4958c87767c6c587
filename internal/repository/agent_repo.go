package repository

import (
	"context"

	"dukapos/internal/dto"
	"dukapos/internal/ledger"
	"dukapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgentRepository is the data access contract for the agent ledger.
//
// The non-negativity invariant is enforced here, not in the service: every
// balance change goes through ApplyDeltasTx, a single conditional UPDATE whose
// predicate includes the post-image check. The affected-row count is the
// success signal, so two racing movements can never both drain the same
// balance — whichever commits second sees the already-reduced balance in its
// predicate.
type AgentRepository interface {
	CreateSession(ctx context.Context, s *model.AgentSession) error
	FindOpenByCashier(ctx context.Context, cashierID uuid.UUID) (*model.AgentSession, error)
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.AgentSession, error)
	// FindOpenForUpdateTx reads the cashier's OPEN session with a row lock,
	// so a close holds the row against concurrent ApplyDeltasTx calls until
	// the transaction commits.
	FindOpenForUpdateTx(tx *gorm.DB, cashierID uuid.UUID) (*model.AgentSession, error)
	// ApplyDeltasTx applies both balance deltas to an OPEN session in one
	// conditional statement. Returns false without side effects when the
	// session is not open or either post-image balance would be negative.
	ApplyDeltasTx(tx *gorm.DB, sessionID uuid.UUID, cashDelta, floatDelta decimal.Decimal) (bool, error)
	CreateMovementTx(tx *gorm.DB, m *model.AgentMovement) error
	FindMovementByID(ctx context.Context, id uuid.UUID) (*model.AgentMovement, error)
	RefCodeExistsTx(tx *gorm.DB, refCode string) (bool, error)
	// SumDeltasTx recomputes the session's total cash/float deltas from its
	// movement rows — the close-time cross-check against the running balances.
	SumDeltasTx(tx *gorm.DB, sessionID uuid.UUID) (decimal.Decimal, decimal.Decimal, error)
	// CloseSessionTx persists the closing figures, guarded on status='OPEN'.
	CloseSessionTx(tx *gorm.DB, s *model.AgentSession) (bool, error)
	// ListMovements returns movements in (created_at, id) order — the stable
	// iteration contract the export collaborators rely on.
	ListMovements(ctx context.Context, filter dto.MovementFilter) ([]model.AgentMovement, int64, error)

	DB() *gorm.DB
}

type agentRepo struct{ db *gorm.DB }

func NewAgentRepository(db *gorm.DB) AgentRepository { return &agentRepo{db: db} }

func (r *agentRepo) CreateSession(ctx context.Context, s *model.AgentSession) error {
	err := r.db.WithContext(ctx).Create(s).Error
	return duplicateAsConflict(err, "cashier already has an open agent session")
}

func (r *agentRepo) FindOpenByCashier(ctx context.Context, cashierID uuid.UUID) (*model.AgentSession, error) {
	var s model.AgentSession
	err := r.db.WithContext(ctx).
		Where("cashier_id = ? AND status = ?", cashierID, model.AgentOpen).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *agentRepo) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.AgentSession, error) {
	var s model.AgentSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *agentRepo) FindOpenForUpdateTx(tx *gorm.DB, cashierID uuid.UUID) (*model.AgentSession, error) {
	var s model.AgentSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cashier_id = ? AND status = ?", cashierID, model.AgentOpen).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *agentRepo) ApplyDeltasTx(tx *gorm.DB, sessionID uuid.UUID, cashDelta, floatDelta decimal.Decimal) (bool, error) {
	res := tx.Model(&model.AgentSession{}).
		Where("id = ? AND status = ?", sessionID, model.AgentOpen).
		Where("current_cash + ? >= 0 AND current_float + ? >= 0", cashDelta, floatDelta).
		Updates(map[string]interface{}{
			"current_cash":  gorm.Expr("current_cash + ?", cashDelta),
			"current_float": gorm.Expr("current_float + ?", floatDelta),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *agentRepo) CreateMovementTx(tx *gorm.DB, m *model.AgentMovement) error {
	err := tx.Create(m).Error
	if m.RefCode != nil {
		return duplicateAsConflict(err, "reference code %s already recorded", *m.RefCode)
	}
	return err
}

func (r *agentRepo) FindMovementByID(ctx context.Context, id uuid.UUID) (*model.AgentMovement, error) {
	var m model.AgentMovement
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *agentRepo) RefCodeExistsTx(tx *gorm.DB, refCode string) (bool, error) {
	var count int64
	err := tx.Model(&model.AgentMovement{}).Where("ref_code = ?", refCode).Count(&count).Error
	return count > 0, err
}

func (r *agentRepo) SumDeltasTx(tx *gorm.DB, sessionID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var sums struct {
		CashTotal  decimal.Decimal
		FloatTotal decimal.Decimal
	}
	err := tx.Model(&model.AgentMovement{}).
		Select("COALESCE(SUM(cash_delta), 0) AS cash_total, COALESCE(SUM(float_delta), 0) AS float_total").
		Where("session_id = ?", sessionID).
		Scan(&sums).Error
	return sums.CashTotal, sums.FloatTotal, err
}

func (r *agentRepo) CloseSessionTx(tx *gorm.DB, s *model.AgentSession) (bool, error) {
	res := tx.Model(&model.AgentSession{}).
		Where("id = ? AND status = ?", s.ID, model.AgentOpen).
		Updates(map[string]interface{}{
			"status":         model.AgentClosed,
			"closing_cash":   s.ClosingCash,
			"closing_float":  s.ClosingFloat,
			"expected_cash":  s.ExpectedCash,
			"expected_float": s.ExpectedFloat,
			"cash_variance":  s.CashVariance,
			"float_variance": s.FloatVariance,
			"notes":          s.Notes,
			"closed_at":      s.ClosedAt,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *agentRepo) ListMovements(ctx context.Context, filter dto.MovementFilter) ([]model.AgentMovement, int64, error) {
	var movements []model.AgentMovement
	var total int64

	q := r.db.WithContext(ctx).Model(&model.AgentMovement{})

	if filter.SessionID != "" {
		q = q.Where("session_id = ?", filter.SessionID)
	}
	if filter.CashierID != "" {
		q = q.Where("session_id IN (?)",
			r.db.Model(&model.AgentSession{}).Select("id").Where("cashier_id = ?", filter.CashierID))
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", ledger.MovementKind(filter.Kind))
	}
	if filter.DateFrom != "" {
		q = q.Where("created_at >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		q = q.Where("created_at < ?", filter.DateTo)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("created_at ASC, id ASC").Limit(filter.Limit).Offset(offset).Find(&movements).Error
	return movements, total, err
}

func (r *agentRepo) DB() *gorm.DB { return r.db }
