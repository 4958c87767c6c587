package repository

import (
	"context"
	"time"

	"dukapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegisterRepository is the data access contract for register sessions.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling unit testing via in-memory fakes.
type RegisterRepository interface {
	CreateSession(ctx context.Context, s *model.RegisterSession) error
	FindOpenByCashier(ctx context.Context, cashierID uuid.UUID) (*model.RegisterSession, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.RegisterSession, error)
	// CloseSession persists the closing fields, guarded on status='OPEN'.
	// Returns false when the session was already closed by a concurrent call.
	CloseSession(ctx context.Context, s *model.RegisterSession) (bool, error)
	// AddSaleTx increments the running counters inside a caller-owned
	// transaction, guarded on status='OPEN' so a drawer closed mid-checkout
	// aborts the whole sale. Returns false when the guard fails.
	AddSaleTx(tx *gorm.DB, registerID uuid.UUID, total decimal.Decimal, method string) (bool, error)
	// ListOpenedInWindow returns the cashier's sessions opened in [from, to),
	// oldest first.
	ListOpenedInWindow(ctx context.Context, cashierID uuid.UUID, from, to time.Time) ([]model.RegisterSession, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type registerRepo struct{ db *gorm.DB }

func NewRegisterRepository(db *gorm.DB) RegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) CreateSession(ctx context.Context, s *model.RegisterSession) error {
	err := r.db.WithContext(ctx).Create(s).Error
	return duplicateAsConflict(err, "cashier already has an open register session")
}

func (r *registerRepo) FindOpenByCashier(ctx context.Context, cashierID uuid.UUID) (*model.RegisterSession, error) {
	var s model.RegisterSession
	err := r.db.WithContext(ctx).
		Where("cashier_id = ? AND status = ?", cashierID, model.RegisterOpen).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *registerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RegisterSession, error) {
	var s model.RegisterSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *registerRepo) CloseSession(ctx context.Context, s *model.RegisterSession) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.RegisterSession{}).
		Where("id = ? AND status = ?", s.ID, model.RegisterOpen).
		Updates(map[string]interface{}{
			"status":       model.RegisterClosed,
			"closing_cash": s.ClosingCash,
			"notes":        s.Notes,
			"closed_at":    s.ClosedAt,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *registerRepo) AddSaleTx(tx *gorm.DB, registerID uuid.UUID, total decimal.Decimal, method string) (bool, error) {
	methodCol := "cash_sales"
	if method == model.PaymentMpesa {
		methodCol = "mpesa_sales"
	}
	res := tx.Model(&model.RegisterSession{}).
		Where("id = ? AND status = ?", registerID, model.RegisterOpen).
		Updates(map[string]interface{}{
			"sales_count": gorm.Expr("sales_count + 1"),
			"gross_sales": gorm.Expr("gross_sales + ?", total),
			methodCol:     gorm.Expr(methodCol+" + ?", total),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *registerRepo) ListOpenedInWindow(ctx context.Context, cashierID uuid.UUID, from, to time.Time) ([]model.RegisterSession, error) {
	var sessions []model.RegisterSession
	err := r.db.WithContext(ctx).
		Where("cashier_id = ? AND opened_at >= ? AND opened_at < ?", cashierID, from, to).
		Order("opened_at ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *registerRepo) DB() *gorm.DB { return r.db }
