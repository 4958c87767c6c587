package repository

import (
	"context"

	"dukapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CashierRepository interface {
	Create(ctx context.Context, c *model.Cashier) error
	FindByUsername(ctx context.Context, username string) (*model.Cashier, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cashier, error)
}

type cashierRepo struct{ db *gorm.DB }

func NewCashierRepository(db *gorm.DB) CashierRepository { return &cashierRepo{db: db} }

func (r *cashierRepo) Create(ctx context.Context, c *model.Cashier) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *cashierRepo) FindByUsername(ctx context.Context, username string) (*model.Cashier, error) {
	var c model.Cashier
	err := r.db.WithContext(ctx).Where("username = ? AND active = true", username).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cashierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cashier, error) {
	var c model.Cashier
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
