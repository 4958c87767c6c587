package repository

import (
	"context"
	"fmt"
	"time"

	"dukapos/internal/dto"
	"dukapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	// CreateTx inserts the sale and its items inside a caller-owned
	// transaction — sales only ever exist as part of a checkout commit.
	CreateTx(tx *gorm.DB, s *model.Sale) error
	// NextReceiptNoTx draws the next receipt number from the DB sequence so
	// concurrent checkouts never collide.
	NextReceiptNoTx(tx *gorm.DB) (string, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	// ListByRegisterIDs returns all sales of the given registers, oldest
	// first — the daily report's source of truth.
	ListByRegisterIDs(ctx context.Context, registerIDs []uuid.UUID) ([]model.Sale, error)
	// List returns sales in (created_at, id) order for history and export.
	List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error)

	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) NextReceiptNoTx(tx *gorm.DB) (string, error) {
	var seq int64
	if err := tx.Raw("SELECT nextval('sales_receipt_seq')").Scan(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("RCT-%06d", seq), nil
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	if err := r.db.WithContext(ctx).Preload("Items").First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) ListByRegisterIDs(ctx context.Context, registerIDs []uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("register_session_id IN ?", registerIDs).
		Order("created_at ASC, id ASC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Sale{})

	if filter.RegisterID != "" {
		q = q.Where("register_session_id = ?", filter.RegisterID)
	}
	if filter.CashierID != "" {
		q = q.Where("cashier_id = ?", filter.CashierID)
	}
	if filter.Date != "" {
		day, err := time.Parse("2006-01-02", filter.Date)
		if err == nil {
			q = q.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
		}
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items").Order("created_at ASC, id ASC").
		Limit(filter.Limit).Offset(offset).Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) DB() *gorm.DB { return r.db }
