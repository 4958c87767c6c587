package repository

import (
	"context"

	"dukapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository is the read-and-deduct view of the catalog that checkout
// needs. Catalog CRUD is out of scope — creation exists only for seeding.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	CreateVariant(ctx context.Context, v *model.ProductVariant) error
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ProductVariant, error)
	// DeductStockTx decrements fromBase ? stock_base_qty : quantity by qty in
	// one conditional statement whose predicate requires enough stock. Returns
	// false without side effects when the product is short — including when a
	// concurrent checkout got there first.
	DeductStockTx(tx *gorm.DB, productID uuid.UUID, qty int64, fromBase bool) (bool, error)
	// ListLowStock returns active products at or below their threshold,
	// comparing whichever stock figure the product tracks.
	ListLowStock(ctx context.Context) ([]model.Product, error)

	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) CreateVariant(ctx context.Context, v *model.ProductVariant) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *productRepo) FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ProductVariant, error) {
	var variants []model.ProductVariant
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&variants).Error
	return variants, err
}

func (r *productRepo) DeductStockTx(tx *gorm.DB, productID uuid.UUID, qty int64, fromBase bool) (bool, error) {
	col := "quantity"
	if fromBase {
		col = "stock_base_qty"
	}
	res := tx.Model(&model.Product{}).
		Where("id = ? AND "+col+" >= ?", productID, qty).
		Update(col, gorm.Expr(col+" - ?", qty))
	return res.RowsAffected == 1, res.Error
}

func (r *productRepo) ListLowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("active = true").
		Where("(has_variants AND stock_base_qty <= low_stock_threshold) OR (NOT has_variants AND quantity <= low_stock_threshold)").
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) DB() *gorm.DB { return r.db }
