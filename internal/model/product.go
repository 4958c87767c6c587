package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the partial catalog view the checkout engine needs. Catalog
// CRUD (names, categories, images) lives in a separate admin surface; here a
// product is a price plus stock.
//
// Stock is tracked one of two ways:
//   - HasVariants=false: Quantity counts whole sellable units.
//   - HasVariants=true:  StockBaseQty counts base units (pcs/ml/g) that
//     variant sales convert into via ProductVariant.UnitSizeInBase.
//
// Neither figure may go negative; the repository decrements them with a
// conditional update and the affected-row count as the success signal.
type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string          `gorm:"index;not null"`
	Barcode      string          `gorm:"uniqueIndex;not null"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity     int64           `gorm:"not null;default:0"`
	HasVariants  bool            `gorm:"not null;default:false"`
	StockBaseQty int64           `gorm:"not null;default:0"`
	// BaseUnit: "pcs" | "ml" | "g"
	BaseUnit          string `gorm:"type:varchar(10);not null;default:'pcs'"`
	LowStockThreshold int64  `gorm:"not null;default:10"`
	Active            bool   `gorm:"not null;default:true"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Variants []ProductVariant `gorm:"foreignKey:ProductID"`
}

// AvailableBase returns the stock figure checkout deducts from.
func (p *Product) AvailableBase() int64 {
	if p.HasVariants {
		return p.StockBaseQty
	}
	return p.Quantity
}

// ProductVariant is a sellable pack size of a variant-mode product: one
// variant unit consumes UnitSizeInBase base units of the parent's stock
// (e.g. a 500 ml bottle drawn from bulk litres).
type ProductVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Barcode   string    `gorm:"uniqueIndex;not null"`
	// UnitSizeInBase > 0: base units per variant unit.
	UnitSizeInBase int64           `gorm:"not null"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
