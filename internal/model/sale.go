package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment methods accepted at checkout.
const (
	PaymentCash  = "CASH"
	PaymentMpesa = "MPESA"
)

// Sale line item kinds.
const (
	LineProduct = "PRODUCT"
	LineVariant = "VARIANT"
)

// Sale is one completed checkout. It is created in the same transaction as
// the stock deductions and the register counter update, and never mutated
// afterwards.
type Sale struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReceiptNo         string          `gorm:"uniqueIndex;not null"`
	RegisterSessionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	CashierID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// PaymentMethod: "CASH" | "MPESA". Change is only non-zero for cash.
	PaymentMethod string          `gorm:"type:varchar(10);not null"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Change        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"index"`

	Items []SaleItem `gorm:"foreignKey:SaleID"`
}

// SaleItem is one resolved cart line. Name and barcode are snapshots taken
// at sale time so later catalog edits don't rewrite receipt history.
type SaleItem struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID uuid.UUID `gorm:"type:uuid;not null;index"`
	// Kind: "PRODUCT" | "VARIANT"
	Kind      string     `gorm:"type:varchar(10);not null"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null"`
	VariantID *uuid.UUID `gorm:"type:uuid"`
	Name      string     `gorm:"not null"`
	Barcode   string     `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Qty       int64           `gorm:"not null"`
	// BaseQty is the base-unit stock actually deducted for this line
	// (UnitSizeInBase × Qty for variants, Qty for plain products).
	BaseQty   int64           `gorm:"not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
