package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CheckoutLine references either a plain product or a variant, never both.
type CheckoutLine struct {
	ProductID *string `json:"product_id" validate:"omitempty,uuid"`
	VariantID *string `json:"variant_id" validate:"omitempty,uuid"`
	Qty       int64   `json:"qty"        validate:"required,gt=0"`
}

type PaymentRequest struct {
	Method     string          `json:"method"      validate:"required,oneof=CASH MPESA"`
	AmountPaid decimal.Decimal `json:"amount_paid" validate:"required,gt=0"`
}

type CheckoutRequest struct {
	RegisterID string          `json:"register_id" validate:"required,uuid"`
	Items      []CheckoutLine  `json:"items"       validate:"required,min=1,dive"`
	Discount   decimal.Decimal `json:"discount"    validate:"min=0"`
	Payment    PaymentRequest  `json:"payment"     validate:"required"`
}

// SaleFilter narrows the sale listing (export collaborators, history views).
type SaleFilter struct {
	RegisterID string `form:"register_id" validate:"omitempty,uuid"`
	CashierID  string `form:"cashier_id"  validate:"omitempty,uuid"`
	Date       string `form:"date"        validate:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	Kind      string          `json:"kind"`
	ProductID string          `json:"product_id"`
	VariantID *string         `json:"variant_id"`
	Name      string          `json:"name"`
	Barcode   string          `json:"barcode"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int64           `json:"qty"`
	BaseQty   int64           `json:"base_qty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type SaleResponse struct {
	ID            string             `json:"id"`
	ReceiptNo     string             `json:"receipt_no"`
	RegisterID    string             `json:"register_id"`
	CashierID     string             `json:"cashier_id"`
	Items         []SaleItemResponse `json:"items"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Discount      decimal.Decimal    `json:"discount"`
	Total         decimal.Decimal    `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	AmountPaid    decimal.Decimal    `json:"amount_paid"`
	Change        decimal.Decimal    `json:"change"`
	CreatedAt     string             `json:"created_at"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
