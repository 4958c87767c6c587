package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenRegisterRequest struct {
	OpeningFloat decimal.Decimal `json:"opening_float" validate:"min=0"`
}

type CloseRegisterRequest struct {
	ClosingCash decimal.Decimal `json:"closing_cash" validate:"min=0"`
	Notes       *string         `json:"notes"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RegisterResponse struct {
	ID           string          `json:"id"`
	CashierID    string          `json:"cashier_id"`
	OpenedByID   string          `json:"opened_by_id"`
	Status       string          `json:"status"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
	SalesCount   int             `json:"sales_count"`
	GrossSales   decimal.Decimal `json:"gross_sales"`
	CashSales    decimal.Decimal `json:"cash_sales"`
	MpesaSales   decimal.Decimal `json:"mpesa_sales"`
	Notes        *string         `json:"notes"`
	OpenedAt     string          `json:"opened_at"`
	ClosedAt     *string         `json:"closed_at"`
}

// RegisterCloseSummary is the end-of-day drawer summary returned by close:
// Difference = ClosingCash − ExpectedCash where ExpectedCash = OpeningFloat + CashSales.
type RegisterCloseSummary struct {
	ID           string          `json:"id"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
	SalesCount   int             `json:"sales_count"`
	GrossSales   decimal.Decimal `json:"gross_sales"`
	CashSales    decimal.Decimal `json:"cash_sales"`
	MpesaSales   decimal.Decimal `json:"mpesa_sales"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	ClosingCash  decimal.Decimal `json:"closing_cash"`
	Difference   decimal.Decimal `json:"difference"`
	ClosedAt     string          `json:"closed_at"`
}
