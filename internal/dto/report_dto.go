package dto

import "github.com/shopspring/decimal"

// SalesAggregate totals a set of sales. The daily report computes it twice —
// once from Sale rows and once from the registers' live counters — so a
// caller can spot drift between the two.
type SalesAggregate struct {
	SalesCount    int             `json:"sales_count"`
	GrossSales    decimal.Decimal `json:"gross_sales"`
	CashSales     decimal.Decimal `json:"cash_sales"`
	MpesaSales    decimal.Decimal `json:"mpesa_sales"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
}

type DailyReportResponse struct {
	CashierID     string         `json:"cashier_id"`
	Date          string         `json:"date"` // UTC day, YYYY-MM-DD
	FromSales     SalesAggregate `json:"from_sales"`
	FromRegisters SalesAggregate `json:"from_registers"`
	// ExpectedCash = Σ opening floats + cash sales (from Sale rows);
	// Variance = Σ closing cash − ExpectedCash. Only closed registers
	// contribute closing cash.
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	ClosingCash  decimal.Decimal `json:"closing_cash"`
	Variance     decimal.Decimal `json:"variance"`
	// Diverged is set when the two aggregates disagree — a defect signal,
	// surfaced rather than reconciled away.
	Diverged  bool               `json:"diverged"`
	Registers []RegisterResponse `json:"registers"`
}

// ExportRequest enqueues an async CSV export of movement or sale rows.
type ExportRequest struct {
	Type  string  `json:"type"  validate:"required,oneof=movements sales"`
	Date  string  `json:"date"  validate:"required,datetime=2006-01-02"`
	Email *string `json:"email" validate:"omitempty,email"`
}
