package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenAgentSessionRequest struct {
	OpeningCash  decimal.Decimal `json:"opening_cash"  validate:"min=0"`
	OpeningFloat decimal.Decimal `json:"opening_float" validate:"min=0"`
}

type RecordMovementRequest struct {
	Kind    string          `json:"kind"    validate:"required,oneof=AGENT_DEPOSIT AGENT_WITHDRAWAL FLOAT_TOPUP_CASH FLOAT_TOPUP_EXTERNAL FLOAT_CASHOUT"`
	Amount  decimal.Decimal `json:"amount"  validate:"required,gt=0"`
	RefCode *string         `json:"ref_code" validate:"omitempty,min=4,max=40"`
	Phone   *string         `json:"phone"    validate:"omitempty,min=9,max=20"`
	Note    *string         `json:"note"`
}

type ReverseMovementRequest struct {
	Note *string `json:"note"`
}

type CloseAgentSessionRequest struct {
	ClosingCash  decimal.Decimal `json:"closing_cash"  validate:"min=0"`
	ClosingFloat decimal.Decimal `json:"closing_float" validate:"min=0"`
	Notes        *string         `json:"notes"`
}

// MovementFilter narrows the movement listing for the export collaborators.
// Rows are always returned in (created_at, id) order so exports are stable.
type MovementFilter struct {
	SessionID string `form:"session_id" validate:"omitempty,uuid"`
	CashierID string `form:"cashier_id" validate:"omitempty,uuid"`
	Kind      string `form:"kind"`
	DateFrom  string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo    string `form:"date_to"   validate:"omitempty,datetime=2006-01-02"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AgentSessionResponse struct {
	ID           string          `json:"id"`
	CashierID    string          `json:"cashier_id"`
	Status       string          `json:"status"`
	OpeningCash  decimal.Decimal `json:"opening_cash"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
	CurrentCash  decimal.Decimal `json:"current_cash"`
	CurrentFloat decimal.Decimal `json:"current_float"`
	Notes        *string         `json:"notes"`
	OpenedAt     string          `json:"opened_at"`
	ClosedAt     *string         `json:"closed_at"`
}

type MovementResponse struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	CashDelta     decimal.Decimal `json:"cash_delta"`
	FloatDelta    decimal.Decimal `json:"float_delta"`
	RefCode       *string         `json:"ref_code"`
	Phone         *string         `json:"phone"`
	Note          *string         `json:"note"`
	PerformedByID string          `json:"performed_by_id"`
	ReversalOfID  *string         `json:"reversal_of_id"`
	CreatedAt     string          `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// AgentSideSummary reports one balance side of the close reconciliation.
// Expected is opening + the sum of all movement deltas; Variance is
// counted − expected.
type AgentSideSummary struct {
	Opening  decimal.Decimal `json:"opening"`
	Expected decimal.Decimal `json:"expected"`
	Counted  decimal.Decimal `json:"counted"`
	Variance decimal.Decimal `json:"variance"`
}

// AgentCloseResponse surfaces the summed-delta figures alongside the live
// running balances. The two should always agree; BalancesDiverged=true means
// a bug or data corruption upstream and is reported, never papered over.
type AgentCloseResponse struct {
	SessionID        string           `json:"session_id"`
	Cash             AgentSideSummary `json:"cash"`
	Float            AgentSideSummary `json:"float"`
	RunningCash      decimal.Decimal  `json:"running_cash"`
	RunningFloat     decimal.Decimal  `json:"running_float"`
	BalancesDiverged bool             `json:"balances_diverged"`
	Status           string           `json:"status"`
	ClosedAt         string           `json:"closed_at"`
}
