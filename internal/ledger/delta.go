// Package ledger holds the pure balance-delta rules of the agent ledger.
// No I/O: given a movement kind and a face amount, it answers how the
// session's cash-in-hand and float balances change. The mapping is fixed —
// it is the financial contract of the agent business, not configuration.
package ledger

import (
	"github.com/shopspring/decimal"

	"dukapos/internal/apperr"
)

// MovementKind is the typed discriminator of an agent ledger movement.
type MovementKind string

const (
	// KindAgentDeposit: customer hands over cash, agent sends e-money.
	KindAgentDeposit MovementKind = "AGENT_DEPOSIT"
	// KindAgentWithdrawal: customer receives cash, agent's float grows.
	KindAgentWithdrawal MovementKind = "AGENT_WITHDRAWAL"
	// KindFloatTopupCash: agent converts drawer cash into float.
	KindFloatTopupCash MovementKind = "FLOAT_TOPUP_CASH"
	// KindFloatTopupExternal: float bought with funds outside the drawer.
	KindFloatTopupExternal MovementKind = "FLOAT_TOPUP_EXTERNAL"
	// KindFloatCashout: agent converts float back into drawer cash.
	KindFloatCashout MovementKind = "FLOAT_CASHOUT"
	// KindReversal negates a prior movement. Its deltas are derived from the
	// original movement, never from the table below.
	KindReversal MovementKind = "REVERSAL"
)

// Deltas maps a movement kind and face amount to the signed balance changes
// (cashDelta, floatDelta). The amount must be strictly positive.
// KindReversal is rejected here: reversal deltas are the negation of the
// original movement's stored deltas.
func Deltas(kind MovementKind, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, apperr.Validation("movement amount must be greater than zero")
	}
	switch kind {
	case KindAgentDeposit:
		return amount, amount.Neg(), nil
	case KindAgentWithdrawal:
		return amount.Neg(), amount, nil
	case KindFloatTopupCash:
		return amount.Neg(), amount, nil
	case KindFloatTopupExternal:
		return decimal.Zero, amount, nil
	case KindFloatCashout:
		return amount, amount.Neg(), nil
	default:
		return decimal.Zero, decimal.Zero, apperr.Validation("unknown movement kind %q", string(kind))
	}
}

// Valid reports whether kind is one of the recordable movement kinds
// (everything except REVERSAL, which only the reverse operation creates).
func Valid(kind MovementKind) bool {
	switch kind {
	case KindAgentDeposit, KindAgentWithdrawal, KindFloatTopupCash,
		KindFloatTopupExternal, KindFloatCashout:
		return true
	}
	return false
}
