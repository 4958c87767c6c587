package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dukapos/internal/ledger"
)

// Agent ledger session lifecycle states.
const (
	AgentOpen   = "OPEN"
	AgentClosed = "CLOSED"
)

// AgentSession is a cashier's mobile-money sub-ledger for one shift: two
// running balances (physical cash in hand, e-money float) mutated only by
// typed movements. CurrentCash and CurrentFloat must never go negative; the
// repository enforces this with a conditional update whose predicate includes
// the post-image check. At most one OPEN session per cashier (partial unique
// index, same discipline as RegisterSession).
type AgentSession struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CashierID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status      string          `gorm:"type:varchar(10);not null;default:'OPEN'"`
	OpeningCash decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// OpeningFloat is fixed at open; CurrentCash/CurrentFloat start equal to
	// the opening values and track every applied movement thereafter.
	OpeningFloat decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CurrentCash  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CurrentFloat decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Closing figures: counted amounts declared by the cashier, expected
	// amounts recomputed from summed movement deltas, and the variances
	// (counted − expected). All set atomically at close.
	ClosingCash   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ClosingFloat  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ExpectedCash  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ExpectedFloat *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CashVariance  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	FloatVariance *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Notes         *string
	OpenedAt      time.Time
	ClosedAt      *time.Time

	Movements []AgentMovement `gorm:"foreignKey:SessionID"`
}

// AgentMovement is one immutable, typed balance-changing event in an agent
// session. Movements are append-only: a mistake is corrected by a REVERSAL
// movement pointing back at the original via ReversalOfID, never by editing.
type AgentMovement struct {
	ID        uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Kind      ledger.MovementKind `gorm:"type:varchar(25);not null"`
	// Amount is the face amount (> 0); CashDelta/FloatDelta are the signed
	// balance changes derived from Kind at creation time and stored so a
	// reversal can negate them without re-deriving.
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CashDelta  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	FloatDelta decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// RefCode is the operator-visible confirmation code (e.g. the M-Pesa
	// transaction code). Globally unique when present — partial unique index.
	RefCode       *string `gorm:"type:varchar(40)"`
	Phone         *string `gorm:"type:varchar(20)"`
	Note          *string
	PerformedByID uuid.UUID  `gorm:"type:uuid;not null"`
	ReversalOfID  *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time
}

// BeforeUpdate blocks updates at the ORM layer: movements are append-only
// and any attempt to Save an existing row is a programming error.
func (m *AgentMovement) BeforeUpdate(*gorm.DB) error {
	return gorm.ErrInvalidData
}
