package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Register session lifecycle states.
const (
	RegisterOpen   = "OPEN"
	RegisterClosed = "CLOSED"
)

// RegisterSession is the bounded period a cashier's physical cash drawer is
// open for sales. At most one OPEN session may exist per cashier — enforced
// by a partial unique index on (cashier_id) WHERE status = 'OPEN'.
//
// The running counters (SalesCount, GrossSales, CashSales, MpesaSales) are
// incremented only inside the checkout transaction; the session manager
// itself never touches them. After close the row is immutable.
type RegisterSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CashierID uuid.UUID `gorm:"type:uuid;not null;index"`
	// OpenedByID is the audit trail of who opened the drawer; usually equal
	// to CashierID but a supervisor may open on a cashier's behalf.
	OpenedByID   uuid.UUID       `gorm:"type:uuid;not null"`
	Status       string          `gorm:"type:varchar(10);not null;default:'OPEN'"`
	OpeningFloat decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// ClosingCash is the physically counted drawer cash, set at close.
	ClosingCash *decimal.Decimal `gorm:"type:decimal(12,2)"`
	SalesCount  int              `gorm:"not null;default:0"`
	GrossSales  decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	CashSales   decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	MpesaSales  decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	Notes       *string
	OpenedAt    time.Time
	ClosedAt    *time.Time
}

// ExpectedCash is what the drawer should hold: the opening float plus every
// cash sale rung up during the session.
func (s *RegisterSession) ExpectedCash() decimal.Decimal {
	return s.OpeningFloat.Add(s.CashSales)
}
