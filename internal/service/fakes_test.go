package service_test

// In-memory repository fakes. The conditional operations (ApplyDeltasTx,
// DeductStockTx, AddSaleTx, CloseSessionTx) mirror the production contract:
// a single guarded mutation under a mutex whose predicate includes the
// post-image check, reporting success through the returned bool. DB() returns
// nil, which makes the services run their transaction bodies directly.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dukapos/internal/apperr"
	"dukapos/internal/dto"
	"dukapos/internal/ledger"
	"dukapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── AgentRepository fake ─────────────────────────────────────────────────────

// The *Once knobs make the next pre-check miss, simulating the race window
// where the partial unique index is the only guard left standing.
type fakeAgentRepo struct {
	mu               sync.Mutex
	sessions         map[uuid.UUID]*model.AgentSession
	movements        []model.AgentMovement
	hideOpenOnce     bool
	skipRefCheckOnce bool
	lockCalls        int
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{sessions: make(map[uuid.UUID]*model.AgentSession)}
}

func (r *fakeAgentRepo) CreateSession(_ context.Context, s *model.AgentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.CashierID == s.CashierID && existing.Status == model.AgentOpen {
			return apperr.Conflict("cashier already has an open agent session")
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeAgentRepo) FindOpenByCashier(_ context.Context, cashierID uuid.UUID) (*model.AgentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hideOpenOnce {
		r.hideOpenOnce = false
		return nil, gorm.ErrRecordNotFound
	}
	for _, s := range r.sessions {
		if s.CashierID == cashierID && s.Status == model.AgentOpen {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAgentRepo) FindOpenForUpdateTx(_ *gorm.DB, cashierID uuid.UUID) (*model.AgentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockCalls++
	for _, s := range r.sessions {
		if s.CashierID == cashierID && s.Status == model.AgentOpen {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAgentRepo) FindSessionByID(_ context.Context, id uuid.UUID) (*model.AgentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakeAgentRepo) ApplyDeltasTx(_ *gorm.DB, sessionID uuid.UUID, cashDelta, floatDelta decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.Status != model.AgentOpen {
		return false, nil
	}
	newCash := s.CurrentCash.Add(cashDelta)
	newFloat := s.CurrentFloat.Add(floatDelta)
	if newCash.IsNegative() || newFloat.IsNegative() {
		return false, nil
	}
	s.CurrentCash = newCash
	s.CurrentFloat = newFloat
	return true, nil
}

func (r *fakeAgentRepo) CreateMovementTx(_ *gorm.DB, m *model.AgentMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.RefCode != nil {
		for i := range r.movements {
			if r.movements[i].RefCode != nil && *r.movements[i].RefCode == *m.RefCode {
				return apperr.Conflict("reference code %s already recorded", *m.RefCode)
			}
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *fakeAgentRepo) FindMovementByID(_ context.Context, id uuid.UUID) (*model.AgentMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.movements {
		if r.movements[i].ID == id {
			m := r.movements[i]
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAgentRepo) RefCodeExistsTx(_ *gorm.DB, refCode string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.skipRefCheckOnce {
		r.skipRefCheckOnce = false
		return false, nil
	}
	for i := range r.movements {
		if r.movements[i].RefCode != nil && *r.movements[i].RefCode == refCode {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAgentRepo) SumDeltasTx(_ *gorm.DB, sessionID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cash, flt := decimal.Zero, decimal.Zero
	for i := range r.movements {
		if r.movements[i].SessionID == sessionID {
			cash = cash.Add(r.movements[i].CashDelta)
			flt = flt.Add(r.movements[i].FloatDelta)
		}
	}
	return cash, flt, nil
}

func (r *fakeAgentRepo) CloseSessionTx(_ *gorm.DB, s *model.AgentSession) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok || stored.Status != model.AgentOpen {
		return false, nil
	}
	stored.Status = model.AgentClosed
	stored.ClosingCash = s.ClosingCash
	stored.ClosingFloat = s.ClosingFloat
	stored.ExpectedCash = s.ExpectedCash
	stored.ExpectedFloat = s.ExpectedFloat
	stored.CashVariance = s.CashVariance
	stored.FloatVariance = s.FloatVariance
	stored.Notes = s.Notes
	stored.ClosedAt = s.ClosedAt
	return true, nil
}

func (r *fakeAgentRepo) ListMovements(_ context.Context, filter dto.MovementFilter) ([]model.AgentMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.AgentMovement
	for i := range r.movements {
		m := r.movements[i]
		if filter.SessionID != "" && m.SessionID.String() != filter.SessionID {
			continue
		}
		if filter.Kind != "" && m.Kind != ledger.MovementKind(filter.Kind) {
			continue
		}
		if filter.CashierID != "" {
			s, ok := r.sessions[m.SessionID]
			if !ok || s.CashierID.String() != filter.CashierID {
				continue
			}
		}
		matched = append(matched, m)
	}
	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeAgentRepo) DB() *gorm.DB { return nil }

// ── RegisterRepository fake ──────────────────────────────────────────────────

type fakeRegisterRepo struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]*model.RegisterSession
	hideOpenOnce bool
}

func newFakeRegisterRepo() *fakeRegisterRepo {
	return &fakeRegisterRepo{sessions: make(map[uuid.UUID]*model.RegisterSession)}
}

func (r *fakeRegisterRepo) CreateSession(_ context.Context, s *model.RegisterSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.CashierID == s.CashierID && existing.Status == model.RegisterOpen {
			return apperr.Conflict("cashier already has an open register session")
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeRegisterRepo) FindOpenByCashier(_ context.Context, cashierID uuid.UUID) (*model.RegisterSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hideOpenOnce {
		r.hideOpenOnce = false
		return nil, gorm.ErrRecordNotFound
	}
	for _, s := range r.sessions {
		if s.CashierID == cashierID && s.Status == model.RegisterOpen {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRegisterRepo) FindByID(_ context.Context, id uuid.UUID) (*model.RegisterSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakeRegisterRepo) CloseSession(_ context.Context, s *model.RegisterSession) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok || stored.Status != model.RegisterOpen {
		return false, nil
	}
	stored.Status = model.RegisterClosed
	stored.ClosingCash = s.ClosingCash
	stored.Notes = s.Notes
	stored.ClosedAt = s.ClosedAt
	return true, nil
}

func (r *fakeRegisterRepo) AddSaleTx(_ *gorm.DB, registerID uuid.UUID, total decimal.Decimal, method string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[registerID]
	if !ok || s.Status != model.RegisterOpen {
		return false, nil
	}
	s.SalesCount++
	s.GrossSales = s.GrossSales.Add(total)
	if method == model.PaymentMpesa {
		s.MpesaSales = s.MpesaSales.Add(total)
	} else {
		s.CashSales = s.CashSales.Add(total)
	}
	return true, nil
}

func (r *fakeRegisterRepo) ListOpenedInWindow(_ context.Context, cashierID uuid.UUID, from, to time.Time) ([]model.RegisterSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.RegisterSession
	for _, s := range r.sessions {
		if s.CashierID == cashierID && !s.OpenedAt.Before(from) && s.OpenedAt.Before(to) {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (r *fakeRegisterRepo) DB() *gorm.DB { return nil }

// ── ProductRepository fake ───────────────────────────────────────────────────

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
	variants map[uuid.UUID]*model.ProductVariant
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products: make(map[uuid.UUID]*model.Product),
		variants: make(map[uuid.UUID]*model.ProductVariant),
	}
}

func (r *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) CreateVariant(_ context.Context, v *model.ProductVariant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.variants[v.ID] = v
	return nil
}

func (r *fakeProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var result []model.Product
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.products[id]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeProductRepo) FindVariantsByIDs(_ context.Context, ids []uuid.UUID) ([]model.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var result []model.ProductVariant
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if v, ok := r.variants[id]; ok {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (r *fakeProductRepo) DeductStockTx(_ *gorm.DB, productID uuid.UUID, qty int64, fromBase bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return false, nil
	}
	if fromBase {
		if p.StockBaseQty < qty {
			return false, nil
		}
		p.StockBaseQty -= qty
		return true, nil
	}
	if p.Quantity < qty {
		return false, nil
	}
	p.Quantity -= qty
	return true, nil
}

func (r *fakeProductRepo) ListLowStock(_ context.Context) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.Product
	for _, p := range r.products {
		if !p.Active {
			continue
		}
		if p.AvailableBase() <= p.LowStockThreshold {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeProductRepo) DB() *gorm.DB { return nil }

// ── SaleRepository fake ──────────────────────────────────────────────────────

type fakeSaleRepo struct {
	mu      sync.Mutex
	sales   []model.Sale
	receipt int64
}

func newFakeSaleRepo() *fakeSaleRepo { return &fakeSaleRepo{} }

func (r *fakeSaleRepo) CreateTx(_ *gorm.DB, s *model.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range s.Items {
		if s.Items[i].ID == uuid.Nil {
			s.Items[i].ID = uuid.New()
		}
		s.Items[i].SaleID = s.ID
	}
	r.sales = append(r.sales, *s)
	return nil
}

func (r *fakeSaleRepo) NextReceiptNoTx(_ *gorm.DB) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipt++
	return fmt.Sprintf("RCT-%06d", r.receipt), nil
}

func (r *fakeSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sales {
		if r.sales[i].ID == id {
			s := r.sales[i]
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSaleRepo) ListByRegisterIDs(_ context.Context, registerIDs []uuid.UUID) ([]model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[uuid.UUID]bool, len(registerIDs))
	for _, id := range registerIDs {
		ids[id] = true
	}
	var result []model.Sale
	for i := range r.sales {
		if ids[r.sales[i].RegisterSessionID] {
			result = append(result, r.sales[i])
		}
	}
	return result, nil
}

func (r *fakeSaleRepo) List(_ context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.Sale
	for i := range r.sales {
		s := r.sales[i]
		if filter.RegisterID != "" && s.RegisterSessionID.String() != filter.RegisterID {
			continue
		}
		if filter.CashierID != "" && s.CashierID.String() != filter.CashierID {
			continue
		}
		matched = append(matched, s)
	}
	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeSaleRepo) DB() *gorm.DB { return nil }
