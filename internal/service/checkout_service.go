package service

import (
	"context"
	"sort"
	"time"

	"dukapos/internal/apperr"
	"dukapos/internal/dto"
	"dukapos/internal/model"
	"dukapos/internal/repository"
	"dukapos/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutService turns a cart into a committed sale. The whole write — every
// conditional stock decrement, the sale row with its items, and the register
// counter bump — happens in one transaction: a single short product aborts
// everything and the error names it.
type CheckoutService interface {
	Checkout(ctx context.Context, cashierID uuid.UUID, req dto.CheckoutRequest) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
}

type checkoutService struct {
	saleRepo     repository.SaleRepository
	productRepo  repository.ProductRepository
	registerRepo repository.RegisterRepository
	dispatcher   *worker.Dispatcher
}

func NewCheckoutService(
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	registerRepo repository.RegisterRepository,
	dispatcher *worker.Dispatcher,
) CheckoutService {
	return &checkoutService{
		saleRepo:     saleRepo,
		productRepo:  productRepo,
		registerRepo: registerRepo,
		dispatcher:   dispatcher,
	}
}

// resolvedLine is a cart line after catalog resolution: the underlying base
// product, the base-unit quantity it consumes, and its priced total.
type resolvedLine struct {
	kind      string
	product   *model.Product
	variant   *model.ProductVariant
	qty       int64
	baseQty   int64
	unitPrice decimal.Decimal
	lineTotal decimal.Decimal
}

// deduction is the per-base-product accumulation of every line's base-unit
// need. Two lines selling different bottle sizes of the same bulk liquid sum
// into one conditional decrement here.
type deduction struct {
	product *model.Product
	baseQty int64
}

func (s *checkoutService) Checkout(ctx context.Context, cashierID uuid.UUID, req dto.CheckoutRequest) (*dto.SaleResponse, error) {
	// 1. Resolve the register: OPEN and owned by the requesting cashier.
	registerID, err := uuid.Parse(req.RegisterID)
	if err != nil {
		return nil, apperr.Validation("invalid register id")
	}
	register, err := s.registerRepo.FindByID(ctx, registerID)
	if err != nil {
		return nil, apperr.NotFound("register session %s not found", req.RegisterID)
	}
	if register.Status != model.RegisterOpen {
		return nil, apperr.Conflict("register session %s is not open", req.RegisterID)
	}
	if register.CashierID != cashierID {
		return nil, apperr.Conflict("register session %s belongs to another cashier", req.RegisterID)
	}
	if len(req.Items) == 0 {
		return nil, apperr.Validation("cart is empty")
	}

	// 2–3. Resolve catalog references and accumulate base-unit deductions.
	lines, deductions, err := s.resolveCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	// 4. Totals and payment validation — still side-effect free.
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.lineTotal)
	}
	if req.Discount.IsNegative() {
		return nil, apperr.Validation("discount cannot be negative")
	}
	total := subtotal.Sub(req.Discount)
	if total.IsNegative() {
		return nil, apperr.Validation("discount %s exceeds subtotal %s", req.Discount, subtotal)
	}
	if req.Payment.AmountPaid.LessThan(total) {
		return nil, apperr.Validation("amount paid %s is less than total %s", req.Payment.AmountPaid, total)
	}
	change := decimal.Zero
	if req.Payment.Method == model.PaymentCash {
		change = req.Payment.AmountPaid.Sub(total)
	}

	// 5. One transaction: conditional decrements, sale insert, counter bump.
	// Deductions run in product-id order so two overlapping carts always lock
	// rows in the same sequence.
	sale := &model.Sale{
		RegisterSessionID: register.ID,
		CashierID:         cashierID,
		Subtotal:          subtotal,
		Discount:          req.Discount,
		Total:             total,
		PaymentMethod:     req.Payment.Method,
		AmountPaid:        req.Payment.AmountPaid,
		Change:            change,
		CreatedAt:         time.Now().UTC(),
	}
	for _, l := range lines {
		item := model.SaleItem{
			Kind:      l.kind,
			ProductID: l.product.ID,
			Name:      l.product.Name,
			Barcode:   l.product.Barcode,
			UnitPrice: l.unitPrice,
			Qty:       l.qty,
			BaseQty:   l.baseQty,
			LineTotal: l.lineTotal,
		}
		if l.variant != nil {
			vid := l.variant.ID
			item.VariantID = &vid
			item.Name = l.variant.Name
			item.Barcode = l.variant.Barcode
		}
		sale.Items = append(sale.Items, item)
	}

	txErr := runTx(ctx, s.saleRepo.DB(), func(tx *gorm.DB) error {
		receiptNo, err := s.saleRepo.NextReceiptNoTx(tx)
		if err != nil {
			return err
		}
		sale.ReceiptNo = receiptNo

		for _, d := range deductions {
			ok, err := s.productRepo.DeductStockTx(tx, d.product.ID, d.baseQty, d.product.HasVariants)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Conflict("insufficient stock for %s", d.product.Name)
			}
		}

		if err := s.saleRepo.CreateTx(tx, sale); err != nil {
			return err
		}

		ok, err := s.registerRepo.AddSaleTx(tx, register.ID, total, req.Payment.Method)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("register session %s is no longer open", register.ID)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// 6. Post-commit, best-effort async work: receipt PDF and a refresh of
	// the low-stock alert cache.
	if s.dispatcher != nil {
		_ = s.dispatcher.EnqueueReceipt(ctx, worker.ReceiptJobPayload{SaleID: sale.ID.String()})
		_ = s.dispatcher.EnqueueAlertRefresh(ctx)
	}

	return saleToResponse(sale), nil
}

// resolveCart batch-loads every referenced variant and product, prices each
// line, and folds the base-unit needs into one deduction per base product.
func (s *checkoutService) resolveCart(ctx context.Context, items []dto.CheckoutLine) ([]resolvedLine, []deduction, error) {
	var productIDs, variantIDs []uuid.UUID
	for _, item := range items {
		switch {
		case item.VariantID != nil && item.ProductID != nil:
			return nil, nil, apperr.Validation("cart line cannot reference both a product and a variant")
		case item.VariantID != nil:
			id, err := uuid.Parse(*item.VariantID)
			if err != nil {
				return nil, nil, apperr.Validation("invalid variant id %s", *item.VariantID)
			}
			variantIDs = append(variantIDs, id)
		case item.ProductID != nil:
			id, err := uuid.Parse(*item.ProductID)
			if err != nil {
				return nil, nil, apperr.Validation("invalid product id %s", *item.ProductID)
			}
			productIDs = append(productIDs, id)
		default:
			return nil, nil, apperr.Validation("cart line must reference a product or a variant")
		}
		if item.Qty <= 0 {
			return nil, nil, apperr.Validation("cart line quantity must be positive")
		}
	}

	variants := make(map[uuid.UUID]*model.ProductVariant)
	if len(variantIDs) > 0 {
		found, err := s.productRepo.FindVariantsByIDs(ctx, variantIDs)
		if err != nil {
			return nil, nil, err
		}
		for i := range found {
			variants[found[i].ID] = &found[i]
		}
		for _, id := range variantIDs {
			v, ok := variants[id]
			if !ok {
				return nil, nil, apperr.NotFound("variant %s not found", id)
			}
			if !v.Active {
				return nil, nil, apperr.Validation("variant %s is not active", v.Name)
			}
			productIDs = append(productIDs, v.ProductID)
		}
	}

	products := make(map[uuid.UUID]*model.Product)
	if len(productIDs) > 0 {
		found, err := s.productRepo.FindByIDs(ctx, productIDs)
		if err != nil {
			return nil, nil, err
		}
		for i := range found {
			products[found[i].ID] = &found[i]
		}
		for _, id := range productIDs {
			if _, ok := products[id]; !ok {
				return nil, nil, apperr.NotFound("product %s not found", id)
			}
		}
	}

	var lines []resolvedLine
	needed := make(map[uuid.UUID]int64)
	for _, item := range items {
		if item.VariantID != nil {
			v := variants[uuid.MustParse(*item.VariantID)]
			p := products[v.ProductID]
			if !p.HasVariants {
				return nil, nil, apperr.Validation("product %s is not configured for variants", p.Name)
			}
			baseQty := v.UnitSizeInBase * item.Qty
			lines = append(lines, resolvedLine{
				kind:      model.LineVariant,
				product:   p,
				variant:   v,
				qty:       item.Qty,
				baseQty:   baseQty,
				unitPrice: v.Price,
				lineTotal: v.Price.Mul(decimal.NewFromInt(item.Qty)),
			})
			needed[p.ID] += baseQty
			continue
		}

		p := products[uuid.MustParse(*item.ProductID)]
		if !p.Active {
			return nil, nil, apperr.Validation("product %s is not active", p.Name)
		}
		lines = append(lines, resolvedLine{
			kind:      model.LineProduct,
			product:   p,
			qty:       item.Qty,
			baseQty:   item.Qty,
			unitPrice: p.Price,
			lineTotal: p.Price.Mul(decimal.NewFromInt(item.Qty)),
		})
		needed[p.ID] += item.Qty
	}

	deductions := make([]deduction, 0, len(needed))
	for id, qty := range needed {
		deductions = append(deductions, deduction{product: products[id], baseQty: qty})
	}
	sort.Slice(deductions, func(i, j int) bool {
		return deductions[i].product.ID.String() < deductions[j].product.ID.String()
	})
	return lines, deductions, nil
}

func (s *checkoutService) ListSales(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	sales, total, err := s.saleRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		items = append(items, *saleToResponse(&sales[i]))
	}
	return &dto.SaleListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	items := make([]dto.SaleItemResponse, 0, len(s.Items))
	for _, item := range s.Items {
		r := dto.SaleItemResponse{
			Kind:      item.Kind,
			ProductID: item.ProductID.String(),
			Name:      item.Name,
			Barcode:   item.Barcode,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
			BaseQty:   item.BaseQty,
			LineTotal: item.LineTotal,
		}
		if item.VariantID != nil {
			id := item.VariantID.String()
			r.VariantID = &id
		}
		items = append(items, r)
	}
	return &dto.SaleResponse{
		ID:            s.ID.String(),
		ReceiptNo:     s.ReceiptNo,
		RegisterID:    s.RegisterSessionID.String(),
		CashierID:     s.CashierID.String(),
		Items:         items,
		Subtotal:      s.Subtotal,
		Discount:      s.Discount,
		Total:         s.Total,
		PaymentMethod: s.PaymentMethod,
		AmountPaid:    s.AmountPaid,
		Change:        s.Change,
		CreatedAt:     s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
