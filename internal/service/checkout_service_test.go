package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"dukapos/internal/apperr"
	"dukapos/internal/dto"
	"dukapos/internal/model"
	"dukapos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	svc          service.CheckoutService
	saleRepo     *fakeSaleRepo
	productRepo  *fakeProductRepo
	registerRepo *fakeRegisterRepo
	cashierID    uuid.UUID
	registerID   uuid.UUID
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		saleRepo:     newFakeSaleRepo(),
		productRepo:  newFakeProductRepo(),
		registerRepo: newFakeRegisterRepo(),
		cashierID:    uuid.New(),
	}
	f.svc = service.NewCheckoutService(f.saleRepo, f.productRepo, f.registerRepo, nil)

	register := &model.RegisterSession{
		CashierID:    f.cashierID,
		OpenedByID:   f.cashierID,
		Status:       model.RegisterOpen,
		OpeningFloat: decimal.NewFromInt(500),
		OpenedAt:     time.Now().UTC(),
	}
	require.NoError(t, f.registerRepo.CreateSession(context.Background(), register))
	f.registerID = register.ID
	return f
}

func (f *checkoutFixture) addProduct(t *testing.T, name string, price int64, qty int64) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:     name,
		Barcode:  name,
		Price:    decimal.NewFromInt(price),
		Quantity: qty,
		Active:   true,
	}
	require.NoError(t, f.productRepo.Create(context.Background(), p))
	return p
}

func (f *checkoutFixture) addBulkProduct(t *testing.T, name string, baseQty int64) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:         name,
		Barcode:      name,
		Price:        decimal.Zero,
		HasVariants:  true,
		StockBaseQty: baseQty,
		BaseUnit:     "ml",
		Active:       true,
	}
	require.NoError(t, f.productRepo.Create(context.Background(), p))
	return p
}

func (f *checkoutFixture) addVariant(t *testing.T, p *model.Product, name string, size, price int64) *model.ProductVariant {
	t.Helper()
	v := &model.ProductVariant{
		ProductID:      p.ID,
		Name:           name,
		Barcode:        name,
		UnitSizeInBase: size,
		Price:          decimal.NewFromInt(price),
		Active:         true,
	}
	require.NoError(t, f.productRepo.CreateVariant(context.Background(), v))
	return v
}

func strp(s string) *string { return &s }

func TestCheckoutMixedCartWithVariantConversion(t *testing.T) {
	f := newCheckoutFixture(t)
	bread := f.addProduct(t, "bread", 65, 10)
	oil := f.addBulkProduct(t, "oil-bulk", 5000)
	half := f.addVariant(t, oil, "oil-500", 500, 180)
	litre := f.addVariant(t, oil, "oil-1000", 1000, 340)

	// 2 bread + 2×500ml + 1×1L: both oil lines fold into one 2000ml deduction.
	resp, err := f.svc.Checkout(context.Background(), f.cashierID, dto.CheckoutRequest{
		RegisterID: f.registerID.String(),
		Items: []dto.CheckoutLine{
			{ProductID: strp(bread.ID.String()), Qty: 2},
			{VariantID: strp(half.ID.String()), Qty: 2},
			{VariantID: strp(litre.ID.String()), Qty: 1},
		},
		Discount: decimal.NewFromInt(30),
		Payment: dto.PaymentRequest{
			Method:     model.PaymentCash,
			AmountPaid: decimal.NewFromInt(1000),
		},
	})
	require.NoError(t, err)

	// 2*65 + 2*180 + 340 = 830; total 800 after discount; change 200.
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(830)))
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(800)))
	assert.True(t, resp.Change.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, "RCT-000001", resp.ReceiptNo)
	require.Len(t, resp.Items, 3)

	// Stock: bread 10→8, oil 5000→3000ml.
	assert.Equal(t, int64(8), f.productRepo.products[bread.ID].Quantity)
	assert.Equal(t, int64(3000), f.productRepo.products[oil.ID].StockBaseQty)

	// Register counters bumped as cash.
	reg := f.registerRepo.sessions[f.registerID]
	assert.Equal(t, 1, reg.SalesCount)
	assert.True(t, reg.GrossSales.Equal(decimal.NewFromInt(800)))
	assert.True(t, reg.CashSales.Equal(decimal.NewFromInt(800)))
	assert.True(t, reg.MpesaSales.Equal(decimal.Zero))

	// Item snapshots carry the variant's name and barcode.
	assert.Equal(t, "oil-500", resp.Items[1].Name)
	assert.Equal(t, int64(1000), resp.Items[1].BaseQty)
	assert.Equal(t, int64(1000), resp.Items[2].BaseQty)
}

func TestCheckoutMpesaPaymentHasNoChange(t *testing.T) {
	f := newCheckoutFixture(t)
	soda := f.addProduct(t, "soda", 50, 20)

	resp, err := f.svc.Checkout(context.Background(), f.cashierID, dto.CheckoutRequest{
		RegisterID: f.registerID.String(),
		Items:      []dto.CheckoutLine{{ProductID: strp(soda.ID.String()), Qty: 3}},
		Payment: dto.PaymentRequest{
			Method:     model.PaymentMpesa,
			AmountPaid: decimal.NewFromInt(150),
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Change.Equal(decimal.Zero))

	reg := f.registerRepo.sessions[f.registerID]
	assert.True(t, reg.MpesaSales.Equal(decimal.NewFromInt(150)))
	assert.True(t, reg.CashSales.Equal(decimal.Zero))
}

func TestCheckoutInsufficientStockAbortsEverything(t *testing.T) {
	f := newCheckoutFixture(t)

	// Fixed IDs so the short product's deduction is attempted first.
	short := &model.Product{
		ID:       uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Name:     "matches",
		Barcode:  "matches",
		Price:    decimal.NewFromInt(10),
		Quantity: 1,
		Active:   true,
	}
	plenty := &model.Product{
		ID:       uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff"),
		Name:     "rice",
		Barcode:  "rice",
		Price:    decimal.NewFromInt(200),
		Quantity: 50,
		Active:   true,
	}
	require.NoError(t, f.productRepo.Create(context.Background(), short))
	require.NoError(t, f.productRepo.Create(context.Background(), plenty))

	_, err := f.svc.Checkout(context.Background(), f.cashierID, dto.CheckoutRequest{
		RegisterID: f.registerID.String(),
		Items: []dto.CheckoutLine{
			{ProductID: strp(short.ID.String()), Qty: 5},
			{ProductID: strp(plenty.ID.String()), Qty: 2},
		},
		Payment: dto.PaymentRequest{
			Method:     model.PaymentCash,
			AmountPaid: decimal.NewFromInt(1000),
		},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Contains(t, err.Error(), "matches")

	// Nothing happened: stock, sales and counters are all untouched.
	assert.Equal(t, int64(1), f.productRepo.products[short.ID].Quantity)
	assert.Equal(t, int64(50), f.productRepo.products[plenty.ID].Quantity)
	assert.Empty(t, f.saleRepo.sales)
	reg := f.registerRepo.sessions[f.registerID]
	assert.Equal(t, 0, reg.SalesCount)
	assert.True(t, reg.GrossSales.Equal(decimal.Zero))
}

func TestCheckoutAccumulatesSameProductAcrossLines(t *testing.T) {
	f := newCheckoutFixture(t)
	oil := f.addBulkProduct(t, "oil-bulk", 1500)
	half := f.addVariant(t, oil, "oil-500", 500, 180)
	litre := f.addVariant(t, oil, "oil-1000", 1000, 340)

	// 500 + 1000 = 1500ml needed; exactly the stock — succeeds.
	_, err := f.svc.Checkout(context.Background(), f.cashierID, dto.CheckoutRequest{
		RegisterID: f.registerID.String(),
		Items: []dto.CheckoutLine{
			{VariantID: strp(half.ID.String()), Qty: 1},
			{VariantID: strp(litre.ID.String()), Qty: 1},
		},
		Payment: dto.PaymentRequest{
			Method:     model.PaymentCash,
			AmountPaid: decimal.NewFromInt(520),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.productRepo.products[oil.ID].StockBaseQty)

	// A second 500ml can no longer be covered.
	_, err = f.svc.Checkout(context.Background(), f.cashierID, dto.CheckoutRequest{
		RegisterID: f.registerID.String(),
		Items:      []dto.CheckoutLine{{VariantID: strp(half.ID.String()), Qty: 1}},
		Payment: dto.PaymentRequest{
			Method:     model.PaymentCash,
			AmountPaid: decimal.NewFromInt(180),
		},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCheckoutValidation(t *testing.T) {
	f := newCheckoutFixture(t)
	bread := f.addProduct(t, "bread", 65, 10)
	oil := f.addBulkProduct(t, "oil-bulk", 1000)
	half := f.addVariant(t, oil, "oil-500", 500, 180)

	pay := dto.PaymentRequest{Method: model.PaymentCash, AmountPaid: decimal.NewFromInt(1000)}

	cases := []struct {
		name string
		req  dto.CheckoutRequest
	}{
		{"both product and variant", dto.CheckoutRequest{
			RegisterID: f.registerID.String(),
			Items:      []dto.CheckoutLine{{ProductID: strp(bread.ID.String()), VariantID: strp(half.ID.String()), Qty: 1}},
			Payment:    pay,
		}},
		{"neither product nor variant", dto.CheckoutRequest{
			RegisterID: f.registerID.String(),
			Items:      []dto.CheckoutLine{{Qty: 1}},
			Payment:    pay,
		}},
		{"discount exceeds subtotal", dto.CheckoutRequest{
			RegisterID: f.registerID.String(),
			Items:      []dto.CheckoutLine{{ProductID: strp(bread.ID.String()), Qty: 1}},
			Discount:   decimal.NewFromInt(100),
			Payment:    pay,
		}},
		{"amount paid below total", dto.CheckoutRequest{
			RegisterID: f.registerID.String(),
			Items:      []dto.CheckoutLine{{ProductID: strp(bread.ID.String()), Qty: 2}},
			Payment:    dto.PaymentRequest{Method: model.PaymentCash, AmountPaid: decimal.NewFromInt(100)},
		}},
		{"variant of a non-variant product", dto.CheckoutRequest{
			RegisterID: f.registerID.String(),
			Items:      []dto.CheckoutLine{{VariantID: strp(func() string {
				v := f.addVariant(t, bread, "bread-half", 1, 35)
				return v.ID.String()
			}()), Qty: 1}},
			Payment: pay,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Checkout(context.Background(), f.cashierID, tc.req)
			require.Error(t, err)
			kind, ok := apperr.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, kind)
		})
	}

	assert.Empty(t, f.saleRepo.sales)
}

func TestCheckoutRegisterGuards(t *testing.T) {
	f := newCheckoutFixture(t)
	bread := f.addProduct(t, "bread", 65, 10)
	pay := dto.PaymentRequest{Method: model.PaymentCash, AmountPaid: decimal.NewFromInt(100)}

	// Unknown register.
	_, err := f.svc.Checkout(context.Background(), f.cashierID, dto.CheckoutRequest{
		RegisterID: uuid.New().String(),
		Items:      []dto.CheckoutLine{{ProductID: strp(bread.ID.String()), Qty: 1}},
		Payment:    pay,
	})
	assert.True(t, apperr.IsNotFound(err))

	// Someone else's register.
	_, err = f.svc.Checkout(context.Background(), uuid.New(), dto.CheckoutRequest{
		RegisterID: f.registerID.String(),
		Items:      []dto.CheckoutLine{{ProductID: strp(bread.ID.String()), Qty: 1}},
		Payment:    pay,
	})
	assert.True(t, apperr.IsConflict(err))

	// Closed register.
	closed := f.registerRepo.sessions[f.registerID]
	closed.Status = model.RegisterClosed
	_, err = f.svc.Checkout(context.Background(), f.cashierID, dto.CheckoutRequest{
		RegisterID: f.registerID.String(),
		Items:      []dto.CheckoutLine{{ProductID: strp(bread.ID.String()), Qty: 1}},
		Payment:    pay,
	})
	assert.True(t, apperr.IsConflict(err))
}

func TestCheckoutReceiptNumbersAreSequential(t *testing.T) {
	f := newCheckoutFixture(t)
	soda := f.addProduct(t, "soda", 50, 100)

	for i, want := range []string{"RCT-000001", "RCT-000002", "RCT-000003"} {
		resp, err := f.svc.Checkout(context.Background(), f.cashierID, dto.CheckoutRequest{
			RegisterID: f.registerID.String(),
			Items:      []dto.CheckoutLine{{ProductID: strp(soda.ID.String()), Qty: 1}},
			Payment:    dto.PaymentRequest{Method: model.PaymentCash, AmountPaid: decimal.NewFromInt(50)},
		})
		require.NoError(t, err, "sale %d", i)
		assert.Equal(t, want, resp.ReceiptNo)
	}
}

// Six carts race for the same product, each wanting 6 of a stock of 10. The
// conditional decrement lets exactly one through; the rest must fail cleanly
// with no sale row or counter bump, and stock must never go negative.
func TestCheckoutConcurrentCartsNeverOversell(t *testing.T) {
	f := newCheckoutFixture(t)
	sugar := f.addProduct(t, "sugar", 120, 10)

	const carts = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < carts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Checkout(context.Background(), f.cashierID, dto.CheckoutRequest{
				RegisterID: f.registerID.String(),
				Items:      []dto.CheckoutLine{{ProductID: strp(sugar.ID.String()), Qty: 6}},
				Payment:    dto.PaymentRequest{Method: model.PaymentCash, AmountPaid: decimal.NewFromInt(720)},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "stock 10 can satisfy only one cart of 6")
	assert.Equal(t, int64(4), f.productRepo.products[sugar.ID].Quantity)

	register := f.registerRepo.sessions[f.registerID]
	assert.Equal(t, 1, register.SalesCount, "losers must not bump the counters")
	assert.True(t, register.GrossSales.Equal(decimal.NewFromInt(720)))
	assert.Len(t, f.saleRepo.sales, 1, "losers must not leave sale rows")
}
