package service

import (
	"context"
	"time"

	"dukapos/internal/apperr"
	"dukapos/internal/dto"
	"dukapos/internal/model"
	"dukapos/internal/repository"
	"dukapos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ReportService aggregates register and sale data for reconciliation. The
// daily report computes its totals twice — from Sale rows and from the
// registers' live counters — and surfaces both so drift between them shows
// up as a defect signal instead of being silently reconciled.
type ReportService interface {
	DailyReport(ctx context.Context, cashierID uuid.UUID, date string) (*dto.DailyReportResponse, error)
	RequestExport(ctx context.Context, req dto.ExportRequest) error
}

type reportService struct {
	registerRepo repository.RegisterRepository
	saleRepo     repository.SaleRepository
	dispatcher   *worker.Dispatcher
}

func NewReportService(
	registerRepo repository.RegisterRepository,
	saleRepo repository.SaleRepository,
	dispatcher *worker.Dispatcher,
) ReportService {
	return &reportService{registerRepo: registerRepo, saleRepo: saleRepo, dispatcher: dispatcher}
}

func (s *reportService) DailyReport(ctx context.Context, cashierID uuid.UUID, date string) (*dto.DailyReportResponse, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, apperr.Validation("invalid date %q, expected YYYY-MM-DD", date)
	}
	from, to := day, day.AddDate(0, 0, 1)

	registers, err := s.registerRepo.ListOpenedInWindow(ctx, cashierID, from, to)
	if err != nil {
		return nil, err
	}

	registerIDs := make([]uuid.UUID, 0, len(registers))
	for _, r := range registers {
		registerIDs = append(registerIDs, r.ID)
	}
	var sales []model.Sale
	if len(registerIDs) > 0 {
		sales, err = s.saleRepo.ListByRegisterIDs(ctx, registerIDs)
		if err != nil {
			return nil, err
		}
	}

	fromSales := dto.SalesAggregate{
		GrossSales:    decimal.Zero,
		CashSales:     decimal.Zero,
		MpesaSales:    decimal.Zero,
		DiscountTotal: decimal.Zero,
	}
	for _, sale := range sales {
		fromSales.SalesCount++
		fromSales.GrossSales = fromSales.GrossSales.Add(sale.Total)
		fromSales.DiscountTotal = fromSales.DiscountTotal.Add(sale.Discount)
		switch sale.PaymentMethod {
		case model.PaymentCash:
			fromSales.CashSales = fromSales.CashSales.Add(sale.Total)
		case model.PaymentMpesa:
			fromSales.MpesaSales = fromSales.MpesaSales.Add(sale.Total)
		}
	}

	fromRegisters := dto.SalesAggregate{
		GrossSales:    decimal.Zero,
		CashSales:     decimal.Zero,
		MpesaSales:    decimal.Zero,
		DiscountTotal: decimal.Zero,
	}
	openingFloat := decimal.Zero
	closingCash := decimal.Zero
	registerResponses := make([]dto.RegisterResponse, 0, len(registers))
	for i := range registers {
		r := &registers[i]
		fromRegisters.SalesCount += r.SalesCount
		fromRegisters.GrossSales = fromRegisters.GrossSales.Add(r.GrossSales)
		fromRegisters.CashSales = fromRegisters.CashSales.Add(r.CashSales)
		fromRegisters.MpesaSales = fromRegisters.MpesaSales.Add(r.MpesaSales)
		openingFloat = openingFloat.Add(r.OpeningFloat)
		if r.ClosingCash != nil {
			closingCash = closingCash.Add(*r.ClosingCash)
		}
		registerResponses = append(registerResponses, *registerToResponse(r))
	}

	expectedCash := openingFloat.Add(fromSales.CashSales)
	variance := closingCash.Sub(expectedCash)

	diverged := fromSales.SalesCount != fromRegisters.SalesCount ||
		!fromSales.GrossSales.Equal(fromRegisters.GrossSales) ||
		!fromSales.CashSales.Equal(fromRegisters.CashSales) ||
		!fromSales.MpesaSales.Equal(fromRegisters.MpesaSales)
	if diverged {
		log.Warn().
			Str("cashier_id", cashierID.String()).
			Str("date", date).
			Msg("daily report: register counters diverge from sale-derived totals")
	}

	return &dto.DailyReportResponse{
		CashierID:     cashierID.String(),
		Date:          date,
		FromSales:     fromSales,
		FromRegisters: fromRegisters,
		ExpectedCash:  expectedCash,
		ClosingCash:   closingCash,
		Variance:      variance,
		Diverged:      diverged,
		Registers:     registerResponses,
	}, nil
}

// RequestExport enqueues an async CSV export job. Rendering and delivery are
// the export worker's concern; the core only hands over the row selection.
func (s *reportService) RequestExport(ctx context.Context, req dto.ExportRequest) error {
	if s.dispatcher == nil {
		return apperr.Validation("export pipeline is not configured")
	}
	return s.dispatcher.EnqueueExport(ctx, worker.ExportJobPayload{
		Type:  req.Type,
		Date:  req.Date,
		Email: req.Email,
	})
}
