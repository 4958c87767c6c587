package worker

// export_worker.go
// Renders movement or sale rows for one UTC day to a CSV file and optionally
// emails it. The core's obligation to export collaborators is a stable,
// ordered row set — the repositories return rows in (created_at, id) order
// and this worker writes them out verbatim.

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dukapos/internal/dto"
	"dukapos/internal/infra"
	"dukapos/internal/repository"

	"github.com/rs/zerolog/log"
)

type ExportWorker struct {
	agentRepo   repository.AgentRepository
	saleRepo    repository.SaleRepository
	mailer      *infra.Mailer
	cb          *infra.CircuitBreaker
	storagePath string
}

func NewExportWorker(
	agentRepo repository.AgentRepository,
	saleRepo repository.SaleRepository,
	mailer *infra.Mailer,
	cb *infra.CircuitBreaker,
	storagePath string,
) *ExportWorker {
	return &ExportWorker{
		agentRepo:   agentRepo,
		saleRepo:    saleRepo,
		mailer:      mailer,
		cb:          cb,
		storagePath: storagePath,
	}
}

func (w *ExportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ExportJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("export_worker: invalid payload")
		return nil
	}

	if err := os.MkdirAll(w.storagePath, 0755); err != nil {
		return fmt.Errorf("export_worker: create storage dir: %w", err)
	}
	fileName := fmt.Sprintf("%s_%s.csv", payload.Type, payload.Date)
	filePath := filepath.Join(w.storagePath, fileName)

	var err error
	switch payload.Type {
	case "movements":
		err = w.writeMovements(ctx, payload.Date, filePath)
	case "sales":
		err = w.writeSales(ctx, payload.Date, filePath)
	default:
		log.Error().Str("type", payload.Type).Msg("export_worker: unknown export type")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("path", filePath).Msg("export_worker: export written")

	if payload.Email == nil || *payload.Email == "" {
		return nil
	}
	// SMTP is an external service — sends go through the circuit breaker so
	// a downed relay fails fast instead of tying up the pool.
	sendErr := w.cb.Execute(func() error {
		subject := fmt.Sprintf("DukaPOS %s export %s", payload.Type, payload.Date)
		return w.mailer.SendReport(*payload.Email, subject, "Attached: requested export.", filePath)
	})
	if sendErr != nil {
		return fmt.Errorf("export_worker: email %s: %w", *payload.Email, sendErr)
	}
	return nil
}

func (w *ExportWorker) writeMovements(ctx context.Context, date, filePath string) error {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return fmt.Errorf("export_worker: bad date %q: %w", date, err)
	}
	filter := dto.MovementFilter{
		DateFrom: day.Format("2006-01-02"),
		DateTo:   day.AddDate(0, 0, 1).Format("2006-01-02"),
		Page:     1,
		Limit:    100000,
	}
	movements, _, err := w.agentRepo.ListMovements(ctx, filter)
	if err != nil {
		return fmt.Errorf("export_worker: load movements: %w", err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{"id", "session_id", "kind", "amount", "cash_delta", "float_delta", "ref_code", "phone", "performed_by", "reversal_of", "created_at"}); err != nil {
		return err
	}
	for _, m := range movements {
		refCode, phone, reversalOf := "", "", ""
		if m.RefCode != nil {
			refCode = *m.RefCode
		}
		if m.Phone != nil {
			phone = *m.Phone
		}
		if m.ReversalOfID != nil {
			reversalOf = m.ReversalOfID.String()
		}
		row := []string{
			m.ID.String(), m.SessionID.String(), string(m.Kind),
			m.Amount.String(), m.CashDelta.String(), m.FloatDelta.String(),
			refCode, phone, m.PerformedByID.String(), reversalOf,
			m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (w *ExportWorker) writeSales(ctx context.Context, date, filePath string) error {
	sales, _, err := w.saleRepo.List(ctx, dto.SaleFilter{Date: date, Page: 1, Limit: 100000})
	if err != nil {
		return fmt.Errorf("export_worker: load sales: %w", err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{"receipt_no", "register_id", "cashier_id", "subtotal", "discount", "total", "payment_method", "amount_paid", "change", "created_at"}); err != nil {
		return err
	}
	for _, s := range sales {
		row := []string{
			s.ReceiptNo, s.RegisterSessionID.String(), s.CashierID.String(),
			s.Subtotal.String(), s.Discount.String(), s.Total.String(),
			s.PaymentMethod, s.AmountPaid.String(), s.Change.String(),
			s.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}
