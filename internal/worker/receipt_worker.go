package worker

// receipt_worker.go
// Renders a thermal receipt PDF for each committed sale. Receipts are an
// export artifact — the sale itself is already durable before this runs, so
// a rendering failure never affects the ledger.

import (
	"context"
	"encoding/json"
	"fmt"

	"dukapos/internal/infra"
	"dukapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ReceiptWorker struct {
	saleRepo    repository.SaleRepository
	storagePath string
}

func NewReceiptWorker(saleRepo repository.SaleRepository, storagePath string) *ReceiptWorker {
	return &ReceiptWorker{saleRepo: saleRepo, storagePath: storagePath}
}

func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("receipt_worker: invalid payload")
		return nil // malformed payloads are not retryable
	}
	saleID, err := uuid.Parse(payload.SaleID)
	if err != nil {
		log.Error().Str("sale_id", payload.SaleID).Msg("receipt_worker: invalid sale id")
		return nil
	}

	sale, err := w.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return fmt.Errorf("receipt_worker: load sale %s: %w", saleID, err)
	}

	path, err := infra.GenerateReceiptPDF(sale, w.storagePath)
	if err != nil {
		return fmt.Errorf("receipt_worker: render %s: %w", sale.ReceiptNo, err)
	}
	log.Info().Str("receipt_no", sale.ReceiptNo).Str("path", path).Msg("receipt_worker: receipt rendered")
	return nil
}
