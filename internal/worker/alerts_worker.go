package worker

// alerts_worker.go
// Rebuilds the low-stock alert cache after checkouts. The cache is a
// process-scoped snapshot in Redis with an explicit refresh lifecycle —
// checkout enqueues a refresh after commit, and readers always see a full,
// consistent list rather than an incrementally mutated one.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dukapos/internal/dto"
	"dukapos/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// LowStockCacheKey holds the JSON-encoded []dto.LowStockAlert snapshot.
const LowStockCacheKey = "cache:low_stock"

// lowStockCacheTTL bounds staleness if refreshes stop arriving.
const lowStockCacheTTL = 30 * time.Minute

type AlertsWorker struct {
	productRepo repository.ProductRepository
	rdb         *redis.Client
}

func NewAlertsWorker(productRepo repository.ProductRepository, rdb *redis.Client) *AlertsWorker {
	return &AlertsWorker{productRepo: productRepo, rdb: rdb}
}

func (w *AlertsWorker) Process(ctx context.Context) error {
	products, err := w.productRepo.ListLowStock(ctx)
	if err != nil {
		return fmt.Errorf("alerts_worker: load low-stock products: %w", err)
	}

	alerts := make([]dto.LowStockAlert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, dto.LowStockAlert{
			ProductID: p.ID.String(),
			Name:      p.Name,
			Barcode:   p.Barcode,
			BaseUnit:  p.BaseUnit,
			Remaining: p.AvailableBase(),
			Threshold: p.LowStockThreshold,
		})
	}

	data, err := json.Marshal(alerts)
	if err != nil {
		return err
	}
	if err := w.rdb.Set(ctx, LowStockCacheKey, data, lowStockCacheTTL).Err(); err != nil {
		return fmt.Errorf("alerts_worker: cache write: %w", err)
	}
	log.Debug().Int("alerts", len(alerts)).Msg("alerts_worker: low-stock cache refreshed")
	return nil
}
