package handler

import (
	"net/http"

	"dukapos/internal/dto"
	"dukapos/internal/repository"
	"dukapos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// AlertsHandler serves the low-stock list. Reads hit the Redis snapshot
// maintained by the alerts worker; a cache miss falls through to the DB.
type AlertsHandler struct {
	productRepo repository.ProductRepository
	rdb         *redis.Client
}

func NewAlertsHandler(productRepo repository.ProductRepository, rdb *redis.Client) *AlertsHandler {
	return &AlertsHandler{productRepo: productRepo, rdb: rdb}
}

func (h *AlertsHandler) LowStock(c *gin.Context) {
	ctx := c.Request.Context()

	if cached, err := h.rdb.Get(ctx, worker.LowStockCacheKey).Result(); err == nil {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	products, err := h.productRepo.ListLowStock(ctx)
	if err != nil {
		respondErr(c, err)
		return
	}
	log.Debug().Int("count", len(products)).Msg("low-stock cache miss, served from db")

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
	c.JSON(http.StatusOK, alerts)
}
