package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health probes the two stores everything else sits on: postgres and the
// redis instance backing the job queues. Mounted outside the auth group so
// load balancers and uptime monitors can poll it bare.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{"postgres": "up", "redis": "up"}
		healthy := true

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["postgres"] = "down"
			healthy = false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
			healthy = false
		}

		status := http.StatusOK
		state := "up"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}

		c.JSON(status, gin.H{
			"service": "dukapos",
			"status":  state,
			"checks":  checks,
		})
	}
}
