package db

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	Driver          string `json:"driver"`
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// Checker is a store that can be pinged and report pool statistics.
type Checker interface {
	Ping(ctx context.Context) error
	Stats() *PoolStats
}

// GetPoolStats returns connection pool statistics for a PostgreSQL pool.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		Driver:          "postgres",
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// GetSQLStats maps database/sql statistics onto PoolStats.
func GetSQLStats(stat sql.DBStats) *PoolStats {
	return &PoolStats{
		Driver:          "sqlite",
		TotalConns:      int32(stat.OpenConnections),
		IdleConns:       int32(stat.Idle),
		AcquiredConns:   int32(stat.InUse),
		MaxConns:        int32(stat.MaxOpenConnections),
		AcquireCount:    stat.WaitCount,
		AcquireDuration: stat.WaitDuration.String(),
		Healthy:         stat.OpenConnections > 0,
	}
}

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(chk Checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := chk.Ping(ctx)
		stats := chk.Stats()

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		stats.Healthy = true
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
