package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/karloscodes/cartridge"

	"linkbio/internal/links"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	DBStatus     string    `json:"db_status"`
	SchemaStatus string    `json:"schema_status"`
}

// HealthIndexAction reports database connectivity and whether the link tables
// exist. A degraded instance answers 503 so load balancers take it out.
func HealthIndexAction(ctx *cartridge.Context) error {
	health := HealthStatus{
		Status:       "ok",
		Timestamp:    time.Now(),
		DBStatus:     "ok",
		SchemaStatus: "ok",
	}

	db := ctx.DBManager.GetConnection()
	if db == nil {
		ctx.Logger.Error("Database connection unavailable")
		health.DBStatus = "error"
		health.SchemaStatus = "unknown"
	} else if sqlDB, err := db.DB(); err != nil {
		ctx.Logger.Error("Database connection error", slog.Any("error", err))
		health.DBStatus = "error"
		health.SchemaStatus = "unknown"
	} else if err := sqlDB.PingContext(ctx.UserContext()); err != nil {
		ctx.Logger.Error("Database ping failed", slog.Any("error", err))
		health.DBStatus = "error"
		health.SchemaStatus = "unknown"
	} else {
		migrator := db.Migrator()
		if !migrator.HasTable(&links.Link{}) || !migrator.HasTable(&links.ClickEvent{}) {
			ctx.Logger.Warn("Link tables missing, migrations have not run")
			health.SchemaStatus = "missing"
		}
	}

	if health.DBStatus != "ok" || health.SchemaStatus != "ok" {
		health.Status = "degraded"
		return ctx.Status(http.StatusServiceUnavailable).JSON(health)
	}
	return ctx.JSON(health)
}
