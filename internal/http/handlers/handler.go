package handlers

import (
	"context"
	"time"

	"genfity-order-reports/internal/config"
	"genfity-order-reports/internal/services"

	"go.uber.org/zap"
)

// ExportStore lists and signs archived report files.
type ExportStore interface {
	ListReports(ctx context.Context, partnerID string) ([]string, error)
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

type Handler struct {
	Reports *services.ReportService
	Exports ExportStore
	Logger  *zap.Logger
	Config  config.Config
}
