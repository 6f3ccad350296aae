package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. Every entry carries the component name so
// the API, the export worker and the CLI can share one log sink.
func New(env string, component string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "development" || env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if component != "" {
		cfg.InitialFields = map[string]interface{}{"component": component}
	}
	return cfg.Build()
}
