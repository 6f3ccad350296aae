package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	JWTSecret          string
	RabbitMQURL        string
	RabbitMQWorkerMode string
	CorsAllowedOrigins []string

	WSHeartbeatInterval time.Duration
	WSListenChannel     string

	ReportDefaultCurrency       string
	ReportDefaultCurrencySymbol string
	ReportDefaultTimezone       string
	ReportCacheTTL              time.Duration
	ReportTrustPreAggregates    bool
	ReportDownloadURLTTL        time.Duration
	ReportExportMaxRetries      int64

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string
	ObjectStoreStorageClass    string
}

func Load() Config {
	cfg := Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8087"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQWorkerMode: getEnv("RABBITMQ_WORKER_MODE", "daemon"),
		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),

		WSHeartbeatInterval: getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
		WSListenChannel:     getEnv("WS_LISTEN_CHANNEL", "orders_updates"),

		ReportDefaultCurrency:       strings.ToUpper(getEnv("REPORT_DEFAULT_CURRENCY", "INR")),
		ReportDefaultCurrencySymbol: getEnv("REPORT_DEFAULT_CURRENCY_SYMBOL", "₹"),
		ReportDefaultTimezone:       getEnv("REPORT_DEFAULT_TIMEZONE", "Asia/Kolkata"),
		ReportCacheTTL:              getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
		ReportTrustPreAggregates:    getEnvBool("REPORT_TRUST_PREAGGREGATES", true),
		ReportDownloadURLTTL:        getEnvDuration("REPORT_DOWNLOAD_URL_TTL", 15*time.Minute),
		ReportExportMaxRetries:      getEnvInt64("REPORT_EXPORT_MAX_RETRIES", 5),

		// Object store (Cloudflare R2 / S3-compatible)
		ObjectStoreEndpoint:        getEnvFirst([]string{"OBJECT_STORE_ENDPOINT", "R2_S3_ENDPOINT"}, ""),
		ObjectStoreRegion:          getEnvFirst([]string{"OBJECT_STORE_REGION", "R2_REGION"}, "auto"),
		ObjectStoreAccessKeyID:     getEnvFirst([]string{"OBJECT_STORE_ACCESS_KEY_ID", "R2_ACCESS_KEY_ID"}, ""),
		ObjectStoreSecretAccessKey: getEnvFirst([]string{"OBJECT_STORE_SECRET_ACCESS_KEY", "R2_SECRET_ACCESS_KEY"}, ""),
		ObjectStoreBucket:          getEnvFirst([]string{"OBJECT_STORE_BUCKET", "R2_BUCKET"}, ""),
		ObjectStorePublicBaseURL:   getEnvFirst([]string{"OBJECT_STORE_PUBLIC_BASE_URL", "R2_PUBLIC_BASE_URL"}, ""),
		ObjectStoreStorageClass:    getEnvFirst([]string{"OBJECT_STORE_STORAGE_CLASS", "R2_STORAGE_CLASS"}, "STANDARD"),
	}

	if cfg.ReportCacheTTL < 0 {
		cfg.ReportCacheTTL = 0
	}
	if cfg.ReportDownloadURLTTL <= 0 {
		cfg.ReportDownloadURLTTL = 15 * time.Minute
	}
	if cfg.ReportExportMaxRetries <= 0 {
		cfg.ReportExportMaxRetries = 5
	}

	// Back-compat: allow R2_ACCOUNT_ID -> endpoint
	if strings.TrimSpace(cfg.ObjectStoreEndpoint) == "" {
		accountID := strings.TrimSpace(os.Getenv("R2_ACCOUNT_ID"))
		if accountID != "" {
			cfg.ObjectStoreEndpoint = "https://" + accountID + ".r2.cloudflarestorage.com"
		}
	}

	return cfg
}

// ObjectStoreEnabled reports whether exports can be archived.
func (c Config) ObjectStoreEnabled() bool {
	return strings.TrimSpace(c.ObjectStoreEndpoint) != "" && strings.TrimSpace(c.ObjectStoreBucket) != ""
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvFirst(keys []string, fallback string) string {
	for _, k := range keys {
		value := strings.TrimSpace(os.Getenv(k))
		if value != "" {
			return value
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
