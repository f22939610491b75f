package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string
	// KafkaBrokers empty disables the status-event publisher.
	KafkaBrokers []string
	Env          string

	// Gateway credentials, supplied externally, read-only to the core.
	MidtransServerKey string
	MidtransClientKey string
	// MidtransEnv selects the gateway base URL: "sandbox" or "production".
	MidtransEnv string

	// Pricing model.
	UnitPrice   decimal.Decimal // Rupiah per kWh
	TaxPPNRate  decimal.Decimal
	TaxPJURate  decimal.Decimal
	AdminFee    int64
	DriftPolicy string

	ReconcileInterval  time.Duration
	ReconcileBatchSize int
}

// LoadConfig reads .env file and returns a Config struct
func LoadConfig() *Config {
	// Try loading .env file (it might not exist in Production, which is fine)
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on System Env Variables")
	}

	return &Config{
		Port:         getEnv("PORT", "3000"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		Env:          getEnv("ENV", "development"),

		MidtransServerKey: getEnv("MIDTRANS_SERVER_KEY", ""),
		MidtransClientKey: getEnv("MIDTRANS_CLIENT_KEY", ""),
		MidtransEnv:       getEnv("MIDTRANS_ENV", "sandbox"),

		UnitPrice:   getDecimal("UNIT_PRICE", "1444.70"),
		TaxPPNRate:  getDecimal("TAX_PPN_RATE", "0.12"),
		TaxPJURate:  getDecimal("TAX_PJU_RATE", "0.05"),
		AdminFee:    getInt64("ADMIN_FEE", 4000),
		DriftPolicy: getEnv("DRIFT_POLICY", "absorb"),

		ReconcileInterval:  getDuration("RECONCILE_INTERVAL", time.Minute),
		ReconcileBatchSize: int(getInt64("RECONCILE_BATCH_SIZE", 10)),
	}
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		slog.Warn("invalid integer in env, using fallback", "key", key)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration in env, using fallback", "key", key)
	}
	return fallback
}

func getDecimal(key, fallback string) decimal.Decimal {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
		slog.Warn("invalid decimal in env, using fallback", "key", key)
	}
	return decimal.RequireFromString(fallback)
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
