package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every runtime knob the binaries need. Values come from the
// environment with sensible defaults for local development; a .env file is
// honored when present.
type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	RedisAddr     string
	KafkaBrokers  []string
	ServiceName   string
	PublicBaseURL string

	JWTSecret  string
	CronSecret string

	// Payment provider settings. DemoMode short-circuits the external
	// payment page and acknowledges checkouts immediately.
	PaymentAPIBase       string
	PaymentSecretKey     string
	PaymentWebhookSecret string
	DemoMode             bool

	ReservationTTL time.Duration
	PayoutHoldDays int
	PlatformFeeBps int
	TaxBps         int
	ShippingCents  int64
	OutboxInterval time.Duration
	WebhookSkewMax time.Duration
}

// Load reads configuration from the environment. A missing DATABASE_URL is
// not an error here: callers treat it as a request for the in-memory store.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		KafkaBrokers:  splitCSV(os.Getenv("KAFKA_BROKERS")),
		ServiceName:   getenv("SERVICE_NAME", "luxeflow-api"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:8080"),

		JWTSecret:  getenv("JWT_SECRET", "dev-secret-change-me"),
		CronSecret: os.Getenv("CRON_SECRET"),

		PaymentAPIBase:       getenv("PAYMENT_API_BASE", "https://api.payments.example.com"),
		PaymentSecretKey:     os.Getenv("PAYMENT_SECRET_KEY"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		DemoMode:             getenvBool("DEMO_MODE", false) || os.Getenv("PAYMENT_SECRET_KEY") == "",

		ReservationTTL: getenvDuration("RESERVATION_TTL", 15*time.Minute),
		PayoutHoldDays: getenvInt("PAYOUT_HOLD_DAYS", 7),
		PlatformFeeBps: getenvInt("PLATFORM_FEE_BPS", 2000),
		TaxBps:         getenvInt("TAX_BPS", 875),
		ShippingCents:  int64(getenvInt("SHIPPING_CENTS", 2500)),
		OutboxInterval: getenvDuration("OUTBOX_INTERVAL", 2*time.Second),
		WebhookSkewMax: getenvDuration("WEBHOOK_SKEW_MAX", 5*time.Minute),
	}

	// The webhook handler rejects everything when the secret is empty.
	// Demo mode gets a known dev secret so simulated events still work;
	// a real deployment must set PAYMENT_WEBHOOK_SECRET explicitly.
	if cfg.DemoMode && cfg.PaymentWebhookSecret == "" {
		cfg.PaymentWebhookSecret = "whsec_demo"
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
