package config

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AcquirerConfig holds the per-installation AdaPay acquirer settings. It is
// read once and passed explicitly to the components that need it.
type AcquirerConfig struct {
	APIKey             string
	TestMode           bool
	BaseURL            string
	ExpirationMinutes  int
	UseWebhook         bool
	WebhookTokenHash   string
	UnrecognizedStatus string
	SyncSchedule       string
	ReturnURL          string
	ConversionProvider string
	ConversionAPIKey   string
	ConversionTestMode bool
	ConversionCacheTTL time.Duration
	GatewayTimeout     time.Duration
	LockTTL            time.Duration
}

type Config struct {
	PostgresDSN       string
	RedisAddr         string
	KafkaBrokers      []string
	KafkaStateTopic   string
	KafkaWebhookTopic string
	JWTSecret         string
	HTTPAddr          string
	OTLPEndpoint      string
	Acquirer          AcquirerConfig
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKER")),
		KafkaStateTopic:   os.Getenv("KAFKA_STATE_TOPIC"),
		KafkaWebhookTopic: os.Getenv("KAFKA_WEBHOOK_TOPIC"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		OTLPEndpoint:      os.Getenv("OTLP_ENDPOINT"),
		Acquirer: AcquirerConfig{
			APIKey:             os.Getenv("ADAPAY_API_KEY"),
			TestMode:           envBool("ADAPAY_TEST_MODE", false),
			BaseURL:            os.Getenv("ADAPAY_BASE_URL"),
			ExpirationMinutes:  envInt("ADAPAY_EXPIRATION_MINUTES", 15),
			UseWebhook:         envBool("ADAPAY_USE_WEBHOOK", false),
			WebhookTokenHash:   os.Getenv("ADAPAY_WEBHOOK_TOKEN_HASH"),
			UnrecognizedStatus: os.Getenv("ADAPAY_UNRECOGNIZED_STATUS"),
			SyncSchedule:       os.Getenv("ADAPAY_SYNC_SCHEDULE"),
			ReturnURL:          os.Getenv("ADAPAY_RETURN_URL"),
			ConversionProvider: os.Getenv("CONVERSION_PROVIDER"),
			ConversionAPIKey:   os.Getenv("CONVERSION_API_KEY"),
			ConversionTestMode: envBool("CONVERSION_TEST_MODE", false),
			ConversionCacheTTL: envDuration("CONVERSION_CACHE_TTL", time.Minute),
			GatewayTimeout:     envDuration("ADAPAY_TIMEOUT", 10*time.Second),
			LockTTL:            envDuration("ADAPAY_LOCK_TTL", time.Minute),
		},
	}

	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=adapay sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 0 {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.KafkaStateTopic == "" {
		cfg.KafkaStateTopic = "adapay.transactions"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "supersecret"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Acquirer.ExpirationMinutes <= 0 {
		cfg.Acquirer.ExpirationMinutes = 15
	}
	if cfg.Acquirer.SyncSchedule == "" {
		cfg.Acquirer.SyncSchedule = "@every 1m"
	}
	if cfg.Acquirer.ReturnURL == "" {
		cfg.Acquirer.ReturnURL = "/payment/status"
	}
	if cfg.Acquirer.ConversionProvider == "" {
		cfg.Acquirer.ConversionProvider = "coinmarket"
	}
	if cfg.Acquirer.GatewayTimeout <= 0 {
		cfg.Acquirer.GatewayTimeout = 10 * time.Second
	}
	// creating a payment holds the reference lock across a conversion and two
	// gateway calls
	if floor := MinLockTTL(cfg.Acquirer.GatewayTimeout); cfg.Acquirer.LockTTL < floor {
		slog.Warn("lock TTL raised above the locked section", "configured", cfg.Acquirer.LockTTL, "ttl", floor)
		cfg.Acquirer.LockTTL = floor
	}

	slog.Info("config loaded",
		"postgres_host", dsnHost(cfg.PostgresDSN),
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"adapay_test_mode", cfg.Acquirer.TestMode,
		"adapay_use_webhook", cfg.Acquirer.UseWebhook,
		"conversion_provider", cfg.Acquirer.ConversionProvider)
	return cfg
}

// MinLockTTL is the shortest reference lock TTL that outlasts the slowest
// locked section for the given upstream timeout.
func MinLockTTL(timeout time.Duration) time.Duration {
	return 4 * timeout
}

// dsnHost extracts the host from a key=value or URL style DSN so the
// credentials never reach the logs.
func dsnHost(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Host != "" {
		return u.Hostname()
	}
	for _, field := range strings.Fields(dsn) {
		if host, ok := strings.CutPrefix(field, "host="); ok {
			return host
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
