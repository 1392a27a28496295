package api

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/client"

	"github.com/localborga/milling-orders/internal/domains/orders/adapters/notify"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/sink/kafkasink"
	ordersapp "github.com/localborga/milling-orders/internal/domains/orders/application"
	ordersports "github.com/localborga/milling-orders/internal/domains/orders/ports"
	"github.com/localborga/milling-orders/internal/domains/pricing"
)

// Relay names accepted by NOTIFY_RELAY.
const (
	RelayNone     = "none"
	RelayRedis    = "redis"
	RelayPostgres = "postgres"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port              string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool

	AdminPassword              string
	JWTSecret                  string
	OperatorTokenTTL           time.Duration
	SessionPurgeIntervalMinute int
	IdempotencyRetention       time.Duration

	NotifyRelay      string
	RedisAddr        string
	RedisPassword    string
	KafkaBrokers     []string
	KafkaStatusTopic string
	SubscriberBuffer int
	OperationTimeout time.Duration

	Pricing pricing.Config
}

// LoadDotEnv loads the given files (default ".env") into the environment. Missing files are
// skipped and variables already set win over file values.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		NotifyRelay:       strings.ToLower(envDefault("NOTIFY_RELAY", RelayNone)),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:      kafkasink.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaStatusTopic:  envDefault("KAFKA_STATUS_TOPIC", kafkasink.DefaultTopic),
		SubscriberBuffer:  notify.DefaultBufferSize,
		OperationTimeout:  ordersapp.DefaultOperationTimeout,
		Pricing:           pricing.DefaultConfig(),
	}
	var err error
	if cfg.SessionPurgeIntervalMinute, err = positiveInt("SESSION_PURGE_INTERVAL_MINUTES", 0); err != nil {
		return Config{}, err
	}
	hours, err := positiveInt("OPERATOR_SESSION_TTL_HOURS", 8)
	if err != nil {
		return Config{}, err
	}
	cfg.OperatorTokenTTL = time.Duration(hours) * time.Hour
	if hours, err = positiveInt("IDEMPOTENCY_RETENTION_HOURS", int(ordersports.DefaultIdempotencyRetention/time.Hour)); err != nil {
		return Config{}, err
	}
	cfg.IdempotencyRetention = time.Duration(hours) * time.Hour
	if cfg.SubscriberBuffer, err = positiveInt("NOTIFY_SUBSCRIBER_BUFFER", cfg.SubscriberBuffer); err != nil {
		return Config{}, err
	}
	if raw := strings.TrimSpace(os.Getenv("ORDER_OPERATION_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("ORDER_OPERATION_TIMEOUT must be a positive duration such as 5s")
		}
		cfg.OperationTimeout = d
	}
	if err := loadPricing(&cfg.Pricing); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.NotifyRelay {
	case RelayNone:
	case RelayRedis:
		if c.RedisAddr == "" {
			return errors.New("NOTIFY_RELAY=redis requires REDIS_ADDR")
		}
	case RelayPostgres:
		if c.PostgresDSN == "" {
			return errors.New("NOTIFY_RELAY=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("NOTIFY_RELAY must be one of none, redis, postgres; got %q", c.NotifyRelay)
	}
	if err := c.Pricing.Validate(); err != nil {
		return err
	}
	return nil
}

// PurgeSchedule is the cron expression shared by the session and idempotency-key purges, empty when
// disabled.
func (c Config) PurgeSchedule() string {
	if c.SessionPurgeIntervalMinute <= 0 {
		return ""
	}
	return fmt.Sprintf("@every %dm", c.SessionPurgeIntervalMinute)
}

func loadPricing(cfg *pricing.Config) error {
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"PRICING_BASE_RATE", &cfg.BaseRate},
		{"PRICING_REFERENCE_WEIGHT_KG", &cfg.ReferenceWeightKg},
		{"PRICING_MIN_WEIGHT_KG", &cfg.MinWeightKg},
		{"PRICING_MAX_WEIGHT_KG", &cfg.MaxWeightKg},
		{"PRICING_WEIGHT_STEP_KG", &cfg.WeightStepKg},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(os.Getenv(f.key))
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s must be a decimal number: %w", f.key, err)
		}
		*f.dst = value
	}
	return nil
}

func positiveInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return value, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
