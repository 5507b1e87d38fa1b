// Package config loads service settings: built-in defaults, then an optional
// YAML file named by CONFIG_FILE, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Service        string        `yaml:"service"`
	Port           string        `yaml:"port"`
	DatabaseURL    string        `yaml:"database_url"`
	LogLevel       string        `yaml:"log_level"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	OTLPEndpoint   string        `yaml:"otlp_endpoint"`
	Notifier       string        `yaml:"notifier"`
	PaymentBaseURL string        `yaml:"payment_base_url"`

	Kafka    Kafka    `yaml:"kafka"`
	RabbitMQ RabbitMQ `yaml:"rabbitmq"`
	Redis    Redis    `yaml:"redis"`
	Outbox   Outbox   `yaml:"outbox"`
	Pricing  Pricing  `yaml:"pricing"`
	Retry    Retry    `yaml:"retry"`
}

type Kafka struct {
	Brokers     string `yaml:"brokers"`
	EventsTopic string `yaml:"events_topic"`
	StatusTopic string `yaml:"status_topic"`
	GroupID     string `yaml:"group_id"`
}

type RabbitMQ struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type Redis struct {
	Addr          string `yaml:"addr"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

type Outbox struct {
	Inline      bool          `yaml:"inline"`
	Relay       bool          `yaml:"relay"`
	Interval    time.Duration `yaml:"interval"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"`
}

type Pricing struct {
	Currency    string          `yaml:"currency"`
	DeliveryFee decimal.Decimal `yaml:"delivery_fee"`
	TaxRate     decimal.Decimal `yaml:"tax_rate"`
}

type Retry struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

func Defaults(service string) Config {
	return Config{
		Service:        service,
		Port:           "8080",
		LogLevel:       "info",
		RequestTimeout: 2500 * time.Millisecond,
		Notifier:       "log",
		Kafka: Kafka{
			EventsTopic: "order-events",
			StatusTopic: "order-status",
			GroupID:     service,
		},
		RabbitMQ: RabbitMQ{Exchange: "orders_topic"},
		Redis:    Redis{ChannelPrefix: "yummyzoom"},
		Outbox: Outbox{
			Interval:    time.Second,
			BatchSize:   100,
			Concurrency: 4,
		},
		Pricing: Pricing{
			Currency:    "VND",
			DeliveryFee: decimal.Zero,
			TaxRate:     decimal.Zero,
		},
		Retry: Retry{MaxAttempts: 5, BaseDelay: 20 * time.Millisecond},
	}
}

// Load reads configuration for service from CONFIG_FILE and the environment.
func Load(service string) (Config, error) {
	return load(service, os.LookupEnv, os.ReadFile)
}

func load(service string, lookup func(string) (string, bool), readFile func(string) ([]byte, error)) (Config, error) {
	cfg := Defaults(service)
	env := envReader{lookup: lookup}

	if path := env.str("CONFIG_FILE", ""); path != "" {
		data, err := readFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Port = env.str("PORT", cfg.Port)
	cfg.DatabaseURL = env.str("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = env.str("LOG_LEVEL", cfg.LogLevel)
	cfg.RequestTimeout = env.millis("REQUEST_TIMEOUT_MS", cfg.RequestTimeout)
	cfg.OTLPEndpoint = env.str("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.Notifier = strings.ToLower(env.str("NOTIFIER", cfg.Notifier))
	cfg.PaymentBaseURL = strings.TrimRight(env.str("PAYMENT_BASE_URL", cfg.PaymentBaseURL), "/")

	cfg.Kafka.Brokers = env.str("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.EventsTopic = env.str("KAFKA_EVENTS_TOPIC", cfg.Kafka.EventsTopic)
	cfg.Kafka.StatusTopic = env.str("KAFKA_STATUS_TOPIC", cfg.Kafka.StatusTopic)
	cfg.Kafka.GroupID = env.str("KAFKA_GROUP_ID", cfg.Kafka.GroupID)
	cfg.RabbitMQ.URL = env.str("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.Exchange = env.str("RABBITMQ_EXCHANGE", cfg.RabbitMQ.Exchange)
	cfg.Redis.Addr = env.str("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.ChannelPrefix = env.str("REDIS_CHANNEL_PREFIX", cfg.Redis.ChannelPrefix)

	cfg.Outbox.Inline = env.boolean("OUTBOX_INLINE", cfg.Outbox.Inline)
	cfg.Outbox.Relay = env.boolean("OUTBOX_RELAY", cfg.Outbox.Relay)
	cfg.Outbox.Interval = env.millis("OUTBOX_INTERVAL_MS", cfg.Outbox.Interval)
	cfg.Outbox.BatchSize = env.integer("OUTBOX_BATCH_SIZE", cfg.Outbox.BatchSize)
	cfg.Outbox.Concurrency = env.integer("OUTBOX_CONCURRENCY", cfg.Outbox.Concurrency)

	cfg.Pricing.Currency = strings.ToUpper(env.str("CURRENCY", cfg.Pricing.Currency))
	cfg.Pricing.DeliveryFee = env.decimal("DELIVERY_FEE", cfg.Pricing.DeliveryFee)
	cfg.Pricing.TaxRate = env.decimal("TAX_RATE", cfg.Pricing.TaxRate)
	cfg.Retry.MaxAttempts = env.integer("RETRY_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.Notifier {
	case "log", "kafka", "rabbitmq", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown notifier %q", c.Notifier))
	}
	if c.Notifier == "kafka" && c.Kafka.Brokers == "" {
		errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka notifier"))
	}
	if c.Outbox.Relay && c.Kafka.Brokers == "" {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when OUTBOX_RELAY is on"))
	}
	if c.Notifier == "rabbitmq" && c.RabbitMQ.URL == "" {
		errs = append(errs, errors.New("RABBITMQ_URL is required for the rabbitmq notifier"))
	}
	if c.Notifier == "redis" && c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required for the redis notifier"))
	}
	if c.Pricing.DeliveryFee.IsNegative() || c.Pricing.TaxRate.IsNegative() {
		errs = append(errs, errors.New("pricing values cannot be negative"))
	}
	if c.Outbox.Interval <= 0 || c.Outbox.BatchSize <= 0 {
		errs = append(errs, errors.New("outbox interval and batch size must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) str(k, def string) string {
	v, ok := e.lookup(k)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return def
	}
	return v
}

func (e *envReader) integer(k string, def int) int {
	v := e.str(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return n
}

func (e *envReader) millis(k string, def time.Duration) time.Duration {
	v := e.str(k, "")
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func (e *envReader) boolean(k string, def bool) bool {
	switch strings.ToLower(e.str(k, "")) {
	case "":
		return def
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func (e *envReader) decimal(k string, def decimal.Decimal) decimal.Decimal {
	v := e.str(k, "")
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return d
}
