package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "BULKROOM"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "BULKROOM_APP_ENV"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Fees         FeeConfig
	Paystack     PaystackConfig
	Sendgrid     SendgridConfig
	Termii       TermiiConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Fees.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BULKROOM_APP_ENV" required:"true"`
	Port         string `envconfig:"BULKROOM_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BULKROOM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BULKROOM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BULKROOM_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"BULKROOM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BULKROOM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BULKROOM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BULKROOM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BULKROOM_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"BULKROOM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BULKROOM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BULKROOM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BULKROOM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BULKROOM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// FeeConfig holds the platform fee schedule. Rates are fractional
// (0.05 == 5%). The schedule is frozen onto each order at build time; later
// config changes never reprice existing orders.
type FeeConfig struct {
	Mode           string          `envconfig:"BULKROOM_FEE_MODE" default:"wholesaler_funded"`
	CommissionRate decimal.Decimal `envconfig:"BULKROOM_FEE_COMMISSION_RATE" default:"0.05"`
	SurchargeRate  decimal.Decimal `envconfig:"BULKROOM_FEE_SURCHARGE_RATE" default:"0.033"`
	SurchargeFixed decimal.Decimal `envconfig:"BULKROOM_FEE_SURCHARGE_FIXED" default:"100.00"`
}

func (f FeeConfig) validate() error {
	if f.CommissionRate.IsNegative() || f.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("commission rate must be between 0 and 1, got %s", f.CommissionRate)
	}
	if f.SurchargeRate.IsNegative() || f.SurchargeRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("surcharge rate must be between 0 and 1, got %s", f.SurchargeRate)
	}
	if f.SurchargeFixed.IsNegative() {
		return fmt.Errorf("fixed surcharge must not be negative, got %s", f.SurchargeFixed)
	}
	return nil
}

type PaystackConfig struct {
	SecretKey     string `envconfig:"BULKROOM_PAYSTACK_SECRET_KEY"`
	WebhookSecret string `envconfig:"BULKROOM_PAYSTACK_WEBHOOK_SECRET"`
	BaseURL       string `envconfig:"BULKROOM_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL   string `envconfig:"BULKROOM_PAYSTACK_CALLBACK_URL"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"BULKROOM_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"BULKROOM_SENDGRID_FROM_EMAIL"`
}

type TermiiConfig struct {
	APIKey   string `envconfig:"BULKROOM_TERMII_API_KEY"`
	SenderID string `envconfig:"BULKROOM_TERMII_SENDER_ID" default:"Bulkroom"`
	BaseURL  string `envconfig:"BULKROOM_TERMII_BASE_URL" default:"https://api.ng.termii.com"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"BULKROOM_CRON_INTERVAL" default:"15m"`
	ArchiveAfter    time.Duration `envconfig:"BULKROOM_CRON_ARCHIVE_AFTER" default:"24h"`
	PendingOrderTTL time.Duration `envconfig:"BULKROOM_CRON_PENDING_ORDER_TTL" default:"240h"`
	WebhookGuardTTL time.Duration `envconfig:"BULKROOM_WEBHOOK_GUARD_TTL" default:"72h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BULKROOM_AUTO_MIGRATE" default:"false"`
}
