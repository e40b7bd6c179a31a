package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	envPrefix = "SCHOOLSHOP_"

	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		Storage  string `koanf:"storage"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		RequestTimeout  time.Duration `koanf:"request_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Postgres struct {
		DSN      string `koanf:"dsn"`
		MaxConns int32  `koanf:"max_conns"`
	} `koanf:"postgres"`

	Redis struct {
		Addr           string        `koanf:"addr"`
		Password       string        `koanf:"password"`
		DB             int           `koanf:"db"`
		IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
	} `koanf:"redis"`

	// Money values are kept as strings so they never pass through float64.
	Pricing struct {
		Currency              string `koanf:"currency"`
		FreeShippingThreshold string `koanf:"free_shipping_threshold"`
		FlatShippingFee       string `koanf:"flat_shipping_fee"`
		TaxRate               string `koanf:"tax_rate"`
		GiftWrapCost          string `koanf:"gift_wrap_cost"`
	} `koanf:"pricing"`

	Orders struct {
		MaxUpdateAttempts int `koanf:"max_update_attempts"`
	} `koanf:"orders"`

	Catalog struct {
		// SeedFile, when set, is upserted into the catalog on startup.
		SeedFile string `koanf:"seed_file"`
	} `koanf:"catalog"`
}

// Load reads <pathDir>/base.yaml, then the optional <pathDir>/<envName>.yaml,
// then SCHOOLSHOP_ environment variables (nested keys joined with __),
// e.g. SCHOOLSHOP_POSTGRES__DSN or SCHOOLSHOP_PRICING__TAX_RATE.
func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(filepath.Join(pathDir, "base.yaml")), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	if envName != "" {
		// missing overlay files are fine for local runs
		_ = k.Load(file.Provider(filepath.Join(pathDir, envName+".yaml")), yaml.Parser())
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("cfg.Validate: %w", err)
	}

	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}

	switch c.App.Storage {
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn required"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("app.storage must be %s or %s, got %q", StoragePostgres, StorageMemory, c.App.Storage))
	}

	if c.Redis.Addr != "" && c.Redis.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("redis.idempotency_ttl must be positive"))
	}

	if c.Orders.MaxUpdateAttempts < 1 {
		errs = append(errs, errors.New("orders.max_update_attempts must be at least 1"))
	}

	if _, err := c.PricingPolicy(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// PricingPolicy converts the pricing section. Blank fields keep their defaults.
func (c Config) PricingPolicy() (domain.PricingPolicy, error) {
	policy := domain.DefaultPricingPolicy()

	if c.Pricing.Currency != "" {
		unit, err := currency.ParseISO(c.Pricing.Currency)
		if err != nil {
			return policy, fmt.Errorf("pricing.currency[%s]: %w", c.Pricing.Currency, err)
		}
		policy.Currency = unit
	}

	for _, f := range []struct {
		key   string
		value string
		dst   *decimal.Decimal
	}{
		{"pricing.free_shipping_threshold", c.Pricing.FreeShippingThreshold, &policy.FreeShippingThreshold},
		{"pricing.flat_shipping_fee", c.Pricing.FlatShippingFee, &policy.FlatShippingFee},
		{"pricing.tax_rate", c.Pricing.TaxRate, &policy.TaxRate},
		{"pricing.gift_wrap_cost", c.Pricing.GiftWrapCost, &policy.GiftWrapCost},
	} {
		if f.value == "" {
			continue
		}
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return policy, fmt.Errorf("%s[%s]: %w", f.key, f.value, err)
		}
		*f.dst = d
	}

	if err := policy.Validate(); err != nil {
		return policy, fmt.Errorf("pricing: %w", err)
	}

	return policy, nil
}
