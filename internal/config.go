package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Env         string
	LogLevel    string
	Port        uint16
	DatabaseUrl string
	HTTP        HTTPConfig
	Redis       RedisConfig
	NATS        NATSConfig
	Cart        CartConfig
	Tax         TaxConfig
	Shipping    ShippingConfig
	Fees        FeeConfig
	Worker      WorkerConfig
	Sentry      SentryConfig
	Metrics     MetricsConfig
}

// HTTPConfig bounds incoming requests.
type HTTPConfig struct {
	AllowedOrigins []string // empty disables CORS
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// RedisConfig enables the Redis session cache and price overrides when URL
// is set.
type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// NATSConfig enables cart event publishing when URL is set.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// CartConfig holds the cart engine settings.
type CartConfig struct {
	TTL                 time.Duration
	MaxAttempts         int
	Currency            string
	PriceOverrideSecret string // empty disables the price override endpoint
	CookieEnabled       bool
	CookieDomain        string
}

// TaxConfig selects the tax calculator.
type TaxConfig struct {
	Provider        string // "none", "percentage" or "stripe"
	Rate            float64
	StripeSecretKey string
}

// ShippingConfig selects the shipping provider. The flat rates apply when
// Provider is "flat"; EasyPost quotes live carrier rates from Origin.
type ShippingConfig struct {
	Provider           string // "flat" or "easypost"
	StandardCents      int64
	ExpressCents       int64
	FreeThresholdCents int64
	EasyPostAPIKey     string
	Origin             OriginConfig
}

// OriginConfig is the ship-from address used for live rate quotes.
type OriginConfig struct {
	Line1      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// FeeConfig configures the small-order fee strategy. A zero amount disables it.
type FeeConfig struct {
	SmallOrderCents          int64
	SmallOrderThresholdCents int64
}

type WorkerConfig struct {
	CleanupInterval time.Duration
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN         string
	Enabled     bool
	Environment string
	Release     string
	SampleRate  float64
	Debug       bool
}

type MetricsConfig struct {
	Namespace string
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			log.Warn().Msg(".env file not found, using environment variables and defaults")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return loadConfig(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 3000)
	v.SetDefault("HTTP_REQUEST_TIMEOUT", "30s")
	v.SetDefault("HTTP_MAX_BODY_BYTES", 1<<20)
	v.SetDefault("CART_TTL", "48h")
	v.SetDefault("CART_CACHE_TTL", "15m")
	v.SetDefault("CART_LOCK_RETRIES", 3)
	v.SetDefault("CURRENCY", "usd")
	v.SetDefault("CART_COOKIE_ENABLED", false)
	v.SetDefault("NATS_SUBJECT_PREFIX", "cart")
	v.SetDefault("TAX_PROVIDER", "none")
	v.SetDefault("TAX_RATE", 0.0)
	v.SetDefault("SHIPPING_PROVIDER", "flat")
	v.SetDefault("SHIPPING_ORIGIN_COUNTRY", "US")
	v.SetDefault("SHIPPING_STANDARD_CENTS", 500)
	v.SetDefault("SHIPPING_EXPRESS_CENTS", 1500)
	v.SetDefault("SHIPPING_FREE_THRESHOLD_CENTS", 0)
	v.SetDefault("SMALL_ORDER_FEE_CENTS", 0)
	v.SetDefault("SMALL_ORDER_THRESHOLD_CENTS", 0)
	v.SetDefault("CLEANUP_INTERVAL", "10m")
	v.SetDefault("SENTRY_ENABLED", false) // Disabled by default for development
	v.SetDefault("SENTRY_ENVIRONMENT", "development")
	v.SetDefault("SENTRY_SAMPLE_RATE", 1.0)
	v.SetDefault("METRICS_NAMESPACE", "freyja")
}

func loadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:         v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Port:        v.GetUint16("PORT"),
		DatabaseUrl: v.GetString("DATABASE_URL"),
		HTTP: HTTPConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			RequestTimeout: v.GetDuration("HTTP_REQUEST_TIMEOUT"),
			MaxBodyBytes:   v.GetInt64("HTTP_MAX_BODY_BYTES"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("REDIS_URL"),
			CacheTTL: v.GetDuration("CART_CACHE_TTL"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		Cart: CartConfig{
			TTL:                 v.GetDuration("CART_TTL"),
			MaxAttempts:         v.GetInt("CART_LOCK_RETRIES"),
			Currency:            v.GetString("CURRENCY"),
			PriceOverrideSecret: v.GetString("PRICE_OVERRIDE_SECRET"),
			CookieEnabled:       v.GetBool("CART_COOKIE_ENABLED"),
			CookieDomain:        v.GetString("CART_COOKIE_DOMAIN"),
		},
		Tax: TaxConfig{
			Provider:        v.GetString("TAX_PROVIDER"),
			Rate:            v.GetFloat64("TAX_RATE"),
			StripeSecretKey: v.GetString("STRIPE_SECRET_KEY"),
		},
		Shipping: ShippingConfig{
			Provider:           v.GetString("SHIPPING_PROVIDER"),
			StandardCents:      v.GetInt64("SHIPPING_STANDARD_CENTS"),
			ExpressCents:       v.GetInt64("SHIPPING_EXPRESS_CENTS"),
			FreeThresholdCents: v.GetInt64("SHIPPING_FREE_THRESHOLD_CENTS"),
			EasyPostAPIKey:     v.GetString("EASYPOST_API_KEY"),
			Origin: OriginConfig{
				Line1:      v.GetString("SHIPPING_ORIGIN_LINE1"),
				City:       v.GetString("SHIPPING_ORIGIN_CITY"),
				State:      v.GetString("SHIPPING_ORIGIN_STATE"),
				PostalCode: v.GetString("SHIPPING_ORIGIN_POSTAL_CODE"),
				Country:    v.GetString("SHIPPING_ORIGIN_COUNTRY"),
			},
		},
		Fees: FeeConfig{
			SmallOrderCents:          v.GetInt64("SMALL_ORDER_FEE_CENTS"),
			SmallOrderThresholdCents: v.GetInt64("SMALL_ORDER_THRESHOLD_CENTS"),
		},
		Worker: WorkerConfig{
			CleanupInterval: v.GetDuration("CLEANUP_INTERVAL"),
		},
		Sentry: SentryConfig{
			DSN:         v.GetString("SENTRY_DSN"),
			Enabled:     v.GetBool("SENTRY_ENABLED"),
			Environment: v.GetString("SENTRY_ENVIRONMENT"),
			Release:     v.GetString("SENTRY_RELEASE"),
			SampleRate:  v.GetFloat64("SENTRY_SAMPLE_RATE"),
			Debug:       v.GetBool("SENTRY_DEBUG"),
		},
		Metrics: MetricsConfig{
			Namespace: v.GetString("METRICS_NAMESPACE"),
		},
	}

	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("ENV must be dev or prod, got %q", cfg.Env)
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		log.Warn().Str("value", cfg.LogLevel).Msg("Invalid log level. Using default: info")
		cfg.LogLevel = "info"
	}

	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Cart.TTL <= 0 {
		return nil, fmt.Errorf("CART_TTL must be positive")
	}
	if cfg.Cart.MaxAttempts < 1 {
		return nil, fmt.Errorf("CART_LOCK_RETRIES must be at least 1")
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		return nil, fmt.Errorf("HTTP_REQUEST_TIMEOUT must be positive")
	}
	if cfg.Worker.CleanupInterval <= 0 {
		return nil, fmt.Errorf("CLEANUP_INTERVAL must be positive")
	}

	switch cfg.Tax.Provider {
	case "none":
	case "percentage":
		if cfg.Tax.Rate < 0 || cfg.Tax.Rate > 1 {
			return nil, fmt.Errorf("TAX_RATE must be between 0 and 1, got %v", cfg.Tax.Rate)
		}
	case "stripe":
		if cfg.Tax.StripeSecretKey == "" {
			return nil, fmt.Errorf("STRIPE_SECRET_KEY required when TAX_PROVIDER=stripe")
		}
	default:
		return nil, fmt.Errorf("TAX_PROVIDER must be none, percentage or stripe, got %q", cfg.Tax.Provider)
	}

	switch cfg.Shipping.Provider {
	case "flat":
	case "easypost":
		if cfg.Shipping.EasyPostAPIKey == "" {
			return nil, fmt.Errorf("EASYPOST_API_KEY required when SHIPPING_PROVIDER=easypost")
		}
		if cfg.Shipping.Origin.Line1 == "" || cfg.Shipping.Origin.PostalCode == "" {
			return nil, fmt.Errorf("SHIPPING_ORIGIN_LINE1 and SHIPPING_ORIGIN_POSTAL_CODE required when SHIPPING_PROVIDER=easypost")
		}
	default:
		return nil, fmt.Errorf("SHIPPING_PROVIDER must be flat or easypost, got %q", cfg.Shipping.Provider)
	}

	if cfg.Sentry.Enabled && cfg.Sentry.DSN == "" {
		return nil, fmt.Errorf("SENTRY_DSN required when SENTRY_ENABLED=true")
	}

	return cfg, nil
}

// splitList parses a comma separated setting, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
