package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`

	// Account-level default rates, in percent. Budgets and items may
	// override the location rate per record.
	LocationRate     float64 `mapstructure:"LOCATION_RATE"`
	TaxRate          float64 `mapstructure:"TAX_RATE"`
	AnticipationRate float64 `mapstructure:"ANTICIPATION_RATE"`
	CardFeeCredit    float64 `mapstructure:"CARD_FEE_CREDIT"`
	CardFeeDebit     float64 `mapstructure:"CARD_FEE_DEBIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOCATION_RATE", 0)
	v.SetDefault("TAX_RATE", 0)
	v.SetDefault("ANTICIPATION_RATE", 0)
	v.SetDefault("CARD_FEE_CREDIT", 0)
	v.SetDefault("CARD_FEE_DEBIT", 0)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("LOCATION_RATE")
	v.BindEnv("TAX_RATE")
	v.BindEnv("ANTICIPATION_RATE")
	v.BindEnv("CARD_FEE_CREDIT")
	v.BindEnv("CARD_FEE_DEBIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_SIGNING_KEY.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// AUTH_SIGNING_KEY must be set so that real JWT authentication is enforced.
// Rates are percentages and must stay within [0, 100].
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_SIGNING_KEY must be set when ENV is %q. "+
				"Refusing to start without authentication configuration", c.Env)
	}

	rates := map[string]float64{
		"LOCATION_RATE":     c.LocationRate,
		"TAX_RATE":          c.TaxRate,
		"ANTICIPATION_RATE": c.AnticipationRate,
		"CARD_FEE_CREDIT":   c.CardFeeCredit,
		"CARD_FEE_DEBIT":    c.CardFeeDebit,
	}
	for name, rate := range rates {
		if rate < 0 || rate > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %v", name, rate)
		}
	}

	return nil
}
