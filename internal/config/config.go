package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Database holds the connection parameters for the Postgres store.
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d Database) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Server holds HTTP transport settings.
type Server struct {
	Port string
}

// Matching holds the named tunables consumed by scoring, the pipeline and
// reporting (spec §4.7). Percentages are decimal.Decimal (e.g. 5.0 for 5%),
// never a float, so tolerance arithmetic stays exact.
type Matching struct {
	AmountTolerancePercent      decimal.Decimal
	SettlementWindowHours       int
	ChargebackWindowDays        int
	RefundWindowDays            int
	MinConfidenceForAutoMatch   int
	CurrencyFXTolerancePercent  decimal.Decimal
	OrphanThresholdDays         int
}

// Config is the immutable, process-wide configuration value. It is built
// once at startup by Load and threaded explicitly into the orchestrator and
// scoring functions; nothing in the core mutates it afterward.
type Config struct {
	Database Database
	Server   Server
	LogLevel string
	Matching Matching
}

// Load reads configuration from environment variables (prefixed RECON_) and
// an optional config file, applying the spec's defaults for every matching
// tunable. It mirrors pramudityad-golang-reconciliation-service's viper-based
// config layer rather than the bare os.Getenv helpers the rest of this repo
// was originally built around.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECON")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/recon-engine")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "reconciliation")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("server.port", "8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("matching.amount_tolerance_percent", "5.0")
	v.SetDefault("matching.settlement_window_hours", 72)
	v.SetDefault("matching.chargeback_window_days", 90)
	v.SetDefault("matching.refund_window_days", 30)
	v.SetDefault("matching.min_confidence_for_auto_match", 80)
	v.SetDefault("matching.currency_fx_tolerance_percent", "10.0")
	v.SetDefault("matching.orphan_threshold_days", 7)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	amountTolerance, err := decimal.NewFromString(v.GetString("matching.amount_tolerance_percent"))
	if err != nil {
		return nil, fmt.Errorf("invalid matching.amount_tolerance_percent: %w", err)
	}

	fxTolerance, err := decimal.NewFromString(v.GetString("matching.currency_fx_tolerance_percent"))
	if err != nil {
		return nil, fmt.Errorf("invalid matching.currency_fx_tolerance_percent: %w", err)
	}

	cfg := &Config{
		Database: Database{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		Server:   Server{Port: v.GetString("server.port")},
		LogLevel: v.GetString("log_level"),
		Matching: Matching{
			AmountTolerancePercent:     amountTolerance,
			SettlementWindowHours:      v.GetInt("matching.settlement_window_hours"),
			ChargebackWindowDays:       v.GetInt("matching.chargeback_window_days"),
			RefundWindowDays:           v.GetInt("matching.refund_window_days"),
			MinConfidenceForAutoMatch:  v.GetInt("matching.min_confidence_for_auto_match"),
			CurrencyFXTolerancePercent: fxTolerance,
			OrphanThresholdDays:        v.GetInt("matching.orphan_threshold_days"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects a configuration that would make tolerance arithmetic
// meaningless. Called once at startup; a configuration-invalid condition is
// a reject-at-startup failure per spec §7.
func (c *Config) Validate() error {
	if !c.Matching.AmountTolerancePercent.IsPositive() {
		return fmt.Errorf("matching.amount_tolerance_percent must be > 0")
	}
	if !c.Matching.CurrencyFXTolerancePercent.IsPositive() {
		return fmt.Errorf("matching.currency_fx_tolerance_percent must be > 0")
	}
	if c.Matching.SettlementWindowHours <= 0 {
		return fmt.Errorf("matching.settlement_window_hours must be > 0")
	}
	if c.Matching.ChargebackWindowDays <= 0 {
		return fmt.Errorf("matching.chargeback_window_days must be > 0")
	}
	if c.Matching.RefundWindowDays <= 0 {
		return fmt.Errorf("matching.refund_window_days must be > 0")
	}
	if c.Matching.MinConfidenceForAutoMatch < 0 || c.Matching.MinConfidenceForAutoMatch > 100 {
		return fmt.Errorf("matching.min_confidence_for_auto_match must be within [0,100]")
	}
	if c.Matching.OrphanThresholdDays < 0 {
		return fmt.Errorf("matching.orphan_threshold_days must be >= 0")
	}
	return nil
}
