package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"library-lending/library"
)

type (
	Config struct {
		HTTP
		Database
		Auth
		Lending
		Log
	}

	HTTP struct {
		Host            string
		Port            int
		ShutdownTimeout time.Duration
		// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For
		// is believed. Empty means the peer address is the client.
		TrustedProxies  []string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret          string
		TokenTTL           time.Duration
		BcryptCost         int
		LoginRatePerMinute int
		LoginRateBurst     int
	}
	Lending struct {
		MaxActiveLoans int
		LoanPeriod     time.Duration
		DeletePolicy   library.DeletePolicy
	}
	Log struct {
		Level  string
		Format string // text or json
	}
)

// DefaultDatabasePath is where the SQLite file lives unless DATABASE_PATH says otherwise.
const DefaultDatabasePath = "./library.db"

// Load reads an optional .env file from the working directory and then the
// process environment. Values already in the environment win over .env.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit .env path.
func LoadFrom(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("trusted_proxies", "")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("login_rate_per_minute", 10)
	v.SetDefault("login_rate_burst", 5)
	v.SetDefault("max_active_loans", library.DefaultMaxActiveLoans)
	v.SetDefault("loan_period", library.DefaultLoanPeriod.String())
	v.SetDefault("delete_policy", string(library.DeleteBlock))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	cfg := &Config{
		HTTP: HTTP{
			Host:            v.GetString("HOST"),
			Port:            v.GetInt("PORT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
			TrustedProxies:  splitList(v.GetString("TRUSTED_PROXIES")),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			JWTSecret:          v.GetString("JWT_SECRET"),
			TokenTTL:           v.GetDuration("TOKEN_TTL"),
			BcryptCost:         v.GetInt("BCRYPT_COST"),
			LoginRatePerMinute: v.GetInt("LOGIN_RATE_PER_MINUTE"),
			LoginRateBurst:     v.GetInt("LOGIN_RATE_BURST"),
		},
		Lending: Lending{
			MaxActiveLoans: v.GetInt("MAX_ACTIVE_LOANS"),
			LoanPeriod:     v.GetDuration("LOAN_PERIOD"),
			DeletePolicy:   library.DeletePolicy(strings.ToLower(v.GetString("DELETE_POLICY"))),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the lending rules or the server cannot work with.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	for _, p := range c.HTTP.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			return fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p)
		}
	}
	if c.Database.Path == "" {
		return errors.New("DATABASE_PATH must not be empty")
	}
	if c.Lending.MaxActiveLoans <= 0 {
		return fmt.Errorf("MAX_ACTIVE_LOANS must be positive, got %d", c.Lending.MaxActiveLoans)
	}
	if c.Lending.LoanPeriod <= 0 {
		return fmt.Errorf("LOAN_PERIOD must be positive, got %s", c.Lending.LoanPeriod)
	}
	if !c.Lending.DeletePolicy.Valid() {
		return fmt.Errorf("DELETE_POLICY must be %q or %q, got %q", library.DeleteBlock, library.DeleteForceReturn, c.Lending.DeletePolicy)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.LoginRatePerMinute <= 0 || c.Auth.LoginRateBurst <= 0 {
		return errors.New("LOGIN_RATE_PER_MINUTE and LOGIN_RATE_BURST must be positive")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ManagerOptions maps the lending settings onto library options.
func (c *Config) ManagerOptions(logger *slog.Logger) library.Options {
	return library.Options{
		MaxActiveLoans: c.Lending.MaxActiveLoans,
		LoanPeriod:     c.Lending.LoanPeriod,
		DeletePolicy:   c.Lending.DeletePolicy,
		BcryptCost:     c.Auth.BcryptCost,
		Logger:         logger,
	}
}

// NewLogger builds the process logger. It writes to stderr.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// splitList splits a comma-separated setting, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
