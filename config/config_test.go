package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/library"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 3, cfg.Lending.MaxActiveLoans)
	assert.Equal(t, 60*24*time.Hour, cfg.Lending.LoanPeriod)
	assert.Equal(t, library.DeleteBlock, cfg.Lending.DeletePolicy)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.HTTP.TrustedProxies)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_ACTIVE_LOANS", "5")
	t.Setenv("LOAN_PERIOD", "336h")
	t.Setenv("DELETE_POLICY", "FORCE_RETURN")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 192.168.0.0/16,")

	cfg, err := LoadFrom(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 5, cfg.Lending.MaxActiveLoans)
	assert.Equal(t, 14*24*time.Hour, cfg.Lending.LoanPeriod)
	assert.Equal(t, library.DeleteForceReturn, cfg.Lending.DeletePolicy)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.HTTP.TrustedProxies)

	opts := cfg.ManagerOptions(cfg.NewLogger())
	assert.Equal(t, 5, opts.MaxActiveLoans)
	assert.Equal(t, library.DeleteForceReturn, opts.DeletePolicy)
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-dotenv\n"), 0o600))
	// godotenv never overrides a set variable, so start with it unset.
	// t.Setenv restores the original value afterwards.
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := map[string]string{
		"MAX_ACTIVE_LOANS": "0",
		"DELETE_POLICY":    "archive",
		"LOG_LEVEL":        "chatty",
		"LOG_FORMAT":       "xml",
		"PORT":             "70000",
		"TRUSTED_PROXIES":  "not-an-ip",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadFrom(noEnvFile(t))
			require.Error(t, err)
		})
	}
}
