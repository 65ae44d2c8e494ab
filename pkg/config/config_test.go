package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "123:abc"
  admin_id: 42
database:
  driver: memory
state:
  proof_timeout: 30m
ratelimit:
  per_user:
    limit: 3
    window: 10s
`)

	cfg, v, err := LoadFile(path, "test")
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, int64(42), cfg.Bot.AdminID)
	assert.Equal(t, "polling", cfg.Bot.Mode)
	assert.Equal(t, 10, cfg.Bot.HistoryLimit)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.State.ProofTimeout)
	assert.Equal(t, 24*time.Hour, cfg.State.TTL)
	assert.Equal(t, RateLimitRule{Limit: 3, Window: 10 * time.Second}, cfg.RateLimit.PerUser)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "en", cfg.I18n.DefaultLang)
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "from-file"
database:
  driver: memory
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("BOT_ADMIN_ID", "7")

	cfg, _, err := LoadFile(path, "test")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Bot.Token)
	assert.Equal(t, int64(7), cfg.Bot.AdminID)
}

func TestLoadFile_ValidationFailures(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "missing token", body: "database:\n  driver: memory\n"},
		{name: "bad mode", body: "bot:\n  token: t\n  mode: carrier-pigeon\ndatabase:\n  driver: memory\n"},
		{name: "sentry without dsn", body: "bot:\n  token: t\ndatabase:\n  driver: memory\nsentry:\n  enabled: true\n"},
		{name: "unknown language", body: "bot:\n  token: t\ndatabase:\n  driver: memory\ni18n:\n  default_lang: de\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("BOT_TOKEN", "")
			_, _, err := LoadFile(writeConfig(t, tc.body), "test")
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.DSN())
}
