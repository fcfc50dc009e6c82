package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/memtensor/accounts/pkg/errors"
)

const sampleYAML = `
server:
  host: 127.0.0.1
  port: 9000
  mode: debug
database:
  type: sqlite
  path: /tmp/accounts-test.db
auth:
  jwt_secret: from-file
  token_ttl: 2h
log:
  level: debug
  format: console
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Bootstrap.Enabled)

	err := cfg.Validate()
	require.Error(t, err, "jwt secret is required")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfig))

	cfg.Auth.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "console", cfg.Log.Format)
	// untouched keys keep defaults
	assert.Equal(t, "accounts", cfg.Auth.Issuer)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "127.0.0.1:9000", cfg.Address())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ACCOUNTS_AUTH_JWT_SECRET", "from-env")
	t.Setenv("ACCOUNTS_SERVER_PORT", "7000")
	t.Setenv("ACCOUNTS_RATE_LIMIT_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("ACCOUNTS_AUTH_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeConfig(t, strings.Replace(sampleYAML, "level: debug", "level: loud", 1))
	_, err = Load(path)
	assert.Error(t, err)

	path = writeConfig(t, `
auth:
  jwt_secret: s
database:
  type: postgres
`)
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate_Bootstrap(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "secret"
	cfg.Bootstrap.Enabled = true

	assert.Error(t, cfg.Validate())

	cfg.Bootstrap = BootstrapConfig{
		Enabled:  true,
		FullName: "Root Admin",
		Phone:    "1234567890",
		Email:    "root@example.com",
		Username: "root",
		Password: "short",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password must be at least 6 characters long")

	cfg.Bootstrap.Password = "longenough"
	assert.NoError(t, cfg.Validate())

	p := cfg.BootstrapPayload()
	assert.Equal(t, "root", p.Username)
	assert.Equal(t, "1234567890", p.Phone)
}

func TestValidate_Sections(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Auth.JWTSecret = "secret"
		return cfg
	}

	cfg := base()
	cfg.Auth.BcryptCost = 40
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Auth.BcryptCost = 0
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Events.Enabled = true
	cfg.Events.NATSURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RateLimit.Requests = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestUsersConfig(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "secret"

	uc := cfg.UsersConfig()
	assert.Equal(t, "sqlite", uc.DatabaseType)
	assert.Equal(t, cfg.Database.Path, uc.DatabasePath)
	assert.Equal(t, "secret", uc.JWTSecret)
	assert.Equal(t, cfg.Auth.TokenTTL, uc.JWTExpirationTime)
	assert.NoError(t, uc.Validate())
}

func TestToYAMLFile_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "secret"
	cfg.Server.Port = 8181

	path := filepath.Join(t.TempDir(), "nested", "out.yaml")
	require.NoError(t, cfg.ToYAMLFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, loaded.Server.Port)
	assert.Equal(t, "secret", loaded.Auth.JWTSecret)
	assert.Equal(t, cfg.Database.ConnectDelay, loaded.Database.ConnectDelay)
}

func TestLoader_Watch(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	var level atomic.Value
	require.NoError(t, loader.Watch(func(prev, next *Config) {
		level.Store(next.Log.Level)
	}, nil))

	updated := strings.Replace(sampleYAML, "level: debug", "level: warn", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))

	assert.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "warn"
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "warn", loader.Current().Log.Level)
}

func TestLoader_WatchWithoutFile(t *testing.T) {
	err := NewLoader("").Watch(func(prev, next *Config) {}, nil)
	assert.Error(t, err)
}
