// Package config provides configuration management for the accounts service
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apperrors "github.com/memtensor/accounts/pkg/errors"
	"github.com/memtensor/accounts/pkg/users"
)

// EnvPrefix is the prefix of environment overrides, e.g. ACCOUNTS_AUTH_JWT_SECRET
const EnvPrefix = "ACCOUNTS"

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host" json:"host" validate:"required"`
	Port            int           `mapstructure:"port" yaml:"port" json:"port" validate:"required,gt=0,lte=65535"`
	Mode            string        `mapstructure:"mode" yaml:"mode" json:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins,omitempty" json:"cors_origins,omitempty"`
}

// DatabaseConfig represents user store configuration
type DatabaseConfig struct {
	Type            string        `mapstructure:"type" yaml:"type" json:"type" validate:"required,oneof=sqlite"`
	Path            string        `mapstructure:"path" yaml:"path" json:"path" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns" json:"max_open_conns" validate:"gte=0"`
	ConnectAttempts uint          `mapstructure:"connect_attempts" yaml:"connect_attempts" json:"connect_attempts" validate:"gte=1"`
	ConnectDelay    time.Duration `mapstructure:"connect_delay" yaml:"connect_delay" json:"connect_delay"`
}

// AuthConfig represents token and password hashing configuration
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret" yaml:"jwt_secret" json:"-" validate:"required"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" yaml:"token_ttl" json:"token_ttl" validate:"gt=0"`
	Issuer     string        `mapstructure:"issuer" yaml:"issuer" json:"issuer"`
	BcryptCost int           `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost" json:"bcrypt_cost" validate:"omitempty,min=4,max=31"`
}

// BootstrapConfig describes the super admin created on first start
type BootstrapConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	FullName string `mapstructure:"full_name" yaml:"full_name,omitempty" json:"full_name,omitempty" validate:"required_if=Enabled true"`
	Phone    string `mapstructure:"phone" yaml:"phone,omitempty" json:"phone,omitempty" validate:"required_if=Enabled true"`
	Email    string `mapstructure:"email" yaml:"email,omitempty" json:"email,omitempty" validate:"required_if=Enabled true"`
	Username string `mapstructure:"username" yaml:"username,omitempty" json:"username,omitempty" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password" yaml:"password,omitempty" json:"-" validate:"required_if=Enabled true"`
}

// RateLimitConfig represents the redis-backed limiter on public endpoints
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr" json:"redis_addr" validate:"required_if=Enabled true"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password,omitempty" json:"-"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db" json:"redis_db" validate:"gte=0"`
	Requests      int           `mapstructure:"requests" yaml:"requests" json:"requests" validate:"gt=0"`
	Window        time.Duration `mapstructure:"window" yaml:"window" json:"window" validate:"gt=0"`
	KeyPrefix     string        `mapstructure:"key_prefix" yaml:"key_prefix" json:"key_prefix"`
}

// EventsConfig represents the NATS lifecycle event publisher
type EventsConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	NATSURL        string        `mapstructure:"nats_url" yaml:"nats_url" json:"nats_url" validate:"required_if=Enabled true"`
	SubjectPrefix  string        `mapstructure:"subject_prefix" yaml:"subject_prefix" json:"subject_prefix"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=json console"`
	File   string `mapstructure:"file" yaml:"file,omitempty" json:"file,omitempty"`
}

// Config is the complete service configuration
type Config struct {
	Server         ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
	Database       DatabaseConfig  `mapstructure:"database" yaml:"database" json:"database"`
	Auth           AuthConfig      `mapstructure:"auth" yaml:"auth" json:"auth"`
	Bootstrap      BootstrapConfig `mapstructure:"bootstrap" yaml:"bootstrap" json:"bootstrap"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	Events         EventsConfig    `mapstructure:"events" yaml:"events" json:"events"`
	Log            LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
	MetricsEnabled bool            `mapstructure:"metrics_enabled" yaml:"metrics_enabled" json:"metrics_enabled"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Type:            "sqlite",
			Path:            "./data/accounts.db",
			MaxOpenConns:    1,
			ConnectAttempts: 5,
			ConnectDelay:    time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			Issuer:     "accounts",
			BcryptCost: 10,
		},
		RateLimit: RateLimitConfig{
			RedisAddr: "localhost:6379",
			Requests:  20,
			Window:    time.Minute,
			KeyPrefix: "accounts:ratelimit",
		},
		Events: EventsConfig{
			NATSURL:        "nats://localhost:4222",
			SubjectPrefix:  "accounts",
			ConnectTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		MetricsEnabled: true,
	}
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("invalid configuration: %v", err))
	}

	if c.Bootstrap.Enabled {
		p := c.BootstrapPayload()
		if err := users.ValidateFields(p); err != nil {
			return apperrors.NewConfigError(fmt.Sprintf("invalid bootstrap account: %s", apperrors.GetAccountsError(err).Message))
		}
	}
	return nil
}

// Address returns the host:port the server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// UsersConfig projects the store and token settings for the users package
func (c *Config) UsersConfig() *users.Config {
	return &users.Config{
		DatabaseType:      c.Database.Type,
		DatabasePath:      c.Database.Path,
		MaxOpenConns:      c.Database.MaxOpenConns,
		JWTSecret:         c.Auth.JWTSecret,
		JWTExpirationTime: c.Auth.TokenTTL,
		JWTIssuer:         c.Auth.Issuer,
		BcryptCost:        c.Auth.BcryptCost,
	}
}

// BootstrapPayload returns the configured super admin as a registration payload
func (c *Config) BootstrapPayload() users.RegistrationPayload {
	return users.RegistrationPayload{
		FullName: c.Bootstrap.FullName,
		Phone:    c.Bootstrap.Phone,
		Email:    c.Bootstrap.Email,
		Username: c.Bootstrap.Username,
		Password: c.Bootstrap.Password,
	}
}

// ToYAMLFile saves configuration to a YAML file
func (c *Config) ToYAMLFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// Loader reads configuration from an optional file plus environment
// overrides and can watch the file for changes
type Loader struct {
	path    string
	viper   *viper.Viper
	mu      sync.RWMutex
	current *Config
}

// NewLoader creates a loader; path may be empty to use defaults and environment only
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	return &Loader{path: path, viper: v}
}

// Load reads, decodes and validates the configuration
func (l *Loader) Load() (*Config, error) {
	if l.path != "" {
		l.viper.SetConfigFile(l.path)
		if err := l.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the most recently loaded configuration
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Watch calls onChange with the previous and the new configuration each time
// the file changes and still validates. Invalid edits are reported to onError
// and otherwise ignored.
func (l *Loader) Watch(onChange func(prev, next *Config), onError func(error)) error {
	if l.path == "" {
		return apperrors.NewConfigError("no config file to watch")
	}

	l.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		next, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}

		l.mu.Lock()
		prev := l.current
		l.current = next
		l.mu.Unlock()

		onChange(prev, next)
	})
	l.viper.WatchConfig()
	return nil
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is a shorthand for NewLoader(path).Load()
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// setDefaults registers every key so environment overrides apply during Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("database.type", d.Database.Type)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.connect_attempts", d.Database.ConnectAttempts)
	v.SetDefault("database.connect_delay", d.Database.ConnectDelay)

	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.bcrypt_cost", d.Auth.BcryptCost)

	v.SetDefault("bootstrap.enabled", d.Bootstrap.Enabled)
	v.SetDefault("bootstrap.full_name", d.Bootstrap.FullName)
	v.SetDefault("bootstrap.phone", d.Bootstrap.Phone)
	v.SetDefault("bootstrap.email", d.Bootstrap.Email)
	v.SetDefault("bootstrap.username", d.Bootstrap.Username)
	v.SetDefault("bootstrap.password", d.Bootstrap.Password)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.redis_addr", d.RateLimit.RedisAddr)
	v.SetDefault("rate_limit.redis_password", d.RateLimit.RedisPassword)
	v.SetDefault("rate_limit.redis_db", d.RateLimit.RedisDB)
	v.SetDefault("rate_limit.requests", d.RateLimit.Requests)
	v.SetDefault("rate_limit.window", d.RateLimit.Window)
	v.SetDefault("rate_limit.key_prefix", d.RateLimit.KeyPrefix)

	v.SetDefault("events.enabled", d.Events.Enabled)
	v.SetDefault("events.nats_url", d.Events.NATSURL)
	v.SetDefault("events.subject_prefix", d.Events.SubjectPrefix)
	v.SetDefault("events.connect_timeout", d.Events.ConnectTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("metrics_enabled", d.MetricsEnabled)
}
