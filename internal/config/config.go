// ABOUTME: Wellness configuration management with backend selection.
// ABOUTME: Layers a JSON or TOML file, a .env file and the environment, then opens storage.

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/clock"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Backends accepted by OpenStorage.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

const (
	jsonConfigName = "config.json"
	tomlConfigName = "config.toml"

	defaultPort     = "3000"
	defaultAuthRate = 10
)

// Config stores wellness configuration. File values are overridden by
// environment variables of the same setting.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default) or "postgres".
	Backend string `json:"backend,omitempty" toml:"backend,omitempty" env:"WELLNESS_BACKEND"`

	// DataDir is the root directory for the SQLite database.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/wellness.
	DataDir string `json:"data_dir,omitempty" toml:"data_dir,omitempty" env:"WELLNESS_DATA_DIR"`

	// DatabaseURL is the PostgreSQL DSN, used when Backend is "postgres".
	DatabaseURL string `json:"database_url,omitempty" toml:"database_url,omitempty" env:"DATABASE_URL"`

	// Addr is the HTTP listen address. Port is consulted when Addr is empty.
	Addr string `json:"addr,omitempty" toml:"addr,omitempty" env:"WELLNESS_ADDR"`
	Port string `json:"port,omitempty" toml:"port,omitempty" env:"PORT"`

	JWTSecret      string `json:"jwt_secret,omitempty" toml:"jwt_secret,omitempty" env:"JWT_SECRET"`
	GoogleClientID string `json:"google_client_id,omitempty" toml:"google_client_id,omitempty" env:"GOOGLE_CLIENT_ID"`
	// TokenTTL is a Go duration string such as "24h".
	TokenTTL string `json:"token_ttl,omitempty" toml:"token_ttl,omitempty" env:"WELLNESS_TOKEN_TTL"`

	// CORSOrigins is a comma separated allow list. "*" allows any origin.
	CORSOrigins string `json:"cors_origins,omitempty" toml:"cors_origins,omitempty" env:"WELLNESS_CORS_ORIGINS"`

	// Timezone names the IANA zone that decides which calendar day is "today".
	Timezone string `json:"timezone,omitempty" toml:"timezone,omitempty" env:"WELLNESS_TIMEZONE"`

	LogLevel  string `json:"log_level,omitempty" toml:"log_level,omitempty" env:"WELLNESS_LOG_LEVEL"`
	LogFormat string `json:"log_format,omitempty" toml:"log_format,omitempty" env:"WELLNESS_LOG_FORMAT"`

	// AuthRate is the number of sign-in attempts allowed per client per minute.
	AuthRate int `json:"auth_rate,omitempty" toml:"auth_rate,omitempty" env:"WELLNESS_AUTH_RATE"`

	// LenientMetricKinds accepts batch dataType values outside the known kinds.
	LenientMetricKinds bool `json:"lenient_metric_kinds,omitempty" toml:"lenient_metric_kinds,omitempty" env:"WELLNESS_LENIENT_METRIC_KINDS"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendSQLite
	}
	return strings.ToLower(c.Backend)
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetAddr returns the listen address, defaulting to :3000.
func (c *Config) GetAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	if c.Port != "" {
		return ":" + c.Port
	}
	return ":" + defaultPort
}

// GetTokenTTL returns the access token lifetime.
func (c *Config) GetTokenTTL() (time.Duration, error) {
	if c.TokenTTL == "" {
		return auth.DefaultTokenTTL, nil
	}
	ttl, err := time.ParseDuration(c.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("parse token_ttl: %w", err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("token_ttl must be positive, got %s", ttl)
	}
	return ttl, nil
}

// GetCORSOrigins returns the allowed origins, defaulting to any.
func (c *Config) GetCORSOrigins() []string {
	if strings.TrimSpace(c.CORSOrigins) == "" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// GetLocation loads the configured time zone, defaulting to the host's.
func (c *Config) GetLocation() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GetLogLevel returns the log level, defaulting to "info".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetLogFormat returns the log format, defaulting to "text".
func (c *Config) GetLogFormat() string {
	if c.LogFormat == "" {
		return "text"
	}
	return c.LogFormat
}

// GetAuthRate returns sign-in attempts allowed per minute per client.
func (c *Config) GetAuthRate() int {
	if c.AuthRate <= 0 {
		return defaultAuthRate
	}
	return c.AuthRate
}

// Validate checks settings that only fail when parsed.
func (c *Config) Validate() error {
	switch c.GetBackend() {
	case BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if _, err := c.GetTokenTTL(); err != nil {
		return err
	}
	if _, err := c.GetLocation(); err != nil {
		return err
	}
	if c.Port != "" {
		if _, err := strconv.Atoi(c.Port); err != nil {
			return fmt.Errorf("port must be numeric, got %q", c.Port)
		}
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage opens the configured backend. Facts use clk for "today" in the
// configured time zone.
func (c *Config) OpenStorage(ctx context.Context, clk clock.Clock) (*storage.DB, error) {
	loc, err := c.GetLocation()
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real{}
	}
	opts := []storage.Option{storage.WithClock(clk), storage.WithLocation(loc)}

	switch c.GetBackend() {
	case BackendSQLite:
		return storage.Open(filepath.Join(c.GetDataDir(), "wellness.db"), opts...)
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for the postgres backend")
		}
		return storage.OpenPostgres(ctx, c.DatabaseURL, opts...)
	default:
		return nil, fmt.Errorf("unknown backend: %q", c.Backend)
	}
}

// GetConfigDir returns the directory holding config files.
func GetConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "wellness")
}

// GetConfigPath returns the config file in use: config.toml when present,
// otherwise config.json.
func GetConfigPath() string {
	dir := GetConfigDir()
	tomlPath := filepath.Join(dir, tomlConfigName)
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath
	}
	return filepath.Join(dir, jsonConfigName)
}

// Load reads the config file, then .env in the working directory, then the environment.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath(), ".env")
}

// LoadFrom reads configuration from an explicit file and .env path.
// Missing files are not errors.
func LoadFrom(path, envFile string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if strings.HasSuffix(path, ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to path, as TOML when the path ends in .toml and JSON otherwise.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	var data []byte
	if strings.HasSuffix(path, ".toml") {
		var buf strings.Builder
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		data = []byte(buf.String())
	} else {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0600)
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	if out.JWTSecret != "" {
		out.JWTSecret = "********"
	}
	if out.DatabaseURL != "" {
		out.DatabaseURL = "********"
	}
	return out
}
