// Package config loads dbcat configuration from flags, the environment and
// the catalog.yml file in the application directory.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/service/export"
)

// EnvPrefix prefixes every environment variable, e.g. DBCAT_CATALOG_PATH.
const EnvPrefix = "DBCAT"

// ConfigName is the base name of the config file read from the app dir.
const ConfigName = "catalog"

// Config is the full dbcat configuration.
type Config struct {
	Catalog  CatalogConfig     `mapstructure:"catalog"`
	Export   export.SinkConfig `mapstructure:"export"`
	Server   ServerConfig      `mapstructure:"server"`
	LogLevel string            `mapstructure:"log_level"`
}

// ServerConfig configures `dbcat serve`.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	ScanSchedule   string        `mapstructure:"scan_schedule"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

// CatalogConfig locates the catalog store: a SQLite file (Path) or a
// PostgreSQL server.
type CatalogConfig struct {
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Dialect  string `mapstructure:"dialect"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StoreConfig is a resolved catalog location.
type StoreConfig interface {
	Open(ctx context.Context) (*db.Store, error)
	String() string
}

// FileStore is a SQLite catalog file.
type FileStore struct {
	Path     string
	MaxConns int
}

// Open creates the parent directory if needed and opens the SQLite file.
func (f FileStore) Open(_ context.Context) (*db.Store, error) {
	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	return db.OpenFileStore(f.Path, f.MaxConns)
}

func (f FileStore) String() string { return "sqlite:" + f.Path }

// NetworkStore is a PostgreSQL catalog server.
type NetworkStore struct {
	Params   db.PostgresParams
	MaxConns int
}

// Open connects to the PostgreSQL server.
func (n NetworkStore) Open(ctx context.Context) (*db.Store, error) {
	return db.OpenPostgres(ctx, n.Params, n.MaxConns)
}

func (n NetworkStore) String() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", n.Params.User, n.Params.Host, n.Params.Port, n.Params.Database)
}

// IsZero reports whether no catalog location was configured at all.
func (c CatalogConfig) IsZero() bool {
	return c.Path == "" && c.Host == "" && c.User == "" && c.Password == "" && c.Database == ""
}

func (c CatalogConfig) networkComplete() bool {
	return c.Host != "" && c.User != "" && c.Password != "" && c.Database != ""
}

// Resolve picks the store to open. A complete network configuration wins
// over a file path.
func (c CatalogConfig) Resolve() (StoreConfig, error) {
	if c.networkComplete() {
		switch strings.ToLower(c.Dialect) {
		case "", "postgres", "postgresql":
		default:
			return nil, domain.ErrConfiguration("unsupported catalog dialect %q", c.Dialect)
		}
		port := c.Port
		if port == 0 {
			port = 5432
		}
		return NetworkStore{
			Params: db.PostgresParams{
				Host: c.Host, Port: port, User: c.User, Password: c.Password,
				Database: c.Database, SSLMode: c.SSLMode,
			},
			MaxConns: c.MaxConns,
		}, nil
	}
	if c.Path != "" {
		return FileStore{Path: c.Path, MaxConns: c.MaxConns}, nil
	}
	return nil, domain.ErrConfiguration(
		"catalog is not configured: set a path, or host, user, password and database")
}

// AppDir returns the per-user dbcat directory.
func AppDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "dbcat"), nil
}

// DefaultCatalog is the SQLite catalog used when nothing is configured.
func DefaultCatalog(appDir string) CatalogConfig {
	return CatalogConfig{Path: filepath.Join(appDir, "catalog.db")}
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"catalog-path":     "catalog.path",
	"catalog-host":     "catalog.host",
	"catalog-port":     "catalog.port",
	"catalog-user":     "catalog.user",
	"catalog-password": "catalog.password",
	"catalog-database": "catalog.database",
	"log-level":        "log_level",
	"addr":             "server.addr",
	"scan-schedule":    "server.scan_schedule",
}

func setDefaults(v *viper.Viper) {
	for _, key := range []string{
		"catalog.path", "catalog.host", "catalog.user", "catalog.password",
		"catalog.database", "catalog.dialect", "catalog.sslmode",
		"export.s3_region", "export.s3_endpoint", "export.s3_key_id", "export.s3_secret",
		"export.gcs_key_file", "export.azure_account", "export.azure_account_key",
		"server.scan_schedule",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("catalog.port", 0)
	v.SetDefault("catalog.max_conns", 0)
	v.SetDefault("export.s3_path_style", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 50.0)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("server.shutdown_grace", 10*time.Second)
	v.SetDefault("log_level", "info")
}

// Load reads configuration with precedence flags > DBCAT_* environment >
// <appDir>/catalog.yml > defaults. flags may be nil. Only flags the user
// changed override lower layers.
func Load(appDir string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	if appDir != "" {
		v.AddConfigPath(appDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, domain.ErrConfiguration("read %s.yml: %v", ConfigName, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, domain.ErrConfiguration("decode configuration: %v", err)
	}
	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything
// else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
