// Package config loads connection settings from a YAML file, DBKIT_*
// environment variables and .env files, and opens connections from them.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/zoobzio/dbkit"
	"github.com/zoobzio/dbkit/cache"
	"github.com/zoobzio/dbkit/driver"
	mysqlgrammar "github.com/zoobzio/dbkit/mysql"
	"github.com/zoobzio/dbkit/mssql"
	"github.com/zoobzio/dbkit/postgres"
	"github.com/zoobzio/dbkit/sqlite"
)

// Supported driver names.
const (
	MySQL     = "mysql"
	MariaDB   = "mariadb"
	Postgres  = "postgres"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
)

// ErrUnknownDriver is returned for a driver name outside the supported set.
var ErrUnknownDriver = errors.New("unknown driver")

// Cache configures the optional read cache.
type Cache struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Config holds connection settings. DSN wins over the individual fields.
type Config struct {
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	Prefix    string `mapstructure:"prefix"`
	Charset   string `mapstructure:"charset"`
	Collation string `mapstructure:"collation"`
	Engine    string `mapstructure:"engine"`
	Schema    string `mapstructure:"schema"`
	LogLevel  string `mapstructure:"log_level"`
	Cache     Cache  `mapstructure:"cache"`
}

var defaults = map[string]any{
	"driver":        MySQL,
	"dsn":           "",
	"host":          "127.0.0.1",
	"port":          0,
	"user":          "",
	"password":      "",
	"database":      "",
	"prefix":        "",
	"charset":       "utf8mb4",
	"collation":     "",
	"engine":        "InnoDB",
	"schema":        "schema.yaml",
	"log_level":     "info",
	"cache.enabled": false,
	"cache.size":    1024,
	"cache.ttl":     time.Minute,
}

// Loader reads configuration through a filesystem.
type Loader struct {
	fs afero.Fs
}

// NewLoader creates a loader over fs.
func NewLoader(fs afero.Fs) *Loader {
	return &Loader{fs: fs}
}

// Load reads configuration from the operating system filesystem.
func Load(path string) (*Config, error) {
	return NewLoader(afero.NewOsFs()).Load(path)
}

// Load reads path, or dbkit.yaml from the working directory and
// ~/.config/dbkit when path is empty. .env fills unset variables and
// .env.local overrides them; DBKIT_* variables override the file.
func (l *Loader) Load(path string) (*Config, error) {
	if err := l.loadEnv(".env", false); err != nil {
		return nil, err
	}
	if err := l.loadEnv(".env.local", true); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(l.fs)
	v.SetEnvPrefix("DBKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("dbkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "dbkit"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Driver = strings.ToLower(cfg.Driver)
	return &cfg, cfg.Validate()
}

func (l *Loader) loadEnv(name string, override bool) error {
	data, err := afero.ReadFile(l.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	env, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	for key, value := range env {
		if _, set := os.LookupEnv(key); set && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the driver name and required fields.
func (c *Config) Validate() error {
	switch c.Driver {
	case MySQL, MariaDB, Postgres, SQLServer:
		if c.DSN == "" && c.Database == "" {
			return fmt.Errorf("%s: database or dsn is required", c.Driver)
		}
	case SQLite:
		if c.DSN == "" && c.Database == "" {
			return errors.New("sqlite: database path or dsn is required")
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownDriver, c.Driver)
	}
	return nil
}

// Level returns the configured slog level, Info when unset or invalid.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) addr(defaultPort int) string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// MySQLConfig returns the go-sql-driver configuration, parsed from DSN when
// one is set.
func (c *Config) MySQLConfig() (*mysql.Config, error) {
	if c.DSN != "" {
		return mysql.ParseDSN(c.DSN)
	}
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.addr(3306)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	if c.Collation != "" {
		cfg.Collation = c.Collation
	}
	if c.Charset != "" {
		cfg.Params = map[string]string{"charset": c.Charset}
	}
	return cfg, nil
}

// DataSource returns the driver DSN, assembled from the individual fields
// when DSN is empty.
func (c *Config) DataSource() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.Driver {
	case MySQL, MariaDB:
		cfg, err := c.MySQLConfig()
		if err != nil {
			return "", err
		}
		return cfg.FormatDSN(), nil
	case Postgres:
		u := url.URL{Scheme: "postgres", Host: c.addr(5432), Path: "/" + c.Database}
		if c.User != "" {
			u.User = url.UserPassword(c.User, c.Password)
		}
		return u.String(), nil
	case SQLServer:
		u := url.URL{Scheme: "sqlserver", Host: c.addr(1433), RawQuery: url.Values{"database": {c.Database}}.Encode()}
		if c.User != "" {
			u.User = url.UserPassword(c.User, c.Password)
		}
		return u.String(), nil
	case SQLite:
		return c.Database, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownDriver, c.Driver)
}

// Grammar returns the query grammar for the configured driver.
func (c *Config) Grammar() (dbkit.Grammar, error) {
	switch c.Driver {
	case MySQL, MariaDB:
		return mysqlgrammar.New(mysqlgrammar.WithCodec(dbkit.JSONCodec{})), nil
	case Postgres:
		return postgres.New(postgres.WithCodec(dbkit.JSONCodec{})), nil
	case SQLServer:
		return mssql.New(mssql.WithCodec(dbkit.JSONCodec{})), nil
	case SQLite:
		return sqlite.New(sqlite.WithCodec(dbkit.JSONCodec{})), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownDriver, c.Driver)
}

// Open connects the configured engine.
func Open(ctx context.Context, c *Config, logger *slog.Logger) (*driver.DB, error) {
	opts := []driver.Option{driver.WithLogger(logger)}
	switch c.Driver {
	case MySQL, MariaDB:
		cfg, err := c.MySQLConfig()
		if err != nil {
			return nil, err
		}
		return driver.OpenMySQL(ctx, cfg, opts...)
	}

	dsn, err := c.DataSource()
	if err != nil {
		return nil, err
	}
	switch c.Driver {
	case Postgres:
		return driver.OpenPostgres(ctx, dsn, opts...)
	case SQLServer:
		return driver.OpenSQLServer(ctx, dsn, opts...)
	case SQLite:
		return driver.OpenSQLite(ctx, dsn, opts...)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownDriver, c.Driver)
}

// Connect opens the engine and returns a Connection configured with the
// prefix and cache settings. Closing the returned DB is the caller's job.
func Connect(ctx context.Context, c *Config, logger *slog.Logger) (*dbkit.Connection, *driver.DB, error) {
	grammar, err := c.Grammar()
	if err != nil {
		return nil, nil, err
	}
	db, err := Open(ctx, c, logger)
	if err != nil {
		return nil, nil, err
	}
	return dbkit.New(grammar, c.ConnectionOptions(db, logger)...), db, nil
}

// ConnectionOptions returns the dbkit options implied by c for engine.
func (c *Config) ConnectionOptions(engine driver.Engine, logger *slog.Logger) []dbkit.Option {
	opts := []dbkit.Option{
		dbkit.WithEngine(engine),
		dbkit.WithPrefix(c.Prefix),
		dbkit.WithLogger(logger),
	}
	if c.Cache.Enabled && c.Cache.Size > 0 {
		opts = append(opts, dbkit.WithCache(cache.NewLRU(c.Cache.Size), c.Cache.TTL))
	}
	return opts
}
