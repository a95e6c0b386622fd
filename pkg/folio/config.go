package folio

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/foliohq/folio/pkg/store/gormstore"
)

// EnvPrefix prefixes every environment variable folio reads, with dots in
// keys replaced by underscores: database.dsn is FOLIO_DATABASE_DSN.
const EnvPrefix = "FOLIO"

// Config holds application configuration shared by all commands.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Restore  RestoreConfig  `mapstructure:"restore"`

	// ReadOnly starts the application in maintenance mode. It can be
	// toggled at runtime through the admin API.
	ReadOnly bool `mapstructure:"read_only"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type RestoreConfig struct {
	// Timeout bounds a restore transaction; zero disables the bound.
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", gormstore.DriverSQLite)
	v.SetDefault("database.dsn", "folio.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("restore.timeout", 5*time.Minute)
	v.SetDefault("read_only", false)
}

// loadConfig resolves configuration from, in order of precedence, flags,
// FOLIO_* environment variables, the config file and the defaults.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case gormstore.DriverPostgres, gormstore.DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q",
			gormstore.DriverPostgres, gormstore.DriverSQLite, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Restore.Timeout < 0 {
		return errors.New("restore.timeout must not be negative")
	}
	return nil
}
