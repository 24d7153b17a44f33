package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env                string  `mapstructure:"ENV"`
	StoreDriver        string  `mapstructure:"STORE_DRIVER"`
	StorePath          string  `mapstructure:"STORE_PATH"`
	DatabaseURL        string  `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32   `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32   `mapstructure:"DB_MIN_CONNS"`
	CSVPath            string  `mapstructure:"CSV_PATH"`
	NameMatchThreshold float64 `mapstructure:"NAME_MATCH_THRESHOLD"`
	LogLevel           string  `mapstructure:"LOG_LEVEL"`
	LogFormat          string  `mapstructure:"LOG_FORMAT"`
	LogFile            string  `mapstructure:"LOG_FILE"`
	LogMaxSizeMB       int     `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups      int     `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays      int     `mapstructure:"LOG_MAX_AGE_DAYS"`
	Port               string  `mapstructure:"PORT"`
}

var keys = []string{
	"ENV",
	"STORE_DRIVER",
	"STORE_PATH",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"CSV_PATH",
	"NAME_MATCH_THRESHOLD",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LOG_FILE",
	"LOG_MAX_SIZE_MB",
	"LOG_MAX_BACKUPS",
	"LOG_MAX_AGE_DAYS",
	"PORT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", DriverSQLite)
	v.SetDefault("STORE_PATH", "clinic.sqlite3")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CSV_PATH", "pacientes.csv")
	v.SetDefault("NAME_MATCH_THRESHOLD", 94)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 90)
	v.SetDefault("PORT", "8080")

	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// StoreLocation returns the SQLite file path or the PostgreSQL URL,
// depending on the configured driver.
func (c *Config) StoreLocation() string {
	if c.StoreDriver == DriverPostgres {
		return c.DatabaseURL
	}
	return c.StorePath
}

// OverrideStore replaces the store location for the configured driver.
// Empty values leave the configuration untouched.
func (c *Config) OverrideStore(location string) {
	if location == "" {
		return
	}
	if c.StoreDriver == DriverPostgres {
		c.DatabaseURL = location
		return
	}
	c.StorePath = location
}

// Validate checks the combination of driver and location, the fuzzy match
// threshold and the log format.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.StorePath) == "" {
			return fmt.Errorf("STORE_PATH is required when STORE_DRIVER is %q", DriverSQLite)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.StoreDriver)
	}

	if c.NameMatchThreshold <= 0 || c.NameMatchThreshold > 100 {
		return fmt.Errorf("NAME_MATCH_THRESHOLD must be in (0, 100], got %v", c.NameMatchThreshold)
	}

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be \"console\" or \"json\", got %q", c.LogFormat)
	}

	return nil
}
