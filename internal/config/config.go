// Package config loads cohort settings from the environment and an optional
// dotenv file.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/roach88/cohort/internal/compiler"
	"github.com/roach88/cohort/internal/querysql"
	"github.com/roach88/cohort/internal/store"
)

// DefaultFile is the dotenv file Load reads when no path is given.
const DefaultFile = ".env"

// Config holds the COHORT_* settings.
type Config struct {
	Dialect     string `mapstructure:"COHORT_DIALECT"`
	SQLitePath  string `mapstructure:"COHORT_SQLITE_PATH"`
	DatabaseURL string `mapstructure:"COHORT_DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"COHORT_DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"COHORT_DB_MIN_CONNS"`
	LogLevel    string `mapstructure:"COHORT_LOG_LEVEL"`
	LogFormat   string `mapstructure:"COHORT_LOG_FORMAT"`

	EventsTable           string `mapstructure:"COHORT_EVENTS_TABLE"`
	SearchPersonTable     string `mapstructure:"COHORT_SEARCH_PERSON_TABLE"`
	PersonTable           string `mapstructure:"COHORT_PERSON_TABLE"`
	DeathTable            string `mapstructure:"COHORT_DEATH_TABLE"`
	CriteriaTable         string `mapstructure:"COHORT_CRITERIA_TABLE"`
	CriteriaAncestorTable string `mapstructure:"COHORT_CRITERIA_ANCESTOR_TABLE"`
}

var keys = []string{
	"COHORT_DIALECT",
	"COHORT_SQLITE_PATH",
	"COHORT_DATABASE_URL",
	"COHORT_DB_MAX_CONNS",
	"COHORT_DB_MIN_CONNS",
	"COHORT_LOG_LEVEL",
	"COHORT_LOG_FORMAT",
	"COHORT_EVENTS_TABLE",
	"COHORT_SEARCH_PERSON_TABLE",
	"COHORT_PERSON_TABLE",
	"COHORT_DEATH_TABLE",
	"COHORT_CRITERIA_TABLE",
	"COHORT_CRITERIA_ANCESTOR_TABLE",
}

// Load reads configuration. Environment variables win over the file. An
// empty path reads DefaultFile if it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("COHORT_DIALECT", "sqlite")
	v.SetDefault("COHORT_SQLITE_PATH", "cohort.db")
	v.SetDefault("COHORT_DB_MAX_CONNS", 10)
	v.SetDefault("COHORT_DB_MIN_CONNS", 1)
	v.SetDefault("COHORT_LOG_LEVEL", "info")
	v.SetDefault("COHORT_LOG_FORMAT", "console")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Dialect = strings.ToLower(cfg.Dialect)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	return cfg, nil
}

// Validate checks that the configuration is usable: a known dialect with
// its connection settings, a known log level and format, and valid table
// names.
func (c *Config) Validate() error {
	switch c.Dialect {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("COHORT_SQLITE_PATH is required for the sqlite dialect")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("COHORT_DATABASE_URL is required for the postgres dialect")
		}
		if c.DBMaxConns < 1 {
			return fmt.Errorf("COHORT_DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
		}
		if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("COHORT_DB_MIN_CONNS must be between 0 and %d, got %d", c.DBMaxConns, c.DBMinConns)
		}
	default:
		return fmt.Errorf("COHORT_DIALECT must be \"sqlite\" or \"postgres\", got %q", c.Dialect)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("COHORT_LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("COHORT_LOG_FORMAT must be \"console\" or \"json\", got %q", c.LogFormat)
	}

	if err := c.Tables().Validate(); err != nil {
		return fmt.Errorf("table names: %w", err)
	}
	return nil
}

// Tables returns the configured table names; unset names keep their
// defaults.
func (c *Config) Tables() compiler.Tables {
	d := compiler.DefaultTables()
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	return compiler.Tables{
		Events:           pick(c.EventsTable, d.Events),
		SearchPerson:     pick(c.SearchPersonTable, d.SearchPerson),
		Person:           pick(c.PersonTable, d.Person),
		Death:            pick(c.DeathTable, d.Death),
		Criteria:         pick(c.CriteriaTable, d.Criteria),
		CriteriaAncestor: pick(c.CriteriaAncestorTable, d.CriteriaAncestor),
	}
}

// SQLDialect returns the renderer dialect for Dialect.
func (c *Config) SQLDialect() (querysql.Dialect, error) {
	return querysql.DialectByName(c.Dialect)
}

// Postgres returns the pool settings for store.OpenPostgres.
func (c *Config) Postgres() store.PostgresConfig {
	return store.PostgresConfig{
		DatabaseURL: c.DatabaseURL,
		MaxConns:    c.DBMaxConns,
		MinConns:    c.DBMinConns,
	}
}

// Logger builds a logger writing to w at the configured level, as
// human-readable console lines or JSON.
func (c *Config) Logger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("COHORT_LOG_LEVEL: %w", err)
	}
	if c.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
