// Package config loads the holdemd HCL configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/lox/holdemtables/internal/table"
)

// Config is the complete server configuration.
type Config struct {
	Server   *ServerSettings   `hcl:"server,block"`
	Database *DatabaseSettings `hcl:"database,block"`
	Auth     *AuthSettings     `hcl:"auth,block"`
	Redis    *RedisSettings    `hcl:"redis,block"`
	AMQP     *AMQPSettings     `hcl:"amqp,block"`
	History  *HistorySettings  `hcl:"history,block"`
	Tables   []TableSettings   `hcl:"table,block"`
}

// ServerSettings configures the listener and logging.
type ServerSettings struct {
	Address        string `hcl:"address,optional"`
	RequestTimeout string `hcl:"request_timeout,optional"`
	LogLevel       string `hcl:"log_level,optional"`
	LogFile        string `hcl:"log_file,optional"`
	LogMaxSizeMB   int    `hcl:"log_max_size_mb,optional"`
	LogMaxBackups  int    `hcl:"log_max_backups,optional"`
	LogMaxAgeDays  int    `hcl:"log_max_age_days,optional"`
	LogCompress    bool   `hcl:"log_compress,optional"`
}

// DatabaseSettings selects the store. Without a database block everything
// is kept in memory.
type DatabaseSettings struct {
	Driver          string `hcl:"driver,optional"`
	DSN             string `hcl:"dsn,optional"`
	MaxIdleConns    int    `hcl:"max_idle_conns,optional"`
	MaxOpenConns    int    `hcl:"max_open_conns,optional"`
	ConnMaxLifetime string `hcl:"conn_max_lifetime,optional"`
	LogLevel        string `hcl:"log_level,optional"`
}

// AuthSettings selects how bearer tokens are validated.
type AuthSettings struct {
	// Mode is one of noop, jwt or http.
	Mode            string `hcl:"mode,optional"`
	Secret          string `hcl:"secret,optional"`
	URL             string `hcl:"url,optional"`
	AdminSecret     string `hcl:"admin_secret,optional"`
	StartingBalance int    `hcl:"starting_balance,optional"`
}

// RedisSettings enables snapshot publishing to redis.
type RedisSettings struct {
	Addr     string `hcl:"addr"`
	Password string `hcl:"password,optional"`
	DB       int    `hcl:"db,optional"`
	Prefix   string `hcl:"prefix,optional"`
}

// AMQPSettings enables hand result publishing to a queue.
type AMQPSettings struct {
	URL   string `hcl:"url"`
	Queue string `hcl:"queue,optional"`
}

// HistorySettings enables writing PHH hand histories.
type HistorySettings struct {
	Dir string `hcl:"dir"`
}

// TableSettings declares a table that is created at startup if missing.
type TableSettings struct {
	ID              string `hcl:"id,label"`
	Name            string `hcl:"name,optional"`
	Seats           int    `hcl:"seats,optional"`
	SmallBlind      int    `hcl:"small_blind"`
	BigBlind        int    `hcl:"big_blind"`
	MinBuyIn        int    `hcl:"min_buy_in,optional"`
	MaxBuyIn        int    `hcl:"max_buy_in,optional"`
	RakeBasisPoints int    `hcl:"rake_bps,optional"`
	RakeCap         int    `hcl:"rake_cap,optional"`
	TurnTimeout     string `hcl:"turn_timeout,optional"`
	Timebank        string `hcl:"timebank,optional"`
	NextHandDelay   string `hcl:"next_hand_delay,optional"`
}

// Table converts the block to a table config with defaults applied.
func (t TableSettings) Table() (table.Config, error) {
	cfg := table.Config{
		ID:              t.ID,
		Name:            t.Name,
		Seats:           t.Seats,
		SmallBlind:      t.SmallBlind,
		BigBlind:        t.BigBlind,
		MinBuyIn:        t.MinBuyIn,
		MaxBuyIn:        t.MaxBuyIn,
		RakeBasisPoints: t.RakeBasisPoints,
		RakeCap:         t.RakeCap,
	}
	var err error
	if cfg.TurnTimeout, err = duration("turn_timeout", t.TurnTimeout); err != nil {
		return cfg, err
	}
	if cfg.Timebank, err = duration("timebank", t.Timebank); err != nil {
		return cfg, err
	}
	if cfg.NextHandDelay, err = duration("next_hand_delay", t.NextHandDelay); err != nil {
		return cfg, err
	}
	return cfg.WithDefaults(), nil
}

// Default returns the configuration used when no file exists: an in-memory
// store, no authentication and one 1/2 table.
func Default() *Config {
	c := &Config{Tables: []TableSettings{{ID: "main", Name: "Main", SmallBlind: 1, BigBlind: 2}}}
	c.applyDefaults()
	return c
}

// Load reads filename. A missing file yields Default.
func Load(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(src, filename)
}

// Parse decodes HCL source. Expressions may read environment variables as
// env.NAME.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var c Config
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &c); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	c.applyDefaults()
	return &c, nil
}

func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(env)},
	}
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "5s"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogMaxSizeMB == 0 {
		c.Server.LogMaxSizeMB = 100
	}
	if c.Server.LogMaxBackups == 0 {
		c.Server.LogMaxBackups = 3
	}
	if c.Server.LogMaxAgeDays == 0 {
		c.Server.LogMaxAgeDays = 28
	}

	if c.Database == nil {
		c.Database = &DatabaseSettings{Driver: "memory"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "holdem.db"
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.Database.ConnMaxLifetime == "" {
		c.Database.ConnMaxLifetime = "1h"
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}

	if c.Auth == nil {
		c.Auth = &AuthSettings{}
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "noop"
	}
	if c.Auth.StartingBalance == 0 {
		c.Auth.StartingBalance = 10000
	}

	if c.Redis != nil && c.Redis.Prefix == "" {
		c.Redis.Prefix = "holdem"
	}
	if c.AMQP != nil && c.AMQP.Queue == "" {
		c.AMQP.Queue = "holdem.hand.results"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	if _, err := duration("request_timeout", c.Server.RequestTimeout); err != nil {
		return err
	}

	switch c.Database.Driver {
	case "memory", "sqlite", "sqlite3", "mysql", "postgres", "postgresql":
	default:
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("database %s: dsn is required", c.Database.Driver)
	}
	if _, err := duration("conn_max_lifetime", c.Database.ConnMaxLifetime); err != nil {
		return err
	}

	switch c.Auth.Mode {
	case "noop":
	case "jwt":
		if c.Auth.Secret == "" {
			return fmt.Errorf("auth mode jwt requires a secret")
		}
	case "http":
		if c.Auth.URL == "" {
			return fmt.Errorf("auth mode http requires a url")
		}
	default:
		return fmt.Errorf("invalid auth mode: %s", c.Auth.Mode)
	}
	if c.Auth.StartingBalance < 0 {
		return fmt.Errorf("starting balance cannot be negative")
	}

	seen := make(map[string]bool)
	for _, t := range c.Tables {
		if seen[t.ID] {
			return fmt.Errorf("table %s: declared twice", t.ID)
		}
		seen[t.ID] = true
		cfg, err := t.Table()
		if err != nil {
			return fmt.Errorf("table %s: %w", t.ID, err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("table %s: %w", t.ID, err)
		}
	}
	return nil
}

// RequestTimeout returns the parsed server request timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := duration("request_timeout", c.Server.RequestTimeout)
	return d
}

// ConnMaxLifetime returns the parsed database connection lifetime.
func (c *Config) ConnMaxLifetime() time.Duration {
	d, _ := duration("conn_max_lifetime", c.Database.ConnMaxLifetime)
	return d
}

func duration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", name)
	}
	return d, nil
}
