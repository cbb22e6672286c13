// Package config provides Viper-based configuration loading for craftplan.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SearchConfig holds defaults applied to every search.
type SearchConfig struct {
	// TimeLimit is the wall-clock budget of one search. Catalogs may override it.
	TimeLimit time.Duration `mapstructure:"time_limit"`
	// Heuristic selects the estimator family: "zero", "caps" or "lua".
	Heuristic string `mapstructure:"heuristic"`
	// ScriptDir holds one sub-directory of *.lua files per catalog ID, plus
	// optional shared scripts at its top level. Required for "lua".
	ScriptDir string `mapstructure:"script_dir"`
	// HeuristicHook is the Lua global evaluated per state.
	HeuristicHook string `mapstructure:"heuristic_hook"`
	// InstructionLimit caps Lua opcodes per heuristic call; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
	// Workers bounds how many catalogs a batch plans at once.
	Workers int `mapstructure:"workers"`
}

// ContentConfig locates catalog files.
type ContentConfig struct {
	CatalogDir string `mapstructure:"catalog_dir"`
}

// DatabaseConfig holds PostgreSQL connection settings for the plan archive.
type DatabaseConfig struct {
	// Enabled turns the plan archive on. When false the remaining fields are
	// not validated.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// PlanServerConfig holds gRPC planning service settings.
type PlanServerConfig struct {
	// GRPCHost is the bind address for the planning service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the planning service.
	GRPCPort int `mapstructure:"grpc_port"`
	// MetricsPort serves Prometheus metrics over HTTP; 0 disables it.
	MetricsPort int `mapstructure:"metrics_port"`
	// Watch reloads catalogs when files in the catalog directory change.
	Watch bool `mapstructure:"watch"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (p PlanServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", p.GRPCHost, p.GRPCPort)
}

// MetricsAddr returns the "host:port" metrics address.
func (p PlanServerConfig) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", p.GRPCHost, p.MetricsPort)
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Search     SearchConfig     `mapstructure:"search"`
	Content    ContentConfig    `mapstructure:"content"`
	Database   DatabaseConfig   `mapstructure:"database"`
	PlanServer PlanServerConfig `mapstructure:"planserver"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSearch(c.Search); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Content.CatalogDir == "" {
		errs = append(errs, "content.catalog_dir must not be empty")
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validatePlanServer(c.PlanServer); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateSearch(s SearchConfig) error {
	var errs []string
	if s.TimeLimit <= 0 {
		errs = append(errs, fmt.Sprintf("search.time_limit must be > 0, got %s", s.TimeLimit))
	}
	validKinds := map[string]bool{"zero": true, "caps": true, "lua": true}
	if !validKinds[s.Heuristic] {
		errs = append(errs, fmt.Sprintf("search.heuristic must be one of [zero, caps, lua], got %q", s.Heuristic))
	}
	if s.Heuristic == "lua" && s.ScriptDir == "" {
		errs = append(errs, "search.script_dir must not be empty when search.heuristic is lua")
	}
	if s.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("search.instruction_limit must be >= 0, got %d", s.InstructionLimit))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Sprintf("search.workers must be >= 1, got %d", s.Workers))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validatePlanServer(p PlanServerConfig) error {
	var errs []string
	if p.GRPCHost == "" {
		errs = append(errs, "planserver.grpc_host must not be empty")
	}
	if p.GRPCPort < 1 || p.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("planserver.grpc_port must be 1-65535, got %d", p.GRPCPort))
	}
	if p.MetricsPort < 0 || p.MetricsPort > 65535 {
		errs = append(errs, fmt.Sprintf("planserver.metrics_port must be 0-65535, got %d", p.MetricsPort))
	}
	if p.MetricsPort != 0 && p.MetricsPort == p.GRPCPort {
		errs = append(errs, "planserver.metrics_port must differ from planserver.grpc_port")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and CRAFTPLAN_ environment
// overrides applied, ready for a config file or bound flags.
func NewViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with CRAFTPLAN_ prefix
	v.SetEnvPrefix("CRAFTPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("search.time_limit", "30s")
	v.SetDefault("search.heuristic", "caps")
	v.SetDefault("search.script_dir", "content/scripts")
	v.SetDefault("search.heuristic_hook", "heuristic")
	v.SetDefault("search.instruction_limit", 0)
	v.SetDefault("search.workers", 4)

	v.SetDefault("content.catalog_dir", "content/catalogs")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "craftplan")
	v.SetDefault("database.password", "craftplan")
	v.SetDefault("database.name", "craftplan")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("planserver.grpc_host", "127.0.0.1")
	v.SetDefault("planserver.grpc_port", 50061)
	v.SetDefault("planserver.metrics_port", 9161)
	v.SetDefault("planserver.watch", false)
}
