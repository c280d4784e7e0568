// Package config provides Viper-based configuration loading for the arena server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SimulationConfig tunes the match clock and the spatial constants used by targeting and movement.
type SimulationConfig struct {
	// TickInterval is the wall-clock interval between loop steps.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Speed scales simulation time against wall-clock time.
	Speed float64 `mapstructure:"speed"`
	// EyeHeight is added to both ends of visibility rays.
	EyeHeight float64 `mapstructure:"eye_height"`
	// OriginOffset pushes the ray origin out of the attacker's own body.
	OriginOffset float64 `mapstructure:"origin_offset"`
	// StopMargin is the fraction of weapon range at which a walking attacker stops.
	StopMargin float64 `mapstructure:"stop_margin"`
	// StopOnOutcome ends the loop once a faction has won.
	StopOnOutcome bool `mapstructure:"stop_on_outcome"`
}

// ContentConfig locates the data files a match is built from.
type ContentConfig struct {
	Weapons  string `mapstructure:"weapons"`
	Rarities string `mapstructure:"rarities"`
	Roster   string `mapstructure:"roster"`
	// Scripts is an optional directory of Lua behaviour scripts.
	Scripts string `mapstructure:"scripts"`
	// Domains is an optional directory of HTN behaviour domains.
	Domains string `mapstructure:"domains"`
}

// AIConfig configures computer-controlled combatants.
type AIConfig struct {
	// DefaultDomain drives combatants whose roster entry names no behaviour.
	DefaultDomain string `mapstructure:"default_domain"`
	// InstructionLimit bounds each Lua hook call; 0 selects the scripting default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// DatabaseConfig holds PostgreSQL connection settings for the match journal.
type DatabaseConfig struct {
	// Enabled selects the Postgres journal; when false matches are journaled in memory.
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

// BridgeConfig holds the websocket host bridge listener settings.
type BridgeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
func (b BridgeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Content    ContentConfig    `mapstructure:"content"`
	AI         AIConfig         `mapstructure:"ai"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Bridge     BridgeConfig     `mapstructure:"bridge"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// Validate checks all configuration invariants. Disabled sections are not checked.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateSimulation(c.Simulation),
		validateContent(c.Content),
		validateAI(c.AI),
		validateLogging(c.Logging),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Bridge.Enabled {
		if err := validateBridge(c.Bridge); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joinErrs(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.tick_interval must be > 0, got %s", s.TickInterval))
	}
	if s.Speed <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.speed must be > 0, got %v", s.Speed))
	}
	if s.EyeHeight < 0 {
		errs = append(errs, "simulation.eye_height must not be negative")
	}
	if s.OriginOffset < 0 {
		errs = append(errs, "simulation.origin_offset must not be negative")
	}
	if s.StopMargin <= 0 || s.StopMargin > 1 {
		errs = append(errs, fmt.Sprintf("simulation.stop_margin must be in (0, 1], got %v", s.StopMargin))
	}
	return joinErrs(errs)
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.Weapons == "" {
		errs = append(errs, "content.weapons must not be empty")
	}
	if c.Roster == "" {
		errs = append(errs, "content.roster must not be empty")
	}
	return joinErrs(errs)
}

func validateAI(a AIConfig) error {
	if a.InstructionLimit < 0 {
		return fmt.Errorf("ai.instruction_limit must be >= 0, got %d", a.InstructionLimit)
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
	return joinErrs(errs)
}

func validateBridge(b BridgeConfig) error {
	if b.Port < 0 || b.Port > 65535 {
		return fmt.Errorf("bridge.port must be 0-65535, got %d", b.Port)
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

// NewViper returns a Viper instance with defaults and ARENA_ environment overrides applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ARENA")
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
	v.SetDefault("simulation.tick_interval", "50ms")
	v.SetDefault("simulation.speed", 1.0)
	v.SetDefault("simulation.eye_height", 1.6)
	v.SetDefault("simulation.origin_offset", 0.6)
	v.SetDefault("simulation.stop_margin", 0.9)
	v.SetDefault("simulation.stop_on_outcome", true)

	v.SetDefault("content.weapons", "content/weapons.yaml")
	v.SetDefault("content.rarities", "content/rarities.yaml")
	v.SetDefault("content.roster", "content/roster.yaml")
	v.SetDefault("content.scripts", "")
	v.SetDefault("content.domains", "")

	v.SetDefault("ai.default_domain", "")
	v.SetDefault("ai.instruction_limit", 0)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arena")
	v.SetDefault("database.password", "arena")
	v.SetDefault("database.name", "arena")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("bridge.enabled", false)
	v.SetDefault("bridge.host", "127.0.0.1")
	v.SetDefault("bridge.port", 8080)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
