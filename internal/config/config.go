// Package config loads process configuration from an optional YAML file
// overridden by HOSTLOOP_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hostloop/internal/crashguard"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HOSTLOOP_"

// Config is the full process configuration.
type Config struct {
	// TickRate is the number of ticks per second. one_second_update events
	// fire every TickRate ticks.
	TickRate     int                `yaml:"tick_rate" env:"TICK_RATE"`
	CrashGuard   CrashGuardConfig   `yaml:"crash_guard" envPrefix:"CRASH_GUARD_"`
	CommandQueue CommandQueueConfig `yaml:"command_queue" envPrefix:"COMMAND_QUEUE_"`
	Journal      JournalConfig      `yaml:"journal" envPrefix:"JOURNAL_"`
	Monitor      MonitorConfig      `yaml:"monitor" envPrefix:"MONITOR_"`
	Trace        TraceConfig        `yaml:"trace" envPrefix:"TRACE_"`
	Log          LogConfig          `yaml:"log" envPrefix:"LOG_"`
}

// CrashGuardConfig sets the consecutive-failure ceilings.
type CrashGuardConfig struct {
	AdvanceCeiling int `yaml:"advance_ceiling" env:"ADVANCE_CEILING"`
	RenderCeiling  int `yaml:"render_ceiling" env:"RENDER_CEILING"`
}

// CommandQueueConfig bounds the console command queue. Zero is unbounded.
type CommandQueueConfig struct {
	Capacity int `yaml:"capacity" env:"CAPACITY"`
}

// JournalConfig enables the SQLite event journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// MonitorConfig enables the websocket event monitor when Addr is set.
type MonitorConfig struct {
	Addr   string `yaml:"addr" env:"ADDR"`
	Buffer int    `yaml:"buffer" env:"BUFFER"`
}

// TraceConfig enables OTLP trace export when Endpoint is set.
type TraceConfig struct {
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TickRate: 60,
		CrashGuard: CrashGuardConfig{
			AdvanceCeiling: crashguard.DefaultCeiling,
			RenderCeiling:  crashguard.DefaultCeiling,
		},
		Monitor: MonitorConfig{Buffer: 256},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ParseEnv applies HOSTLOOP_* environment overrides to target. Unset
// variables leave fields untouched.
func ParseEnv(target *Config) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.TickRate < 1 {
		errs = append(errs, fmt.Errorf("tick_rate must be >= 1, got %d", c.TickRate))
	}
	if c.CrashGuard.AdvanceCeiling < 1 {
		errs = append(errs, fmt.Errorf("crash_guard.advance_ceiling must be >= 1, got %d", c.CrashGuard.AdvanceCeiling))
	}
	if c.CrashGuard.RenderCeiling < 1 {
		errs = append(errs, fmt.Errorf("crash_guard.render_ceiling must be >= 1, got %d", c.CrashGuard.RenderCeiling))
	}
	if c.CommandQueue.Capacity < 0 {
		errs = append(errs, fmt.Errorf("command_queue.capacity must be >= 0, got %d", c.CommandQueue.Capacity))
	}
	if c.Monitor.Buffer < 1 {
		errs = append(errs, fmt.Errorf("monitor.buffer must be >= 1, got %d", c.Monitor.Buffer))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
