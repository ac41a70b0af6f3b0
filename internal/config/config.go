// Package config loads the engine configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/orichalcum/internal/logging"
	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/telemetry"
)

// Config is the root of the configuration file.
type Config struct {
	Log       Log       `mapstructure:"log"`
	Engine    Engine    `mapstructure:"engine"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	Metrics   Metrics   `mapstructure:"metrics"`
	LLM       LLM       `mapstructure:"llm"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Engine struct {
	// MaxSteps bounds one traversal; zero means unbounded.
	MaxSteps  int    `mapstructure:"max_steps"`
	Unmatched string `mapstructure:"unmatched"`
	Checks    string `mapstructure:"checks"`
}

type Telemetry struct {
	Sink  string `mapstructure:"sink"`
	Redis Redis  `mapstructure:"redis"`
	// File is the trace path used by the file sink.
	File string `mapstructure:"file"`
}

type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

type LLM struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv   string  `mapstructure:"api_key_env"`
	Temperature float32 `mapstructure:"temperature"`
}

// Sink kinds.
const (
	SinkMemory = "memory"
	SinkRedis  = "redis"
	SinkFile   = "file"
	SinkNone   = "none"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Default returns a configuration that runs without external services.
func Default() Config {
	return Config{
		Log: Log{Level: "info", Format: "text"},
		Engine: Engine{
			Unmatched: "terminate",
			Checks:    "off",
		},
		Telemetry: Telemetry{
			Sink: SinkMemory,
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "orichalcum:telemetry:",
			},
		},
		LLM: LLM{
			Provider:  ProviderNone,
			APIKeyEnv: "OPENAI_API_KEY",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Decode merges YAML data into cfg.
func Decode(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Engine.MaxSteps < 0 {
		errs = append(errs, errors.New("engine.max_steps: must not be negative"))
	}
	if _, err := flow.ParseUnmatchedPolicy(c.Engine.Unmatched); err != nil {
		errs = append(errs, fmt.Errorf("engine.unmatched: %w", err))
	}
	if _, err := flow.ParseCheckMode(c.Engine.Checks); err != nil {
		errs = append(errs, fmt.Errorf("engine.checks: %w", err))
	}
	switch c.Telemetry.Sink {
	case SinkMemory, SinkNone, SinkFile:
	case SinkRedis:
		if c.Telemetry.Redis.Addr == "" {
			errs = append(errs, errors.New("telemetry.redis.addr: required for the redis sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("telemetry.sink: unknown sink %q", c.Telemetry.Sink))
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

// Logger builds the logger described by the log section.
func (c Config) Logger() *slog.Logger {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.NewWithOptions(os.Stderr, level, c.Log.Format)
}

// FlowOptions maps the engine section to flow options. Nil collaborators
// are left out.
func (c Config) FlowOptions(logger *slog.Logger, sink telemetry.Sink, hooks ...flow.Hooks) []flow.Option {
	var opts []flow.Option
	if logger != nil {
		opts = append(opts, flow.WithLogger(logger))
	}
	if sink != nil {
		opts = append(opts, flow.WithTelemetry(sink))
	}
	for _, h := range hooks {
		opts = append(opts, flow.WithHooks(h))
	}
	if c.Engine.MaxSteps > 0 {
		opts = append(opts, flow.WithMaxSteps(c.Engine.MaxSteps))
	}
	if p, err := flow.ParseUnmatchedPolicy(c.Engine.Unmatched); err == nil {
		opts = append(opts, flow.WithUnmatchedLabel(p))
	}
	if m, err := flow.ParseCheckMode(c.Engine.Checks); err == nil {
		opts = append(opts, flow.WithContractChecks(m))
	}
	return opts
}
