package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/orichalcum/internal/config"
	fileAdapter "github.com/aretw0/orichalcum/pkg/adapters/file"
	openaiAdapter "github.com/aretw0/orichalcum/pkg/adapters/openai"
	redisAdapter "github.com/aretw0/orichalcum/pkg/adapters/redis"
	"github.com/aretw0/orichalcum/pkg/llm"
	"github.com/aretw0/orichalcum/pkg/observability"
	"github.com/aretw0/orichalcum/pkg/telemetry"
)

// ErrNoProvider is returned when a command needs a model but none is configured.
var ErrNoProvider = errors.New("no llm provider configured (set llm.provider)")

// Telemetry is the sink stack built from the configuration.
type Telemetry struct {
	// Sink fans out to every configured sink.
	Sink telemetry.Sink
	// Memory is set when the memory sink is configured.
	Memory *telemetry.MemorySink
	// Metrics is set when metrics are enabled.
	Metrics *observability.Metrics
	// Registry gathers Metrics.
	Registry *prometheus.Registry

	closers []func() error
}

// Close releases external connections.
func (t *Telemetry) Close() error {
	var errs []error
	for _, c := range t.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewTelemetry builds the sinks and metrics named by cfg.
func NewTelemetry(cfg config.Config) (*Telemetry, error) {
	t := &Telemetry{}
	var sinks []telemetry.Sink

	switch cfg.Telemetry.Sink {
	case config.SinkMemory:
		t.Memory = telemetry.NewMemorySink()
		sinks = append(sinks, t.Memory)
	case config.SinkRedis:
		r := cfg.Telemetry.Redis
		var opts []redisAdapter.Option
		if r.Prefix != "" {
			opts = append(opts, redisAdapter.WithPrefix(r.Prefix))
		}
		if r.TTL > 0 {
			opts = append(opts, redisAdapter.WithTTL(r.TTL))
		}
		rs := redisAdapter.New(r.Addr, r.Password, r.DB, opts...)
		t.closers = append(t.closers, rs.Close)
		sinks = append(sinks, rs)
	case config.SinkFile:
		sinks = append(sinks, fileAdapter.New(cfg.Telemetry.File))
	}

	if cfg.Metrics.Enabled {
		t.Registry = prometheus.NewRegistry()
		m, err := observability.NewMetrics(t.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		t.Metrics = m
		sinks = append(sinks, m)
	}

	t.Sink = telemetry.Multi(sinks...)
	return t, nil
}

// NewProvider builds the completion provider named by cfg.
func NewProvider(cfg config.Config, logger *slog.Logger) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		key := os.Getenv(cfg.LLM.APIKeyEnv)
		if key == "" {
			logger.Warn("api key variable is empty", "env", cfg.LLM.APIKeyEnv)
		}
		var opts []openaiAdapter.Option
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, openaiAdapter.WithBaseURL(cfg.LLM.BaseURL))
		}
		if cfg.LLM.Model != "" {
			opts = append(opts, openaiAdapter.WithModel(cfg.LLM.Model))
		}
		return openaiAdapter.New(key, opts...), nil
	case config.ProviderNone, "":
		return nil, ErrNoProvider
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
}
