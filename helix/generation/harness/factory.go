package harness

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/helix/helix/config"
	"github.com/ZanzyTHEbar/helix/helix/generation/harness/adapters"
	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// Factory creates and wires harness components from configuration.
type Factory struct {
	cfg    *config.Config
	db     *sql.DB // Optional, for the durable log
	logger zerolog.Logger
}

// NewFactory creates a new harness factory.
func NewFactory(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		db:     db,
		logger: logger,
	}
}

// Notifier is the selected notification channel. Hub is nil when no
// in-process listeners are served.
type Notifier struct {
	Publisher ports.Publisher
	Hub       *adapters.Hub
	closers   []func() error
}

// Close releases network connections held by the channel.
func (n *Notifier) Close() error {
	var first error
	for _, c := range n.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CreateEnforcer wires the response contract enforcer around provider.
func (f *Factory) CreateEnforcer(provider ports.Provider, limiter ports.RateLimiter) *Enforcer {
	return NewEnforcer(provider, limiter, f.CreateTracer(), f.logger)
}

// CreateRateLimiter creates a rate limiter adapter from config.
func (f *Factory) CreateRateLimiter() ports.RateLimiter {
	h := f.cfg.Harness
	if !h.RateLimitEnabled {
		return &noOpRateLimiter{}
	}

	return adapters.NewTokenBucket(h.RateLimitCapacity, h.RateLimitRefillRate)
}

// CreateTracer creates a tracer adapter from config.
func (f *Factory) CreateTracer() ports.Tracer {
	if !f.cfg.Harness.EnableTracing {
		return &noOpTracer{}
	}

	return adapters.NewZerologTracer(f.logger)
}

// CreateDurableLog creates the durable log. Without a database, or with
// the log disabled, writes are discarded.
func (f *Factory) CreateDurableLog() ports.DurableLog {
	if f.db == nil || !f.cfg.Helix.Database.Enabled {
		return &noOpLog{}
	}

	return adapters.NewLibSQLLog(f.db)
}

// CreateDispatcher sizes the background worker pool from config.
func (f *Factory) CreateDispatcher() *Dispatcher {
	return NewDispatcher(f.cfg.Dispatch.Workers, f.cfg.Dispatch.QueueSize, f.logger)
}

// CreateNotifier selects the notification channel. "nats" also feeds the
// in-process hub so local listeners keep working.
func (f *Factory) CreateNotifier() (*Notifier, error) {
	n := f.cfg.Notify
	switch n.Provider {
	case "", "hub":
		hub := adapters.NewHub(16)
		return &Notifier{Publisher: hub, Hub: hub}, nil
	case "nats":
		nc, err := adapters.NewNATSPublisher(n.NATSURL, n.SubjectPrefix, f.logger)
		if err != nil {
			return nil, err
		}
		hub := adapters.NewHub(16)
		return &Notifier{
			Publisher: adapters.Fanout{hub, nc},
			Hub:       hub,
			closers:   []func() error{nc.Close},
		}, nil
	case "none":
		return &Notifier{Publisher: &noOpPublisher{}}, nil
	default:
		return nil, fmt.Errorf("unknown notify provider %q", n.Provider)
	}
}

// ExtractionPreset is the low-temperature preset for field backfill.
func (f *Factory) ExtractionPreset() Preset {
	return Preset{
		Name:         "extraction",
		MaxNewTokens: f.cfg.LLM.Extraction.MaxNewTokens,
		Temperature:  f.cfg.LLM.Extraction.Temperature,
	}
}

// GenerationPreset is the creative preset for sequence calls.
func (f *Factory) GenerationPreset() Preset {
	return Preset{
		Name:         "generation",
		MaxNewTokens: f.cfg.LLM.Generation.MaxNewTokens,
		Temperature:  f.cfg.LLM.Generation.Temperature,
	}
}

// noOpRateLimiter implements RateLimiter interface with no-op behavior.
type noOpRateLimiter struct{}

func (r *noOpRateLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	return func() {}, nil
}

// noOpTracer implements Tracer interface with no-op behavior.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// noOpLog implements DurableLog with no-op behavior.
type noOpLog struct{}

func (l *noOpLog) RecordMessage(ctx context.Context, rec ports.MessageRecord) error { return nil }
func (l *noOpLog) RecordTask(ctx context.Context, rec ports.TaskRecord) error       { return nil }

// noOpPublisher implements Publisher with no-op behavior.
type noOpPublisher struct{}

func (p *noOpPublisher) Publish(ctx context.Context, ev ports.Event) error { return nil }

// Ensure all no-op types implement their interfaces.
var (
	_ ports.RateLimiter = (*noOpRateLimiter)(nil)
	_ ports.Tracer      = (*noOpTracer)(nil)
	_ ports.DurableLog  = (*noOpLog)(nil)
	_ ports.Publisher   = (*noOpPublisher)(nil)
)
