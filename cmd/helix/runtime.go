package main

import (
	"context"
	"database/sql"
	"io"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/helix/helix/agent"
	"github.com/ZanzyTHEbar/helix/helix/config"
	"github.com/ZanzyTHEbar/helix/helix/db"
	"github.com/ZanzyTHEbar/helix/helix/generation/harness"
	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
	"github.com/ZanzyTHEbar/helix/helix/generation/providers"
)

// runtime is the wired process: one orchestrator and registry over the
// configured backend, notification channel and durable log.
type runtime struct {
	conn       *sql.DB
	provider   ports.Provider
	notifier   *harness.Notifier
	dispatcher *harness.Dispatcher
	publisher  ports.Publisher
	log        ports.DurableLog
	orch       *agent.Orchestrator
	registry   *agent.Registry
	logger     zerolog.Logger
}

func newRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}
	if err := rt.wire(ctx, cfg); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) wire(ctx context.Context, cfg *config.Config) (err error) {
	logger := rt.logger

	if cfg.Helix.Database.Enabled {
		rt.conn, err = db.ConnectToDB(cfg.Helix.Database.DSN, logger)
		if err != nil {
			return err
		}
		if err = db.Migrate(ctx, rt.conn, logger); err != nil {
			return err
		}
	}

	factory := harness.NewFactory(cfg, rt.conn, logger)

	provider, err := providers.New(cfg.LLM, logger)
	if err != nil {
		return err
	}
	rt.provider = provider
	rt.notifier, err = factory.CreateNotifier()
	if err != nil {
		return err
	}

	rt.dispatcher = factory.CreateDispatcher()
	rt.publisher = harness.NewAsyncPublisher(rt.notifier.Publisher, rt.dispatcher)
	rt.log = harness.NewAsyncLog(factory.CreateDurableLog(), rt.dispatcher)

	limiter := factory.CreateRateLimiter()
	rt.orch, err = agent.New(factory.CreateEnforcer(rt.provider, limiter), agent.Options{
		Publisher:     rt.publisher,
		Log:           rt.log,
		Extraction:    factory.ExtractionPreset(),
		Generation:    factory.GenerationPreset(),
		HistoryWindow: cfg.Harness.HistoryWindow,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	// evicted sessions give back their rate limit bucket
	var forget func(string)
	if f, ok := limiter.(interface{ Forget(string) }); ok {
		forget = f.Forget
	}
	rt.registry = agent.NewRegistry(cfg.Sessions.Capacity, cfg.Sessions.TTL, forget)
	return nil
}

// Close drains background work before releasing connections.
func (rt *runtime) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if rt.dispatcher != nil {
		rt.dispatcher.Close()
	}
	if rt.notifier != nil {
		keep(rt.notifier.Close())
	}
	if c, ok := rt.provider.(io.Closer); ok {
		keep(c.Close())
	}
	if rt.conn != nil {
		keep(rt.conn.Close())
	}
	if first != nil {
		rt.logger.Warn().Err(first).Msg("shutdown incomplete")
	}
	return first
}
