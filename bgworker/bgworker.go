// Package bgworker owns the shared worker pool that drains state machine
// transition queues.
package bgworker

import (
	"context"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/stateful/logger"
	"github.com/amp-labs/stateful/shutdown"
	"github.com/caarlos0/env/v11"
)

// Config sizes the shared pool. Zero workers means unbounded; a bounded
// pool delays machines whose callbacks block while others hold workers.
type Config struct {
	Workers int `env:"STATEFUL_WORKERS" envDefault:"0"`
}

var (
	mut  sync.Mutex
	pool pond.Pool
)

// Pool returns the shared pool, creating it on first use. The pool is
// stopped before shutdown once all queued tasks have run.
func Pool(ctx context.Context) pond.Pool { //nolint:ireturn
	mut.Lock()
	defer mut.Unlock()

	if pool != nil {
		return pool
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil || cfg.Workers < 0 {
		logger.Get(ctx).Warn("Invalid worker pool configuration, using unbounded pool", "error", err)

		cfg.Workers = 0
	}

	logger.Get(ctx).Debug("Initializing background worker pool", "workers", cfg.Workers)

	p := pond.NewPool(cfg.Workers)
	pool = p

	shutdown.BeforeShutdown(func() {
		logger.Get(ctx).Debug("Stopping background worker pool")
		p.StopAndWait()
		logger.Get(ctx).Debug("Background worker pool stopped")
	})

	return p
}

// Go runs f on the shared pool. It returns an error if the pool is stopped.
func Go(ctx context.Context, f func()) error {
	return Pool(ctx).Go(f)
}
