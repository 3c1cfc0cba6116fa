package events

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"xpanel/internal/domain/ports/adapter"
	"xpanel/internal/infra/worker"
)

var _ adapter.EventPublisher = (*AsyncPublisher)(nil)

// AsyncPublisher hands events to a worker pool so broker latency never reaches the
// redeem response. Delivery failures are logged by the pool.
type AsyncPublisher struct {
	inner adapter.EventPublisher
	pool  *worker.Pool
	log   *zerolog.Logger
}

// NewAsyncPublisher starts workers bound to ctx. Close drains the queue before closing inner.
func NewAsyncPublisher(ctx context.Context, inner adapter.EventPublisher, workers, queue int, logger *zerolog.Logger) *AsyncPublisher {
	pool := worker.NewPool(workers, queue, logger)
	pool.Start(ctx)
	return &AsyncPublisher{inner: inner, pool: pool, log: logger}
}

func (p *AsyncPublisher) PublishActivation(_ context.Context, ev adapter.ActivationEvent) error {
	err := p.pool.Submit(func(ctx context.Context) error {
		if err := p.inner.PublishActivation(ctx, ev); err != nil {
			return fmt.Errorf("publish activation %s: %w", ev.Code, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("queue activation event: %w", err)
	}
	return nil
}

func (p *AsyncPublisher) Close() error {
	p.pool.Stop()
	return p.inner.Close()
}
