package events

import (
	"context"

	"github.com/rs/zerolog"

	"xpanel/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*NoopPublisher)(nil)

// NoopPublisher drops events. It is used when no brokers are configured.
type NoopPublisher struct {
	log *zerolog.Logger
}

func NewNoopPublisher(logger *zerolog.Logger) *NoopPublisher {
	return &NoopPublisher{log: logger}
}

func (p *NoopPublisher) PublishActivation(ctx context.Context, ev adapter.ActivationEvent) error {
	p.log.Trace().Str("code", ev.Code).Msg("event publishing disabled, dropping activation event")
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
