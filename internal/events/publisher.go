package events

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Publisher delivers game events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event GameEvent) error
}

// NoopPublisher discards events. Used when no event backbone is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, event GameEvent) error {
	log.Debug().
		Str("event_id", event.ID.String()).
		Str("game_id", event.GameID.String()).
		Str("event_type", string(event.Type)).
		Msg("discarding event, no publisher configured")
	return nil
}

// Switch is a publisher whose target is bound after construction. The game
// service and the gateway each need the other at wiring time; the switch
// stands in for the publisher until the real one exists. Unbound, it
// discards events like NoopPublisher.
type Switch struct {
	target atomic.Value // publisherBox
}

// publisherBox keeps atomic.Value's stored type constant across targets.
type publisherBox struct {
	p Publisher
}

// NewSwitch returns a switch bound to NoopPublisher.
func NewSwitch() *Switch {
	s := &Switch{}
	s.target.Store(publisherBox{NoopPublisher{}})
	return s
}

// Bind points the switch at a publisher. Safe to call while publishing.
func (s *Switch) Bind(p Publisher) {
	if p == nil {
		p = NoopPublisher{}
	}
	s.target.Store(publisherBox{p})
}

func (s *Switch) Publish(ctx context.Context, event GameEvent) error {
	return s.target.Load().(publisherBox).p.Publish(ctx, event)
}
