package broker

import (
	"context"
	"encoding/json"
)

// Envelope is the unit that crosses the broker: one outbound event, already
// marshaled, tagged with its channel and the relay instance that produced it.
// Origin is how receivers tell their own publications apart from remote ones.
type Envelope struct {
	Origin  string          `json:"origin"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

type Handler func(Envelope)

// Broker is the shared publish/subscribe medium that makes N relay instances
// one broadcast domain. Best-effort: no ordering or delivery guarantee across
// instances.
type Broker interface {
	Publish(ctx context.Context, channel string, env Envelope) error
	// Subscribe registers h for every envelope published on any channel,
	// including this instance's own. Called once at startup.
	Subscribe(h Handler) error
	Close() error
}

// Noop satisfies Broker for single-instance deployments. Fan-out degrades to
// local-only delivery; the operator warning is emitted at wiring time.
type Noop struct{}

func (Noop) Publish(context.Context, string, Envelope) error { return nil }
func (Noop) Subscribe(Handler) error                         { return nil }
func (Noop) Close() error                                    { return nil }
