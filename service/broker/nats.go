package broker

import (
	"context"
	"encoding/json"
	"time"

	"aeolus/logger"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

const natsSubjectPrefix = "aeolus.chan."

// Nats fans envelopes out over core NATS, one subject per channel with a
// wildcard subscription on the receive side. Channel ids are numeric strings,
// so they are always valid subject tokens.
type Nats struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

func NewNats(url string) (*Nats, error) {
	nc, err := nats.Connect(url,
		nats.Name("aeolus-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	return &Nats{nc: nc}, nil
}

func (b *Nats) Publish(_ context.Context, channel string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	return b.nc.Publish(natsSubjectPrefix+channel, data)
}

func (b *Nats) Subscribe(h Handler) error {
	sub, err := b.nc.Subscribe(natsSubjectPrefix+">", func(m *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			logger.Warnf("nats broker: bad envelope on %s: %v", m.Subject, err)
			return
		}
		h(env)
	})
	if err != nil {
		return errors.Wrap(err, "subscribe nats")
	}
	b.sub = sub
	return nil
}

func (b *Nats) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.nc.Close()
	return nil
}
