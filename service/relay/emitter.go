package relay

import (
	"context"
	"encoding/json"

	"aeolus/logger"
	"aeolus/service/broker"
)

// Emitter is the fan-out bridge: every locally produced emission is delivered
// to local channel members and published to the broker; envelopes arriving
// from the broker are delivered local-only. Origin tagging prevents loops —
// an instance drops its own publications on receipt and never re-publishes a
// remote one.
type Emitter struct {
	reg       *Registry
	brk       broker.Broker
	fan       *Fanout
	gatewayID string
}

func NewEmitter(reg *Registry, brk broker.Broker, gatewayID string, workers, queue int) *Emitter {
	return &Emitter{
		reg:       reg,
		brk:       brk,
		fan:       NewFanout(workers, queue),
		gatewayID: gatewayID,
	}
}

// Start wires the broker subscription. Call once before serving.
func (e *Emitter) Start() error {
	return e.brk.Subscribe(e.onRemote)
}

// Emit sends ev to every local member of the channel except skipConnID, and
// publishes it for the other instances. Ordering across instances is not
// guaranteed; the event payloads are self-contained for that reason.
func (e *Emitter) Emit(channel string, ev Event, skipConnID string) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("emit: marshal %s: %v", ev.Name, err)
		return
	}
	e.deliver(channel, payload, skipConnID)

	env := broker.Envelope{Origin: e.gatewayID, Channel: channel, Payload: payload}
	if err := e.brk.Publish(context.Background(), channel, env); err != nil {
		logger.Errorf("emit: publish %s to channel %s: %v", ev.Name, channel, err)
	}
}

// EmitTo sends ev to a single connection only. Acks and per-requester errors
// take this path; nothing here reaches the broker.
func (e *Emitter) EmitTo(c *Client, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("emit: marshal %s: %v", ev.Name, err)
		return
	}
	if !c.TrySend(payload) {
		logger.Debugf("emit: dropped %s for slow conn %s", ev.Name, c.ID)
	}
}

func (e *Emitter) deliver(channel string, payload []byte, skipConnID string) {
	members := e.reg.Members(channel)
	if skipConnID != "" {
		kept := members[:0]
		for _, c := range members {
			if c.ID != skipConnID {
				kept = append(kept, c)
			}
		}
		members = kept
	}
	e.fan.Broadcast(members, payload)
}

// onRemote applies a broker-delivered envelope to local members. Own-origin
// envelopes were already delivered locally at Emit time.
func (e *Emitter) onRemote(env broker.Envelope) {
	if env.Origin == e.gatewayID {
		return
	}
	logger.Debugf("remote emission for channel %s from %s", env.Channel, env.Origin)
	e.deliver(env.Channel, env.Payload, "")
}

// Close tears down the broker subscription first so no new envelope arrives,
// then stops the fanout workers. An envelope that still slips in is dropped.
func (e *Emitter) Close() {
	if err := e.brk.Close(); err != nil {
		logger.Warnf("emitter: broker close: %v", err)
	}
	e.fan.Close()
}
