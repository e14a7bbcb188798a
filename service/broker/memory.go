package broker

import (
	"context"
	"sync"
)

// Memory is an in-process broker. It exists for tests and for running several
// relay instances inside one binary; envelopes are handed to every subscriber
// synchronously, own-origin included, exactly like a real pub/sub medium.
type Memory struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Publish(_ context.Context, _ string, env Envelope) error {
	m.mu.RLock()
	hs := make([]Handler, len(m.handlers))
	copy(hs, m.handlers)
	m.mu.RUnlock()

	for _, h := range hs {
		h(env)
	}
	return nil
}

func (m *Memory) Subscribe(h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
	return nil
}

func (m *Memory) Close() error { return nil }
