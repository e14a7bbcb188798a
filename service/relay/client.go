package relay

import (
	"sync"

	"aeolus/service/token"

	"github.com/gorilla/websocket"
)

// Client is one live, authenticated connection to this relay instance.
// Identity is set exactly once, at connect time; every later event trusts it.
// Owned by the registry of the instance that accepted the connection and
// never shared across instances.
type Client struct {
	ID     string
	Claims token.Claims

	// Send is the per-connection outbound queue, drained by a single writer
	// goroutine. Deliveries never block on it; a full queue drops the frame.
	Send chan []byte

	ws       *websocket.Conn
	done     chan struct{}
	doneOnce sync.Once
}

// NewClient builds a client. ws may be nil for clients that are driven
// directly in tests.
func NewClient(id string, claims token.Claims, ws *websocket.Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Client{
		ID:     id,
		Claims: claims,
		Send:   make(chan []byte, queueSize),
		ws:     ws,
		done:   make(chan struct{}),
	}
}

// TrySend queues data without blocking. Returns false when the client is
// closed or its queue is full; one slow client must not stall the rest.
func (c *Client) TrySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Close is idempotent and safe whether or not the client ever authenticated
// or joined anything.
func (c *Client) Close() {
	c.doneOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

func (c *Client) closed() <-chan struct{} { return c.done }
