package relay

import (
	"net"
	"net/http"
	"time"

	"aeolus/logger"
	"aeolus/service/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// Server accepts WebSocket connections, authenticates the handshake, and
// runs one read loop per connection. Authentication happens exactly once,
// here; the router trusts the stored identity afterwards.
type Server struct {
	codec     *token.Codec
	reg       *Registry
	router    *Router
	queueSize int
}

func NewServer(codec *token.Codec, reg *Registry, router *Router, queueSize int) *Server {
	return &Server{codec: codec, reg: reg, router: router, queueSize: queueSize}
}

// HandleWS upgrades a client connection. The token travels as a query
// parameter; a missing or invalid one refuses the handshake with a bare 401,
// no body — the client infers failure from the refused connection.
func (s *Server) HandleWS(c *gin.Context) {
	tok := c.Query("token")
	if tok == "" {
		logger.Warn("no token provided, refusing handshake")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := s.codec.Decode(tok)
	if err != nil {
		logger.Warnf("refusing handshake: %v", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("upgrade websocket error: %v", err)
		return
	}

	cl := NewClient(uuid.NewString(), claims, ws, s.queueSize)
	s.reg.Register(cl)
	logger.Infof("client connected: %s (user: %d)", cl.ID, claims.UserID)

	go s.writePump(cl)
	s.readLoop(cl)
}

// readLoop processes the connection's events strictly in arrival order. Any
// read error ends the connection; handler panics must not take the instance
// down with it.
func (s *Server) readLoop(cl *Client) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("conn %s: handler panic: %v", cl.ID, rec)
		}
		s.router.Disconnect(cl)
		cl.Close()
	}()

	for {
		mt, data, err := cl.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("peer closed conn=%s err=%v", cl.ID, err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("read timeout conn=%s err=%v", cl.ID, err)
			} else {
				logger.Infof("read err conn=%s err=%v", cl.ID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("bad frame conn=%s err=%v sample=%q", cl.ID, perr, sample)
			continue
		}

		s.router.Dispatch(cl, f)
	}
}

// writePump is the connection's single writer. It exits when the client is
// closed or a write fails; the read loop notices the dead socket and cleans
// up.
func (s *Server) writePump(cl *Client) {
	for {
		select {
		case <-cl.closed():
			return
		case data := <-cl.Send:
			_ = cl.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("write err conn=%s err=%v", cl.ID, err)
				cl.Close()
				return
			}
		}
	}
}
