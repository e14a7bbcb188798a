package api

import (
	"net/http"
	"time"

	"aeolus/logger"
	"aeolus/middleware"
	"aeolus/service/relay"

	"github.com/gin-gonic/gin"
)

// Sink is where accepted injections go: the relay's emit-to-channel path, so
// trusted-backend events fan out exactly like connection-originated ones.
type Sink interface {
	Emit(channel string, ev relay.Event, skipConnID string)
}

// Handlers is the trusted ingress bridge: a request/response entry point for
// a backend to inject chat events without holding a connection.
type Handlers struct {
	sink    Sink
	started time.Time
}

func NewHandlers(sink Sink) *Handlers {
	return &Handlers{sink: sink, started: time.Now()}
}

// Register mounts the routes. The /chat group carries the bearer-secret
// middleware; health and status stay open.
func (h *Handlers) Register(r *gin.Engine, secret string) {
	r.GET("/health", h.Health)
	r.GET("/status", h.Status)

	grp := r.Group("/chat", middleware.Secret(secret))
	grp.POST("/message", h.ChatMessage)
	grp.POST("/read-receipt", h.ReadReceipt)
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": relay.NowISO()})
}

func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "running",
		"uptime": time.Since(h.started).Seconds(),
	})
}

type chatMessageBody struct {
	ChannelID  string `json:"channelId"`
	SenderID   any    `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	MessageID  any    `json:"messageId"`
	Timestamp  string `json:"timestamp"`
}

func (h *Handlers) ChatMessage(c *gin.Context) {
	var body chatMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if body.ChannelID == "" || absent(body.SenderID) || body.Content == "" || absent(body.MessageID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "channelId, senderId, content, and messageId are required",
		})
		return
	}
	if h.sink == nil {
		logger.Error("fan-out path not configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Fan-out unavailable"})
		return
	}

	ts := body.Timestamp
	if ts == "" {
		ts = relay.NowISO()
	}
	ev := relay.MessageReceived{
		ChannelID:  body.ChannelID,
		SenderID:   body.SenderID,
		SenderName: body.SenderName,
		Content:    body.Content,
		MessageID:  body.MessageID,
		Timestamp:  ts,
	}

	logger.Infof("broadcasting chat message %v to channel %s", body.MessageID, body.ChannelID)
	h.sink.Emit(body.ChannelID, relay.Event{Name: relay.EvtMessageReceived, Data: ev}, "")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type readReceiptBody struct {
	ChannelID string `json:"channelId"`
	MessageID any    `json:"messageId"`
	ReaderID  any    `json:"readerId"`
	ReadAt    string `json:"readAt"`
	Complete  bool   `json:"complete"`
	Readers   any    `json:"readers"`
}

func (h *Handlers) ReadReceipt(c *gin.Context) {
	var body readReceiptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if body.ChannelID == "" || absent(body.MessageID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channelId and messageId are required"})
		return
	}
	if h.sink == nil {
		logger.Error("fan-out path not configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Fan-out unavailable"})
		return
	}

	ev := relay.MessageRead{
		ChannelID: body.ChannelID,
		MessageID: body.MessageID,
		ReaderID:  body.ReaderID,
		ReadAt:    body.ReadAt,
		Complete:  body.Complete,
	}
	if readers, ok := body.Readers.([]any); ok {
		ev.Readers = readers
	}

	logger.Infof("broadcasting read receipt for channel %s message %v (complete=%v)",
		body.ChannelID, body.MessageID, body.Complete)
	h.sink.Emit(body.ChannelID, relay.Event{Name: relay.EvtMessageRead, Data: ev}, "")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func absent(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	case bool:
		return !x
	default:
		return false
	}
}
