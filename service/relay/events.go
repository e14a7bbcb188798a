package relay

import "time"

// Outbound event names. These are the wire protocol; clients match on them.
const (
	EvtChannelJoined   = "channel:joined"
	EvtChannelLeft     = "channel:left"
	EvtUserJoined      = "user:joined"
	EvtUserLeft        = "user:left"
	EvtMessageReceived = "message:received"
	EvtMessageRead     = "message:read"
	EvtTyping          = "typing:user"
	EvtError           = "error"
)

// Event is one outbound frame: `{"event": name, "data": payload}`.
// Events are transient; they exist only between production and delivery.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

type ChannelAck struct {
	ChannelID string `json:"channelId"`
}

type UserJoined struct {
	UserID    int    `json:"userId"`
	ChannelID string `json:"channelId"`
}

type UserLeft struct {
	UserID    int    `json:"userId"`
	ChannelID string `json:"channelId"`
}

// MessageReceived is shared by the connection path and the trusted HTTP
// bridge; the bridge may carry sender ids that are not integers, hence `any`.
type MessageReceived struct {
	ChannelID  string `json:"channelId"`
	SenderID   any    `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	Content    string `json:"content"`
	MessageID  any    `json:"messageId,omitempty"`
	Timestamp  string `json:"timestamp"`
}

type MessageRead struct {
	ChannelID string `json:"channelId"`
	MessageID any    `json:"messageId"`
	ReaderID  any    `json:"readerId,omitempty"`
	ReadAt    string `json:"readAt,omitempty"`
	Complete  bool   `json:"complete"`
	Readers   []any  `json:"readers,omitempty"`
}

type Typing struct {
	UserID int  `json:"userId"`
	Typing bool `json:"typing"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NowISO renders the current UTC time as ISO-8601 with millisecond precision
// and a literal trailing "Z". Every relay-generated timestamp goes through
// here so the wire format stays uniform.
func NowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
