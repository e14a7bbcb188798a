package relay

import "aeolus/logger"

type handlerFunc func(c *Client, data map[string]any)

// Router validates and shapes each inbound client event, applies channel
// authorization, mutates the registry, and decides what to emit. One handler
// per event name. A client arrives here already authenticated; membership is
// a registry fact.
type Router struct {
	reg      *Registry
	emit     *Emitter
	handlers map[string]handlerFunc
}

func NewRouter(reg *Registry, emit *Emitter) *Router {
	r := &Router{reg: reg, emit: emit}
	r.handlers = map[string]handlerFunc{
		"channel_join":  r.handleJoin,
		"channel_leave": r.handleLeave,
		"message_send":  r.handleSend,
		"message_read":  r.handleRead,
		"typing_start":  r.handleTyping(true),
		"typing_stop":   r.handleTyping(false),
	}
	return r
}

// Dispatch routes one frame. Unknown events are logged and skipped; they
// must not terminate the connection.
func (r *Router) Dispatch(c *Client, f *Frame) {
	h, ok := r.handlers[f.Event]
	if !ok {
		logger.Debugf("no handler for event %q from conn %s", f.Event, c.ID)
		return
	}
	h(c, f.Data)
}

// Disconnect tears down the connection's registry state. Safe even when the
// client never joined anything.
func (r *Router) Disconnect(c *Client) {
	r.reg.Remove(c.ID)
	logger.Infof("disconnected: %s (user: %d)", c.ID, c.Claims.UserID)
}

func (r *Router) sendError(c *Client, msg string) {
	r.emit.EmitTo(c, Event{Name: EvtError, Data: ErrorPayload{Message: msg}})
}

// handleJoin is the single security-critical branch: the authorization check
// runs on every join attempt and rejects before any membership side effect.
func (r *Router) handleJoin(c *Client, data map[string]any) {
	p, err := decodePayload[JoinPayload](data)
	if err != nil || p.ChannelID == "" {
		r.sendError(c, "channelId required")
		return
	}

	if !Authorized(c.Claims, p.ChannelID) {
		logger.Warnf("user %d (%s) unauthorized for channel %s (authorized for %d)",
			c.Claims.UserID, c.ID, p.ChannelID, c.Claims.ChannelID)
		r.sendError(c, "Unauthorized for this channel")
		return
	}

	r.reg.Join(c.ID, p.ChannelID)
	logger.Infof("user %d (%s) joined channel: %s", c.Claims.UserID, c.ID, p.ChannelID)

	r.emit.EmitTo(c, Event{Name: EvtChannelJoined, Data: ChannelAck{ChannelID: p.ChannelID}})
	r.emit.Emit(p.ChannelID, Event{
		Name: EvtUserJoined,
		Data: UserJoined{UserID: c.Claims.UserID, ChannelID: p.ChannelID},
	}, c.ID)
}

// handleLeave removes the member first, then broadcasts user:left; the
// leaver therefore only ever receives channel:left.
func (r *Router) handleLeave(c *Client, data map[string]any) {
	p, err := decodePayload[LeavePayload](data)
	if err != nil || p.ChannelID == "" {
		return
	}

	r.reg.Leave(c.ID, p.ChannelID)
	logger.Infof("user %d (%s) left channel: %s", c.Claims.UserID, c.ID, p.ChannelID)

	r.emit.EmitTo(c, Event{Name: EvtChannelLeft, Data: ChannelAck{ChannelID: p.ChannelID}})
	r.emit.Emit(p.ChannelID, Event{
		Name: EvtUserLeft,
		Data: UserLeft{UserID: c.Claims.UserID, ChannelID: p.ChannelID},
	}, c.ID)
}

func (r *Router) handleSend(c *Client, data map[string]any) {
	p, err := decodePayload[SendPayload](data)
	if err != nil || p.ChannelID == "" || p.Content == "" {
		r.sendError(c, "channelId and content required")
		return
	}

	logger.Infof("message from user %d in channel %s", c.Claims.UserID, p.ChannelID)
	r.emit.Emit(p.ChannelID, Event{
		Name: EvtMessageReceived,
		Data: MessageReceived{
			ChannelID: p.ChannelID,
			SenderID:  c.Claims.UserID,
			Content:   p.Content,
			Timestamp: NowISO(),
		},
	}, c.ID)
}

func (r *Router) handleRead(c *Client, data map[string]any) {
	p, err := decodePayload[ReadPayload](data)
	if err != nil || p.ChannelID == "" || missing(p.MessageID) {
		r.sendError(c, "channelId and messageId required")
		return
	}

	readAt := p.ReadAt
	if readAt == "" {
		readAt = NowISO()
	}
	complete := truthy(p.Complete)
	ev := MessageRead{
		ChannelID: p.ChannelID,
		MessageID: p.MessageID,
		ReaderID:  c.Claims.UserID,
		ReadAt:    readAt,
		Complete:  complete,
	}
	// readers that are not list-shaped are dropped, never an error
	if readers, ok := p.Readers.([]any); ok {
		ev.Readers = readers
	}

	logger.Infof("read receipt from user %d in channel %s (message %v, complete=%v)",
		c.Claims.UserID, p.ChannelID, p.MessageID, complete)
	r.emit.Emit(p.ChannelID, Event{Name: EvtMessageRead, Data: ev}, c.ID)
}

func (r *Router) handleTyping(on bool) handlerFunc {
	return func(c *Client, data map[string]any) {
		p, err := decodePayload[TypingPayload](data)
		if err != nil || p.ChannelID == "" {
			return
		}
		r.emit.Emit(p.ChannelID, Event{
			Name: EvtTyping,
			Data: Typing{UserID: c.Claims.UserID, Typing: on},
		}, c.ID)
	}
}
