package relay

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Frame is one inbound client frame: `{"event": name, "data": {...}}`.
// Data stays loosely typed until the per-event handler decodes it.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if f.Event == "" {
		return nil, errors.New("frame missing event name")
	}
	return f, nil
}

type JoinPayload struct {
	ChannelID string `json:"channelId"`
}

type LeavePayload struct {
	ChannelID string `json:"channelId"`
}

type SendPayload struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

type ReadPayload struct {
	ChannelID string `json:"channelId"`
	MessageID any    `json:"messageId"`
	ReadAt    string `json:"readAt"`
	Complete  any    `json:"complete"`
	Readers   any    `json:"readers"`
}

type TypingPayload struct {
	ChannelID string `json:"channelId"`
}

// decodePayload maps a loose data object onto a typed payload. Weak typing
// mirrors the wire's reality: booleans arrive as 0/1/"true", numbers as
// strings, and the handlers should not care.
func decodePayload[T any](data map[string]any) (*T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(data); err != nil {
		return nil, errors.Wrap(err, "decode payload")
	}
	return &out, nil
}

// truthy coerces an optional flag the way the wire protocol reads values:
// nil, false, zero, empty string, and empty collections are false, anything
// else is true. A flag a client garbles must not invalidate the whole frame.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// missing reports whether a required field value is absent in the sense the
// wire protocol uses: nil, empty string, zero number, or false.
func missing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	case int:
		return x == 0
	case bool:
		return !x
	default:
		return false
	}
}
