package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"aeolus/service/relay"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

type emission struct {
	Channel string
	Event   relay.Event
	Skip    string
}

type recordSink struct {
	mu    sync.Mutex
	calls []emission
}

func (s *recordSink) Emit(channel string, ev relay.Event, skipConnID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, emission{Channel: channel, Event: ev, Skip: skipConnID})
}

func (s *recordSink) emissions() []emission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]emission(nil), s.calls...)
}

func newTestAPI(t *testing.T, sink Sink, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandlers(sink).Register(r, secret)
	return r
}

func doPost(r *gin.Engine, path, bearer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// dataOf re-marshals the emitted event payload so assertions see exactly the
// JSON keys a connected client would.
func dataOf(t *testing.T, ev relay.Event) map[string]any {
	t.Helper()
	raw, err := json.Marshal(ev.Data)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

const fullMessage = `{"channelId":"100","senderId":7,"content":"hello","messageId":"m-1"}`

func TestChatMessage_AuthPolicy(t *testing.T) {
	sink := &recordSink{}

	t.Run("secret not configured", func(t *testing.T) {
		r := newTestAPI(t, sink, "")
		w := doPost(r, "/chat/message", "anything", fullMessage)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("missing bearer", func(t *testing.T) {
		r := newTestAPI(t, sink, testSecret)
		w := doPost(r, "/chat/message", "", fullMessage)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		r := newTestAPI(t, sink, testSecret)
		w := doPost(r, "/chat/message", "wrong", fullMessage)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	assert.Empty(t, sink.emissions(), "rejected requests must emit nothing")
}

func TestChatMessage_Validation(t *testing.T) {
	sink := &recordSink{}
	r := newTestAPI(t, sink, testSecret)

	for name, body := range map[string]string{
		"bad json":          `{`,
		"missing channelId": `{"senderId":7,"content":"x","messageId":"m"}`,
		"missing senderId":  `{"channelId":"100","content":"x","messageId":"m"}`,
		"missing content":   `{"channelId":"100","senderId":7,"messageId":"m"}`,
		"missing messageId": `{"channelId":"100","senderId":7,"content":"x"}`,
		"false senderId":    `{"channelId":"100","senderId":false,"content":"x","messageId":"m"}`,
		"false messageId":   `{"channelId":"100","senderId":7,"content":"x","messageId":false}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := doPost(r, "/chat/message", testSecret, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, sink.emissions())
}

func TestChatMessage_SinkUnavailable(t *testing.T) {
	r := newTestAPI(t, nil, testSecret)
	w := doPost(r, "/chat/message", testSecret, fullMessage)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChatMessage_Success(t *testing.T) {
	sink := &recordSink{}
	r := newTestAPI(t, sink, testSecret)

	w := doPost(r, "/chat/message", testSecret, fullMessage)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	calls := sink.emissions()
	require.Len(t, calls, 1, "exactly one emission per accepted request")
	assert.Equal(t, "100", calls[0].Channel)
	assert.Equal(t, relay.EvtMessageReceived, calls[0].Event.Name)
	assert.Empty(t, calls[0].Skip)

	data := dataOf(t, calls[0].Event)
	assert.Equal(t, "hello", data["content"])
	assert.Equal(t, float64(7), data["senderId"])
	assert.Equal(t, "m-1", data["messageId"])

	_, hasName := data["senderName"]
	assert.False(t, hasName, "omitted senderName must be omitted from the emission")

	ts, _ := data["timestamp"].(string)
	assert.True(t, strings.HasSuffix(ts, "Z"), "generated timestamp %q must end in Z", ts)
}

func TestChatMessage_PassthroughFields(t *testing.T) {
	sink := &recordSink{}
	r := newTestAPI(t, sink, testSecret)

	body := `{"channelId":"100","senderId":"svc-1","content":"hello","messageId":"m-1",` +
		`"timestamp":"2026-01-02T03:04:05.000Z","senderName":"Backend"}`
	w := doPost(r, "/chat/message", testSecret, body)
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, sink.emissions()[0].Event)
	assert.Equal(t, "svc-1", data["senderId"])
	assert.Equal(t, "Backend", data["senderName"])
	assert.Equal(t, "2026-01-02T03:04:05.000Z", data["timestamp"])
}

func TestReadReceipt(t *testing.T) {
	sink := &recordSink{}
	r := newTestAPI(t, sink, testSecret)

	t.Run("missing messageId", func(t *testing.T) {
		w := doPost(r, "/chat/read-receipt", testSecret, `{"channelId":"100"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("minimal body", func(t *testing.T) {
		w := doPost(r, "/chat/read-receipt", testSecret, `{"channelId":"100","messageId":"m-1"}`)
		require.Equal(t, http.StatusOK, w.Code)

		calls := sink.emissions()
		require.Len(t, calls, 1)
		assert.Equal(t, relay.EvtMessageRead, calls[0].Event.Name)

		data := dataOf(t, calls[0].Event)
		assert.Equal(t, false, data["complete"], "complete defaults to false")
		for _, key := range []string{"readerId", "readAt", "readers"} {
			_, ok := data[key]
			assert.False(t, ok, "optional %s must be omitted when not supplied", key)
		}
	})

	t.Run("full body", func(t *testing.T) {
		body := `{"channelId":"100","messageId":"m-2","readerId":9,` +
			`"readAt":"2026-01-02T03:04:05.000Z","complete":true,"readers":[1,2,3]}`
		w := doPost(r, "/chat/read-receipt", testSecret, body)
		require.Equal(t, http.StatusOK, w.Code)

		calls := sink.emissions()
		data := dataOf(t, calls[len(calls)-1].Event)
		assert.Equal(t, true, data["complete"])
		assert.Equal(t, float64(9), data["readerId"])
		assert.Equal(t, []any{float64(1), float64(2), float64(3)}, data["readers"])
	})

	t.Run("non-list readers dropped", func(t *testing.T) {
		body := `{"channelId":"100","messageId":"m-3","readers":"oops"}`
		w := doPost(r, "/chat/read-receipt", testSecret, body)
		require.Equal(t, http.StatusOK, w.Code)

		calls := sink.emissions()
		data := dataOf(t, calls[len(calls)-1].Event)
		_, ok := data["readers"]
		assert.False(t, ok)
	})
}

func TestHealthAndStatus(t *testing.T) {
	r := newTestAPI(t, &recordSink{}, testSecret)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	ts, _ := body["timestamp"].(string)
	assert.True(t, strings.HasSuffix(ts, "Z"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
