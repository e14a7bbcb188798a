package token

import (
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *fernet.Key {
	t.Helper()
	var k fernet.Key
	require.NoError(t, k.Generate())
	return &k
}

func TestCodec_RoundTrip(t *testing.T) {
	k := newKey(t)
	c := NewCodec(k.Encode(), DefaultTTL)

	tok, err := c.Encode(Claims{UserID: 123, RoleID: 456, ChannelID: 789})
	require.NoError(t, err)

	got, err := c.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: 123, RoleID: 456, ChannelID: 789}, got)
}

func TestCodec_Expired(t *testing.T) {
	k := newKey(t)
	c := NewCodec(k.Encode(), time.Millisecond)

	tok, err := c.Encode(Claims{UserID: 1, RoleID: 2, ChannelID: 3})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = c.Decode(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_WrongKey(t *testing.T) {
	other := newKey(t)
	tok, err := fernet.EncryptAndSign([]byte("1:2:3"), other)
	require.NoError(t, err)

	c := NewCodec(newKey(t).Encode(), DefaultTTL)
	_, err = c.Decode(string(tok))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_MalformedPayloads(t *testing.T) {
	k := newKey(t)
	c := NewCodec(k.Encode(), DefaultTTL)

	for _, payload := range []string{
		"",
		"123",
		"1:2",
		"1:2:3:4",
		"a:b:c",
		"1:2:x",
		"1::3",
	} {
		t.Run(payload, func(t *testing.T) {
			tok, err := fernet.EncryptAndSign([]byte(payload), k)
			require.NoError(t, err)

			got, err := c.Decode(string(tok))
			require.ErrorIs(t, err, ErrMalformedPayload)
			assert.Zero(t, got, "failure must never yield a partial identity")
		})
	}
}

func TestCodec_KeyMissing(t *testing.T) {
	c := NewCodec("", DefaultTTL)

	_, err := c.Decode("whatever")
	require.ErrorIs(t, err, ErrKeyMissing)

	_, err = c.Encode(Claims{UserID: 1})
	require.ErrorIs(t, err, ErrKeyMissing)
}

func TestCodec_UndecodableKey(t *testing.T) {
	c := NewCodec("not-a-key", DefaultTTL)

	_, err := c.Decode("whatever")
	require.ErrorIs(t, err, ErrKeyMissing)
}
