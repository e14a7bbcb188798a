package relay

import (
	"fmt"
	"sync"
	"testing"

	"aeolus/service/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConn(id string, userID, channelID int) *Client {
	return NewClient(id, token.Claims{UserID: userID, RoleID: 10, ChannelID: channelID}, nil, 16)
}

func TestRegistry_RegisterGet(t *testing.T) {
	r := NewRegistry()
	c := newConn("c1", 1, 100)
	r.Register(c)

	got, ok := r.Get("c1")
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Count())

	// re-register overwrites, not duplicates
	c2 := newConn("c1", 1, 100)
	r.Register(c2)
	got, _ = r.Get("c1")
	assert.Same(t, c2, got)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_JoinLeave(t *testing.T) {
	r := NewRegistry()
	a := newConn("a", 1, 100)
	b := newConn("b", 2, 100)
	r.Register(a)
	r.Register(b)

	r.Join("a", "100")
	r.Join("b", "100")
	assert.Len(t, r.Members("100"), 2)
	assert.True(t, r.InChannel("a", "100"))

	r.Leave("a", "100")
	assert.False(t, r.InChannel("a", "100"))
	members := r.Members("100")
	require.Len(t, members, 1)
	assert.Equal(t, "b", members[0].ID)

	// leaving a channel never joined is harmless
	r.Leave("a", "999")
}

func TestRegistry_JoinUnknownConn(t *testing.T) {
	r := NewRegistry()
	r.Join("ghost", "100")
	assert.Empty(t, r.Members("100"))
}

func TestRegistry_RemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newConn("c1", 1, 100)
	r.Register(c)
	r.Join("c1", "100")

	r.Remove("c1")
	assert.Empty(t, r.Members("100"))
	_, ok := r.Get("c1")
	assert.False(t, ok)

	// removing again, or removing an id that never existed, is a no-op
	r.Remove("c1")
	r.Remove("never-registered")
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			r.Register(newConn(id, i, 100))
			r.Join(id, "100")
			r.Members("100")
			r.Leave(id, "100")
			r.Remove(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.Members("100"))
}
