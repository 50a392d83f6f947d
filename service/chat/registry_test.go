package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryJoinLeave(t *testing.T) {
	r := NewRegistry()
	c1 := newTestConn("c1", "u1")
	c2 := newTestConn("c2", "u1") // 同用户第二个端
	c3 := newTestConn("c3", "u2")

	r.Join(c1)
	r.Join(c2)
	r.Join(c3)

	assert.Len(t, r.FindByUser("u1"), 2)
	assert.Len(t, r.AllConns(), 3)
	assert.Same(t, c3, r.GetByConnID("c3"))

	removed := r.Leave("c1")
	require.Same(t, c1, removed)
	assert.Len(t, r.FindByUser("u1"), 1)

	r.Leave("c2")
	assert.Empty(t, r.FindByUser("u1"))
	assert.Nil(t, r.Leave("c2"), "double leave is a no-op")
}

func TestRegistryPresenceList(t *testing.T) {
	r := NewRegistry()
	c := newTestConn("c1", "u1")
	c.Nickname = "Alice"
	r.Join(c)

	list := r.All()
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].UserID)
	assert.Equal(t, "Alice", list[0].Nickname)
}
