package chat

import (
	"testing"

	"MRChat/global"
	"MRChat/module/chat/store"
	"MRChat/service/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct{ calls int }

func (*echoHandler) Type() string { return "echo" }
func (h *echoHandler) Handle(ctx *Context, f *Frame, c *WsConn) error {
	h.calls++
	c.Send(BuildPong())
	return nil
}

func newTestServer(t *testing.T, db store.Store) *Server {
	t.Helper()
	s := NewServer(global.Default(), db, storage.NewActivityStore(nil), nil)
	t.Cleanup(s.Stop)
	return s
}

func TestDispatchRoutesByType(t *testing.T) {
	s := newTestServer(t, store.NewMemStore())
	h := &echoHandler{}
	s.Register(h)

	c := newTestConn("c1", "u1")
	s.Dispatch(&Frame{Type: "echo"}, c)

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, FramePong, recvFrame(t, c).Type)
}

func TestDispatchUnknownType(t *testing.T) {
	s := newTestServer(t, store.NewMemStore())
	c := newTestConn("c1", "u1")

	s.Dispatch(&Frame{Type: "no-such"}, c)
	f := recvFrame(t, c)
	assert.Equal(t, FrameError, f.Type)
}

func TestDispatchBlocksUnauthenticated(t *testing.T) {
	s := newTestServer(t, store.NewMemStore())
	h := &echoHandler{}
	s.Register(h)

	c := newTestConn("c1", "") // 未授权
	s.Dispatch(&Frame{Type: "echo"}, c)

	require.Equal(t, 0, h.calls)
	assert.Equal(t, FrameUnauthorized, recvFrame(t, c).Type)
}
