package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestConn 不起写泵的裸连接：Send 只入队，测试端从队列里取帧断言
func newTestConn(connID, userID string) *WsConn {
	c := &WsConn{
		ConnID: connID,
		UserID: userID,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	c.authorized = userID != ""
	return c
}

// recvFrame 取下一帧；没有就失败
func recvFrame(t *testing.T, c *WsConn) *Frame {
	t.Helper()
	select {
	case raw := <-c.sendCh:
		f := &Frame{}
		require.NoError(t, json.Unmarshal(raw, f))
		return f
	default:
		t.Fatalf("conn %s: no frame queued", c.ConnID)
		return nil
	}
}

// tryRecvFrame 取下一帧；没有返回 nil
func tryRecvFrame(t *testing.T, c *WsConn) *Frame {
	t.Helper()
	select {
	case raw := <-c.sendCh:
		f := &Frame{}
		require.NoError(t, json.Unmarshal(raw, f))
		return f
	default:
		return nil
	}
}

func drainFrames(t *testing.T, c *WsConn) []*Frame {
	t.Helper()
	var out []*Frame
	for {
		f := tryRecvFrame(t, c)
		if f == nil {
			return out
		}
		out = append(out, f)
	}
}
