package chat

import (
	"sync"
	"time"

	"MRChat/logger"
	"MRChat/module/chat/model"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// WsConn 一条 WebSocket 连接。gorilla 的写不能并发，
// 所以每条连接一个发送队列 + 单写协程（写泵），业务侧只 enqueue。
type WsConn struct {
	ConnID    string
	UserID    string // 授权后才有
	Nickname  string
	AvatarURL string

	Conn *websocket.Conn

	mu          sync.RWMutex
	authorized  bool
	activeScope model.Scope // 用户正盯着的会话；投递时据此决定未读
	heartbeat   time.Time
	expireAt    time.Time

	sendCh    chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newWsConn(connID string, ws *websocket.Conn, sendQueue int, unauthTTL time.Duration) *WsConn {
	if sendQueue <= 0 {
		sendQueue = 256
	}
	now := time.Now()
	c := &WsConn{
		ConnID:    connID,
		Conn:      ws,
		heartbeat: now,
		expireAt:  now.Add(unauthTTL),
		sendCh:    make(chan []byte, sendQueue),
		done:      make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send 非阻塞入队；队列打满视为死连接，关掉
func (c *WsConn) Send(f *Frame) {
	select {
	case <-c.done:
	case c.sendCh <- f.Encode():
	default:
		logger.Warnf("[conn] send queue full, closing conn=%s user=%s", c.ConnID, c.UserID)
		c.Close()
	}
}

func (c *WsConn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data, ok := <-c.sendCh:
			if !ok {
				return
			}
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[conn] write failed conn=%s err=%v", c.ConnID, err)
				c.Close()
				return
			}
		}
	}
}

// Close 幂等：发 Close 帧、关底层连接、停写泵
func (c *WsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.Conn.Close()
	})
}

func (c *WsConn) Done() <-chan struct{} { return c.done }

// Authorize 绑定用户身份并切到长 TTL
func (c *WsConn) Authorize(userID, nickname, avatarURL string, authTTL time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.UserID = userID
	c.Nickname = nickname
	c.AvatarURL = avatarURL
	c.authorized = true
	if authTTL > 0 {
		c.expireAt = time.Now().Add(authTTL)
	} else {
		c.expireAt = time.Time{} // 授权后默认不过期，靠心跳/读错误收口
	}
}

func (c *WsConn) Authorized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorized
}

func (c *WsConn) SetActiveScope(s model.Scope) {
	c.mu.Lock()
	c.activeScope = s
	c.mu.Unlock()
}

func (c *WsConn) ActiveScope() model.Scope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeScope
}

func (c *WsConn) Touch() {
	c.mu.Lock()
	c.heartbeat = time.Now()
	c.mu.Unlock()
}

// expired 只对未授权连接生效（授权后 expireAt 置零）
func (c *WsConn) expired(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.expireAt.IsZero() && now.After(c.expireAt)
}
