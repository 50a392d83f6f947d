package chat

import (
	"sync"
	"time"

	"MRChat/logger"
	"MRChat/tools/safe"
)

// PresenceInfo 在线名单里的一项
type PresenceInfo struct {
	ConnID    string `json:"conn_id"`
	UserID    string `json:"user_id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Registry 在线连接注册表。
// 约定：同一 user 重复 Join 不会挤掉旧连接——驱逐是 SessionAuthority
// 的软踢职责，这里只做索引。多端在本层并存，单活语义在会话层收口。
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*WsConn // user -> conn_id -> conn
	byConn map[string]*WsConn            // conn_id -> conn
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]*WsConn),
		byConn: make(map[string]*WsConn),
	}
}

// Join 授权完成后登记；每 conn_id 至多一项
func (r *Registry) Join(c *WsConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byUser[c.UserID]
	if m == nil {
		m = make(map[string]*WsConn)
		r.byUser[c.UserID] = m
	}
	m[c.ConnID] = c
	r.byConn[c.ConnID] = c
}

// Leave 断开时摘除；返回被摘的连接（可能为 nil）
func (r *Registry) Leave(connID string) *WsConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.byConn[connID]
	if c == nil {
		return nil
	}
	delete(r.byConn, connID)
	if m := r.byUser[c.UserID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	return c
}

// FindByUser 该用户的全部在线连接
func (r *Registry) FindByUser(userID string) []*WsConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*WsConn, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func (r *Registry) GetByConnID(connID string) *WsConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

// AllConns 全量连接（全局广播用）
func (r *Registry) AllConns() []*WsConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*WsConn, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}

// All 在线名单
func (r *Registry) All() []PresenceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PresenceInfo, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, PresenceInfo{
			ConnID:    c.ConnID,
			UserID:    c.UserID,
			Nickname:  c.Nickname,
			AvatarURL: c.AvatarURL,
		})
	}
	return out
}

// ===== 未授权连接的看门 =====

// Sweeper 周期清理过期的未授权连接。授权连接不在清理范围，
// 它们由读循环的错误路径收口。
type Sweeper struct {
	pending  sync.Map // conn_id -> *WsConn，还没走完 auth 的连接
	every    time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewSweeper(every time.Duration) *Sweeper {
	if every <= 0 {
		every = 10 * time.Second
	}
	s := &Sweeper{every: every, stopCh: make(chan struct{})}
	safe.Go("conn-sweeper", s.loop)
	return s
}

func (s *Sweeper) Watch(c *WsConn)       { s.pending.Store(c.ConnID, c) }
func (s *Sweeper) Unwatch(connID string) { s.pending.Delete(connID) }
func (s *Sweeper) Stop()                 { s.stopOnce.Do(func() { close(s.stopCh) }) }

func (s *Sweeper) loop() {
	t := time.NewTicker(s.every)
	defer t.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case now := <-t.C:
			s.pending.Range(func(k, v any) bool {
				c := v.(*WsConn)
				if c.Authorized() {
					s.pending.Delete(k)
					return true
				}
				if c.expired(now) {
					logger.Infof("[sweeper] evict unauth conn=%s", c.ConnID)
					c.Close()
					s.pending.Delete(k)
				}
				return true
			})
		}
	}
}
