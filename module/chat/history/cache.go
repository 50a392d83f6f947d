package history

import (
	"context"
	"sync"
	"time"

	"MRChat/logger"
	"MRChat/module/chat/model"
	"MRChat/module/chat/store"
)

const DefaultWindow = 50

// Cache 每会话的"最近窗口"缓存（newest-first，上限 N 条），只加速热路径：
//   - 不带游标的最近历史直接出内存
//   - 带 olderThan 的翻页一律落到存储（它不是翻页缓存）
//
// 一致性：窗口内容永远是真实历史按 seq 的后缀截断；
// 读者可能短暂看不到刚落库的消息（最终一致），但绝不会看到库里没有的。
type Cache struct {
	mu     sync.RWMutex
	db     store.Store
	window int
	scopes map[model.Scope]*entry
}

type entry struct {
	msgs        []*model.MessageModel // newest-first
	lastUpdated int64                 // Unix ms，轮询端判断陈旧用
}

func NewCache(db store.Store, window int) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cache{
		db:     db,
		window: window,
		scopes: make(map[model.Scope]*entry),
	}
}

// Get 取历史。olderThan>0 时穿透存储；否则优先内存窗口，
// 空窗口就回源装载。存储故障降级为返回空列表，不向上抛。
func (c *Cache) Get(ctx context.Context, scope model.Scope, limit int, olderThan int64) ([]*model.MessageModel, int64) {
	if limit <= 0 || limit > c.window {
		limit = c.window
	}

	if olderThan > 0 {
		rows, err := c.db.ListOlderThan(ctx, scope, olderThan, limit)
		if err != nil {
			logger.Warnf("[history] page load failed scope=%s err=%v", scope, err)
			return nil, 0
		}
		return rows, 0
	}

	c.mu.RLock()
	e := c.scopes[scope]
	if e != nil && len(e.msgs) > 0 {
		out := copyHead(e.msgs, limit)
		last := e.lastUpdated
		c.mu.RUnlock()
		return out, last
	}
	c.mu.RUnlock()

	// 冷窗口：回源并装载
	rows, err := c.db.ListNewest(ctx, scope, c.window)
	if err != nil {
		logger.Warnf("[history] load failed scope=%s err=%v", scope, err)
		return nil, 0
	}

	now := time.Now().UnixMilli()
	c.mu.Lock()
	// 已被并发装载/推送的不覆盖，防止回退
	if cur := c.scopes[scope]; cur == nil || len(cur.msgs) == 0 {
		c.scopes[scope] = &entry{msgs: rows, lastUpdated: now}
	}
	e = c.scopes[scope]
	out := copyHead(e.msgs, limit)
	last := e.lastUpdated
	c.mu.Unlock()
	return out, last
}

// Push 新消息头插，截到窗口上限
func (c *Cache) Push(scope model.Scope, m *model.MessageModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.scopes[scope]
	if e == nil {
		e = &entry{}
		c.scopes[scope] = e
	}
	msgs := make([]*model.MessageModel, 0, len(e.msgs)+1)
	msgs = append(msgs, m)
	msgs = append(msgs, e.msgs...)
	if len(msgs) > c.window {
		msgs = msgs[:c.window]
	}
	e.msgs = msgs
	e.lastUpdated = time.Now().UnixMilli()
}

// Remove 按ID剔除；不回源补齐，窗口允许变短
func (c *Cache) Remove(scope model.Scope, serverMsgID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.scopes[scope]
	if e == nil {
		return
	}
	kept := e.msgs[:0]
	for _, m := range e.msgs {
		if m.ServerMsgID != serverMsgID {
			kept = append(kept, m)
		}
	}
	e.msgs = kept
	e.lastUpdated = time.Now().UnixMilli()
}

// InvalidateScope 全量重排后调用：清窗口，下次 Get 重新装载
func (c *Cache) InvalidateScope(scope model.Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scopes, scope)
}

// LastUpdated 轮询端的陈旧判断
func (c *Cache) LastUpdated(scope model.Scope) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e := c.scopes[scope]; e != nil {
		return e.lastUpdated
	}
	return 0
}

func copyHead(msgs []*model.MessageModel, limit int) []*model.MessageModel {
	if len(msgs) < limit {
		limit = len(msgs)
	}
	out := make([]*model.MessageModel, limit)
	copy(out, msgs[:limit])
	return out
}
