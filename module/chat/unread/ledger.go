package unread

import (
	"context"
	"sync"

	"MRChat/logger"
	"MRChat/module/chat/model"
	"MRChat/module/chat/store"
)

// Ledger 用户×会话的未读计数。内存为准、存储兜底：
// 计数更新同步写内存、尽力写库（失败只记日志，不算安全关键），
// 内存缺项时从库读穿恢复（重连/重启场景）。
//
// clear 是 last-writer-wins：清零意味着"用户正在看"，
// 和并发的 increment 怎么交错都可接受。
// 全局大厅不计未读。
type Ledger struct {
	mu     sync.RWMutex
	db     store.Store
	counts map[string]map[model.Scope]int64 // user -> scope -> n
	loaded map[string]map[model.Scope]bool  // 哪些 (user,scope) 已经以内存为准
}

func NewLedger(db store.Store) *Ledger {
	return &Ledger{
		db:     db,
		counts: make(map[string]map[model.Scope]int64),
		loaded: make(map[string]map[model.Scope]bool),
	}
}

func (l *Ledger) Increment(ctx context.Context, userID string, scope model.Scope) {
	if scope.IsGlobal() {
		return
	}
	l.mu.Lock()
	l.ensureLoadedLocked(ctx, userID, scope)
	l.counts[userID][scope]++
	l.mu.Unlock()

	if err := l.db.IncrUnread(ctx, userID, scope, 1); err != nil {
		logger.Warnf("[unread] persist incr failed user=%s scope=%s err=%v", userID, scope, err)
	}
}

func (l *Ledger) Clear(ctx context.Context, userID string, scope model.Scope) {
	if scope.IsGlobal() {
		return
	}
	l.mu.Lock()
	l.ensureLoadedLocked(ctx, userID, scope)
	l.counts[userID][scope] = 0
	l.mu.Unlock()

	if err := l.db.ClearUnread(ctx, userID, scope); err != nil {
		logger.Warnf("[unread] persist clear failed user=%s scope=%s err=%v", userID, scope, err)
	}
}

func (l *Ledger) Get(ctx context.Context, userID string, scope model.Scope) int64 {
	if scope.IsGlobal() {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLoadedLocked(ctx, userID, scope)
	return l.counts[userID][scope]
}

// TotalFor 跨会话求和。库是权威（每次更新都同步写过去了），
// 库不可用时退回内存里已加载的部分。
func (l *Ledger) TotalFor(ctx context.Context, userID string) int64 {
	total, err := l.db.SumUnread(ctx, userID)
	if err == nil {
		return total
	}
	logger.Warnf("[unread] sum failed user=%s err=%v", userID, err)

	l.mu.RLock()
	defer l.mu.RUnlock()
	var memTotal int64
	for _, n := range l.counts[userID] {
		memTotal += n
	}
	return memTotal
}

// ensureLoadedLocked 读穿：该 (user,scope) 第一次被摸到时从库恢复
func (l *Ledger) ensureLoadedLocked(ctx context.Context, userID string, scope model.Scope) {
	if l.counts[userID] == nil {
		l.counts[userID] = make(map[model.Scope]int64)
		l.loaded[userID] = make(map[model.Scope]bool)
	}
	if l.loaded[userID][scope] {
		return
	}
	n, err := l.db.GetUnread(ctx, userID, scope)
	if err != nil {
		logger.Warnf("[unread] load failed user=%s scope=%s err=%v", userID, scope, err)
		n = 0
	}
	l.counts[userID][scope] = n
	l.loaded[userID][scope] = true
}
