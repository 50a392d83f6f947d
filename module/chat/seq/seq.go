package seq

import (
	"context"
	"sync"
	"time"

	"MRChat/logger"
	"MRChat/module/chat/model"
	"MRChat/module/chat/store"
	"MRChat/tools/ids"
)

// Allocator 会话内发号器：乐观分配 + 事后修复。
//
// 发送路径不加全局锁：读 max(seq) → 提案 max+1 → 落库 → 复查重复。
// 两个并发写同一会话可能拿到同一提案，靠 repair 把后到的那行重新编号，
// 用一个小而有界的重复窗口换掉每次发送的会话级互斥。
//
// 锁的约定：发送持有会话读锁（发送之间仍然并发、可碰撞），
// 全量重排持有写锁（绝不和同会话的发送交错）。
type Allocator struct {
	db       store.Store
	locks    scopeLocks
	MaxFix   int // 单次提交里重复修复的最大轮数
	fallback func() int64
}

func NewAllocator(db store.Store) *Allocator {
	return &Allocator{db: db, MaxFix: 3}
}

// Commit 给消息编号并落库；返回时 m.Seq 与 m.ServerMsgID 均已就绪。
// seq 永不为 0 或负数：降级梯子最后一档用落库ID兜底。
func (a *Allocator) Commit(ctx context.Context, m *model.MessageModel) error {
	l := a.locks.get(m.ScopeID)
	l.RLock()
	defer l.RUnlock()

	if m.ServerMsgID == 0 {
		m.ServerMsgID = ids.Generate()
	}
	if m.CreateTime == 0 {
		m.CreateTime = time.Now().UnixMilli()
	}

	m.Seq = a.propose(ctx, m)
	if err := a.db.InsertMessage(ctx, m); err != nil {
		return err
	}

	// 复查重复：撞了就排除自己重新取 max，只动自己这一行
	for i := 0; i < a.MaxFix; i++ {
		dup, err := a.db.FindDuplicateSeq(ctx, m.ScopeID, m.Seq, m.ServerMsgID)
		if err != nil {
			logger.Warnf("[seq] dup check failed scope=%s seq=%d err=%v", m.ScopeID, m.Seq, err)
			break
		}
		if !dup {
			break
		}
		max, err := a.db.MaxSeqExcluding(ctx, m.ScopeID, m.ServerMsgID)
		if err != nil {
			logger.Warnf("[seq] repair max failed scope=%s err=%v", m.ScopeID, err)
			break
		}
		newSeq := max + 1
		if err := a.db.UpdateSeq(ctx, m.ServerMsgID, newSeq); err != nil {
			logger.Warnf("[seq] repair update failed scope=%s err=%v", m.ScopeID, err)
			break
		}
		m.Seq = newSeq
	}
	return nil
}

// propose 降级梯子：max+1 → 截至当前的行数+1 → 落库ID。
func (a *Allocator) propose(ctx context.Context, m *model.MessageModel) int64 {
	if max, err := a.db.MaxSeq(ctx, m.ScopeID); err == nil {
		return max + 1
	} else {
		logger.Warnf("[seq] max unavailable scope=%s err=%v", m.ScopeID, err)
	}
	if n, err := a.db.CountAtOrBefore(ctx, m.ScopeID, m.CreateTime); err == nil {
		return n + 1
	} else {
		logger.Warnf("[seq] count unavailable scope=%s err=%v", m.ScopeID, err)
	}
	return m.ServerMsgID
}

// Resequence 全量重排：删除出洞后按 create_time 升序重新编 1..N。
// 持写锁，和同会话的发送互斥（避免重排中途插进新号）。
// 返回被改动的行数。
func (a *Allocator) Resequence(ctx context.Context, scope model.Scope) (int, error) {
	l := a.locks.get(scope)
	l.Lock()
	defer l.Unlock()

	rows, err := a.db.ListByCreateAsc(ctx, scope)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i, row := range rows {
		want := int64(i + 1)
		if row.Seq == want {
			continue
		}
		if err := a.db.UpdateSeq(ctx, row.ServerMsgID, want); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// ===== 每会话一把读写锁 =====

type scopeLocks struct {
	mu sync.Mutex
	m  map[model.Scope]*sync.RWMutex
}

func (s *scopeLocks) get(scope model.Scope) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[model.Scope]*sync.RWMutex)
	}
	l := s.m[scope]
	if l == nil {
		l = &sync.RWMutex{}
		s.m[scope] = l
	}
	return l
}
