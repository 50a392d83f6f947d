package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"MRChat/module/chat/model"
	"MRChat/tools/ids"
)

// MemStore 内存实现：单测/本地跑不起 Mongo 时用，语义对齐 MongoStore。
type MemStore struct {
	mu       sync.RWMutex
	msgs     map[int64]*model.MessageModel // server_msg_id -> msg
	sessions map[string]*model.UserSession
	unread   map[string]map[model.Scope]int64 // user -> scope -> n
	groups   map[string][]string              // group -> members
	users    map[string]*model.UserCredential // username -> cred
}

func NewMemStore() *MemStore {
	return &MemStore{
		msgs:     make(map[int64]*model.MessageModel),
		sessions: make(map[string]*model.UserSession),
		unread:   make(map[string]map[model.Scope]int64),
		groups:   make(map[string][]string),
		users:    make(map[string]*model.UserCredential),
	}
}

// SetGroup 测试装配用
func (s *MemStore) SetGroup(groupID string, members ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[groupID] = members
}

// SetUser 测试装配用
func (s *MemStore) SetUser(u *model.UserCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

// ===== 消息 =====

func (s *MemStore) InsertMessage(_ context.Context, m *model.MessageModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ServerMsgID == 0 {
		m.ServerMsgID = ids.Generate()
	}
	if m.CreateTime == 0 {
		m.CreateTime = time.Now().UnixMilli()
	}
	cp := *m
	s.msgs[m.ServerMsgID] = &cp
	return nil
}

func (s *MemStore) GetMessage(_ context.Context, serverMsgID int64) (*model.MessageModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.msgs[serverMsgID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemStore) DeleteMessage(_ context.Context, serverMsgID int64) (*model.MessageModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[serverMsgID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.msgs, serverMsgID)
	cp := *m
	return &cp, nil
}

func (s *MemStore) MaxSeq(_ context.Context, scope model.Scope) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, m := range s.msgs {
		if m.ScopeID == scope && m.Seq > max {
			max = m.Seq
		}
	}
	return max, nil
}

func (s *MemStore) MaxSeqExcluding(_ context.Context, scope model.Scope, excludeID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, m := range s.msgs {
		if m.ScopeID == scope && m.ServerMsgID != excludeID && m.Seq > max {
			max = m.Seq
		}
	}
	return max, nil
}

func (s *MemStore) CountAtOrBefore(_ context.Context, scope model.Scope, ts int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.msgs {
		if m.ScopeID == scope && m.CreateTime <= ts {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) FindDuplicateSeq(_ context.Context, scope model.Scope, seq int64, beforeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.msgs {
		if m.ScopeID == scope && m.Seq == seq && m.ServerMsgID < beforeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) UpdateSeq(_ context.Context, serverMsgID int64, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[serverMsgID]
	if !ok {
		return ErrNotFound
	}
	m.Seq = seq
	return nil
}

func (s *MemStore) ListNewest(_ context.Context, scope model.Scope, limit int) ([]*model.MessageModel, error) {
	return s.listDesc(scope, func(m *model.MessageModel) bool { return true }, limit), nil
}

func (s *MemStore) ListOlderThan(_ context.Context, scope model.Scope, olderThan int64, limit int) ([]*model.MessageModel, error) {
	return s.listDesc(scope, func(m *model.MessageModel) bool { return m.Seq < olderThan }, limit), nil
}

func (s *MemStore) listDesc(scope model.Scope, keep func(*model.MessageModel) bool, limit int) []*model.MessageModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.MessageModel
	for _, m := range s.msgs {
		if m.ScopeID == scope && keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemStore) ListByCreateAsc(_ context.Context, scope model.Scope) ([]*model.MessageModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.MessageModel
	for _, m := range s.msgs {
		if m.ScopeID == scope {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreateTime != out[j].CreateTime {
			return out[i].CreateTime < out[j].CreateTime
		}
		// create_time 同毫秒时用落库ID稳定排序
		return out[i].ServerMsgID < out[j].ServerMsgID
	})
	return out, nil
}

// ===== 会话 =====

func (s *MemStore) UpsertSession(_ context.Context, sess *model.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.UserID] = &cp
	return nil
}

func (s *MemStore) GetSession(_ context.Context, userID string) (*model.UserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.sessions[userID]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemStore) TouchSession(_ context.Context, userID string, nowMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.sessions[userID]; ok && nowMS > v.LastActive {
		v.LastActive = nowMS
	}
	return nil
}

// ===== 未读 =====

func (s *MemStore) IncrUnread(_ context.Context, userID string, scope model.Scope, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.unread[userID]
	if m == nil {
		m = make(map[model.Scope]int64)
		s.unread[userID] = m
	}
	m[scope] += delta
	if m[scope] < 0 {
		m[scope] = 0
	}
	return nil
}

func (s *MemStore) ClearUnread(_ context.Context, userID string, scope model.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.unread[userID]; m != nil {
		m[scope] = 0
	}
	return nil
}

func (s *MemStore) GetUnread(_ context.Context, userID string, scope model.Scope) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m := s.unread[userID]; m != nil {
		return m[scope], nil
	}
	return 0, nil
}

func (s *MemStore) SumUnread(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, n := range s.unread[userID] {
		total += n
	}
	return total, nil
}

// ===== 协作方 =====

func (s *MemStore) GroupMembers(_ context.Context, groupID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.groups[groupID]
	out := make([]string, len(members))
	copy(out, members)
	return out, nil
}

func (s *MemStore) FindUserByUsername(_ context.Context, username string) (*model.UserCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemStore) GetUsers(_ context.Context, userIDs []string) ([]*model.UserCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		want[id] = struct{}{}
	}
	var out []*model.UserCredential
	for _, u := range s.users {
		if _, ok := want[u.UserID]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}
