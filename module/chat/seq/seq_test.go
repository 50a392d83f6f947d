package seq

import (
	"context"
	"sync"
	"testing"

	"MRChat/module/chat/model"
	"MRChat/module/chat/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitText(t *testing.T, a *Allocator, scope model.Scope, sender, text string) *model.MessageModel {
	t.Helper()
	m := &model.MessageModel{
		ScopeID:     scope,
		SendID:      sender,
		ContentType: model.ContentText,
		Content:     text,
	}
	require.NoError(t, a.Commit(context.Background(), m))
	return m
}

func TestCommitAssignsContiguousSeq(t *testing.T) {
	db := store.NewMemStore()
	a := NewAllocator(db)
	scope := model.GroupScope("g1")

	for i := 1; i <= 10; i++ {
		m := commitText(t, a, scope, "u1", "hello")
		assert.Equal(t, int64(i), m.Seq)
		assert.NotZero(t, m.ServerMsgID)
	}
}

func TestScopesAreIsolated(t *testing.T) {
	db := store.NewMemStore()
	a := NewAllocator(db)

	m1 := commitText(t, a, model.GroupScope("g1"), "u1", "a")
	m2 := commitText(t, a, model.PrivateScope("u1", "u2"), "u1", "b")
	m3 := commitText(t, a, model.ScopeGlobal, "u1", "c")

	assert.Equal(t, int64(1), m1.Seq)
	assert.Equal(t, int64(1), m2.Seq)
	assert.Equal(t, int64(1), m3.Seq)
}

// staleMaxStore 第一次 MaxSeq 故意返回旧值，制造并发撞号的现场
type staleMaxStore struct {
	store.Store
	mu    sync.Mutex
	stale bool
}

func (s *staleMaxStore) MaxSeq(ctx context.Context, scope model.Scope) (int64, error) {
	s.mu.Lock()
	wasStale := s.stale
	s.stale = false
	s.mu.Unlock()
	if wasStale {
		return 0, nil
	}
	return s.Store.MaxSeq(ctx, scope)
}

func TestDuplicateSeqRepairedAfterInsert(t *testing.T) {
	mem := store.NewMemStore()
	scope := model.GroupScope("g1")

	first := commitText(t, NewAllocator(mem), scope, "u1", "first")
	require.Equal(t, int64(1), first.Seq)

	// 第二条拿到过期的 max=0，提案又是 1：落库后应自我修复成 2
	a := NewAllocator(&staleMaxStore{Store: mem, stale: true})
	second := &model.MessageModel{
		ScopeID:     scope,
		SendID:      "u2",
		ServerMsgID: first.ServerMsgID + 1,
		ContentType: model.ContentText,
		Content:     "second",
	}
	require.NoError(t, a.Commit(context.Background(), second))

	assert.Equal(t, int64(2), second.Seq)
	got, err := mem.GetMessage(context.Background(), first.ServerMsgID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Seq, "earlier row must keep its seq")
}

func TestConcurrentCommitsResequenceToGapFree(t *testing.T) {
	db := store.NewMemStore()
	a := NewAllocator(db)
	scope := model.GroupScope("g1")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := &model.MessageModel{
				ScopeID:     scope,
				SendID:      "u1",
				ContentType: model.ContentText,
				Content:     "x",
			}
			assert.NoError(t, a.Commit(context.Background(), m))
			assert.GreaterOrEqual(t, m.Seq, int64(1))
		}()
	}
	wg.Wait()

	_, err := a.Resequence(context.Background(), scope)
	require.NoError(t, err)

	rows, err := db.ListByCreateAsc(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, rows, n)
	for i, row := range rows {
		assert.Equal(t, int64(i+1), row.Seq)
	}
}

func TestResequenceClosesDeletionGap(t *testing.T) {
	db := store.NewMemStore()
	a := NewAllocator(db)
	scope := model.PrivateScope("u1", "u2")

	var msgs []*model.MessageModel
	for i := 0; i < 5; i++ {
		msgs = append(msgs, commitText(t, a, scope, "u1", "m"))
	}

	_, err := db.DeleteMessage(context.Background(), msgs[2].ServerMsgID)
	require.NoError(t, err)

	changed, err := a.Resequence(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 2, changed, "rows after the hole get renumbered")

	rows, err := db.ListByCreateAsc(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for i, row := range rows {
		assert.Equal(t, int64(i+1), row.Seq)
	}
}
