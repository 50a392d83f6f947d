package history

import (
	"context"
	"testing"

	"MRChat/module/chat/model"
	"MRChat/module/chat/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessages(t *testing.T, db *store.MemStore, scope model.Scope, n int) []*model.MessageModel {
	t.Helper()
	out := make([]*model.MessageModel, 0, n)
	for i := 1; i <= n; i++ {
		m := &model.MessageModel{
			ScopeID:     scope,
			SendID:      "u1",
			ContentType: model.ContentText,
			Content:     "m",
			Seq:         int64(i),
			CreateTime:  int64(i),
		}
		require.NoError(t, db.InsertMessage(context.Background(), m))
		out = append(out, m)
	}
	return out
}

func TestPushKeepsNewestFirstWindow(t *testing.T) {
	c := NewCache(store.NewMemStore(), 50)
	scope := model.GroupScope("g1")

	for i := 1; i <= 60; i++ {
		c.Push(scope, &model.MessageModel{ScopeID: scope, Seq: int64(i)})
	}

	msgs, last := c.Get(context.Background(), scope, 0, 0)
	require.Len(t, msgs, 50)
	assert.NotZero(t, last)
	assert.Equal(t, int64(60), msgs[0].Seq, "newest first")
	assert.Equal(t, int64(11), msgs[49].Seq, "oldest 10 fell out of the window")
}

func TestColdGetLoadsFromStore(t *testing.T) {
	db := store.NewMemStore()
	scope := model.PrivateScope("u1", "u2")
	seedMessages(t, db, scope, 10)

	c := NewCache(db, 50)
	msgs, last := c.Get(context.Background(), scope, 5, 0)
	require.Len(t, msgs, 5)
	assert.NotZero(t, last)
	assert.Equal(t, int64(10), msgs[0].Seq)
	assert.Equal(t, int64(6), msgs[4].Seq)
}

func TestCursorQueryBypassesWindow(t *testing.T) {
	db := store.NewMemStore()
	scope := model.GroupScope("g1")
	seedMessages(t, db, scope, 10)

	c := NewCache(db, 5) // 窗口只有最近5条
	msgs, _ := c.Get(context.Background(), scope, 3, 6)
	require.Len(t, msgs, 3)
	assert.Equal(t, int64(5), msgs[0].Seq)
	assert.Equal(t, int64(3), msgs[2].Seq)
}

func TestRemoveShrinksWindow(t *testing.T) {
	c := NewCache(store.NewMemStore(), 50)
	scope := model.GroupScope("g1")
	for i := 1; i <= 3; i++ {
		c.Push(scope, &model.MessageModel{ScopeID: scope, ServerMsgID: int64(i), Seq: int64(i)})
	}

	c.Remove(scope, 2)
	msgs, _ := c.Get(context.Background(), scope, 0, 0)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(3), msgs[0].ServerMsgID)
	assert.Equal(t, int64(1), msgs[1].ServerMsgID)
}

func TestInvalidateReloadsFromStore(t *testing.T) {
	db := store.NewMemStore()
	scope := model.GroupScope("g1")
	seedMessages(t, db, scope, 3)

	c := NewCache(db, 50)
	c.Push(scope, &model.MessageModel{ScopeID: scope, ServerMsgID: 999, Seq: 99})

	c.InvalidateScope(scope)
	assert.Zero(t, c.LastUpdated(scope))

	msgs, _ := c.Get(context.Background(), scope, 0, 0)
	require.Len(t, msgs, 3, "reloaded from store, pushed-only row is gone")
	assert.Equal(t, int64(3), msgs[0].Seq)
}

func TestStoreFailureDegradesToEmpty(t *testing.T) {
	c := NewCache(failingStore{}, 50)
	msgs, last := c.Get(context.Background(), model.GroupScope("g1"), 0, 0)
	assert.Empty(t, msgs)
	assert.Zero(t, last)
}

// failingStore 只用到列表方法，其余走嵌入的 nil 接口（不会被碰）
type failingStore struct {
	store.Store
}

func (failingStore) ListNewest(context.Context, model.Scope, int) ([]*model.MessageModel, error) {
	return nil, assert.AnError
}

func (failingStore) ListOlderThan(context.Context, model.Scope, int64, int) ([]*model.MessageModel, error) {
	return nil, assert.AnError
}
