package unread

import (
	"context"
	"testing"

	"MRChat/module/chat/model"
	"MRChat/module/chat/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementAndClear(t *testing.T) {
	l := NewLedger(store.NewMemStore())
	ctx := context.Background()
	scope := model.GroupScope("g1")

	l.Increment(ctx, "u1", scope)
	l.Increment(ctx, "u1", scope)
	assert.Equal(t, int64(2), l.Get(ctx, "u1", scope))

	l.Clear(ctx, "u1", scope)
	assert.Zero(t, l.Get(ctx, "u1", scope))

	// 重复清零幂等
	l.Clear(ctx, "u1", scope)
	assert.Zero(t, l.Get(ctx, "u1", scope))
}

func TestGlobalScopeNeverCounts(t *testing.T) {
	l := NewLedger(store.NewMemStore())
	ctx := context.Background()

	l.Increment(ctx, "u1", model.ScopeGlobal)
	assert.Zero(t, l.Get(ctx, "u1", model.ScopeGlobal))
	assert.Zero(t, l.TotalFor(ctx, "u1"))
}

func TestTotalSumsAcrossScopes(t *testing.T) {
	l := NewLedger(store.NewMemStore())
	ctx := context.Background()

	l.Increment(ctx, "u1", model.GroupScope("g1"))
	l.Increment(ctx, "u1", model.GroupScope("g1"))
	l.Increment(ctx, "u1", model.PrivateScope("u1", "u2"))
	l.Increment(ctx, "u2", model.GroupScope("g1")) // 别人的不算

	assert.Equal(t, int64(3), l.TotalFor(ctx, "u1"))
}

func TestReadThroughRestoresPersistedCounts(t *testing.T) {
	db := store.NewMemStore()
	ctx := context.Background()
	scope := model.PrivateScope("u1", "u2")
	require.NoError(t, db.IncrUnread(ctx, "u1", scope, 4))

	// 新账本（进程重启）从库里恢复
	l := NewLedger(db)
	assert.Equal(t, int64(4), l.Get(ctx, "u1", scope))

	l.Increment(ctx, "u1", scope)
	assert.Equal(t, int64(5), l.Get(ctx, "u1", scope))
}

func TestClearPersists(t *testing.T) {
	db := store.NewMemStore()
	ctx := context.Background()
	scope := model.GroupScope("g1")

	l := NewLedger(db)
	l.Increment(ctx, "u1", scope)
	l.Clear(ctx, "u1", scope)

	n, err := db.GetUnread(ctx, "u1", scope)
	require.NoError(t, err)
	assert.Zero(t, n)
}
