package chat

import (
	"context"
	"testing"

	"MRChat/global"
	"MRChat/module/chat/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = global.SessionPolicy{Mode: "never_expire"}

func TestLoginThenValidate(t *testing.T) {
	db := store.NewMemStore()
	a := NewSessionAuthority(db, NewRegistry(), []byte("secret"), testPolicy)
	ctx := context.Background()

	token, err := a.Login(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, a.Validate(ctx, "u1", token))
	assert.Error(t, a.Validate(ctx, "u1", token+"x"), "tampered token")
	assert.Error(t, a.Validate(ctx, "u2", token), "token belongs to another user")
}

func TestReloginReplacesSessionAndKicks(t *testing.T) {
	db := store.NewMemStore()
	reg := NewRegistry()
	a := NewSessionAuthority(db, reg, []byte("secret"), testPolicy)
	ctx := context.Background()

	t1, err := a.Login(ctx, "u1")
	require.NoError(t, err)

	old := newTestConn("c1", "u1")
	reg.Join(old)

	t2, err := a.Login(ctx, "u1")
	require.NoError(t, err)

	// 旧令牌作废，新令牌生效
	assert.Error(t, a.Validate(ctx, "u1", t1))
	assert.NoError(t, a.Validate(ctx, "u1", t2))

	// 旧连接收到软踢，但没有被服务端强行关掉
	f := recvFrame(t, old)
	assert.Equal(t, FrameKicked, f.Type)
	select {
	case <-old.Done():
		t.Fatal("soft kick must not close the connection")
	default:
	}
}

func TestValidateRestoresFromStore(t *testing.T) {
	db := store.NewMemStore()
	ctx := context.Background()

	token, err := NewSessionAuthority(db, NewRegistry(), []byte("secret"), testPolicy).Login(ctx, "u1")
	require.NoError(t, err)

	// 新实例（进程重启）：内存为空，会话从库里回填
	fresh := NewSessionAuthority(db, NewRegistry(), []byte("secret"), testPolicy)
	assert.NoError(t, fresh.Validate(ctx, "u1", token))
}

func TestValidateWithoutSession(t *testing.T) {
	a := NewSessionAuthority(store.NewMemStore(), NewRegistry(), []byte("secret"), testPolicy)
	assert.Error(t, a.Validate(context.Background(), "ghost", "whatever"))
}

func TestValidateTokenResolvesUser(t *testing.T) {
	db := store.NewMemStore()
	a := NewSessionAuthority(db, NewRegistry(), []byte("secret"), testPolicy)
	ctx := context.Background()

	token, err := a.Login(ctx, "u1")
	require.NoError(t, err)

	uid, err := a.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = a.ValidateToken(ctx, "not-a-jwt")
	assert.Error(t, err)
}
