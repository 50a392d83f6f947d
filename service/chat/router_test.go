package chat

import (
	"context"
	"testing"

	"MRChat/module/chat/history"
	"MRChat/module/chat/model"
	"MRChat/module/chat/store"
	"MRChat/module/chat/unread"
	"MRChat/service/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerFixture struct {
	db     *store.MemStore
	reg    *Registry
	cache  *history.Cache
	ledger *unread.Ledger
	router *DeliveryRouter
}

func newRouterFixture() *routerFixture {
	db := store.NewMemStore()
	reg := NewRegistry()
	cache := history.NewCache(db, 50)
	ledger := unread.NewLedger(db)
	return &routerFixture{
		db:     db,
		reg:    reg,
		cache:  cache,
		ledger: ledger,
		router: NewDeliveryRouter(db, reg, cache, ledger, storage.NewActivityStore(nil), nil),
	}
}

func testMsg(scope model.Scope, sender string, id int64) *model.MessageModel {
	return &model.MessageModel{
		ServerMsgID: id,
		ScopeID:     scope,
		SendID:      sender,
		ContentType: model.ContentText,
		Content:     "hi",
		Seq:         1,
		CreateTime:  1000,
	}
}

func TestGlobalFanoutHitsEveryConn(t *testing.T) {
	fx := newRouterFixture()
	sender := newTestConn("c1", "u1")
	other := newTestConn("c2", "u2")
	fx.reg.Join(sender)
	fx.reg.Join(other)

	fx.router.Publish(context.Background(), testMsg(model.ScopeGlobal, "u1", 1))

	// 大厅广播给所有端，包括发送者自己
	assert.Equal(t, FrameDelivered, recvFrame(t, sender).Type)
	assert.Equal(t, FrameDelivered, recvFrame(t, other).Type)
	assert.Zero(t, fx.ledger.Get(context.Background(), "u2", model.ScopeGlobal))
}

func TestGroupFanoutUnreadRules(t *testing.T) {
	fx := newRouterFixture()
	scope := model.GroupScope("g1")
	fx.db.SetGroup("g1", "u1", "u2", "u3")

	sender := newTestConn("c1", "u1")
	viewer := newTestConn("c2", "u2")
	viewer.SetActiveScope(scope)
	fx.reg.Join(sender)
	fx.reg.Join(viewer)
	// u3 不在线

	fx.router.Publish(context.Background(), testMsg(scope, "u1", 1))
	ctx := context.Background()

	assert.Equal(t, FrameDelivered, recvFrame(t, viewer).Type)
	assert.Nil(t, tryRecvFrame(t, sender), "sender gets sent-ack elsewhere, not delivered")

	assert.Zero(t, fx.ledger.Get(ctx, "u2", scope), "viewing the scope means read")
	assert.Equal(t, int64(1), fx.ledger.Get(ctx, "u3", scope), "offline member accrues unread")
	assert.Zero(t, fx.ledger.Get(ctx, "u1", scope), "sender never accrues")

	msgs, _ := fx.cache.Get(ctx, scope, 10, 0)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(1), msgs[0].ServerMsgID)
}

func TestGroupFanoutOnlineButElsewhere(t *testing.T) {
	fx := newRouterFixture()
	scope := model.GroupScope("g1")
	fx.db.SetGroup("g1", "u1", "u2")

	other := newTestConn("c2", "u2")
	other.SetActiveScope(model.ScopeGlobal) // 在线但在看别的会话
	fx.reg.Join(other)

	fx.router.Publish(context.Background(), testMsg(scope, "u1", 1))

	assert.Equal(t, FrameDelivered, recvFrame(t, other).Type)
	assert.Equal(t, int64(1), fx.ledger.Get(context.Background(), "u2", scope))
}

func TestPrivateFanout(t *testing.T) {
	fx := newRouterFixture()
	scope := model.PrivateScope("u1", "u2")

	sender := newTestConn("c1", "u1")
	fx.reg.Join(sender)
	// 对端离线

	fx.router.Publish(context.Background(), testMsg(scope, "u1", 1))

	assert.Nil(t, tryRecvFrame(t, sender))
	assert.Equal(t, int64(1), fx.ledger.Get(context.Background(), "u2", scope))
}

func TestMultiDeviceGetsOneFrameEach(t *testing.T) {
	fx := newRouterFixture()
	scope := model.PrivateScope("u1", "u2")

	d1 := newTestConn("c1", "u2")
	d2 := newTestConn("c2", "u2")
	fx.reg.Join(d1)
	fx.reg.Join(d2)

	fx.router.Publish(context.Background(), testMsg(scope, "u1", 1))

	assert.Len(t, drainFrames(t, d1), 1)
	assert.Len(t, drainFrames(t, d2), 1)
}

func TestPublishDeleted(t *testing.T) {
	fx := newRouterFixture()
	scope := model.GroupScope("g1")
	fx.db.SetGroup("g1", "u1", "u2")

	c := newTestConn("c1", "u2")
	fx.reg.Join(c)
	fx.cache.Push(scope, testMsg(scope, "u1", 7))

	fx.router.PublishDeleted(context.Background(), scope, 7)

	f := recvFrame(t, c)
	assert.Equal(t, FrameDeleted, f.Type)
	msgs, _ := fx.cache.Get(context.Background(), scope, 10, 0)
	assert.Empty(t, msgs)
}

func TestBroadcastPresence(t *testing.T) {
	fx := newRouterFixture()
	c1 := newTestConn("c1", "u1")
	c2 := newTestConn("c2", "u2")
	fx.reg.Join(c1)
	fx.reg.Join(c2)

	fx.router.BroadcastPresence()

	for _, c := range []*WsConn{c1, c2} {
		f := recvFrame(t, c)
		require.Equal(t, FramePresence, f.Type)
	}
}
