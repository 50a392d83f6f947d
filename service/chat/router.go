package chat

import (
	"context"
	"time"

	"MRChat/logger"
	"MRChat/module/chat/history"
	"MRChat/module/chat/model"
	"MRChat/module/chat/unread"
	"MRChat/service/natsx"
	"MRChat/service/storage"
)

// DeliveryRouter 消息编号落库之后的扇出：
// 进缓存窗口、按会话类型找在线连接、记未读、刷活跃度、发投递事件。
// 每个 conn_id 至多投一次（at-most-once，掉线补齐靠历史拉取）。
type DeliveryRouter struct {
	db       sessionReader
	reg      *Registry
	cache    *history.Cache
	ledger   *unread.Ledger
	activity *storage.ActivityStore
	feed     *natsx.Feed
}

// sessionReader 路由只需要存储的只读切面
type sessionReader interface {
	GroupMembers(ctx context.Context, groupID string) ([]string, error)
}

func NewDeliveryRouter(db sessionReader, reg *Registry, cache *history.Cache,
	ledger *unread.Ledger, activity *storage.ActivityStore, feed *natsx.Feed) *DeliveryRouter {
	return &DeliveryRouter{db: db, reg: reg, cache: cache, ledger: ledger, activity: activity, feed: feed}
}

// Publish 扇出一条已落库的消息。
// 全局大厅投给所有在线连接（含发送者的其他端），不计未读；
// 群/单聊投给除发送者外的目标用户连接，不在看这个会话的目标用户记未读。
func (r *DeliveryRouter) Publish(ctx context.Context, m *model.MessageModel) {
	r.cache.Push(m.ScopeID, m)

	frame := BuildDelivered(m)
	sent := make(map[string]bool) // conn_id 去重

	switch {
	case m.ScopeID.IsGlobal():
		for _, c := range r.reg.AllConns() {
			if sent[c.ConnID] {
				continue
			}
			sent[c.ConnID] = true
			c.Send(frame)
		}
		r.feed.Publish(m, nil)
		return

	case m.ScopeID.IsGroup():
		members, err := r.db.GroupMembers(ctx, m.ScopeID.GroupID())
		if err != nil {
			logger.Warnf("[router] group members failed scope=%s err=%v", m.ScopeID, err)
			return
		}
		offline := r.fanout(ctx, m, members, sent, frame)
		r.activity.TouchActivity(ctx, m.ScopeID, members, m.CreateTime)
		r.feed.Publish(m, offline)

	default: // p2p
		a, b := m.ScopeID.PrivateUsers()
		users := []string{a, b}
		offline := r.fanout(ctx, m, users, sent, frame)
		r.activity.TouchActivity(ctx, m.ScopeID, users, m.CreateTime)
		r.feed.Publish(m, offline)
	}
}

// fanout 对目标用户逐个投递并记未读；返回本次没投到任何端的用户
func (r *DeliveryRouter) fanout(ctx context.Context, m *model.MessageModel,
	users []string, sent map[string]bool, frame *Frame) (offline []string) {
	for _, u := range users {
		if u == m.SendID {
			continue
		}
		conns := r.reg.FindByUser(u)
		viewing := false
		for _, c := range conns {
			if c.ActiveScope() == m.ScopeID {
				viewing = true
			}
			if sent[c.ConnID] {
				continue
			}
			sent[c.ConnID] = true
			c.Send(frame)
		}
		if len(conns) == 0 {
			offline = append(offline, u)
		}
		// 有端正看着这个会话就不计未读（等同即时已读）
		if !viewing {
			r.ledger.Increment(ctx, u, m.ScopeID)
		}
	}
	return offline
}

// PublishDeleted 删除广播：先剔缓存，再通知会话受众
func (r *DeliveryRouter) PublishDeleted(ctx context.Context, scope model.Scope, serverMsgID int64) {
	r.cache.Remove(scope, serverMsgID)

	frame := BuildDeleted(scope, serverMsgID)
	for _, c := range r.audience(ctx, scope) {
		c.Send(frame)
	}
}

// BroadcastPresence 在线名单变化时全量推送
func (r *DeliveryRouter) BroadcastPresence() {
	frame := BuildPresence(r.reg.All())
	for _, c := range r.reg.AllConns() {
		c.Send(frame)
	}
}

// audience 会话的全部在线连接（含发送者，删除/系统事件用）
func (r *DeliveryRouter) audience(ctx context.Context, scope model.Scope) []*WsConn {
	switch {
	case scope.IsGlobal():
		return r.reg.AllConns()
	case scope.IsGroup():
		members, err := r.db.GroupMembers(ctx, scope.GroupID())
		if err != nil {
			logger.Warnf("[router] group members failed scope=%s err=%v", scope, err)
			return nil
		}
		var out []*WsConn
		seen := make(map[string]bool)
		for _, u := range members {
			for _, c := range r.reg.FindByUser(u) {
				if !seen[c.ConnID] {
					seen[c.ConnID] = true
					out = append(out, c)
				}
			}
		}
		return out
	default:
		a, b := scope.PrivateUsers()
		var out []*WsConn
		seen := make(map[string]bool)
		for _, u := range []string{a, b} {
			for _, c := range r.reg.FindByUser(u) {
				if !seen[c.ConnID] {
					seen[c.ConnID] = true
					out = append(out, c)
				}
			}
		}
		return out
	}
}

// MarkOnline / MarkOffline 透传给活跃度存储（心跳与连接收尾用）
func (r *DeliveryRouter) MarkOnline(ctx context.Context, userID string) {
	r.activity.MarkOnline(ctx, userID, 5*time.Minute)
}

func (r *DeliveryRouter) MarkOffline(ctx context.Context, userID string) {
	r.activity.MarkOffline(ctx, userID)
}
