package natsx

import (
	"encoding/json"
	"time"

	"MRChat/logger"
	"MRChat/module/chat/model"

	"github.com/nats-io/nats.go"
)

// Feed 投递事件流：每条路由成功的消息同时发布到
// <subjectPrefix>.<scopeKind>，给离线推送等外部消费者。
// 未配置 NATS 地址时为空实现；发布失败只记日志，主链路不受影响。
type Feed struct {
	nc      *nats.Conn
	subject string
}

type DeliveredEvent struct {
	ScopeID     model.Scope `json:"scope_id"`
	ServerMsgID int64       `json:"server_msg_id"`
	SendID      string      `json:"send_id"`
	Seq         int64       `json:"seq"`
	Offline     []string    `json:"offline,omitempty"` // 本次没投到的用户（推送目标）
	Ts          int64       `json:"ts"`
}

// NewFeed url 为空返回 nil（调用方按 nil 安全使用）
func NewFeed(url, subjectPrefix string) *Feed {
	if url == "" {
		return nil
	}
	nc, err := nats.Connect(url,
		nats.Name("mrchat-feed"),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		logger.Warnf("[natsx] connect failed url=%s err=%v", url, err)
		return nil
	}
	if subjectPrefix == "" {
		subjectPrefix = "chat.delivered"
	}
	return &Feed{nc: nc, subject: subjectPrefix}
}

func (f *Feed) Publish(m *model.MessageModel, offline []string) {
	if f == nil || f.nc == nil {
		return
	}
	ev := DeliveredEvent{
		ScopeID:     m.ScopeID,
		ServerMsgID: m.ServerMsgID,
		SendID:      m.SendID,
		Seq:         m.Seq,
		Offline:     offline,
		Ts:          time.Now().UnixMilli(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	subj := f.subject + "." + scopeKind(m.ScopeID)
	if err := f.nc.Publish(subj, data); err != nil {
		logger.Warnf("[natsx] publish failed subject=%s err=%v", subj, err)
	}
}

func (f *Feed) Close() {
	if f != nil && f.nc != nil {
		f.nc.Close()
	}
}

func scopeKind(s model.Scope) string {
	switch {
	case s.IsGlobal():
		return "global"
	case s.IsGroup():
		return "group"
	default:
		return "p2p"
	}
}
