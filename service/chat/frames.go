package chat

import (
	"encoding/json"
	"time"

	"MRChat/module/chat/model"
	"MRChat/tools/errs"
)

// ===== 帧类型 =====

// 客户端 → 服务端
const (
	FrameAuth       = "auth"
	FrameSend       = "send"
	FrameJoinScope  = "join-scope"
	FrameGetHistory = "get-history"
	FrameDelete     = "delete"
	FramePing       = "ping"
)

// 服务端 → 客户端
const (
	FrameAuthOK       = "auth-ok"
	FrameUnauthorized = "unauthorized"
	FrameDelivered    = "delivered"
	FrameSentAck      = "sent-ack"
	FrameHistory      = "history"
	FrameHistoryPage  = "history-page"
	FrameDeleted      = "deleted"
	FramePresence     = "presence-updated"
	FrameKicked       = "kicked"
	FrameError        = "error"
	FramePong         = "pong"
)

// Frame 连接上的统一信封。Body 按 Type 解不同 payload。
type Frame struct {
	Type string          `json:"type"`
	Ts   int64           `json:"ts,omitempty"`
	Body json.RawMessage `json:"body,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal frame")
	}
	if f.Type == "" {
		return nil, errs.New("frame missing type")
	}
	return f, nil
}

// DecodeBody 把 Body 解进具体 payload
func DecodeBody[T any](f *Frame) (*T, error) {
	var v T
	if len(f.Body) == 0 {
		return nil, errs.New("frame %s missing body", f.Type)
	}
	if err := json.Unmarshal(f.Body, &v); err != nil {
		return nil, errs.WrapMsg(err, "decode body", "type", f.Type)
	}
	return &v, nil
}

// ===== 入站 payload =====

type AuthPayload struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type SendPayload struct {
	Scope       model.Scope `json:"scope"`
	ContentType int32       `json:"content_type"`
	Content     string      `json:"content"`
	QuotedID    int64       `json:"quoted_id,omitempty"`
}

type JoinScopePayload struct {
	Scope model.Scope `json:"scope"`
}

type GetHistoryPayload struct {
	Scope     model.Scope `json:"scope"`
	Limit     int         `json:"limit"`
	OlderThan int64       `json:"older_than,omitempty"` // seq 游标；0 表示取最近
}

type DeletePayload struct {
	ServerMsgID int64 `json:"server_msg_id"`
}

// ===== 出站构造 =====

func buildFrame(typ string, body any) *Frame {
	raw, _ := json.Marshal(body)
	return &Frame{Type: typ, Ts: time.Now().UnixMilli(), Body: raw}
}

type historyBody struct {
	Scope       model.Scope           `json:"scope"`
	Messages    []*model.MessageModel `json:"messages"`
	LastUpdated int64                 `json:"last_updated,omitempty"`
	Unread      int64                 `json:"unread,omitempty"`
}

func BuildAuthOK(userID string, totalUnread int64) *Frame {
	return buildFrame(FrameAuthOK, map[string]any{
		"user_id":      userID,
		"total_unread": totalUnread,
	})
}

func BuildUnauthorized(detail string) *Frame {
	return buildFrame(FrameUnauthorized, map[string]any{"detail": detail})
}

func BuildDelivered(m *model.MessageModel) *Frame {
	return buildFrame(FrameDelivered, m)
}

func BuildSentAck(serverMsgID, seq int64) *Frame {
	return buildFrame(FrameSentAck, map[string]any{
		"server_msg_id": serverMsgID,
		"seq":           seq,
	})
}

func BuildHistory(scope model.Scope, msgs []*model.MessageModel, lastUpdated int64) *Frame {
	return buildFrame(FrameHistory, historyBody{Scope: scope, Messages: msgs, LastUpdated: lastUpdated})
}

func BuildHistoryPage(scope model.Scope, msgs []*model.MessageModel) *Frame {
	return buildFrame(FrameHistoryPage, historyBody{Scope: scope, Messages: msgs})
}

func BuildDeleted(scope model.Scope, serverMsgID int64) *Frame {
	return buildFrame(FrameDeleted, map[string]any{
		"scope":         scope,
		"server_msg_id": serverMsgID,
	})
}

func BuildPresence(list []PresenceInfo) *Frame {
	return buildFrame(FramePresence, map[string]any{"online": list})
}

// BuildKicked 软踢：会话在别处重建，通知旧连接自行断开（服务端不强拆）
func BuildKicked() *Frame {
	return buildFrame(FrameKicked, map[string]any{"reason": "session replaced elsewhere"})
}

func BuildError(err error) *Frame {
	return buildFrame(FrameError, map[string]any{
		"code": errs.CodeOf(err),
		"msg":  err.Error(),
	})
}

func BuildPong() *Frame {
	return buildFrame(FramePong, map[string]any{})
}

func (f *Frame) Encode() []byte {
	raw, _ := json.Marshal(f)
	return raw
}
