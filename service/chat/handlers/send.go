package handlers

import (
	"context"

	"MRChat/module/chat/model"
	"MRChat/module/chat/store"
	"MRChat/service/chat"
	"MRChat/tools/errs"
)

// SendHandler 发消息：校验会话与成员资格 → 发号落库 → 回 sent-ack → 扇出。
// seq 的分配细节全在发号器里，这里只管入参合法性。
type SendHandler struct{}

func (*SendHandler) Type() string { return chat.FrameSend }

func (*SendHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.WsConn) error {
	p, err := chat.DecodeBody[chat.SendPayload](f)
	if err != nil {
		return err
	}
	if !p.Scope.Valid() {
		return errs.ErrNotFound.WithDetail("bad scope: " + string(p.Scope))
	}
	if p.Content == "" {
		return errs.New("empty content")
	}
	bg := context.Background()

	if err := checkMembership(bg, ctx.S, p.Scope, c.UserID); err != nil {
		return err
	}

	m := &model.MessageModel{
		ScopeID:     p.Scope,
		SendID:      c.UserID,
		ContentType: p.ContentType,
		Content:     p.Content,
		QuotedID:    p.QuotedID,
	}
	if m.ContentType == 0 {
		m.ContentType = model.ContentText
	}

	// 引用消息必须存在且同会话
	if p.QuotedID != 0 {
		quoted, err := ctx.S.Db.GetMessage(bg, p.QuotedID)
		if err != nil {
			if store.IsNotFound(err) {
				return errs.ErrNotFound.WithDetail("quoted message gone")
			}
			return errs.Wrap(err)
		}
		if quoted.ScopeID != p.Scope {
			return errs.ErrNotFound.WithDetail("quoted message not in this scope")
		}
		m.ContentType = model.ContentQuote
	}

	if err := ctx.S.Seq.Commit(bg, m); err != nil {
		return errs.ErrStoreUnavailable.WithDetail(err.Error())
	}

	c.Send(chat.BuildSentAck(m.ServerMsgID, m.Seq))
	ctx.S.Router.Publish(bg, m)
	return nil
}

// checkMembership 发送者必须是会话成员；全局大厅人人可发
func checkMembership(ctx context.Context, s *chat.Server, scope model.Scope, userID string) error {
	switch {
	case scope.IsGlobal():
		return nil
	case scope.IsGroup():
		members, err := s.Db.GroupMembers(ctx, scope.GroupID())
		if err != nil {
			return errs.ErrStoreUnavailable.WithDetail(err.Error())
		}
		for _, u := range members {
			if u == userID {
				return nil
			}
		}
		return errs.ErrUnauthorized.WithDetail("not a member of " + string(scope))
	default:
		if scope.PeerOf(userID) == "" {
			return errs.ErrUnauthorized.WithDetail("not a participant of " + string(scope))
		}
		return nil
	}
}
