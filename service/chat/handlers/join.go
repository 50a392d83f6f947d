package handlers

import (
	"context"

	"MRChat/service/chat"
	"MRChat/tools/errs"
)

// JoinScopeHandler 切换活跃会话：之后该会话的新消息不再给这个用户记未读，
// 已有未读即刻清零，并把最近窗口推下去当首屏。
type JoinScopeHandler struct{}

func (*JoinScopeHandler) Type() string { return chat.FrameJoinScope }

func (*JoinScopeHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.WsConn) error {
	p, err := chat.DecodeBody[chat.JoinScopePayload](f)
	if err != nil {
		return err
	}
	if !p.Scope.Valid() {
		return errs.ErrNotFound.WithDetail("bad scope: " + string(p.Scope))
	}
	bg := context.Background()

	if err := checkMembership(bg, ctx.S, p.Scope, c.UserID); err != nil {
		return err
	}

	c.SetActiveScope(p.Scope)
	ctx.S.Ledger.Clear(bg, c.UserID, p.Scope)

	msgs, last := ctx.S.Cache.Get(bg, p.Scope, ctx.S.Cfg.Chat.HistoryPage, 0)
	c.Send(chat.BuildHistory(p.Scope, msgs, last))
	return nil
}
