package handlers

import (
	"context"

	"MRChat/service/chat"
	"MRChat/tools/errs"
)

// GetHistoryHandler 拉历史。不带游标给最近窗口（走内存），
// 带 older_than 的翻页穿透存储。
type GetHistoryHandler struct{}

func (*GetHistoryHandler) Type() string { return chat.FrameGetHistory }

func (*GetHistoryHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.WsConn) error {
	p, err := chat.DecodeBody[chat.GetHistoryPayload](f)
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

	limit := p.Limit
	if limit <= 0 {
		limit = ctx.S.Cfg.Chat.HistoryPage
	}

	if p.OlderThan > 0 {
		msgs, _ := ctx.S.Cache.Get(bg, p.Scope, limit, p.OlderThan)
		c.Send(chat.BuildHistoryPage(p.Scope, msgs))
		return nil
	}
	msgs, last := ctx.S.Cache.Get(bg, p.Scope, limit, 0)
	c.Send(chat.BuildHistory(p.Scope, msgs, last))
	return nil
}
