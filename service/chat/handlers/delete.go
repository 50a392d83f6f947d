package handlers

import (
	"context"

	"MRChat/logger"
	"MRChat/module/chat/store"
	"MRChat/service/chat"
	"MRChat/tools/errs"
)

// DeleteHandler 删除自己发的消息：删行 → 广播 deleted →
// 全量重排补洞 → 作废历史窗口。重排失败不回滚删除，
// 留到下一次删除或重启后的重排兜底。
type DeleteHandler struct{}

func (*DeleteHandler) Type() string { return chat.FrameDelete }

func (*DeleteHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.WsConn) error {
	p, err := chat.DecodeBody[chat.DeletePayload](f)
	if err != nil {
		return err
	}
	bg := context.Background()

	m, err := ctx.S.Db.GetMessage(bg, p.ServerMsgID)
	if err != nil {
		if store.IsNotFound(err) {
			return errs.ErrNotFound.WithDetail("message gone")
		}
		return errs.Wrap(err)
	}
	if m.SendID != c.UserID {
		return errs.ErrUnauthorized.WithDetail("can only delete own messages")
	}

	if _, err := ctx.S.Db.DeleteMessage(bg, p.ServerMsgID); err != nil {
		if store.IsNotFound(err) {
			return errs.ErrNotFound.WithDetail("message gone")
		}
		return errs.ErrStoreUnavailable.WithDetail(err.Error())
	}

	ctx.S.Router.PublishDeleted(bg, m.ScopeID, m.ServerMsgID)

	if changed, err := ctx.S.Seq.Resequence(bg, m.ScopeID); err != nil {
		logger.Warnf("[delete] resequence failed scope=%s err=%v", m.ScopeID, err)
	} else if changed > 0 {
		logger.Infof("[delete] resequenced scope=%s changed=%d", m.ScopeID, changed)
	}
	ctx.S.Cache.InvalidateScope(m.ScopeID)
	return nil
}
