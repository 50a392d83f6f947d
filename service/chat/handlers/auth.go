package handlers

import (
	"context"

	"MRChat/logger"
	"MRChat/service/chat"
	"MRChat/tools/errs"
)

// AuthHandler 连接授权。校验令牌属于该用户的当前会话，
// 通过后绑定身份、登记注册表、推 auth-ok（带总未读）和在线名单。
// 失败只回 unauthorized 帧，连接留给清理器按宽限期处理。
type AuthHandler struct{}

func (*AuthHandler) Type() string { return chat.FrameAuth }

func (*AuthHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.WsConn) error {
	p, err := chat.DecodeBody[chat.AuthPayload](f)
	if err != nil {
		return err
	}
	bg := context.Background()

	if err := ctx.S.Authority.Validate(bg, p.UserID, p.Token); err != nil {
		// 存储故障不能冒充凭证错误，走 error 帧（503/500）
		if !errs.Is(err, errs.ErrUnauthorized) {
			return err
		}
		logger.Infof("[auth] reject conn=%s user=%s err=%v", c.ConnID, p.UserID, err)
		c.Send(chat.BuildUnauthorized(err.Error()))
		return nil
	}

	// 资料是锦上添花，查不到不挡授权
	nickname, avatar := p.UserID, ""
	if users, err := ctx.S.Db.GetUsers(bg, []string{p.UserID}); err == nil && len(users) > 0 {
		nickname, avatar = users[0].Nickname, users[0].AvatarURL
	}

	var authTTL = ctx.S.Cfg.Session.TTL
	if !ctx.S.Cfg.Session.Expires() {
		authTTL = 0
	}
	c.Authorize(p.UserID, nickname, avatar, authTTL)
	ctx.S.Reg.Join(c)
	ctx.S.Sweeper.Unwatch(c.ConnID)
	ctx.S.Router.MarkOnline(bg, p.UserID)

	c.Send(chat.BuildAuthOK(p.UserID, ctx.S.Ledger.TotalFor(bg, p.UserID)))
	ctx.S.Router.BroadcastPresence()
	return nil
}
