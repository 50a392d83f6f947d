package handlers

import (
	"context"

	"MRChat/service/chat"
)

// PingHandler 应用层心跳：刷连接水位、续会话 last_active、续在线标记
type PingHandler struct{}

func (*PingHandler) Type() string { return chat.FramePing }

func (*PingHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.WsConn) error {
	c.Touch()
	if c.Authorized() {
		bg := context.Background()
		ctx.S.Authority.Touch(bg, c.UserID)
		ctx.S.Router.MarkOnline(bg, c.UserID)
	}
	c.Send(chat.BuildPong())
	return nil
}
