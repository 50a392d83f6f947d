package chat

import (
	"MRChat/logger"
	"MRChat/tools/errs"
)

// Context 帧处理的依赖入口，目前只挂 Server
type Context struct {
	S *Server
}

// Handler 一种帧类型一个处理器，注册进 Server 的分发表
type Handler interface {
	Type() string
	Handle(ctx *Context, f *Frame, c *WsConn) error
}

// Dispatch 读循环逐帧调用。约定：
//   - 未授权连接只放行 auth / ping
//   - 处理器返回的 error 统一转 error 帧回给这条连接，不断链接
func (s *Server) Dispatch(f *Frame, c *WsConn) {
	h := s.handlers[f.Type]
	if h == nil {
		logger.Infof("[dispatch] unknown frame type=%s conn=%s", f.Type, c.ConnID)
		c.Send(BuildError(errs.ErrNotFound.WithDetail("unknown frame type: " + f.Type)))
		return
	}
	if !c.Authorized() && f.Type != FrameAuth && f.Type != FramePing {
		c.Send(BuildUnauthorized("authenticate first"))
		return
	}
	if err := h.Handle(&Context{S: s}, f, c); err != nil {
		logger.Infof("[dispatch] handle %s failed conn=%s err=%v", f.Type, c.ConnID, err)
		c.Send(BuildError(err))
	}
}

// Register 同类型后注册的覆盖先注册的
func (s *Server) Register(hs ...Handler) {
	for _, h := range hs {
		s.handlers[h.Type()] = h
	}
}
