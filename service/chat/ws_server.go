package chat

import (
	"context"
	"net/http"

	"MRChat/logger"
	"MRChat/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// 网关前面有接入层做来源控制，这里放开
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS gin 路由入口：升级连接，挂进清理器，进读循环。
// 连接建立即有宽限期，宽限期内没完成 auth 会被清理器摘掉。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed remote=%s err=%v", c.Request.RemoteAddr, err)
		return
	}

	conn := newWsConn(ids.GenerateString(), ws, s.Cfg.Chat.SendQueue, s.Cfg.Chat.UnauthTTL)
	s.Sweeper.Watch(conn)
	logger.Infof("[ws] open conn=%s remote=%s", conn.ConnID, c.Request.RemoteAddr)

	go s.readLoop(conn)
}

func (s *Server) readLoop(c *WsConn) {
	defer s.teardown(c)

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			logger.Infof("[ws] read end conn=%s err=%v", c.ConnID, err)
			return
		}
		f, err := ParseFrame(raw)
		if err != nil {
			c.Send(BuildError(err))
			continue
		}
		s.Dispatch(f, c)
	}
}

// teardown 读循环退出后的收尾：摘注册表、补在线状态、推在线名单
func (s *Server) teardown(c *WsConn) {
	c.Close()
	s.Sweeper.Unwatch(c.ConnID)

	removed := s.Reg.Leave(c.ConnID)
	if removed == nil || !removed.Authorized() {
		return
	}
	logger.Infof("[ws] close conn=%s user=%s", c.ConnID, c.UserID)

	// 最后一个端下线才算离线
	if len(s.Reg.FindByUser(removed.UserID)) == 0 {
		s.Router.MarkOffline(context.Background(), removed.UserID)
	}
	s.Router.BroadcastPresence()
}
