// Package handlers 实现各帧类型的处理器，通过 RegisterAll 挂进分发表。
package handlers

import "MRChat/service/chat"

func RegisterAll(s *chat.Server) {
	s.Register(
		&AuthHandler{},
		&SendHandler{},
		&JoinScopeHandler{},
		&GetHistoryHandler{},
		&DeleteHandler{},
		&PingHandler{},
	)
}
