package chat

import (
	"MRChat/global"
	"MRChat/module/chat/history"
	"MRChat/module/chat/seq"
	"MRChat/module/chat/store"
	"MRChat/module/chat/unread"
	"MRChat/service/natsx"
	"MRChat/service/storage"
)

// Server 聊天核心的装配体：连接注册表、会话权威、发号器、
// 历史窗口、未读账本、投递路由，以及帧分发表。
// 所有成员在 NewServer 里装配完成，之后只读。
type Server struct {
	Cfg global.AppConfig

	Db        store.Store
	Reg       *Registry
	Sweeper   *Sweeper
	Authority *SessionAuthority
	Seq       *seq.Allocator
	Cache     *history.Cache
	Ledger    *unread.Ledger
	Router    *DeliveryRouter
	Activity  *storage.ActivityStore

	handlers map[string]Handler
}

func NewServer(cfg global.AppConfig, db store.Store, activity *storage.ActivityStore, feed *natsx.Feed) *Server {
	reg := NewRegistry()
	cache := history.NewCache(db, cfg.Chat.HistoryWindow)
	ledger := unread.NewLedger(db)
	s := &Server{
		Cfg:       cfg,
		Db:        db,
		Reg:       reg,
		Sweeper:   NewSweeper(cfg.Chat.SweepEvery),
		Authority: NewSessionAuthority(db, reg, []byte(cfg.JwtSecret), cfg.Session),
		Seq:       seq.NewAllocator(db),
		Cache:     cache,
		Ledger:    ledger,
		Router:    NewDeliveryRouter(db, reg, cache, ledger, activity, feed),
		Activity:  activity,
		handlers:  make(map[string]Handler),
	}
	return s
}

func (s *Server) Stop() {
	s.Sweeper.Stop()
	for _, c := range s.Reg.AllConns() {
		c.Close()
	}
}
