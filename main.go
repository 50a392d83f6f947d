package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MRChat/global"
	"MRChat/logger"
	"MRChat/middleware"
	"MRChat/module/chat/store"
	"MRChat/service/chat"
	"MRChat/service/chat/handlers"
	"MRChat/service/mgo"
	"MRChat/service/natsx"
	"MRChat/service/storage"
	"MRChat/service/storage/redis"
	"MRChat/tools/ids"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := flag.String("config", "", "yaml 配置文件路径（缺省走 MRCHAT_CONFIG / 内置默认）")
	flag.Parse()

	if err := global.Load(*cfgPath); err != nil {
		logger.Errorf("[boot] load config failed: %v", err)
		os.Exit(1)
	}
	cfg := global.Config
	ids.SetNodeID(cfg.NodeID)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ===== 存储引导：Mongo 必须就绪，Redis/NATS 可降级 =====
	mgo.StartAsync(rootCtx, cfg.Mongo)
	waitCtx, waitCancel := context.WithTimeout(rootCtx, 30*time.Second)
	if err := mgo.WaitReady(waitCtx); err != nil {
		waitCancel()
		logger.Errorf("[boot] %v", err)
		os.Exit(1)
	}
	waitCancel()

	db := store.NewMongoStore(mgo.GetDB())
	if err := db.EnsureIndexes(rootCtx); err != nil {
		logger.Errorf("[boot] ensure indexes failed: %v", err)
		os.Exit(1)
	}

	if err := redis.InitRedis(redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}); err != nil {
		logger.Warnf("[boot] redis unavailable, activity features degraded: %v", err)
	}
	activity := storage.NewActivityStore(redis.GetRedis())
	feed := natsx.NewFeed(cfg.Nats.URL, cfg.Nats.Subject)

	// ===== 聊天核心 =====
	srv := chat.NewServer(cfg, db, activity, feed)
	handlers.RegisterAll(srv)

	// ===== HTTP / WS 路由 =====
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", srv.HandleHealthz)
	r.POST("/api/login", srv.HandleLogin)
	r.GET("/api/scopes", middleware.Auth(srv), srv.HandleRecentScopes)
	r.GET("/ws", srv.HandleWS)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
	go func() {
		logger.Infof("[boot] %s listening on %s", cfg.GatewayID, httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[boot] http server: %v", err)
			cancel()
		}
	}()

	// ===== 优雅退出 =====
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Infof("[boot] signal %v, shutting down", s)
	case <-rootCtx.Done():
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = httpSrv.Shutdown(shutCtx)
	srv.Stop()
	feed.Close()
	_ = redis.CloseRedis()
	cancel()
}
