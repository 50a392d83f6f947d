package chat

import (
	"net/http"

	"MRChat/logger"
	"MRChat/module/chat/store"
	"MRChat/service/mgo"
	"MRChat/tools/errs"
	"MRChat/tools/security"

	"github.com/gin-gonic/gin"
)

// ===== HTTP 面（登录 / 健康检查 / 会话列表） =====

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleLogin 口令登录换令牌。登录即替换会话：
// 同一用户的旧令牌立刻失效，旧连接收 kicked 帧。
func (s *Server) HandleLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": errs.CodeInternal, "msg": "bad request"})
		return
	}

	u, err := s.Db.FindUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if store.IsNotFound(err) {
			// 用户不存在和密码错误对外一个口径
			c.JSON(http.StatusUnauthorized, gin.H{"code": errs.CodeUnauthorized, "msg": "bad credentials"})
			return
		}
		logger.Errorf("[login] lookup failed username=%s err=%v", req.Username, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": errs.CodeStoreUnavailable, "msg": "store unavailable"})
		return
	}
	if !security.CheckPassword(req.Password, u.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"code": errs.CodeUnauthorized, "msg": "bad credentials"})
		return
	}

	token, err := s.Authority.Login(c.Request.Context(), u.UserID)
	if err != nil {
		logger.Errorf("[login] issue token failed user=%s err=%v", u.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": errs.CodeInternal, "msg": "issue token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":    u.UserID,
		"token":      token,
		"nickname":   u.Nickname,
		"avatar_url": u.AvatarURL,
	})
}

// HandleHealthz 存储就绪探针：Mongo 不可用返回 503
func (s *Server) HandleHealthz(c *gin.Context) {
	if _, ok := mgo.TryGetDB(); !ok {
		msg := "mongo not ready"
		if err := mgo.Err(); err != nil {
			msg = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleRecentScopes 会话列表：按活跃度倒序的最近会话，带各自未读。
// 单聊顺带给对端的在线标记。
func (s *Server) HandleRecentScopes(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()

	scopes := s.Activity.RecentScopes(ctx, userID, 50)
	out := make([]gin.H, 0, len(scopes))
	for _, sc := range scopes {
		item := gin.H{
			"scope":  sc,
			"unread": s.Ledger.Get(ctx, userID, sc),
		}
		if peer := sc.PeerOf(userID); peer != "" {
			item["peer"] = peer
			item["peer_online"] = s.Activity.IsOnline(ctx, peer)
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"scopes": out})
}
