package middleware

import (
	"net/http"
	"strings"

	"MRChat/service/chat"
	"MRChat/tools/errs"

	"github.com/gin-gonic/gin"
)

const CtxUserID = "user_id"

// Auth HTTP 侧的会话校验：Authorization: Bearer <token>，
// 通过后把 user_id 放进 gin 上下文。ws 侧走 auth 帧，不经过这里。
func Auth(s *chat.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if token == "" || token == h {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errs.CodeUnauthorized, "msg": "missing bearer token",
			})
			return
		}
		userID, err := s.Authority.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errs.CodeOf(err), "msg": err.Error(),
			})
			return
		}
		c.Set(CtxUserID, userID)
		c.Next()
	}
}
