package middleware

import (
	"fundverse/internal/global/jwt"
	"fundverse/internal/global/response"
	"fundverse/internal/global/sentry"
	"strings"

	"github.com/gin-gonic/gin"
)

// Auth 校验 Bearer token，roles 非空时要求角色在其中
func Auth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 获取 Authorization 头
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.ErrTokenInvalid)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		payload, valid := jwt.ParseToken(token)
		if !valid {
			response.Fail(c, response.ErrTokenInvalid)
			return
		}
		if len(roles) > 0 && !hasRole(roles, payload.Role) {
			response.Fail(c, response.ErrForbidden)
			return
		}
		c.Set(sentry.PayloadKey, payload)
		c.Next()
	}
}

// OptionalAuth 有合法 token 时写入登录信息，没有也放行
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			if payload, valid := jwt.ParseToken(token); valid {
				c.Set(sentry.PayloadKey, payload)
			}
		}
		c.Next()
	}
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
