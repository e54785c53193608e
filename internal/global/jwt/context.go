package jwt

import (
	"fundverse/internal/global/sentry"

	"github.com/gin-gonic/gin"
)

// GetUserPayload 读取 Auth 中间件写入的登录信息
func GetUserPayload(c *gin.Context) (userPayload *Claims, exist bool) {
	payload, _ := c.Get(sentry.PayloadKey)
	userPayload, exist = payload.(*Claims)
	return
}
