package ping

import (
	"fundverse/config"
	"fundverse/internal/global/database"
	"fundverse/internal/global/response"
	"fundverse/internal/global/sentry"

	"github.com/gin-gonic/gin"
)

func (p *ModulePing) InitRouter(r *gin.RouterGroup) {
	r.GET("/ping", func(c *gin.Context) {
		available := database.KV != nil && database.KV.IsAvailable(c.Request.Context())
		if !available {
			log.Warn("存储探测失败")
		}
		response.Success(c, gin.H{
			"message": "pong",
			"version": sentry.Release,
			"storage": gin.H{
				"driver":    config.Get().Storage.Driver,
				"available": available,
			},
		})
	})
}
