package campaign

import (
	"fundverse/internal/global/middleware"
	"fundverse/internal/model"

	"github.com/gin-gonic/gin"
)

func (m *ModuleCampaign) InitRouter(r *gin.RouterGroup) {
	g := r.Group("/campaigns")

	public := g.Group("", middleware.OptionalAuth())
	public.GET("", List)
	public.GET("/:id", Get)
	public.GET("/user/:email", ListByCreator)

	authed := g.Group("", middleware.Auth())
	authed.POST("", Create)
	authed.PUT("/:id", Update)
	authed.DELETE("/:id", Delete)
	authed.POST("/:id/contributions", Contribute)

	admin := g.Group("", middleware.Auth(string(model.RoleAdmin)))
	admin.POST("/:id/approve", Approve)
	admin.POST("/:id/reject", Reject)
	admin.DELETE("", Clear)
}
