package admin

import (
	"fundverse/internal/global/middleware"
	"fundverse/internal/model"

	"github.com/gin-gonic/gin"
)

func (*ModuleAdmin) InitRouter(r *gin.RouterGroup) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.Auth(string(model.RoleAdmin)))
	{
		adminGroup.GET("/users", ListUsers)
		adminGroup.DELETE("/users/:id", DeleteUser)
		adminGroup.GET("/stats", Stats)
		adminGroup.GET("/export", Export)
		adminGroup.POST("/clear", Clear)
	}
}
