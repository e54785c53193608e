package user

import (
	"fundverse/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

// InitRouter 用户相关端点以 /user 为前缀
func (u *ModuleUser) InitRouter(r *gin.RouterGroup) {
	userGroup := r.Group("/user")

	userGroup.POST("/signup", Signup)
	userGroup.POST("/login", Login)
	userGroup.GET("/me", middleware.Auth(), Me)
}
