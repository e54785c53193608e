package media

import (
	"fundverse/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (*ModuleMedia) InitRouter(r *gin.RouterGroup) {
	g := r.Group("/media", middleware.Auth())
	g.POST("/presign", Presign)
	g.GET("/download", Download)
}
