package module

import (
	"fundverse/internal/module/admin"
	"fundverse/internal/module/campaign"
	"fundverse/internal/module/media"
	"fundverse/internal/module/ping"
	"fundverse/internal/module/user"

	"github.com/gin-gonic/gin"
)

type Module interface {
	GetName() string
	Init()
	InitRouter(r *gin.RouterGroup)
}

var Modules []Module

func registerModule(m []Module) {
	Modules = append(Modules, m...)
}

func init() {
	// Register your module here
	registerModule([]Module{
		&ping.ModulePing{},
		&user.ModuleUser{},
		&campaign.ModuleCampaign{},
		&admin.ModuleAdmin{},
		&media.ModuleMedia{},
	})
}
