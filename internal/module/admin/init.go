package admin

import (
	"fundverse/internal/global/logger"
	"log/slog"
)

var log *slog.Logger

type ModuleAdmin struct{}

func (*ModuleAdmin) GetName() string {
	return "Admin"
}

func (*ModuleAdmin) Init() {
	log = logger.New("Admin")
}
