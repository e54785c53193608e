package campaign

import (
	"fundverse/internal/global/logger"
	"log/slog"
)

var log *slog.Logger

type ModuleCampaign struct{}

func (m *ModuleCampaign) GetName() string {
	return "Campaign"
}

func (m *ModuleCampaign) Init() {
	log = logger.New("Campaign")
}
