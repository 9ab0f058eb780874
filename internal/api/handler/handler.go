package handler

import (
	"go.uber.org/zap"

	"github.com/Cryptobal/GardOps-sub016/internal/realtime"
	"github.com/Cryptobal/GardOps-sub016/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Roster     *RosterHandler
	Vacancy    *VacancyHandler
	Coverage   *CoverageHandler
	Settlement *SettlementHandler
	View       *ViewHandler
	Export     *ExportHandler
	Realtime   *RealtimeHandler
}

// NewHandler 创建 Handler 聚合
// hub 为 nil 时实时推送接口返回 404，revoker 为 nil 时登出返回 503
func NewHandler(svc *service.Service, hub *realtime.Hub, revoker TokenRevoker, allowOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(revoker, logger),
		Roster:     NewRosterHandler(svc.Roster),
		Vacancy:    NewVacancyHandler(svc.Vacancy),
		Coverage:   NewCoverageHandler(svc.Coverage),
		Settlement: NewSettlementHandler(svc.Settlement),
		View:       NewViewHandler(svc.Sync),
		Export:     NewExportHandler(svc.Export, svc.Calendar),
		Realtime:   NewRealtimeHandler(hub, allowOrigins),
	}
}
