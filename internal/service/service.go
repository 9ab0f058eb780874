package service

import (
	"go.uber.org/zap"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Roster     RosterService
	Vacancy    VacancyService
	Coverage   CoverageService
	Settlement SettlementService
	Sync       SyncService
	Export     ExportService
	Calendar   CalendarService
}

// NewService 创建 Service 聚合
// cache / notifier 可为 nil（不缓存 / 不推送）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache ViewCache,
	notifier ChangeNotifier,
	logger *zap.Logger,
) *Service {
	rc := &cfg.Roster
	return &Service{
		Roster:     NewRosterService(repo, rc, notifier, logger),
		Vacancy:    NewVacancyService(repo, rc, logger),
		Coverage:   NewCoverageService(repo, rc, NewRateProvider(rc.DefaultRate()), notifier, logger),
		Settlement: NewSettlementService(repo, rc, notifier, logger),
		Sync:       NewSyncService(repo, rc, cache, notifier, logger),
		Export:     NewExportService(repo, logger),
		Calendar:   NewCalendarService(repo, rc, logger),
	}
}
