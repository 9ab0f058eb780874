package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
)

// VacancyService 缺岗（PPC）业务接口
type VacancyService interface {
	// ResolveVacancies 按周期重算缺岗：补齐缺失、刷新原因与优先级、退役过期记录；幂等
	ResolveVacancies(ctx context.Context, caller Caller, period model.Period) (*dto.ResolveVacanciesResponse, error)
	ListVacancies(ctx context.Context, caller Caller, req *dto.VacancyListRequest) ([]dto.VacancyResponse, int64, error)
}

type vacancyService struct {
	repo   *repository.Repository
	rules  vacancyRules
	logger *zap.Logger
	now    func() time.Time
}

// NewVacancyService 创建 VacancyService 实例
func NewVacancyService(repo *repository.Repository, cfg *config.RosterConfig, logger *zap.Logger) VacancyService {
	return &vacancyService{
		repo:   repo,
		rules:  newVacancyRules(cfg),
		logger: logger,
		now:    time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// 单格缺岗规则（各变更事务内调用）
// ════════════════════════════════════════════════════════════

// vacancyChange 单格规则执行结果
type vacancyChange int

const (
	vacancyUnchanged vacancyChange = iota
	vacancyCreated
	vacancyRefreshed
	vacancyRetired
)

type vacancyRules struct {
	loc        *time.Location
	highDays   int
	mediumDays int
}

func newVacancyRules(cfg *config.RosterConfig) vacancyRules {
	return vacancyRules{
		loc:        cfg.Location(),
		highDays:   cfg.HighPriorityDays,
		mediumDays: cfg.MediumPriorityDays,
	}
}

// reasonFor 缺勤格取其缺勤原因（默认 absence_with_notice），计划格一律 no_assignment
func (r vacancyRules) reasonFor(cell *model.RosterCell) model.VacancyReason {
	if cell.CoverageState == model.StateAbsentUncovered {
		if cell.AbsenceReason != nil && cell.AbsenceReason.Valid() {
			return *cell.AbsenceReason
		}
		return model.ReasonAbsenceWithNotice
	}
	return model.ReasonNoAssignment
}

// priority 离职一律 high；否则按租户时区"今天"到工作日的天数分级，已过去的日期视为 high
func (r vacancyRules) priority(reason model.VacancyReason, workDate, now time.Time) model.Priority {
	if reason == model.ReasonResignation {
		return model.PriorityHigh
	}
	today := model.DateOf(now, r.loc)
	days := daysBetween(today, workDate)
	switch {
	case days <= r.highDays:
		return model.PriorityHigh
	case days <= r.mediumDays:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// apply 使该排班格的 open 缺岗记录与其状态一致
// 需要缺岗 ⇔ 岗位启用且状态为 planned / absent_uncovered
func (r vacancyRules) apply(ctx context.Context, tx *repository.Repository, cell *model.RosterCell, postActive bool, now time.Time, operatorID string) (vacancyChange, error) {
	existing, err := tx.Vacancy.GetOpenByPostDate(ctx, cell.TenantID, cell.PostID, cell.WorkDate)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return vacancyUnchanged, err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		existing = nil
	}

	needed := postActive && cell.CoverageState.Vacant()

	if !needed {
		if existing == nil {
			return vacancyUnchanged, nil
		}
		resolvedAt := now
		existing.Status = model.VacancyStatusResolved
		existing.ResolvedAt = &resolvedAt
		existing.UpdatedBy = &operatorID
		if err := tx.Vacancy.Update(ctx, existing); err != nil {
			return vacancyUnchanged, err
		}
		return vacancyRetired, nil
	}

	reason := r.reasonFor(cell)
	priority := r.priority(reason, cell.WorkDate, now)

	if existing == nil {
		v := &model.Vacancy{
			TenantID:     cell.TenantID,
			PostID:       cell.PostID,
			RosterCellID: cell.RosterCellID,
			WorkDate:     cell.WorkDate,
			Reason:       reason,
			Priority:     priority,
			Status:       model.VacancyStatusOpen,
		}
		v.CreatedBy = &operatorID
		created, err := tx.Vacancy.Create(ctx, v)
		if err != nil {
			return vacancyUnchanged, err
		}
		if !created {
			return vacancyUnchanged, nil
		}
		return vacancyCreated, nil
	}

	if existing.Reason == reason && existing.Priority == priority && existing.RosterCellID == cell.RosterCellID {
		return vacancyUnchanged, nil
	}
	existing.Reason = reason
	existing.Priority = priority
	existing.RosterCellID = cell.RosterCellID
	existing.UpdatedBy = &operatorID
	if err := tx.Vacancy.Update(ctx, existing); err != nil {
		return vacancyUnchanged, err
	}
	return vacancyRefreshed, nil
}

// ════════════════════════════════════════════════════════════
// ResolveVacancies
// ════════════════════════════════════════════════════════════

func (s *vacancyService) ResolveVacancies(ctx context.Context, caller Caller, period model.Period) (*dto.ResolveVacanciesResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}

	posts, err := s.repo.Post.List(ctx, caller.TenantID, false)
	if err != nil {
		s.logger.Error("查询岗位失败", zap.Error(err))
		return nil, err
	}
	active := make(map[string]bool, len(posts))
	for _, p := range posts {
		active[p.PostID] = p.IsActive
	}

	now := s.now()
	resp := &dto.ResolveVacanciesResponse{Period: period.String()}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		cells, err := tx.Cell.ListByPeriodForUpdate(ctx, caller.TenantID, period.Year, period.Month)
		if err != nil {
			return err
		}
		for i := range cells {
			change, err := s.rules.apply(ctx, tx, &cells[i], active[cells[i].PostID], now, caller.UserID)
			if err != nil {
				return err
			}
			switch change {
			case vacancyCreated:
				resp.Created++
			case vacancyRefreshed:
				resp.Refreshed++
			case vacancyRetired:
				resp.Retired++
			}
			if active[cells[i].PostID] && cells[i].CoverageState.Vacant() {
				resp.Open++
			}
		}
		return nil
	})
	if err != nil {
		return nil, internalErr(s.logger, "重算缺岗失败", err, zap.String("period", period.String()))
	}

	s.logger.Info("缺岗重算完成",
		zap.String("tenant_id", caller.TenantID),
		zap.String("period", period.String()),
		zap.Int("created", resp.Created),
		zap.Int("refreshed", resp.Refreshed),
		zap.Int("retired", resp.Retired),
		zap.Int("open", resp.Open),
	)
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// ListVacancies
// ════════════════════════════════════════════════════════════

func (s *vacancyService) ListVacancies(ctx context.Context, caller Caller, req *dto.VacancyListRequest) ([]dto.VacancyResponse, int64, error) {
	if err := caller.validate(); err != nil {
		return nil, 0, err
	}

	f := repository.VacancyFilter{
		Status:   req.Status,
		PostID:   req.PostID,
		Priority: model.Priority(req.Priority),
	}
	if req.From != "" {
		d, err := parseDate(req.From)
		if err != nil {
			return nil, 0, err
		}
		f.From = d
	}
	if req.To != "" {
		d, err := parseDate(req.To)
		if err != nil {
			return nil, 0, err
		}
		f.To = d
	}

	list, total, err := s.repo.Vacancy.List(ctx, caller.TenantID, f, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询缺岗列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.VacancyResponse, 0, len(list))
	for i := range list {
		result = append(result, toVacancyResponse(&list[i]))
	}
	return result, total, nil
}

func toVacancyResponse(v *model.Vacancy) dto.VacancyResponse {
	return dto.VacancyResponse{
		ID:           v.VacancyID,
		PostID:       v.PostID,
		RosterCellID: v.RosterCellID,
		WorkDate:     formatDate(v.WorkDate),
		Reason:       string(v.Reason),
		Priority:     string(v.Priority),
		Status:       v.Status,
		ResolvedAt:   formatTimePtr(v.ResolvedAt),
		CreatedAt:    formatTime(v.CreatedAt),
	}
}
