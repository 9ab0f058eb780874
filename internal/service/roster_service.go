package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// RosterService 排班格状态机业务接口
type RosterService interface {
	// GenerateRoster 为岗位生成整月排班格（休息日 day_off，其余 planned）
	GenerateRoster(ctx context.Context, caller Caller, req *dto.GenerateRosterRequest) (*dto.GenerateRosterResponse, error)
	// MarkAttendance planned → worked | absent_uncovered
	MarkAttendance(ctx context.Context, caller Caller, cellID string, req *dto.MarkAttendanceRequest) (*dto.RosterCellResponse, error)
	// ClosePeriod 关闭月份，此后该月排班格冻结
	ClosePeriod(ctx context.Context, caller Caller, period model.Period) (*dto.RosterPeriodResponse, error)
	GetCell(ctx context.Context, caller Caller, cellID string) (*dto.RosterCellResponse, error)
}

type rosterService struct {
	repo     *repository.Repository
	patterns *restPatternEvaluator
	rules    vacancyRules
	notifier ChangeNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(repo *repository.Repository, cfg *config.RosterConfig, notifier ChangeNotifier, logger *zap.Logger) RosterService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &rosterService{
		repo:     repo,
		patterns: newRestPatternEvaluator(),
		rules:    newVacancyRules(cfg),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// GenerateRoster
// ════════════════════════════════════════════════════════════

type postPlan struct {
	post  model.OperationalPost
	cells []model.RosterCell
}

func (s *rosterService) GenerateRoster(ctx context.Context, caller Caller, req *dto.GenerateRosterRequest) (*dto.GenerateRosterResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	period := model.Period{Year: req.Year, Month: req.Month}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}

	// 1. 确定岗位
	posts, err := s.resolvePosts(ctx, caller, req.PostIDs)
	if err != nil {
		return nil, err
	}

	// 2. 事务外计算排班格（纯计算，含 CEL 求值）
	plans := make([]postPlan, 0, len(posts))
	for i := range posts {
		cells, err := s.planCells(caller, &posts[i], period)
		if err != nil {
			return nil, err
		}
		plans = append(plans, postPlan{post: posts[i], cells: cells})
	}

	now := s.now()
	resp := &dto.GenerateRosterResponse{Period: period.String()}

	// 3. 单事务写入
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		p, err := tx.Period.Ensure(ctx, caller.TenantID, period.Year, period.Month, caller.UserID)
		if err != nil {
			return err
		}
		if p.Status != model.PeriodStatusOpen {
			return fmt.Errorf("%w: %s", ErrPeriodClosed, period)
		}

		for _, plan := range plans {
			result := dto.PostGenerationResult{PostID: plan.post.PostID}

			count, err := tx.Cell.CountByPostPeriod(ctx, caller.TenantID, plan.post.PostID, period.Year, period.Month)
			if err != nil {
				return err
			}
			if count > 0 {
				if !req.SkipExisting {
					return fmt.Errorf("%w: 岗位 %s 周期 %s", ErrRosterAlreadyGenerated, plan.post.PostID, period)
				}
				result.Skipped = true
				resp.Posts = append(resp.Posts, result)
				continue
			}

			if err := tx.Cell.BatchCreate(ctx, plan.cells); err != nil {
				if pkgerrors.IsDuplicateKey(err) {
					return fmt.Errorf("%w: 岗位 %s 周期 %s", ErrRosterAlreadyGenerated, plan.post.PostID, period)
				}
				return err
			}

			for i := range plan.cells {
				cell := &plan.cells[i]
				if cell.CoverageState == model.StateDayOff {
					result.DayOff++
					continue
				}
				result.Planned++
				change, err := s.rules.apply(ctx, tx, cell, plan.post.IsActive, now, caller.UserID)
				if err != nil {
					return err
				}
				if change == vacancyCreated {
					resp.VacanciesOpened++
				}
			}
			resp.CellsCreated += len(plan.cells)
			resp.Posts = append(resp.Posts, result)
		}
		return nil
	})
	if err != nil {
		return nil, internalErr(s.logger, "生成排班失败", err, zap.String("period", period.String()))
	}

	for _, plan := range plans {
		s.notifier.Publish(dto.CellEvent{
			Type:           "roster.generated",
			TenantID:       caller.TenantID,
			InstallationID: plan.post.InstallationID,
			PostID:         plan.post.PostID,
			At:             now,
		})
	}

	s.logger.Info("排班生成完成",
		zap.String("tenant_id", caller.TenantID),
		zap.String("period", period.String()),
		zap.Int("posts", len(plans)),
		zap.Int("cells", resp.CellsCreated),
		zap.Int("vacancies", resp.VacanciesOpened),
	)
	return resp, nil
}

// resolvePosts 未指定岗位时取全部启用岗位；指定岗位必须存在且启用
func (s *rosterService) resolvePosts(ctx context.Context, caller Caller, postIDs []string) ([]model.OperationalPost, error) {
	if len(postIDs) == 0 {
		posts, err := s.repo.Post.List(ctx, caller.TenantID, true)
		if err != nil {
			s.logger.Error("查询岗位失败", zap.Error(err))
			return nil, err
		}
		return posts, nil
	}

	seen := make(map[string]bool, len(postIDs))
	posts := make([]model.OperationalPost, 0, len(postIDs))
	for _, id := range postIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		post, err := s.repo.Post.GetByID(ctx, caller.TenantID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
			}
			s.logger.Error("查询岗位失败", zap.String("post_id", id), zap.Error(err))
			return nil, err
		}
		if !post.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrPostInactive, id)
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

// planCells 按休息规则生成岗位整月排班格
// 常设缺岗岗位不带计划保安
func (s *rosterService) planCells(caller Caller, post *model.OperationalPost, period model.Period) ([]model.RosterCell, error) {
	rest, err := s.patterns.restDays(post, period)
	if err != nil {
		return nil, err
	}

	var planned *string
	if !post.IsVacant && post.DefaultGuardID != nil {
		g := *post.DefaultGuardID
		planned = &g
	}

	days := period.Days()
	cells := make([]model.RosterCell, 0, len(days))
	for _, d := range days {
		cell := model.RosterCell{
			TenantID:       caller.TenantID,
			PostID:         post.PostID,
			InstallationID: post.InstallationID,
			WorkDate:       d,
			Year:           d.Year(),
			Month:          int(d.Month()),
			Day:            d.Day(),
			CoverageState:  model.StatePlanned,
			Meta:           model.CellMetadata{MonitoringState: model.MonitoringNone},
			Extra:          datatypes.JSONMap{},
		}
		cell.Version = 1
		cell.CreatedBy = &caller.UserID
		if rest[d.Day()] {
			cell.CoverageState = model.StateDayOff
		} else {
			cell.PlannedGuardID = planned
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// ════════════════════════════════════════════════════════════
// MarkAttendance
// ════════════════════════════════════════════════════════════

func (s *rosterService) MarkAttendance(ctx context.Context, caller Caller, cellID string, req *dto.MarkAttendanceRequest) (*dto.RosterCellResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	if req.Outcome != "attended" && req.Outcome != "absent" {
		return nil, ErrInvalidOutcome
	}
	reason := model.ReasonAbsenceWithNotice
	if req.Reason != "" {
		reason = model.VacancyReason(req.Reason)
		if !reason.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAbsenceReason, req.Reason)
		}
	}

	now := s.now()
	var (
		cell *model.RosterCell
		from model.CoverageState
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		cell, err = tx.Cell.GetForUpdate(ctx, caller.TenantID, cellID)
		if err != nil {
			return mapNotFound(err, ErrCellNotFound)
		}
		if err := checkVersion(req.Version, cell); err != nil {
			return err
		}
		if err := requireOpenPeriod(ctx, tx, caller.TenantID, cell.Year, cell.Month); err != nil {
			return err
		}
		if cell.CoverageState != model.StatePlanned || cell.PlannedGuardID == nil {
			return fmt.Errorf("%w: %s 状态为 %s", ErrInvalidTransition, cell.RosterCellID, cell.CoverageState)
		}

		post, err := tx.Post.GetByID(ctx, caller.TenantID, cell.PostID)
		if err != nil {
			return mapNotFound(err, ErrPostNotFound)
		}

		from = cell.CoverageState
		action := model.ActionAttended
		if req.Outcome == "attended" {
			other, err := tx.Cell.FindOccupied(ctx, caller.TenantID, *cell.PlannedGuardID, cell.WorkDate)
			if err == nil && other.RosterCellID != cell.RosterCellID {
				return fmt.Errorf("%w: 保安 %s 于 %s 已在岗位 %s", ErrGuardDoubleBooked, *cell.PlannedGuardID, formatDate(cell.WorkDate), other.PostID)
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			cell.SetState(model.StateWorked, cell.PlannedGuardID)
			cell.AbsenceReason = nil
			cell.Meta.MonitoringState = model.MonitoringConfirmed
		} else {
			action = model.ActionAbsent
			cell.SetState(model.StateAbsentUncovered, nil)
			cell.AbsenceReason = &reason
			cell.Meta.MonitoringState = model.MonitoringIncident
		}
		if req.Notes != "" {
			cell.Meta.Notes = req.Notes
		}
		cell.Meta.LastUpdateAt = &now
		cell.UpdatedBy = &caller.UserID

		if err := translateCellWrite(tx.Cell.Update(ctx, cell)); err != nil {
			return err
		}
		if _, err := s.rules.apply(ctx, tx, cell, post.IsActive, now, caller.UserID); err != nil {
			return err
		}
		return tx.ChangeLog.Create(ctx, &model.RosterChangeLog{
			TenantID:     caller.TenantID,
			RosterCellID: cell.RosterCellID,
			FromState:    from,
			ToState:      cell.CoverageState,
			GuardID:      cell.PlannedGuardID,
			Action:       action,
			Reason:       string(reasonOrEmpty(cell.AbsenceReason)),
			OperatorID:   caller.UserID,
		})
	})
	if err != nil {
		return nil, internalErr(s.logger, "标记出勤失败", err, zap.String("cell_id", cellID))
	}

	s.notifier.Publish(cellEvent("cell.changed", caller.TenantID, cell, now))
	s.logger.Info("出勤已标记",
		zap.String("tenant_id", caller.TenantID),
		zap.String("cell_id", cell.RosterCellID),
		zap.String("from", string(from)),
		zap.String("to", string(cell.CoverageState)),
	)

	resp := toCellResponse(cell, nil)
	return &resp, nil
}

func reasonOrEmpty(r *model.VacancyReason) model.VacancyReason {
	if r == nil {
		return ""
	}
	return *r
}

// ════════════════════════════════════════════════════════════
// ClosePeriod
// ════════════════════════════════════════════════════════════

func (s *rosterService) ClosePeriod(ctx context.Context, caller Caller, period model.Period) (*dto.RosterPeriodResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}

	now := s.now()
	var p *model.RosterPeriod
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		p, err = tx.Period.GetForUpdate(ctx, caller.TenantID, period.Year, period.Month)
		if err != nil {
			return mapNotFound(err, ErrPeriodNotFound)
		}
		if p.Status == model.PeriodStatusClosed {
			return fmt.Errorf("%w: %s", ErrPeriodAlreadyClosed, period)
		}
		p.Status = model.PeriodStatusClosed
		p.ClosedAt = &now
		p.UpdatedBy = &caller.UserID
		return tx.Period.Update(ctx, p)
	})
	if err != nil {
		return nil, internalErr(s.logger, "关闭排班周期失败", err, zap.String("period", period.String()))
	}

	s.notifier.Publish(dto.CellEvent{Type: "period.closed", TenantID: caller.TenantID, At: now})
	s.logger.Info("排班周期已关闭", zap.String("tenant_id", caller.TenantID), zap.String("period", period.String()))
	return toPeriodResponse(p), nil
}

func toPeriodResponse(p *model.RosterPeriod) *dto.RosterPeriodResponse {
	return &dto.RosterPeriodResponse{
		ID:       p.PeriodID,
		Year:     p.Year,
		Month:    p.Month,
		Status:   p.Status,
		ClosedAt: formatTimePtr(p.ClosedAt),
	}
}

// ════════════════════════════════════════════════════════════
// GetCell
// ════════════════════════════════════════════════════════════

func (s *rosterService) GetCell(ctx context.Context, caller Caller, cellID string) (*dto.RosterCellResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	cell, err := s.repo.Cell.GetByID(ctx, caller.TenantID, cellID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCellNotFound
		}
		s.logger.Error("查询排班格失败", zap.Error(err))
		return nil, err
	}

	var shift *model.OvertimeShift
	if cell.CoverageState == model.StateCovered || cell.CoverageState == model.StateOvertimeAssigned {
		shift, err = s.repo.Shift.GetActiveByCell(ctx, caller.TenantID, cellID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询加班记录失败", zap.Error(err))
			return nil, err
		}
	}

	resp := toCellResponse(cell, shift)
	return &resp, nil
}
