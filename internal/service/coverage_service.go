package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// CoverageService 顶班指派业务接口
type CoverageService interface {
	// AssignCoverage absent_uncovered → covered；无排班保安的 planned → overtime_assigned
	AssignCoverage(ctx context.Context, caller Caller, req *dto.AssignCoverageRequest) (*dto.CoverageResponse, error)
	// RevokeSubstitute covered → absent_uncovered；overtime_assigned → planned，并作废未支付加班
	RevokeSubstitute(ctx context.Context, caller Caller, cellID string, req *dto.RevokeSubstituteRequest) (*dto.RosterCellResponse, error)
}

type coverageService struct {
	repo     *repository.Repository
	rates    RateProvider
	rules    vacancyRules
	notifier ChangeNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewCoverageService 创建 CoverageService 实例
func NewCoverageService(repo *repository.Repository, cfg *config.RosterConfig, rates RateProvider, notifier ChangeNotifier, logger *zap.Logger) CoverageService {
	if rates == nil {
		rates = NewRateProvider(cfg.DefaultRate())
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &coverageService{
		repo:     repo,
		rates:    rates,
		rules:    newVacancyRules(cfg),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// AssignCoverage
// ════════════════════════════════════════════════════════════

func (s *coverageService) AssignCoverage(ctx context.Context, caller Caller, req *dto.AssignCoverageRequest) (*dto.CoverageResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}

	var workDate time.Time
	if req.CellID == "" {
		if req.PostID == "" || req.Date == "" {
			return nil, ErrCoverageTargetRequired
		}
		d, err := parseDate(req.Date)
		if err != nil {
			return nil, err
		}
		workDate = d
	}

	now := s.now()
	var (
		cell  *model.RosterCell
		shift *model.OvertimeShift
		guard *model.Guard
		from  model.CoverageState
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 1. 顶班保安
		var err error
		guard, err = tx.Guard.GetByID(ctx, caller.TenantID, req.SubstituteGuardID)
		if err != nil {
			return mapNotFound(err, ErrGuardNotFound)
		}
		if !guard.IsActive {
			return fmt.Errorf("%w: %s", ErrGuardInactive, guard.GuardID)
		}

		// 2. 锁定目标排班格
		if req.CellID != "" {
			cell, err = tx.Cell.GetForUpdate(ctx, caller.TenantID, req.CellID)
		} else {
			// 先确认岗位存在，区分未知岗位与未生成排班
			if _, err := tx.Post.GetByID(ctx, caller.TenantID, req.PostID); err != nil {
				return mapNotFound(err, ErrPostNotFound)
			}
			cell, err = tx.Cell.GetByPostDateForUpdate(ctx, caller.TenantID, req.PostID, workDate)
		}
		if err != nil {
			return mapNotFound(err, ErrCellNotFound)
		}
		if err := checkVersion(req.Version, cell); err != nil {
			return err
		}
		if err := requireOpenPeriod(ctx, tx, caller.TenantID, cell.Year, cell.Month); err != nil {
			return err
		}

		// 3. 状态前置条件
		var (
			next   model.CoverageState
			origin model.ShiftOrigin
		)
		switch cell.CoverageState {
		case model.StateDayOff:
			return fmt.Errorf("%w: %s", ErrCellDayOff, formatDate(cell.WorkDate))
		case model.StateWorked, model.StateCovered, model.StateOvertimeAssigned:
			return fmt.Errorf("%w: %s 状态为 %s", ErrCellAlreadyCovered, cell.RosterCellID, cell.CoverageState)
		case model.StatePlanned:
			if cell.PlannedGuardID != nil {
				return ErrCellHasPlannedGuard
			}
			next, origin = model.StateOvertimeAssigned, model.OriginVacancy
		case model.StateAbsentUncovered:
			if cell.PlannedGuardID != nil && *cell.PlannedGuardID == guard.GuardID {
				return ErrSubstituteIsPlanned
			}
			next, origin = model.StateCovered, model.OriginAbsence
		default:
			return fmt.Errorf("%w: %s", ErrInvalidTransition, cell.CoverageState)
		}

		// 4. 重复排班检查（唯一索引兜底）
		other, err := tx.Cell.FindOccupied(ctx, caller.TenantID, guard.GuardID, cell.WorkDate)
		if err == nil {
			return fmt.Errorf("%w: 保安 %s 于 %s 已在岗位 %s", ErrGuardDoubleBooked, guard.GuardID, formatDate(cell.WorkDate), other.PostID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		post, err := tx.Post.GetByID(ctx, caller.TenantID, cell.PostID)
		if err != nil {
			return mapNotFound(err, ErrPostNotFound)
		}

		amount, err := s.rates.RateFor(ctx, tx, cell)
		if err != nil {
			return err
		}

		// 5. 排班格状态迁移
		from = cell.CoverageState
		substituteID := guard.GuardID
		cell.SetState(next, &substituteID)
		cell.Meta.SubstituteGuardID = &substituteID
		cell.Meta.MonitoringState = model.MonitoringPendingCheck
		cell.Meta.LastUpdateAt = &now
		if req.Notes != "" {
			cell.Meta.Notes = req.Notes
		}
		cell.UpdatedBy = &caller.UserID
		if err := translateCellWrite(tx.Cell.Update(ctx, cell)); err != nil {
			return err
		}

		// 6. 加班记录
		shift = &model.OvertimeShift{
			TenantID:          caller.TenantID,
			RosterCellID:      cell.RosterCellID,
			SubstituteGuardID: substituteID,
			PostID:            cell.PostID,
			InstallationID:    cell.InstallationID,
			WorkDate:          cell.WorkDate,
			Amount:            amount,
			Origin:            origin,
		}
		shift.Version = 1
		shift.CreatedBy = &caller.UserID
		if err := tx.Shift.Create(ctx, shift); err != nil {
			if pkgerrors.IsDuplicateKey(err) {
				return fmt.Errorf("%w: 排班格 %s 已有加班记录", ErrCellAlreadyCovered, cell.RosterCellID)
			}
			return err
		}

		// 7. 缺岗退役 + 审计
		if _, err := s.rules.apply(ctx, tx, cell, post.IsActive, now, caller.UserID); err != nil {
			return err
		}
		return tx.ChangeLog.Create(ctx, &model.RosterChangeLog{
			TenantID:     caller.TenantID,
			RosterCellID: cell.RosterCellID,
			FromState:    from,
			ToState:      cell.CoverageState,
			GuardID:      &substituteID,
			ShiftID:      &shift.ShiftID,
			Action:       model.ActionAssign,
			Reason:       req.Notes,
			OperatorID:   caller.UserID,
		})
	})
	if err != nil {
		return nil, internalErr(s.logger, "指派顶班失败", err,
			zap.String("cell_id", req.CellID),
			zap.String("guard_id", req.SubstituteGuardID),
		)
	}

	shift.SubstituteGuard = guard
	s.notifier.Publish(cellEvent("cell.changed", caller.TenantID, cell, now))
	s.logger.Info("顶班已指派",
		zap.String("tenant_id", caller.TenantID),
		zap.String("cell_id", cell.RosterCellID),
		zap.String("guard_id", guard.GuardID),
		zap.String("from", string(from)),
		zap.String("to", string(cell.CoverageState)),
		zap.String("amount", shift.Amount.String()),
	)

	return &dto.CoverageResponse{
		Cell:  toCellResponse(cell, nil),
		Shift: toShiftResponse(shift),
	}, nil
}

// ════════════════════════════════════════════════════════════
// RevokeSubstitute
// ════════════════════════════════════════════════════════════

func (s *coverageService) RevokeSubstitute(ctx context.Context, caller Caller, cellID string, req *dto.RevokeSubstituteRequest) (*dto.RosterCellResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		cell  *model.RosterCell
		shift *model.OvertimeShift
		from  model.CoverageState
		guard *string
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

		var next model.CoverageState
		switch cell.CoverageState {
		case model.StateCovered:
			next = model.StateAbsentUncovered
		case model.StateOvertimeAssigned:
			next = model.StatePlanned
		default:
			return fmt.Errorf("%w: %s 状态为 %s", ErrInvalidTransition, cell.RosterCellID, cell.CoverageState)
		}

		// 1. 作废关联加班（先于排班格写入）
		shift, err = tx.Shift.GetActiveByCellForUpdate(ctx, caller.TenantID, cell.RosterCellID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if shift != nil {
			if shift.Preserved || shift.Paid {
				return fmt.Errorf("%w: %s", ErrShiftPreserved, shift.ShiftID)
			}
			if shift.PaymentBatchID != nil {
				return fmt.Errorf("%w: %s", ErrShiftInBatch, *shift.PaymentBatchID)
			}
			if err := tx.Shift.Void(ctx, shift, req.Reason, caller.UserID); err != nil {
				return err
			}
		} else {
			s.logger.Warn("在岗排班格缺少加班记录", zap.String("cell_id", cell.RosterCellID))
		}

		// 2. 排班格回退
		from = cell.CoverageState
		guard = cell.OccupantGuardID
		cell.SetState(next, nil)
		cell.Meta.SubstituteGuardID = nil
		if next == model.StateAbsentUncovered {
			cell.Meta.MonitoringState = model.MonitoringIncident
		} else {
			cell.Meta.MonitoringState = model.MonitoringNone
		}
		cell.Meta.LastUpdateAt = &now
		cell.UpdatedBy = &caller.UserID
		if err := translateCellWrite(tx.Cell.Update(ctx, cell)); err != nil {
			return err
		}

		post, err := tx.Post.GetByID(ctx, caller.TenantID, cell.PostID)
		if err != nil {
			return mapNotFound(err, ErrPostNotFound)
		}
		if _, err := s.rules.apply(ctx, tx, cell, post.IsActive, now, caller.UserID); err != nil {
			return err
		}

		log := &model.RosterChangeLog{
			TenantID:     caller.TenantID,
			RosterCellID: cell.RosterCellID,
			FromState:    from,
			ToState:      cell.CoverageState,
			GuardID:      guard,
			Action:       model.ActionRevoke,
			Reason:       req.Reason,
			OperatorID:   caller.UserID,
		}
		if shift != nil {
			log.ShiftID = &shift.ShiftID
		}
		return tx.ChangeLog.Create(ctx, log)
	})
	if err != nil {
		return nil, internalErr(s.logger, "撤销顶班失败", err, zap.String("cell_id", cellID))
	}

	s.notifier.Publish(cellEvent("cell.changed", caller.TenantID, cell, now))
	s.logger.Info("顶班已撤销",
		zap.String("tenant_id", caller.TenantID),
		zap.String("cell_id", cell.RosterCellID),
		zap.String("from", string(from)),
		zap.String("to", string(cell.CoverageState)),
	)

	resp := toCellResponse(cell, nil)
	return &resp, nil
}
