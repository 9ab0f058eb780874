package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/config"
	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
)

// SettlementService 加班结算业务接口
type SettlementService interface {
	CreateBatch(ctx context.Context, caller Caller, req *dto.CreateBatchRequest) (*dto.PaymentBatchResponse, error)
	// MarkBatchPaid pending → paid，成员加班置 paid = preserved = true；重复调用返回冲突
	MarkBatchPaid(ctx context.Context, caller Caller, batchID string) (*dto.PaymentBatchResponse, error)
	// DeleteBatch 仅 pending 批次可删除，成员加班释放回待结算
	DeleteBatch(ctx context.Context, caller Caller, batchID string) error
	GetBatch(ctx context.Context, caller Caller, batchID string) (*dto.PaymentBatchResponse, error)
	ListBatches(ctx context.Context, caller Caller, req *dto.BatchListRequest) ([]dto.PaymentBatchResponse, int64, error)
	ListUnbatchedShifts(ctx context.Context, caller Caller, req *dto.UnbatchedShiftListRequest) (*dto.UnbatchedShiftsResponse, error)
}

type settlementService struct {
	repo     *repository.Repository
	loc      *time.Location
	notifier ChangeNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewSettlementService 创建 SettlementService 实例
func NewSettlementService(repo *repository.Repository, cfg *config.RosterConfig, notifier ChangeNotifier, logger *zap.Logger) SettlementService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &settlementService{
		repo:     repo,
		loc:      cfg.Location(),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// CreateBatch
// ════════════════════════════════════════════════════════════

func (s *settlementService) CreateBatch(ctx context.Context, caller Caller, req *dto.CreateBatchRequest) (*dto.PaymentBatchResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	if len(req.ShiftIDs) == 0 {
		return nil, ErrEmptyBatch
	}
	seen := make(map[string]bool, len(req.ShiftIDs))
	for _, id := range req.ShiftIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateShift, id)
		}
		seen[id] = true
	}

	now := s.now()
	local := now.In(s.loc)
	batch := &model.PaymentBatch{
		BatchID:     uuid.NewString(),
		TenantID:    caller.TenantID,
		GeneratedAt: now,
		ShiftCount:  len(req.ShiftIDs),
		State:       model.BatchPending,
	}
	batch.Version = 1
	batch.CreatedBy = &caller.UserID

	var shifts []model.OvertimeShift
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 1. 锁定并校验全部成员
		var err error
		shifts, err = tx.Shift.ListByIDsForUpdate(ctx, caller.TenantID, req.ShiftIDs)
		if err != nil {
			return err
		}
		byID := make(map[string]*model.OvertimeShift, len(shifts))
		for i := range shifts {
			byID[shifts[i].ShiftID] = &shifts[i]
		}
		for _, id := range req.ShiftIDs {
			sh, ok := byID[id]
			switch {
			case !ok:
				return fmt.Errorf("%w: %s", ErrShiftNotFound, id)
			case sh.DeletedAt.Valid:
				return fmt.Errorf("%w: %s", ErrShiftVoided, id)
			case sh.Paid:
				return fmt.Errorf("%w: %s", ErrShiftAlreadyPaid, id)
			case sh.PaymentBatchID != nil:
				return fmt.Errorf("%w: %s", ErrShiftAlreadyBatched, id)
			}
		}
		batch.TotalAmount = sumAmounts(shifts)

		// 2. 挂接（外键延迟到提交时校验）
		n, err := tx.Shift.AttachToBatch(ctx, caller.TenantID, req.ShiftIDs, batch.BatchID)
		if err != nil {
			return err
		}
		if n != int64(len(req.ShiftIDs)) {
			return fmt.Errorf("%w: 期望挂接 %d 条，实际 %d 条", ErrShiftAlreadyBatched, len(req.ShiftIDs), n)
		}

		// 3. 编号 + 批次
		seq, err := tx.Batch.NextSequence(ctx, caller.TenantID, local.Year(), int(local.Month()))
		if err != nil {
			return err
		}
		batch.Code = model.BatchCode(local.Year(), int(local.Month()), seq)
		return tx.Batch.Create(ctx, batch)
	})
	if err != nil {
		return nil, internalErr(s.logger, "创建支付批次失败", err, zap.Int("shift_count", len(req.ShiftIDs)))
	}

	for i := range shifts {
		shifts[i].PaymentBatchID = &batch.BatchID
	}
	batch.Shifts = shifts

	s.logger.Info("支付批次已创建",
		zap.String("tenant_id", caller.TenantID),
		zap.String("batch_id", batch.BatchID),
		zap.String("code", batch.Code),
		zap.Int("shift_count", batch.ShiftCount),
		zap.String("total", batch.TotalAmount.String()),
	)
	return toBatchResponse(batch), nil
}

// ════════════════════════════════════════════════════════════
// MarkBatchPaid
// ════════════════════════════════════════════════════════════

func (s *settlementService) MarkBatchPaid(ctx context.Context, caller Caller, batchID string) (*dto.PaymentBatchResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	var batch *model.PaymentBatch
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		batch, err = tx.Batch.GetForUpdate(ctx, caller.TenantID, batchID)
		if err != nil {
			return mapNotFound(err, ErrBatchNotFound)
		}
		if batch.State == model.BatchPaid {
			return fmt.Errorf("%w: %s", ErrBatchAlreadyPaid, batch.Code)
		}

		batch.State = model.BatchPaid
		batch.PaidAt = &now
		batch.PaidBy = &caller.UserID
		batch.UpdatedBy = &caller.UserID
		if err := tx.Batch.Update(ctx, batch); err != nil {
			return err
		}
		if _, err := tx.Shift.MarkPaidByBatch(ctx, caller.TenantID, batch.BatchID, now); err != nil {
			return err
		}
		batch.Shifts, err = tx.Shift.ListByBatch(ctx, caller.TenantID, batch.BatchID)
		return err
	})
	if err != nil {
		return nil, internalErr(s.logger, "支付批次失败", err, zap.String("batch_id", batchID))
	}

	s.publishShiftCells(caller.TenantID, batch.Shifts, now)
	s.logger.Info("支付批次已支付",
		zap.String("tenant_id", caller.TenantID),
		zap.String("batch_id", batch.BatchID),
		zap.String("code", batch.Code),
	)
	return toBatchResponse(batch), nil
}

// ════════════════════════════════════════════════════════════
// DeleteBatch
// ════════════════════════════════════════════════════════════

func (s *settlementService) DeleteBatch(ctx context.Context, caller Caller, batchID string) error {
	if err := caller.validate(); err != nil {
		return err
	}

	var (
		batch    *model.PaymentBatch
		released int64
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		batch, err = tx.Batch.GetForUpdate(ctx, caller.TenantID, batchID)
		if err != nil {
			return mapNotFound(err, ErrBatchNotFound)
		}
		if batch.State == model.BatchPaid {
			return fmt.Errorf("%w: %s", ErrBatchAlreadyPaid, batch.Code)
		}
		// 外键无级联动作，必须先释放成员
		released, err = tx.Shift.ReleaseBatch(ctx, caller.TenantID, batch.BatchID)
		if err != nil {
			return err
		}
		return tx.Batch.Delete(ctx, batch)
	})
	if err != nil {
		return internalErr(s.logger, "删除支付批次失败", err, zap.String("batch_id", batchID))
	}

	s.logger.Info("支付批次已删除",
		zap.String("tenant_id", caller.TenantID),
		zap.String("batch_id", batch.BatchID),
		zap.String("code", batch.Code),
		zap.Int64("released", released),
	)
	return nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *settlementService) GetBatch(ctx context.Context, caller Caller, batchID string) (*dto.PaymentBatchResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	batch, err := s.repo.Batch.GetByID(ctx, caller.TenantID, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		s.logger.Error("查询支付批次失败", zap.Error(err))
		return nil, err
	}
	batch.Shifts, err = s.repo.Shift.ListByBatch(ctx, caller.TenantID, batch.BatchID)
	if err != nil {
		s.logger.Error("查询批次加班记录失败", zap.Error(err))
		return nil, err
	}
	return toBatchResponse(batch), nil
}

func (s *settlementService) ListBatches(ctx context.Context, caller Caller, req *dto.BatchListRequest) ([]dto.PaymentBatchResponse, int64, error) {
	if err := caller.validate(); err != nil {
		return nil, 0, err
	}
	list, total, err := s.repo.Batch.List(ctx, caller.TenantID, model.BatchState(req.State), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询支付批次列表失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.PaymentBatchResponse, 0, len(list))
	for i := range list {
		result = append(result, *toBatchResponse(&list[i]))
	}
	return result, total, nil
}

func (s *settlementService) ListUnbatchedShifts(ctx context.Context, caller Caller, req *dto.UnbatchedShiftListRequest) (*dto.UnbatchedShiftsResponse, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	period := model.Period{Year: req.Year, Month: req.Month}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}

	shifts, err := s.repo.Shift.List(ctx, caller.TenantID, repository.ShiftFilter{
		PostID:        req.PostID,
		From:          period.FirstDay(),
		To:            period.LastDay(),
		UnbatchedOnly: true,
	})
	if err != nil {
		s.logger.Error("查询待结算加班失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.UnbatchedShiftsResponse{
		Period:      period.String(),
		Count:       len(shifts),
		TotalAmount: sumAmounts(shifts),
		Shifts:      make([]dto.OvertimeShiftResponse, 0, len(shifts)),
	}
	for i := range shifts {
		resp.Shifts = append(resp.Shifts, toShiftResponse(&shifts[i]))
	}
	return resp, nil
}

// ── 辅助函数 ──

func sumAmounts(shifts []model.OvertimeShift) decimal.Decimal {
	total := decimal.Zero
	for i := range shifts {
		total = total.Add(shifts[i].Amount)
	}
	return total
}

// publishShiftCells 支付后推送相关排班格（加班状态在日视图中可见）
func (s *settlementService) publishShiftCells(tenantID string, shifts []model.OvertimeShift, at time.Time) {
	for i := range shifts {
		sh := &shifts[i]
		s.notifier.Publish(dto.CellEvent{
			Type:           "cell.changed",
			TenantID:       tenantID,
			InstallationID: sh.InstallationID,
			PostID:         sh.PostID,
			CellID:         sh.RosterCellID,
			WorkDate:       formatDate(sh.WorkDate),
			At:             at,
		})
	}
}

func toBatchResponse(b *model.PaymentBatch) *dto.PaymentBatchResponse {
	resp := &dto.PaymentBatchResponse{
		ID:          b.BatchID,
		Code:        b.Code,
		GeneratedAt: formatTime(b.GeneratedAt),
		TotalAmount: b.TotalAmount,
		ShiftCount:  b.ShiftCount,
		State:       string(b.State),
		PaidAt:      formatTimePtr(b.PaidAt),
		PaidBy:      b.PaidBy,
		Version:     b.Version,
	}
	for i := range b.Shifts {
		resp.Shifts = append(resp.Shifts, toShiftResponse(&b.Shifts[i]))
	}
	return resp
}
