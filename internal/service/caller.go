package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/internal/dto"
	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// Caller 调用方身份，租户取自 JWT 声明，所有操作按租户隔离
type Caller struct {
	TenantID string
	UserID   string
}

func (c Caller) validate() error {
	if c.TenantID == "" {
		return ErrTenantRequired
	}
	return nil
}

// ChangeNotifier 事务提交后的变更推送（尽力而为）
type ChangeNotifier interface {
	Publish(ev dto.CellEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(dto.CellEvent) {}

// ════════════════════════════════════════════════════════════
// 共享辅助
// ════════════════════════════════════════════════════════════

// mapNotFound 将 gorm.ErrRecordNotFound 映射为模块错误，其余原样返回
func mapNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// internalErr 记录基础设施错误；业务错误原样透传
func internalErr(logger *zap.Logger, msg string, err error, fields ...zap.Field) error {
	if _, ok := pkgerrors.As(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	logger.Error(msg, append(fields, zap.Error(err))...)
	return err
}

// checkVersion 客户端携带版本号时要求与当前一致
func checkVersion(expected *int, cell *model.RosterCell) error {
	if expected != nil && *expected != cell.Version {
		return fmt.Errorf("%w: 期望版本 %d，当前版本 %d", ErrCellVersionMismatch, *expected, cell.Version)
	}
	return nil
}

// requireOpenPeriod 排班格所在周期必须处于 open
func requireOpenPeriod(ctx context.Context, tx *repository.Repository, tenantID string, year, month int) error {
	period, err := tx.Period.GetForShare(ctx, tenantID, year, month)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %04d-%02d", ErrPeriodNotFound, year, month)
		}
		return err
	}
	if period.Status != model.PeriodStatusOpen {
		return fmt.Errorf("%w: %04d-%02d", ErrPeriodClosed, year, month)
	}
	return nil
}

// translateCellWrite 排班格写入失败的冲突翻译：在岗唯一索引冲突即重复排班
func translateCellWrite(err error) error {
	switch {
	case err == nil:
		return nil
	case pkgerrors.IsDuplicateKey(err):
		return ErrGuardDoubleBooked
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		return ErrCellVersionMismatch
	}
	return err
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

func formatDate(t time.Time) string { return t.Format(dto.DateLayout) }

func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func strPtr(s string) *string { return &s }

// ── 模型 → DTO ──

func toLegacyDTO(t model.LegacyTokens) dto.LegacyTokens {
	return dto.LegacyTokens{Estado: t.Estado, EstadoUI: t.EstadoUI, TipoCobertura: t.TipoCobertura}
}

func toCellResponse(c *model.RosterCell, shift *model.OvertimeShift) dto.RosterCellResponse {
	resp := dto.RosterCellResponse{
		ID:              c.RosterCellID,
		PostID:          c.PostID,
		InstallationID:  c.InstallationID,
		WorkDate:        formatDate(c.WorkDate),
		PlannedGuardID:  c.PlannedGuardID,
		OccupantGuardID: c.OccupantGuardID,
		CoverageState:   string(c.CoverageState),
		Legacy:          toLegacyDTO(c.CoverageState.ToLegacy()),
		Metadata: dto.CellMetadataResponse{
			SubstituteGuardID: c.Meta.SubstituteGuardID,
			MonitoringState:   string(c.Meta.MonitoringState),
			Notes:             c.Meta.Notes,
			LastUpdateAt:      formatTimePtr(c.Meta.LastUpdateAt),
		},
		Extra:     c.Extra,
		Version:   c.Version,
		UpdatedAt: formatTime(c.UpdatedAt),
	}
	if c.AbsenceReason != nil {
		resp.AbsenceReason = strPtr(string(*c.AbsenceReason))
	}
	if shift != nil {
		sr := toShiftResponse(shift)
		resp.Shift = &sr
	}
	return resp
}

func toShiftResponse(s *model.OvertimeShift) dto.OvertimeShiftResponse {
	resp := dto.OvertimeShiftResponse{
		ID:                s.ShiftID,
		RosterCellID:      s.RosterCellID,
		SubstituteGuardID: s.SubstituteGuardID,
		PostID:            s.PostID,
		InstallationID:    s.InstallationID,
		WorkDate:          formatDate(s.WorkDate),
		Amount:            s.Amount,
		Origin:            string(s.Origin),
		Paid:              s.Paid,
		Preserved:         s.Preserved,
		PaymentDate:       formatTimePtr(s.PaymentDate),
		PaymentBatchID:    s.PaymentBatchID,
		Voided:            s.DeletedAt.Valid,
		VoidReason:        s.VoidReason,
	}
	if s.SubstituteGuard != nil {
		resp.SubstituteGuard = &dto.GuardBrief{ID: s.SubstituteGuard.GuardID, Name: s.SubstituteGuard.Name, RUT: s.SubstituteGuard.RUT}
	}
	return resp
}

func cellEvent(eventType, tenantID string, c *model.RosterCell, at time.Time) dto.CellEvent {
	return dto.CellEvent{
		Type:           eventType,
		TenantID:       tenantID,
		InstallationID: c.InstallationID,
		PostID:         c.PostID,
		CellID:         c.RosterCellID,
		WorkDate:       formatDate(c.WorkDate),
		CoverageState:  string(c.CoverageState),
		Version:        c.Version,
		At:             at,
	}
}
