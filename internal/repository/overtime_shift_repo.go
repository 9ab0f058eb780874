package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/internal/model"
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// ShiftFilter 加班记录查询条件（仅未作废记录），零值字段不参与过滤
type ShiftFilter struct {
	PostID         string
	InstallationID string
	GuardID        string
	From           time.Time
	To             time.Time
	UnbatchedOnly  bool
}

// OvertimeShiftRepository 加班记录数据访问接口
type OvertimeShiftRepository interface {
	// Create 同一排班格已有未作废记录时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, shift *model.OvertimeShift) error
	GetByID(ctx context.Context, tenantID, id string) (*model.OvertimeShift, error)
	GetActiveByCell(ctx context.Context, tenantID, cellID string) (*model.OvertimeShift, error)
	GetActiveByCellForUpdate(ctx context.Context, tenantID, cellID string) (*model.OvertimeShift, error)
	// ListByIDsForUpdate 包含已作废记录，便于调用方区分"不存在"与"已作废"
	ListByIDsForUpdate(ctx context.Context, tenantID string, ids []string) ([]model.OvertimeShift, error)
	ListByBatch(ctx context.Context, tenantID, batchID string) ([]model.OvertimeShift, error)
	List(ctx context.Context, tenantID string, f ShiftFilter) ([]model.OvertimeShift, error)
	// AttachToBatch 仅挂接未支付、未入批、未作废的记录，返回受影响行数
	AttachToBatch(ctx context.Context, tenantID string, ids []string, batchID string) (int64, error)
	MarkPaidByBatch(ctx context.Context, tenantID, batchID string, paidAt time.Time) (int64, error)
	ReleaseBatch(ctx context.Context, tenantID, batchID string) (int64, error)
	// Void 作废（软删除）；已保全或已入批的记录不可作废，返回 ErrOptimisticLock
	Void(ctx context.Context, shift *model.OvertimeShift, reason, operatorID string) error
	Revision(ctx context.Context, tenantID, postID string, from, to time.Time) (Revision, error)
}

type overtimeShiftRepo struct {
	db *gorm.DB
}

func NewOvertimeShiftRepo(db *gorm.DB) OvertimeShiftRepository {
	return &overtimeShiftRepo{db: db}
}

func (r *overtimeShiftRepo) Create(ctx context.Context, shift *model.OvertimeShift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *overtimeShiftRepo) GetByID(ctx context.Context, tenantID, id string) (*model.OvertimeShift, error) {
	var shift model.OvertimeShift
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND shift_id = ?", tenantID, id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *overtimeShiftRepo) GetActiveByCell(ctx context.Context, tenantID, cellID string) (*model.OvertimeShift, error) {
	var shift model.OvertimeShift
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND roster_cell_id = ?", tenantID, cellID).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *overtimeShiftRepo) GetActiveByCellForUpdate(ctx context.Context, tenantID, cellID string) (*model.OvertimeShift, error) {
	var shift model.OvertimeShift
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("tenant_id = ? AND roster_cell_id = ?", tenantID, cellID).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *overtimeShiftRepo) ListByIDsForUpdate(ctx context.Context, tenantID string, ids []string) ([]model.OvertimeShift, error) {
	var shifts []model.OvertimeShift
	err := r.db.WithContext(ctx).
		Unscoped().
		Clauses(forUpdate).
		Where("tenant_id = ? AND shift_id IN ?", tenantID, ids).
		Order("work_date ASC, shift_id ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *overtimeShiftRepo) ListByBatch(ctx context.Context, tenantID, batchID string) ([]model.OvertimeShift, error) {
	var shifts []model.OvertimeShift
	err := r.db.WithContext(ctx).
		Preload("SubstituteGuard").
		Where("tenant_id = ? AND payment_batch_id = ?", tenantID, batchID).
		Order("work_date ASC, shift_id ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *overtimeShiftRepo) List(ctx context.Context, tenantID string, f ShiftFilter) ([]model.OvertimeShift, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if f.PostID != "" {
		q = q.Where("post_id = ?", f.PostID)
	}
	if f.InstallationID != "" {
		q = q.Where("installation_id = ?", f.InstallationID)
	}
	if f.GuardID != "" {
		q = q.Where("substitute_guard_id = ?", f.GuardID)
	}
	if !f.From.IsZero() {
		q = q.Where("work_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("work_date <= ?", f.To)
	}
	if f.UnbatchedOnly {
		q = q.Where("payment_batch_id IS NULL AND paid = ?", false)
	}
	var shifts []model.OvertimeShift
	err := q.Order("work_date ASC, shift_id ASC").Find(&shifts).Error
	return shifts, err
}

func (r *overtimeShiftRepo) AttachToBatch(ctx context.Context, tenantID string, ids []string, batchID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.OvertimeShift{}).
		Where("tenant_id = ? AND shift_id IN ? AND payment_batch_id IS NULL AND paid = ?", tenantID, ids, false).
		Updates(map[string]interface{}{
			"payment_batch_id": batchID,
			"version":          gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *overtimeShiftRepo) MarkPaidByBatch(ctx context.Context, tenantID, batchID string, paidAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.OvertimeShift{}).
		Where("tenant_id = ? AND payment_batch_id = ?", tenantID, batchID).
		Updates(map[string]interface{}{
			"paid":         true,
			"preserved":    true,
			"payment_date": paidAt,
			"version":      gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *overtimeShiftRepo) ReleaseBatch(ctx context.Context, tenantID, batchID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.OvertimeShift{}).
		Where("tenant_id = ? AND payment_batch_id = ? AND paid = ?", tenantID, batchID, false).
		Updates(map[string]interface{}{
			"payment_batch_id": nil,
			"version":          gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *overtimeShiftRepo) Void(ctx context.Context, shift *model.OvertimeShift, reason, operatorID string) error {
	oldVersion := shift.Version
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(shift).
		Where("shift_id = ? AND version = ? AND preserved = ? AND payment_batch_id IS NULL", shift.ShiftID, oldVersion, false).
		Updates(map[string]interface{}{
			"void_reason": reason,
			"deleted_at":  now,
			"deleted_by":  operatorID,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	shift.Version = oldVersion + 1
	shift.VoidReason = reason
	shift.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
	shift.DeletedBy = &operatorID
	return nil
}

func (r *overtimeShiftRepo) Revision(ctx context.Context, tenantID, postID string, from, to time.Time) (Revision, error) {
	var row struct {
		Rows       int64
		VersionSum int64
		LastUpdate *time.Time
	}
	// 含已作废记录：作废本身也是一次变更
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.OvertimeShift{}).
		Select("COUNT(*) AS rows, COALESCE(SUM(version), 0) AS version_sum, MAX(updated_at) AS last_update").
		Where("tenant_id = ? AND post_id = ? AND work_date BETWEEN ? AND ?", tenantID, postID, from, to).
		Scan(&row).Error
	if err != nil {
		return Revision{}, err
	}
	rev := Revision{Rows: row.Rows, VersionSum: row.VersionSum}
	if row.LastUpdate != nil {
		rev.LastUpdate = *row.LastUpdate
	}
	return rev, nil
}
