package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Cryptobal/GardOps-sub016/internal/model"
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// PaymentBatchRepository 支付批次数据访问接口
type PaymentBatchRepository interface {
	// NextSequence 原子递增并返回 (tenant, year, month) 的批次序号
	NextSequence(ctx context.Context, tenantID string, year, month int) (int, error)
	Create(ctx context.Context, batch *model.PaymentBatch) error
	GetByID(ctx context.Context, tenantID, id string) (*model.PaymentBatch, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*model.PaymentBatch, error)
	// Update 按版本号更新状态字段
	Update(ctx context.Context, batch *model.PaymentBatch) error
	// Delete 物理删除 pending 批次，版本或状态不符返回 ErrOptimisticLock
	Delete(ctx context.Context, batch *model.PaymentBatch) error
	List(ctx context.Context, tenantID string, state model.BatchState, offset, limit int) ([]model.PaymentBatch, int64, error)
}

// OvertimeRateRepository 加班费率数据访问接口
type OvertimeRateRepository interface {
	// FindEffective 返回 date 当日生效的最具体费率，无则 gorm.ErrRecordNotFound
	FindEffective(ctx context.Context, tenantID, postID, installationID string, date time.Time) (*model.OvertimeRate, error)
}

// ── PaymentBatch Repository 实现 ──

type paymentBatchRepo struct {
	db *gorm.DB
}

func NewPaymentBatchRepo(db *gorm.DB) PaymentBatchRepository {
	return &paymentBatchRepo{db: db}
}

func (r *paymentBatchRepo) NextSequence(ctx context.Context, tenantID string, year, month int) (int, error) {
	seq := model.PaymentBatchSequence{TenantID: tenantID, Year: year, Month: month, LastValue: 1}
	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "tenant_id"}, {Name: "year"}, {Name: "month"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"last_value": gorm.Expr("payment_batch_sequences.last_value + 1"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "last_value"}}},
		).
		Create(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}

func (r *paymentBatchRepo) Create(ctx context.Context, batch *model.PaymentBatch) error {
	return r.db.WithContext(ctx).Omit("Shifts").Create(batch).Error
}

func (r *paymentBatchRepo) GetByID(ctx context.Context, tenantID, id string) (*model.PaymentBatch, error) {
	var batch model.PaymentBatch
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND batch_id = ?", tenantID, id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *paymentBatchRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*model.PaymentBatch, error) {
	var batch model.PaymentBatch
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("tenant_id = ? AND batch_id = ?", tenantID, id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *paymentBatchRepo) Update(ctx context.Context, batch *model.PaymentBatch) error {
	oldVersion := batch.Version
	result := r.db.WithContext(ctx).
		Model(batch).
		Where("batch_id = ? AND version = ?", batch.BatchID, oldVersion).
		Updates(map[string]interface{}{
			"state":      batch.State,
			"paid_at":    batch.PaidAt,
			"paid_by":    batch.PaidBy,
			"updated_by": batch.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	batch.Version = oldVersion + 1
	return nil
}

func (r *paymentBatchRepo) Delete(ctx context.Context, batch *model.PaymentBatch) error {
	result := r.db.WithContext(ctx).
		Where("batch_id = ? AND version = ? AND state = ?", batch.BatchID, batch.Version, model.BatchPending).
		Delete(&model.PaymentBatch{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *paymentBatchRepo) List(ctx context.Context, tenantID string, state model.BatchState, offset, limit int) ([]model.PaymentBatch, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.PaymentBatch{}).Where("tenant_id = ?", tenantID)
	if state != "" {
		q = q.Where("state = ?", state)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.PaymentBatch
	err := q.Order("generated_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ── OvertimeRate Repository 实现 ──

type overtimeRateRepo struct {
	db *gorm.DB
}

func NewOvertimeRateRepo(db *gorm.DB) OvertimeRateRepository {
	return &overtimeRateRepo{db: db}
}

func (r *overtimeRateRepo) FindEffective(ctx context.Context, tenantID, postID, installationID string, date time.Time) (*model.OvertimeRate, error) {
	var rate model.OvertimeRate
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND effective_from <= ?", tenantID, date).
		Where("(post_id = ? OR post_id IS NULL)", postID).
		Where("(installation_id = ? OR installation_id IS NULL)", installationID).
		Order("post_id IS NULL ASC, installation_id IS NULL ASC, effective_from DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
