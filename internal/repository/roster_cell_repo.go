package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Cryptobal/GardOps-sub016/internal/model"
	pkgerrors "github.com/Cryptobal/GardOps-sub016/pkg/errors"
)

// RosterPeriodRepository 排班周期数据访问接口
type RosterPeriodRepository interface {
	// GetForShare 共享锁读取，与关闭周期的排他锁互斥
	GetForShare(ctx context.Context, tenantID string, year, month int) (*model.RosterPeriod, error)
	GetForUpdate(ctx context.Context, tenantID string, year, month int) (*model.RosterPeriod, error)
	// Ensure 不存在则以 open 状态创建，返回当前记录
	Ensure(ctx context.Context, tenantID string, year, month int, operatorID string) (*model.RosterPeriod, error)
	Update(ctx context.Context, period *model.RosterPeriod) error
}

// RosterCellRepository 排班格数据访问接口
type RosterCellRepository interface {
	BatchCreate(ctx context.Context, cells []model.RosterCell) error
	CountByPostPeriod(ctx context.Context, tenantID, postID string, year, month int) (int64, error)
	GetByID(ctx context.Context, tenantID, id string) (*model.RosterCell, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (*model.RosterCell, error)
	GetByPostDateForUpdate(ctx context.Context, tenantID, postID string, date time.Time) (*model.RosterCell, error)
	// FindOccupied 查找该保安当日占用的排班格，无则返回 gorm.ErrRecordNotFound
	FindOccupied(ctx context.Context, tenantID, guardID string, date time.Time) (*model.RosterCell, error)
	// Update 按版本号更新可变字段，版本不一致返回 ErrOptimisticLock
	Update(ctx context.Context, cell *model.RosterCell) error
	// ListByPeriodForUpdate 锁定整月排班格（缺岗重算、对账）
	ListByPeriodForUpdate(ctx context.Context, tenantID string, year, month int) ([]model.RosterCell, error)
	ListByPostPeriod(ctx context.Context, tenantID, postID string, year, month int) ([]model.RosterCell, error)
	ListByInstallationDate(ctx context.Context, tenantID, installationID string, date time.Time) ([]model.RosterCell, error)
	Revision(ctx context.Context, tenantID, postID string, year, month int) (Revision, error)
}

// RosterChangeLogRepository 排班变更日志数据访问接口
type RosterChangeLogRepository interface {
	Create(ctx context.Context, log *model.RosterChangeLog) error
	ListByCell(ctx context.Context, tenantID, cellID string) ([]model.RosterChangeLog, error)
}

// ── RosterPeriod Repository 实现 ──

type rosterPeriodRepo struct {
	db *gorm.DB
}

func NewRosterPeriodRepo(db *gorm.DB) RosterPeriodRepository {
	return &rosterPeriodRepo{db: db}
}

func (r *rosterPeriodRepo) GetForShare(ctx context.Context, tenantID string, year, month int) (*model.RosterPeriod, error) {
	var p model.RosterPeriod
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("tenant_id = ? AND year = ? AND month = ?", tenantID, year, month).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *rosterPeriodRepo) GetForUpdate(ctx context.Context, tenantID string, year, month int) (*model.RosterPeriod, error) {
	var p model.RosterPeriod
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("tenant_id = ? AND year = ? AND month = ?", tenantID, year, month).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *rosterPeriodRepo) Ensure(ctx context.Context, tenantID string, year, month int, operatorID string) (*model.RosterPeriod, error) {
	p := model.RosterPeriod{
		TenantID: tenantID,
		Year:     year,
		Month:    month,
		Status:   model.PeriodStatusOpen,
	}
	p.CreatedBy = &operatorID
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "year"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(&p).Error
	if err != nil {
		return nil, err
	}
	return r.GetForUpdate(ctx, tenantID, year, month)
}

func (r *rosterPeriodRepo) Update(ctx context.Context, period *model.RosterPeriod) error {
	return r.db.WithContext(ctx).
		Model(period).
		Where("period_id = ?", period.PeriodID).
		Updates(map[string]interface{}{
			"status":     period.Status,
			"closed_at":  period.ClosedAt,
			"updated_by": period.UpdatedBy,
		}).Error
}

// ── RosterCell Repository 实现 ──

type rosterCellRepo struct {
	db *gorm.DB
}

func NewRosterCellRepo(db *gorm.DB) RosterCellRepository {
	return &rosterCellRepo{db: db}
}

func (r *rosterCellRepo) BatchCreate(ctx context.Context, cells []model.RosterCell) error {
	if len(cells) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&cells, 100).Error
}

func (r *rosterCellRepo) CountByPostPeriod(ctx context.Context, tenantID, postID string, year, month int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.RosterCell{}).
		Where("tenant_id = ? AND post_id = ? AND year = ? AND month = ?", tenantID, postID, year, month).
		Count(&count).Error
	return count, err
}

func (r *rosterCellRepo) GetByID(ctx context.Context, tenantID, id string) (*model.RosterCell, error) {
	var cell model.RosterCell
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND roster_cell_id = ?", tenantID, id).
		First(&cell).Error
	if err != nil {
		return nil, err
	}
	return &cell, nil
}

func (r *rosterCellRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*model.RosterCell, error) {
	var cell model.RosterCell
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("tenant_id = ? AND roster_cell_id = ?", tenantID, id).
		First(&cell).Error
	if err != nil {
		return nil, err
	}
	return &cell, nil
}

func (r *rosterCellRepo) GetByPostDateForUpdate(ctx context.Context, tenantID, postID string, date time.Time) (*model.RosterCell, error) {
	var cell model.RosterCell
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("tenant_id = ? AND post_id = ? AND work_date = ?", tenantID, postID, date).
		First(&cell).Error
	if err != nil {
		return nil, err
	}
	return &cell, nil
}

func (r *rosterCellRepo) FindOccupied(ctx context.Context, tenantID, guardID string, date time.Time) (*model.RosterCell, error) {
	var cell model.RosterCell
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("tenant_id = ? AND occupant_guard_id = ? AND work_date = ?", tenantID, guardID, date).
		First(&cell).Error
	if err != nil {
		return nil, err
	}
	return &cell, nil
}

func (r *rosterCellRepo) Update(ctx context.Context, cell *model.RosterCell) error {
	oldVersion := cell.Version
	result := r.db.WithContext(ctx).
		Model(cell).
		Where("roster_cell_id = ? AND version = ?", cell.RosterCellID, oldVersion).
		Updates(map[string]interface{}{
			"planned_guard_id":         cell.PlannedGuardID,
			"occupant_guard_id":        cell.OccupantGuardID,
			"coverage_state":           cell.CoverageState,
			"absence_reason":           cell.AbsenceReason,
			"meta_substitute_guard_id": cell.Meta.SubstituteGuardID,
			"meta_monitoring_state":    cell.Meta.MonitoringState,
			"meta_notes":               cell.Meta.Notes,
			"meta_last_update_at":      cell.Meta.LastUpdateAt,
			"extra":                    cell.Extra,
			"updated_by":               cell.UpdatedBy,
			"version":                  oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	cell.Version = oldVersion + 1
	return nil
}

func (r *rosterCellRepo) ListByPeriodForUpdate(ctx context.Context, tenantID string, year, month int) ([]model.RosterCell, error) {
	var cells []model.RosterCell
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("tenant_id = ? AND year = ? AND month = ?", tenantID, year, month).
		Order("post_id ASC, work_date ASC").
		Find(&cells).Error
	return cells, err
}

func (r *rosterCellRepo) ListByPostPeriod(ctx context.Context, tenantID, postID string, year, month int) ([]model.RosterCell, error) {
	var cells []model.RosterCell
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND post_id = ? AND year = ? AND month = ?", tenantID, postID, year, month).
		Order("work_date ASC").
		Find(&cells).Error
	return cells, err
}

func (r *rosterCellRepo) ListByInstallationDate(ctx context.Context, tenantID, installationID string, date time.Time) ([]model.RosterCell, error) {
	var cells []model.RosterCell
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND installation_id = ? AND work_date = ?", tenantID, installationID, date).
		Order("post_id ASC").
		Find(&cells).Error
	return cells, err
}

func (r *rosterCellRepo) Revision(ctx context.Context, tenantID, postID string, year, month int) (Revision, error) {
	var row struct {
		Rows       int64
		VersionSum int64
		LastUpdate *time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&model.RosterCell{}).
		Select("COUNT(*) AS rows, COALESCE(SUM(version), 0) AS version_sum, MAX(updated_at) AS last_update").
		Where("tenant_id = ? AND post_id = ? AND year = ? AND month = ?", tenantID, postID, year, month).
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

// ── RosterChangeLog Repository 实现 ──

type rosterChangeLogRepo struct {
	db *gorm.DB
}

func NewRosterChangeLogRepo(db *gorm.DB) RosterChangeLogRepository {
	return &rosterChangeLogRepo{db: db}
}

func (r *rosterChangeLogRepo) Create(ctx context.Context, log *model.RosterChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *rosterChangeLogRepo) ListByCell(ctx context.Context, tenantID, cellID string) ([]model.RosterChangeLog, error) {
	var logs []model.RosterChangeLog
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND roster_cell_id = ?", tenantID, cellID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
