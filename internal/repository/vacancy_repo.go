package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Cryptobal/GardOps-sub016/internal/model"
)

// VacancyFilter 缺岗查询条件，零值字段不参与过滤
type VacancyFilter struct {
	Status   string
	PostID   string
	Priority model.Priority
	From     time.Time
	To       time.Time
}

// VacancyRepository 缺岗数据访问接口
type VacancyRepository interface {
	// Create 插入 open 记录；同岗位同日已有 open 记录时不插入并返回 false
	Create(ctx context.Context, v *model.Vacancy) (bool, error)
	GetOpenByPostDate(ctx context.Context, tenantID, postID string, date time.Time) (*model.Vacancy, error)
	Update(ctx context.Context, v *model.Vacancy) error
	// List limit<=0 时不分页
	List(ctx context.Context, tenantID string, f VacancyFilter, offset, limit int) ([]model.Vacancy, int64, error)
	Revision(ctx context.Context, tenantID, postID string, from, to time.Time) (Revision, error)
}

type vacancyRepo struct {
	db *gorm.DB
}

func NewVacancyRepo(db *gorm.DB) VacancyRepository {
	return &vacancyRepo{db: db}
}

// openVacancyConflict 冲突目标须与部分唯一索引 uq_vacancies_open_post_day 一致。
// 索引谓词必须写成字面量：绑定参数在预编译语句转为通用计划后无法推断出该索引
var openVacancyConflict = clause.OnConflict{
	Columns:     []clause.Column{{Name: "post_id"}, {Name: "work_date"}},
	TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "status = '" + model.VacancyStatusOpen + "'"}}},
	DoNothing:   true,
}

func (r *vacancyRepo) Create(ctx context.Context, v *model.Vacancy) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(openVacancyConflict).Create(v)
	return result.RowsAffected > 0, result.Error
}

func (r *vacancyRepo) GetOpenByPostDate(ctx context.Context, tenantID, postID string, date time.Time) (*model.Vacancy, error) {
	var v model.Vacancy
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("tenant_id = ? AND post_id = ? AND work_date = ? AND status = ?",
			tenantID, postID, date, model.VacancyStatusOpen).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vacancyRepo) Update(ctx context.Context, v *model.Vacancy) error {
	return r.db.WithContext(ctx).
		Model(v).
		Where("vacancy_id = ?", v.VacancyID).
		Updates(map[string]interface{}{
			"roster_cell_id": v.RosterCellID,
			"reason":         v.Reason,
			"priority":       v.Priority,
			"status":         v.Status,
			"resolved_at":    v.ResolvedAt,
			"updated_by":     v.UpdatedBy,
		}).Error
}

func (r *vacancyRepo) List(ctx context.Context, tenantID string, f VacancyFilter, offset, limit int) ([]model.Vacancy, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Vacancy{}).Where("tenant_id = ?", tenantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PostID != "" {
		q = q.Where("post_id = ?", f.PostID)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if !f.From.IsZero() {
		q = q.Where("work_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("work_date <= ?", f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Vacancy
	q = q.Order("work_date ASC, post_id ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *vacancyRepo) Revision(ctx context.Context, tenantID, postID string, from, to time.Time) (Revision, error) {
	var row struct {
		Rows       int64
		LastUpdate *time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&model.Vacancy{}).
		Select("COUNT(*) AS rows, MAX(updated_at) AS last_update").
		Where("tenant_id = ? AND post_id = ? AND work_date BETWEEN ? AND ?", tenantID, postID, from, to).
		Scan(&row).Error
	if err != nil {
		return Revision{}, err
	}
	rev := Revision{Rows: row.Rows}
	if row.LastUpdate != nil {
		rev.LastUpdate = *row.LastUpdate
	}
	return rev, nil
}
