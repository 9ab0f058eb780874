package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	runTx TxRunner

	Installation InstallationRepository
	Guard        GuardRepository
	Post         PostRepository
	Period       RosterPeriodRepository
	Cell         RosterCellRepository
	ChangeLog    RosterChangeLogRepository
	Vacancy      VacancyRepository
	Shift        OvertimeShiftRepository
	Batch        PaymentBatchRepository
	Rate         OvertimeRateRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		runTx:        gormTxRunner(db),
		Installation: NewInstallationRepo(db),
		Guard:        NewGuardRepo(db),
		Post:         NewPostRepo(db),
		Period:       NewRosterPeriodRepo(db),
		Cell:         NewRosterCellRepo(db),
		ChangeLog:    NewRosterChangeLogRepo(db),
		Vacancy:      NewVacancyRepo(db),
		Shift:        NewOvertimeShiftRepo(db),
		Batch:        NewPaymentBatchRepo(db),
		Rate:         NewOvertimeRateRepo(db),
	}
}

// TxRunner 事务执行器：以 repo 为起点开启事务，把绑定到事务的聚合交给 fn。
// fn 返回错误或 panic 时整体回滚
type TxRunner func(ctx context.Context, repo *Repository, fn func(tx *Repository) error) error

// ErrNoTxRunner 聚合未配置事务执行器
var ErrNoTxRunner = errors.New("repository: 未配置事务执行器")

func gormTxRunner(db *gorm.DB) TxRunner {
	return func(ctx context.Context, _ *Repository, fn func(tx *Repository) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(NewRepository(tx))
		})
	}
}

// WithTxRunner 替换事务执行器（内存实现的聚合需要注入）
func (r *Repository) WithTxRunner(run TxRunner) *Repository {
	r.runTx = run
	return r
}

// Transaction 在单个数据库事务内执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.runTx == nil {
		return ErrNoTxRunner
	}
	return r.runTx(ctx, r, fn)
}

// Revision 一组行的变更指纹，用于投影缓存键
type Revision struct {
	Rows       int64
	VersionSum int64
	LastUpdate time.Time
}

// forUpdate 行锁（SELECT ... FOR UPDATE），仅在事务内有效
var forUpdate = clause.Locking{Strength: "UPDATE"}
