package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/internal/model"
)

// 岗位、保安、安装点均为外部主数据，此处只读

// InstallationRepository 安装点数据访问接口
type InstallationRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*model.Installation, error)
}

// GuardRepository 保安数据访问接口
type GuardRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*model.Guard, error)
	ListByIDs(ctx context.Context, tenantID string, ids []string) ([]model.Guard, error)
}

// PostRepository 岗位数据访问接口
type PostRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*model.OperationalPost, error)
	// List 列出租户岗位；activeOnly=false 时包含停用岗位
	List(ctx context.Context, tenantID string, activeOnly bool) ([]model.OperationalPost, error)
	ListByInstallation(ctx context.Context, tenantID, installationID string) ([]model.OperationalPost, error)
}

// ── Installation ──

type installationRepo struct {
	db *gorm.DB
}

func NewInstallationRepo(db *gorm.DB) InstallationRepository {
	return &installationRepo{db: db}
}

func (r *installationRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Installation, error) {
	var inst model.Installation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND installation_id = ?", tenantID, id).
		First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// ── Guard ──

type guardRepo struct {
	db *gorm.DB
}

func NewGuardRepo(db *gorm.DB) GuardRepository {
	return &guardRepo{db: db}
}

func (r *guardRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Guard, error) {
	var guard model.Guard
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND guard_id = ?", tenantID, id).
		First(&guard).Error
	if err != nil {
		return nil, err
	}
	return &guard, nil
}

func (r *guardRepo) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]model.Guard, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var guards []model.Guard
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND guard_id IN ?", tenantID, ids).
		Order("name ASC").
		Find(&guards).Error
	return guards, err
}

// ── OperationalPost ──

type postRepo struct {
	db *gorm.DB
}

func NewPostRepo(db *gorm.DB) PostRepository {
	return &postRepo{db: db}
}

func (r *postRepo) GetByID(ctx context.Context, tenantID, id string) (*model.OperationalPost, error) {
	var post model.OperationalPost
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND post_id = ?", tenantID, id).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepo) List(ctx context.Context, tenantID string, activeOnly bool) ([]model.OperationalPost, error) {
	var posts []model.OperationalPost
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("installation_id ASC, name ASC").Find(&posts).Error
	return posts, err
}

func (r *postRepo) ListByInstallation(ctx context.Context, tenantID, installationID string) ([]model.OperationalPost, error) {
	var posts []model.OperationalPost
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND installation_id = ?", tenantID, installationID).
		Order("name ASC").
		Find(&posts).Error
	return posts, err
}
