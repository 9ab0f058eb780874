package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Cryptobal/GardOps-sub016/internal/model"
	"github.com/Cryptobal/GardOps-sub016/internal/repository"
)

// RateProvider 加班定价
// 在顶班事务内调用，只允许读取数据库
type RateProvider interface {
	RateFor(ctx context.Context, tx *repository.Repository, cell *model.RosterCell) (decimal.Decimal, error)
}

// tableRateProvider 费率表优先（岗位 > 安装点 > 租户），无匹配时取配置默认费率
type tableRateProvider struct {
	fallback decimal.Decimal
}

// NewRateProvider 创建基于 overtime_rates 的定价器
func NewRateProvider(fallback decimal.Decimal) RateProvider {
	return &tableRateProvider{fallback: fallback}
}

func (p *tableRateProvider) RateFor(ctx context.Context, tx *repository.Repository, cell *model.RosterCell) (decimal.Decimal, error) {
	rate, err := tx.Rate.FindEffective(ctx, cell.TenantID, cell.PostID, cell.InstallationID, cell.WorkDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p.fallback, nil
		}
		return decimal.Zero, err
	}
	return rate.Amount, nil
}
