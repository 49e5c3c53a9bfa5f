package repo

import (
	"context"

	"github.com/dushixiang/tradingmode/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewTradeRepo(db *gorm.DB) *TradeRepo {
	return &TradeRepo{
		Repository: orz.NewRepository[models.TradeRecord, string](db),
	}
}

type TradeRepo struct {
	orz.Repository[models.TradeRecord, string]
}

// FindRecent 按执行时间倒序获取交易记录，mode 为空时不过滤
func (r TradeRepo) FindRecent(ctx context.Context, mode string, limit int) ([]models.TradeRecord, error) {
	var records []models.TradeRecord
	db := r.GetDB(ctx).Table(r.GetTableName())
	if mode != "" {
		db = db.Where("mode = ?", mode)
	}
	err := db.Where("deleted_at IS NULL").
		Order("executed_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// DeleteByMode 删除指定模式的全部交易记录
func (r TradeRepo) DeleteByMode(ctx context.Context, mode string) error {
	return r.GetDB(ctx).Where("mode = ?", mode).Delete(&models.TradeRecord{}).Error
}
