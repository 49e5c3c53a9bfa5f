package service

import (
	"context"

	"github.com/dushixiang/tradingmode/internal/config"
	"github.com/dushixiang/tradingmode/internal/models"
	"github.com/dushixiang/tradingmode/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TradeRecorder 交易记录持久化
type TradeRecorder interface {
	Record(ctx context.Context, record *models.TradeRecord) error
	ClearVirtual(ctx context.Context) error
}

// TradeJournal 基于数据库的交易记录
type TradeJournal struct {
	logger *zap.Logger
	*repo.TradeRepo
}

// NewTradeJournal 创建交易记录服务
func NewTradeJournal(db *gorm.DB, logger *zap.Logger) *TradeJournal {
	return &TradeJournal{
		logger:    logger,
		TradeRepo: repo.NewTradeRepo(db),
	}
}

var _ TradeRecorder = (*TradeJournal)(nil)

// Record 保存一条交易记录
func (j *TradeJournal) Record(ctx context.Context, record *models.TradeRecord) error {
	return j.TradeRepo.Create(ctx, record)
}

// ClearVirtual 清空虚拟交易记录
func (j *TradeJournal) ClearVirtual(ctx context.Context) error {
	if err := j.TradeRepo.DeleteByMode(ctx, config.ModeVirtual); err != nil {
		return err
	}
	j.logger.Info("virtual trade records cleared")
	return nil
}

// Recent 最近的交易记录，mode 为空时返回全部模式
func (j *TradeJournal) Recent(ctx context.Context, mode string, limit int) ([]models.TradeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return j.TradeRepo.FindRecent(ctx, mode, limit)
}
