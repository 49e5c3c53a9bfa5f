package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TradeStatusOK     = "ok"
	TradeStatusFailed = "failed"
)

// TradeRecord 交易记录，虚拟模式和实盘的下单意图与结果都会记录
type TradeRecord struct {
	ID         string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Mode       string         `gorm:"type:varchar(10);not null;index" json:"mode"`  // virtual/real
	Coin       string         `gorm:"type:varchar(20);not null;index" json:"coin"`  // 币种
	Market     string         `gorm:"type:varchar(30)" json:"market"`               // 交易对，仅实盘
	Side       string         `gorm:"type:varchar(10);not null" json:"side"`        // buy/sell
	Amount     string         `gorm:"type:varchar(40);not null" json:"amount"`      // 买入为计价货币金额，卖出为币数量
	OrderID    string         `gorm:"type:varchar(64);index" json:"order_id"`       // 交易所订单ID
	Status     string         `gorm:"type:varchar(10);not null" json:"status"`      // ok/failed
	Error      string         `gorm:"type:text" json:"error,omitempty"`             // 失败原因
	Raw        datatypes.JSON `gorm:"type:json" json:"raw,omitempty"`               // 交易所原始响应
	ExecutedAt time.Time      `gorm:"not null;index" json:"executed_at"`            // 执行时间
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (TradeRecord) TableName() string {
	return "trade_records"
}
