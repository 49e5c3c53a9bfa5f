package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange 交易所能力接口，只包含模式切换层需要的最小能力集合
// 不依赖具体的 SDK，便于在 Upbit、币安以及测试实现之间替换
type Exchange interface {
	// GetBalances 查询账户全部币种余额
	GetBalances(ctx context.Context) ([]*Balance, error)

	// BuyMarketOrder 市价买入，amount 为计价货币金额（例如 KRW）
	BuyMarketOrder(ctx context.Context, market string, amount decimal.Decimal) (*OrderResult, error)

	// SellMarketOrder 市价卖出，volume 为币的数量
	SellMarketOrder(ctx context.Context, market string, volume decimal.Decimal) (*OrderResult, error)
}
