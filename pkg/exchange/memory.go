package exchange

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryExchange 内存交易所，余额与订单都保存在内存中，不访问网络
type MemoryExchange struct {
	balances []*Balance
	orders   []*OrderResult
	orderID  int64 // 订单ID计数器
	failWith error // 非空时所有调用返回该错误
	mu       sync.RWMutex
}

// NewMemoryExchange 创建内存交易所
func NewMemoryExchange(balances ...*Balance) *MemoryExchange {
	return &MemoryExchange{
		balances: balances,
		orderID:  1000000,
	}
}

var _ Exchange = (*MemoryExchange)(nil)

// FailWith 设置后续调用返回的错误，传 nil 恢复正常
func (m *MemoryExchange) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Orders 已成交订单
func (m *MemoryExchange) Orders() []*OrderResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := make([]*OrderResult, len(m.orders))
	copy(orders, m.orders)
	return orders
}

func (m *MemoryExchange) GetBalances(ctx context.Context) ([]*Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	balances := make([]*Balance, 0, len(m.balances))
	for _, b := range m.balances {
		copied := *b
		balances = append(balances, &copied)
	}
	return balances, nil
}

func (m *MemoryExchange) BuyMarketOrder(ctx context.Context, market string, amount decimal.Decimal) (*OrderResult, error) {
	return m.place(market, "bid", "price", amount)
}

func (m *MemoryExchange) SellMarketOrder(ctx context.Context, market string, volume decimal.Decimal) (*OrderResult, error) {
	return m.place(market, "ask", "market", volume)
}

func (m *MemoryExchange) place(market, side, ordType string, qty decimal.Decimal) (*OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("invalid order quantity: %s", qty.String())
	}

	m.orderID++
	order := &OrderResult{
		UUID:      "mem-" + strconv.FormatInt(m.orderID, 10),
		Market:    market,
		Side:      side,
		OrdType:   ordType,
		State:     "done",
		CreatedAt: time.Now().Format(time.RFC3339),
	}
	if side == "bid" {
		order.Price = qty.String()
	} else {
		order.Volume = qty.String()
	}
	order.Raw = map[string]interface{}{
		"uuid":     order.UUID,
		"market":   market,
		"side":     side,
		"ord_type": ordType,
		"state":    order.State,
	}
	m.orders = append(m.orders, order)
	return order, nil
}
