package exchange

import (
	"fmt"
	"strings"
)

// 通用交易类型定义，独立于任何特定交易所

// OrderSide 订单方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// String 方法用于日志输出
func (s OrderSide) String() string {
	return string(s)
}

// ParseOrderSide 解析订单方向，大小写不敏感
func ParseOrderSide(side string) (OrderSide, bool) {
	switch OrderSide(strings.ToLower(side)) {
	case OrderSideBuy:
		return OrderSideBuy, true
	case OrderSideSell:
		return OrderSideSell, true
	default:
		return "", false
	}
}

// Balance 账户余额，字段保留交易所返回的原始字符串
type Balance struct {
	Currency     string `json:"currency"`
	Balance      string `json:"balance"`
	Locked       string `json:"locked"`
	AvgBuyPrice  string `json:"avg_buy_price"`
	UnitCurrency string `json:"unit_currency"`
}

// OrderResult 下单确认
type OrderResult struct {
	UUID      string                 `json:"uuid"`
	Market    string                 `json:"market"`
	Side      string                 `json:"side"`
	OrdType   string                 `json:"ord_type"`
	Price     string                 `json:"price,omitempty"`
	Volume    string                 `json:"volume,omitempty"`
	State     string                 `json:"state"`
	CreatedAt string                 `json:"created_at,omitempty"`
	Raw       map[string]interface{} `json:"raw,omitempty"` // 交易所原始响应
}

// Credentials API 凭证
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Market 组装交易对，格式为 "<计价货币>-<币种>"，例如 KRW-BTC
func Market(quote, coin string) string {
	return fmt.Sprintf("%s-%s", quote, coin)
}

// SplitMarket 拆分 "<计价货币>-<币种>" 格式的交易对
func SplitMarket(market string) (quote, coin string, err error) {
	quote, coin, ok := strings.Cut(market, "-")
	if !ok || quote == "" || coin == "" {
		return "", "", fmt.Errorf("invalid market: %s", market)
	}
	return quote, coin, nil
}
