package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// BinanceClient 币安现货API客户端
type BinanceClient struct {
	client *binance.Client
}

// NewBinanceClient 创建Binance客户端
func NewBinanceClient(apiKey, secretKey, proxyURL string, testnet bool) *BinanceClient {
	if testnet {
		// 测试网URL
		binance.UseTestnet = true
	}

	var client *binance.Client
	if proxyURL != "" {
		client = binance.NewProxiedClient(apiKey, secretKey, proxyURL)
	} else {
		client = binance.NewClient(apiKey, secretKey)
	}

	return &BinanceClient{
		client: client,
	}
}

var _ Exchange = (*BinanceClient)(nil)

// BinanceSymbol 将 "USDT-BTC" 转换为币安的 "BTCUSDT"
func BinanceSymbol(market string) (string, error) {
	quote, coin, err := SplitMarket(market)
	if err != nil {
		return "", err
	}
	return coin + quote, nil
}

// GetBalances 获取现货账户余额
// 币安不提供持仓均价，均价固定返回 0
func (b *BinanceClient) GetBalances(ctx context.Context) ([]*Balance, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}

	result := make([]*Balance, 0, len(account.Balances))
	for _, bal := range account.Balances {
		result = append(result, &Balance{
			Currency:    bal.Asset,
			Balance:     bal.Free,
			Locked:      bal.Locked,
			AvgBuyPrice: "0",
		})
	}
	return result, nil
}

// BuyMarketOrder 按计价货币金额市价买入
func (b *BinanceClient) BuyMarketOrder(ctx context.Context, market string, amount decimal.Decimal) (*OrderResult, error) {
	symbol, err := BinanceSymbol(market)
	if err != nil {
		return nil, err
	}

	order, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(amount.String()).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create market buy order: %w", err)
	}

	return toOrderResult(market, order), nil
}

// SellMarketOrder 按数量市价卖出
func (b *BinanceClient) SellMarketOrder(ctx context.Context, market string, volume decimal.Decimal) (*OrderResult, error) {
	symbol, err := BinanceSymbol(market)
	if err != nil {
		return nil, err
	}

	order, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeMarket).
		Quantity(volume.String()).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create market sell order: %w", err)
	}

	return toOrderResult(market, order), nil
}

func toOrderResult(market string, order *binance.CreateOrderResponse) *OrderResult {
	var raw map[string]interface{}
	if data, err := json.Marshal(order); err == nil {
		_ = json.Unmarshal(data, &raw)
	}

	return &OrderResult{
		UUID:      strconv.FormatInt(order.OrderID, 10),
		Market:    market,
		Side:      string(order.Side),
		OrdType:   string(order.Type),
		Price:     order.CummulativeQuoteQuantity,
		Volume:    order.ExecutedQuantity,
		State:     string(order.Status),
		CreatedAt: time.UnixMilli(order.TransactTime).Format(time.RFC3339),
		Raw:       raw,
	}
}
