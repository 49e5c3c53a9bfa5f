package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dushixiang/tradingmode/internal/config"
	"github.com/dushixiang/tradingmode/internal/metrics"
	"github.com/dushixiang/tradingmode/internal/models"
	"github.com/dushixiang/tradingmode/internal/xe"
	"github.com/dushixiang/tradingmode/pkg/exchange"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	// TimestampLayout 交易日志时间格式
	TimestampLayout = "2006-01-02 15:04:05"

	VirtualAccountMessage = "No real account connected"

	maxLogLineSize = 4 << 20
)

// Notifier 模式切换与实盘下单通知
type Notifier interface {
	Notify(mode, msg string) error
}

// AccountInfo 账户信息，虚拟模式下只有 mode 和 message，实盘只有 mode 和 holdings
type AccountInfo struct {
	Mode     string             `json:"mode"`
	Message  string             `json:"message,omitempty"`
	Holdings map[string]Holding `json:"holdings,omitempty"`
}

// MarshalJSON 实盘账户即使没有持仓也输出 "holdings":{}
func (a AccountInfo) MarshalJSON() ([]byte, error) {
	if a.Mode != config.ModeReal {
		return json.Marshal(struct {
			Mode    string `json:"mode"`
			Message string `json:"message"`
		}{a.Mode, a.Message})
	}
	holdings := a.Holdings
	if holdings == nil {
		holdings = map[string]Holding{}
	}
	return json.Marshal(struct {
		Mode     string             `json:"mode"`
		Holdings map[string]Holding `json:"holdings"`
	}{a.Mode, holdings})
}

// Holding 单个币种的余额与持仓均价
type Holding struct {
	Balance     float64 `json:"balance"`
	AvgBuyPrice float64 `json:"avg_buy_price"`
}

// TradingState 交易模式状态
//
// 所有操作都在同一把锁下执行，模式切换不会与进行中的下单或日志写入交错。
type TradingState struct {
	logger   *zap.Logger
	conf     config.Config
	registry *exchange.Registry
	journal  TradeRecorder
	notifier Notifier
	now      func() time.Time

	mu       sync.Mutex
	virtual  bool
	coins    []string
	logFile  string
	exchange exchange.Exchange
}

// NewTradingState 读取交易配置并初始化状态，配置错误或实盘依赖缺失时返回错误
func NewTradingState(
	logger *zap.Logger,
	conf *config.Config,
	registry *exchange.Registry,
	journal TradeRecorder,
	notifier Notifier,
) (*TradingState, error) {
	if registry == nil {
		registry = exchange.NewRegistry()
	}
	s := &TradingState{
		logger:   logger,
		conf:     conf.WithDefaults(),
		registry: registry,
		journal:  journal,
		notifier: notifier,
		now:      time.Now,
	}
	if err := s.load(false); err != nil {
		return nil, err
	}

	logger.Info("trading state initialized",
		zap.String("mode", s.mode()),
		zap.Strings("coins", s.coins),
		zap.String("log_file", s.logFile),
		zap.String("venue", s.conf.Exchange.Venue))
	return s, nil
}

// load 从配置文件重新构建状态，只有全部校验通过才会替换当前状态
func (s *TradingState) load(forceReal bool) error {
	path := s.conf.TradingConfig
	tc, err := config.LoadTradingConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %w", xe.ErrConfiguration, err)
	}

	isReal := forceReal || tc.IsReal()

	var client exchange.Exchange
	if isReal {
		venue := s.conf.Exchange.Venue
		client, err = s.registry.Open(venue, exchange.Credentials{
			AccessKey: tc.AccessKey,
			SecretKey: tc.SecretKey,
		})
		if err != nil {
			return fmt.Errorf("%w: open %s client: %w", xe.ErrDependencyUnavailable, venue, err)
		}
		if err := exchange.CheckAvailable(client); err != nil {
			return fmt.Errorf("%w: %s must be available to run in real trading mode: %w", xe.ErrDependencyUnavailable, venue, err)
		}
		if !tc.HasCredentials() {
			return fmt.Errorf("%w: access_key and secret_key must be provided in %s", xe.ErrConfiguration, path)
		}
	}

	if err := ensureFile(tc.LogFile); err != nil {
		return fmt.Errorf("%w: prepare log file: %w", xe.ErrConfiguration, err)
	}

	s.virtual = !isReal
	s.coins = slices.Clone(tc.Coins)
	s.logFile = tc.LogFile
	s.exchange = client
	metrics.SetRealMode(isReal)
	return nil
}

// ensureFile 日志文件不存在时创建空文件，已存在时不截断
func ensureFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (s *TradingState) mode() string {
	if s.virtual {
		return config.ModeVirtual
	}
	return config.ModeReal
}

// Mode 当前模式 virtual/real
func (s *TradingState) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode()
}

// IsVirtual 是否为虚拟模式
func (s *TradingState) IsVirtual() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.virtual
}

// Coins 允许交易的币种
func (s *TradingState) Coins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.coins)
}

// LogFile 交易日志路径
func (s *TradingState) LogFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logFile
}

// Quote 计价货币
func (s *TradingState) Quote() string {
	return s.conf.Quote
}

// Venue 实盘使用的交易所
func (s *TradingState) Venue() string {
	return s.conf.Exchange.Venue
}

// Summary 状态摘要，用于通知和命令行
func (s *TradingState) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("mode=%s coins=%s", s.mode(), strings.Join(s.coins, ","))
}

// Log 追加一行带时间戳的日志，每次调用打开并立即关闭文件
func (s *TradingState) Log(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLog(message)
}

func (s *TradingState) appendLog(message string) error {
	line := fmt.Sprintf("%s %s\n", s.now().Format(TimestampLayout), message)
	f, err := os.OpenFile(s.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write log file: %w", err)
	}
	return f.Close()
}

// TailLog 返回日志文件最后 n 行
func (s *TradingState) TailLog(n int) ([]string, error) {
	s.mu.Lock()
	path := s.logFile
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLineSize)
	for scanner.Scan() {
		if n <= 0 {
			continue
		}
		if len(lines) == n {
			lines = lines[1:]
		}
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// GetAccountInfo 查询账户信息，虚拟模式返回固定的占位记录
func (s *TradingState) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.virtual || s.exchange == nil {
		return &AccountInfo{
			Mode:    config.ModeVirtual,
			Message: VirtualAccountMessage,
		}, nil
	}

	balances, err := s.exchange.GetBalances(ctx)
	if err != nil {
		metrics.ExchangeErrorsTotal.WithLabelValues("balances").Inc()
		s.logger.Error("failed to get balances", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", xe.ErrExchangeCall, err)
	}

	holdings := make(map[string]Holding)
	for _, bal := range balances {
		if bal == nil || bal.Currency == "" || !slices.Contains(s.coins, bal.Currency) {
			continue
		}
		balance, err := toFloat(bal.Balance)
		if err != nil {
			continue
		}
		avgBuyPrice, err := toFloat(bal.AvgBuyPrice)
		if err != nil {
			continue
		}
		holdings[bal.Currency] = Holding{
			Balance:     balance,
			AvgBuyPrice: avgBuyPrice,
		}
	}

	return &AccountInfo{
		Mode:     config.ModeReal,
		Holdings: holdings,
	}, nil
}

// toFloat 缺失字段按 0 处理，非数字返回错误
func toFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return cast.ToFloat64E(v)
}

// Trade 执行交易
//
// 买入时 amount 为计价货币金额，卖出时为币的数量。虚拟模式只写日志并返回 nil。
func (s *TradingState) Trade(ctx context.Context, coin string, amount decimal.Decimal, side string) (*exchange.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.coins, coin) {
		return nil, fmt.Errorf("%w: coin '%s' is not allowed by configuration", xe.ErrValidation, coin)
	}
	orderSide, ok := exchange.ParseOrderSide(side)
	if !ok {
		return nil, fmt.Errorf("%w: parameter 'side' must be either 'buy' or 'sell'", xe.ErrValidation)
	}
	label := strings.ToUpper(orderSide.String())

	record := &models.TradeRecord{
		ID:         ulid.Make().String(),
		Mode:       s.mode(),
		Coin:       coin,
		Side:       orderSide.String(),
		Amount:     amount.String(),
		Status:     models.TradeStatusOK,
		ExecutedAt: s.now(),
	}

	if s.virtual || s.exchange == nil {
		if err := s.appendLog(fmt.Sprintf("%s %s %s (virtual)", label, coin, amount.String())); err != nil {
			return nil, err
		}
		metrics.TradesTotal.WithLabelValues(config.ModeVirtual, orderSide.String()).Inc()
		s.record(ctx, record)
		return nil, nil
	}

	market := exchange.Market(s.conf.Quote, coin)
	record.Market = market

	var (
		order *exchange.OrderResult
		err   error
	)
	switch orderSide {
	case exchange.OrderSideBuy:
		order, err = s.exchange.BuyMarketOrder(ctx, market, amount)
	case exchange.OrderSideSell:
		order, err = s.exchange.SellMarketOrder(ctx, market, amount)
	}

	if err != nil {
		callErr := fmt.Errorf("%w: %w", xe.ErrExchangeCall, err)
		logErr := s.appendLog(fmt.Sprintf("ERROR executing %s for %s: %v", orderSide, coin, err))

		metrics.ExchangeErrorsTotal.WithLabelValues("order").Inc()
		s.logger.Error("order failed",
			zap.String("market", market),
			zap.String("side", orderSide.String()),
			zap.String("amount", amount.String()),
			zap.Error(err))

		record.Status = models.TradeStatusFailed
		record.Error = err.Error()
		s.record(ctx, record)
		s.notify(fmt.Sprintf("ERROR executing %s for %s: %v", orderSide, coin, err))

		if logErr != nil {
			return nil, errors.Join(callErr, logErr)
		}
		return nil, callErr
	}

	message := fmt.Sprintf("%s %s %s (real) order_id=%s", label, coin, amount.String(), order.UUID)
	logErr := s.appendLog(message)

	metrics.TradesTotal.WithLabelValues(config.ModeReal, orderSide.String()).Inc()
	s.logger.Info("order placed",
		zap.String("market", market),
		zap.String("side", orderSide.String()),
		zap.String("amount", amount.String()),
		zap.String("order_id", order.UUID))

	record.OrderID = order.UUID
	if raw, err := json.Marshal(order.Raw); err == nil && order.Raw != nil {
		record.Raw = raw
	}
	s.record(ctx, record)
	s.notify(message)

	// 订单已经成交，日志写入失败时仍返回订单确认
	return order, logErr
}

// ResetLog 清空交易日志，仅虚拟模式可用
func (s *TradingState) ResetLog(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLog(ctx)
}

func (s *TradingState) resetLog(ctx context.Context) error {
	if !s.virtual {
		return fmt.Errorf("%w: log reset is only available in virtual mode", xe.ErrIllegalState)
	}

	f, err := os.OpenFile(s.logFile, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("truncate log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := s.appendLog("Log file reset by user request"); err != nil {
		return err
	}

	if s.journal != nil {
		if err := s.journal.ClearVirtual(ctx); err != nil {
			s.logger.Warn("failed to clear virtual trade records", zap.Error(err))
		}
	}
	s.logger.Info("trade log reset", zap.String("log_file", s.logFile))
	return nil
}

// SwitchToReal 切换到实盘，重新读取配置并完整校验凭证与交易所依赖
// 校验失败时保持虚拟模式不变
func (s *TradingState) SwitchToReal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.switchToReal()
}

func (s *TradingState) switchToReal() error {
	if !s.virtual {
		return nil
	}
	if err := s.load(true); err != nil {
		s.logger.Error("switch to real mode failed", zap.Error(err))
		return err
	}
	s.logger.Warn("switched to real mode", zap.String("venue", s.conf.Exchange.Venue))
	s.notify("Switched to real mode")
	return s.appendLog("Switched to real mode")
}

// SwitchToVirtual 切换到虚拟模式，任何时候都允许
func (s *TradingState) SwitchToVirtual(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.switchToVirtual("Switched to virtual mode")
}

func (s *TradingState) switchToVirtual(message string) error {
	if s.virtual {
		return nil
	}
	s.virtual = true
	s.exchange = nil
	metrics.SetRealMode(false)
	s.logger.Info("switched to virtual mode")
	s.notify(message)
	return s.appendLog(message)
}

// Toggle 切换到相反的模式，返回切换后的模式
func (s *TradingState) Toggle(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.virtual {
		err = s.switchToReal()
	} else {
		err = s.switchToVirtual("Switched to virtual mode")
	}
	return s.mode(), err
}

// Stop 停止交易：强制切回虚拟模式并清空日志
func (s *TradingState) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.switchToVirtual("Trading stopped; switching to virtual mode"); err != nil {
		return err
	}
	return s.resetLog(ctx)
}

// Reload 按配置文件重新初始化，模式以配置文件为准
func (s *TradingState) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(false); err != nil {
		return err
	}
	s.logger.Info("trading state reloaded", zap.String("mode", s.mode()))
	return nil
}

func (s *TradingState) record(ctx context.Context, record *models.TradeRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, record); err != nil {
		s.logger.Warn("failed to save trade record", zap.String("coin", record.Coin), zap.Error(err))
	}
}

func (s *TradingState) notify(msg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(s.mode(), msg); err != nil {
		s.logger.Warn("notify failed", zap.Error(err))
	}
}
