package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dushixiang/tradingmode/internal/config"
	"github.com/dushixiang/tradingmode/internal/models"
	"github.com/dushixiang/tradingmode/internal/service"
	"github.com/dushixiang/tradingmode/internal/xe"
	"github.com/go-orz/orz"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	defaultLogLimit   = 50
	maxLogLimit       = 1000
	defaultTradeLimit = 20
	maxTradeLimit     = 500
)

// TradeHistory 交易记录查询
type TradeHistory interface {
	Recent(ctx context.Context, mode string, limit int) ([]models.TradeRecord, error)
}

// TradingHandler 交易模式 JSON 接口
type TradingHandler struct {
	logger   *zap.Logger
	conf     *config.Config
	state    *service.TradingState
	history  TradeHistory
	autoStop *service.AutoStop
}

// NewTradingHandler 创建交易处理器
func NewTradingHandler(
	logger *zap.Logger,
	conf *config.Config,
	state *service.TradingState,
	history TradeHistory,
	autoStop *service.AutoStop,
) *TradingHandler {
	return &TradingHandler{
		logger:   logger,
		conf:     conf,
		state:    state,
		history:  history,
		autoStop: autoStop,
	}
}

// TradeRequest 下单请求，买入时 amount 为计价货币金额，卖出时为币的数量
type TradeRequest struct {
	Coin   string `json:"coin" validate:"required"`
	Amount string `json:"amount" validate:"required,numeric"`
	Side   string `json:"side" validate:"required"`
}

// SwitchRequest 模式切换请求，mode 为空时切换到相反的模式
type SwitchRequest struct {
	Password string `json:"password" validate:"required"`
	Mode     string `json:"mode" validate:"omitempty,oneof=real virtual"`
}

// GetStatus 获取当前模式
// GET /api/trading/status
func (h *TradingHandler) GetStatus(c echo.Context) error {
	status := orz.Map{
		"mode":     h.state.Mode(),
		"virtual":  h.state.IsVirtual(),
		"coins":    h.state.Coins(),
		"quote":    h.state.Quote(),
		"venue":    h.state.Venue(),
		"log_file": h.state.LogFile(),
	}
	if h.autoStop != nil && h.autoStop.Enabled() {
		status["auto_stop"] = h.conf.AutoStop.Cron
	}
	return c.JSON(http.StatusOK, status)
}

// GetAccount 获取账户信息
// GET /api/trading/account
func (h *TradingHandler) GetAccount(c echo.Context) error {
	info, err := h.state.GetAccountInfo(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

// Trade 下单
// POST /api/trading/trade
func (h *TradingHandler) Trade(c echo.Context) error {
	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: %v", xe.ErrInvalidParams, err)
	}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %v", xe.ErrInvalidParams, err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fmt.Errorf("%w: invalid amount %q", xe.ErrInvalidParams, req.Amount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", xe.ErrInvalidParams)
	}

	order, err := h.state.Trade(c.Request().Context(), req.Coin, amount, req.Side)
	if err != nil && order == nil {
		return err
	}

	resp := orz.Map{
		"mode":  h.state.Mode(),
		"order": order,
	}
	if err != nil {
		// 订单已成交但日志写入失败
		h.logger.Error("order placed but trade log write failed", zap.String("order_id", order.UUID), zap.Error(err))
		resp["log_error"] = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// Switch 切换模式
// POST /api/trading/switch
func (h *TradingHandler) Switch(c echo.Context) error {
	var req SwitchRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: %v", xe.ErrInvalidParams, err)
	}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %v", xe.ErrInvalidParams, err)
	}
	if !checkPassword(h.conf.Password, req.Password) {
		h.logger.Warn("mode switch rejected", zap.String("ip", c.RealIP()))
		return xe.ErrIncorrectPassword
	}

	ctx := c.Request().Context()
	var err error
	switch req.Mode {
	case config.ModeReal:
		err = h.state.SwitchToReal(ctx)
	case config.ModeVirtual:
		err = h.state.SwitchToVirtual(ctx)
	default:
		_, err = h.state.Toggle(ctx)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orz.Map{"mode": h.state.Mode()})
}

// Reset 清空日志，仅虚拟模式可用
// POST /api/trading/reset
func (h *TradingHandler) Reset(c echo.Context) error {
	if err := h.state.ResetLog(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orz.Map{"mode": h.state.Mode()})
}

// Stop 停止交易
// POST /api/trading/stop
func (h *TradingHandler) Stop(c echo.Context) error {
	if err := h.state.Stop(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orz.Map{"mode": h.state.Mode()})
}

// GetLogs 最近的日志行
// GET /api/trading/logs?limit=50
func (h *TradingHandler) GetLogs(c echo.Context) error {
	limit := queryLimit(c, defaultLogLimit, maxLogLimit)
	lines, err := h.state.TailLog(limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orz.Map{"lines": lines})
}

// GetTrades 最近的交易记录
// GET /api/trading/trades?mode=real&limit=20
func (h *TradingHandler) GetTrades(c echo.Context) error {
	if h.history == nil {
		return c.JSON(http.StatusOK, orz.Map{"trades": []models.TradeRecord{}})
	}
	mode := c.QueryParam("mode")
	if mode != "" && mode != config.ModeVirtual && mode != config.ModeReal {
		return fmt.Errorf("%w: mode must be either 'virtual' or 'real'", xe.ErrInvalidParams)
	}
	limit := queryLimit(c, defaultTradeLimit, maxTradeLimit)
	trades, err := h.history.Recent(c.Request().Context(), mode, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orz.Map{"trades": trades})
}

func queryLimit(c echo.Context, def, max int) int {
	limit := cast.ToInt(c.QueryParam("limit"))
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// RegisterRoutes 注册路由
func (h *TradingHandler) RegisterRoutes(g *echo.Group) {
	trading := g.Group("/trading")

	// 查询接口
	trading.GET("/status", h.GetStatus)
	trading.GET("/account", h.GetAccount)
	trading.GET("/logs", h.GetLogs)
	trading.GET("/trades", h.GetTrades)

	// 控制接口
	trading.POST("/trade", h.Trade)
	trading.POST("/switch", h.Switch)
	trading.POST("/reset", h.Reset)
	trading.POST("/stop", h.Stop)
}
