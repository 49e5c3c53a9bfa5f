package handler

import (
	"errors"
	"net/http"

	"github.com/dushixiang/tradingmode/internal/config"
	"github.com/dushixiang/tradingmode/internal/service"
	"github.com/dushixiang/tradingmode/internal/xe"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const consoleLogLines = 20

// ConsoleHandler 网页控制台
type ConsoleHandler struct {
	logger   *zap.Logger
	conf     *config.Config
	state    *service.TradingState
	autoStop *service.AutoStop
}

// NewConsoleHandler 创建控制台处理器
func NewConsoleHandler(
	logger *zap.Logger,
	conf *config.Config,
	state *service.TradingState,
	autoStop *service.AutoStop,
) *ConsoleHandler {
	return &ConsoleHandler{
		logger:   logger,
		conf:     conf,
		state:    state,
		autoStop: autoStop,
	}
}

type indexPage struct {
	Virtual      bool
	Venue        string
	Quote        string
	Coins        []string
	Account      *service.AccountInfo
	AccountError string
	Features     []string
	LogLines     []string
}

func (h *ConsoleHandler) features() []string {
	features := []string{
		"Switch between real and virtual mode",
		"Reset log (virtual mode)",
		"Stop trading with one button",
	}
	if h.autoStop != nil && h.autoStop.Enabled() {
		features = append(features, "Scheduled stop: "+h.conf.AutoStop.Cron)
	}
	return features
}

// Index 首页：当前模式、账户信息、功能列表与最近日志
// GET /
func (h *ConsoleHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()

	page := indexPage{
		Virtual:  h.state.IsVirtual(),
		Venue:    h.state.Venue(),
		Quote:    h.state.Quote(),
		Coins:    h.state.Coins(),
		Features: h.features(),
	}

	info, err := h.state.GetAccountInfo(ctx)
	if err != nil {
		h.logger.Warn("failed to get account info", zap.Error(err))
		page.AccountError = err.Error()
	}
	page.Account = info

	lines, err := h.state.TailLog(consoleLogLines)
	if err != nil {
		h.logger.Warn("failed to read trade log", zap.Error(err))
	}
	page.LogLines = lines

	return c.Render(http.StatusOK, "index.html", page)
}

// Switch 口令正确时切换到相反的模式，口令错误时不做任何改变
// POST /switch
func (h *ConsoleHandler) Switch(c echo.Context) error {
	if !checkPassword(h.conf.Password, c.FormValue("password")) {
		h.logger.Warn("mode switch rejected", zap.String("ip", c.RealIP()))
		return h.back(c)
	}

	mode, err := h.state.Toggle(c.Request().Context())
	if err != nil {
		h.logger.Error("mode switch failed", zap.String("mode", mode), zap.Error(err))
	}
	return h.back(c)
}

// Reset 清空日志，实盘模式下忽略
// POST /reset
func (h *ConsoleHandler) Reset(c echo.Context) error {
	err := h.state.ResetLog(c.Request().Context())
	if err != nil && !errors.Is(err, xe.ErrIllegalState) {
		h.logger.Error("log reset failed", zap.Error(err))
	}
	return h.back(c)
}

// Stop 强制切回虚拟模式并清空日志，不需要口令
// POST /stop
func (h *ConsoleHandler) Stop(c echo.Context) error {
	if err := h.state.Stop(c.Request().Context()); err != nil {
		h.logger.Error("stop trading failed", zap.Error(err))
	}
	return h.back(c)
}

func (h *ConsoleHandler) back(c echo.Context) error {
	return c.Redirect(http.StatusSeeOther, "/")
}

// RegisterRoutes 注册路由
func (h *ConsoleHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.POST("/switch", h.Switch)
	e.POST("/reset", h.Reset)
	e.POST("/stop", h.Stop)
}

// checkPassword 字面比较，未配置口令时一律拒绝
func checkPassword(expected, given string) bool {
	return expected != "" && given == expected
}
