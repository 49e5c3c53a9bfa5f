package internal

import (
	"context"
	"fmt"

	"github.com/dushixiang/tradingmode/internal/config"
	"github.com/dushixiang/tradingmode/internal/handler"
	"github.com/dushixiang/tradingmode/internal/models"
	"github.com/dushixiang/tradingmode/internal/service"
	"github.com/dushixiang/tradingmode/internal/telegram"
	"github.com/dushixiang/tradingmode/pkg/nostd"
	"github.com/dushixiang/tradingmode/web"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewTradingModeApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	err = framework.Run()
	app.Shutdown()
	return err
}

func NewTradingModeApp() *TradingModeApp {
	return &TradingModeApp{}
}

var _ orz.Application = (*TradingModeApp)(nil)

type AppComponents struct {
	TradingState   *service.TradingState
	AutoStop       *service.AutoStop
	ConsoleHandler *handler.ConsoleHandler
	TradingHandler *handler.TradingHandler

	tg *telegram.Telegram
}

type TradingModeApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *TradingModeApp) GetComponents() *AppComponents {
	return r.components
}

func (r *TradingModeApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}

	if err := db.AutoMigrate(models.TradeRecord{}); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	// 交易配置无效或实盘依赖缺失时直接退出
	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	r.components = components
	r.conf = &conf

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	renderer, err := handler.NewTemplateRenderer(web.Templates())
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	e.Renderer = renderer

	r.components.ConsoleHandler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	{
		r.components.TradingHandler.RegisterRoutes(api)
	}

	return nil
}

func (r *TradingModeApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Trading Mode Console Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	state := components.TradingState
	logger.Info("trading state ready",
		zap.String("mode", state.Mode()),
		zap.Strings("coins", state.Coins()),
		zap.String("venue", state.Venue()),
	)

	if components.tg != nil {
		components.tg.HandleStatus(state.Summary)
		components.tg.Start()
		logger.Info("telegram notifier started")
	}

	if err := components.AutoStop.Start(); err != nil {
		return fmt.Errorf("auto stop: %w", err)
	}
	if !components.AutoStop.Enabled() {
		logger.Info("auto stop disabled")
	}
	return nil
}

// Shutdown 停止定时任务和 telegram 轮询
func (r *TradingModeApp) Shutdown() {
	components := r.GetComponents()
	if components == nil {
		return
	}
	if components.AutoStop != nil {
		components.AutoStop.Stop()
	}
	if components.tg != nil {
		components.tg.Stop()
	}
}

// AccountInfo 不启动服务，直接读取交易配置查询账户信息
func AccountInfo(ctx context.Context, conf *config.Config, logger *zap.Logger) (*service.AccountInfo, error) {
	state, err := service.NewTradingState(logger, conf, provideRegistry(conf, logger), nil, nil)
	if err != nil {
		return nil, err
	}
	return state.GetAccountInfo(ctx)
}
