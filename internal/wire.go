//go:build wireinject
// +build wireinject

package internal

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dushixiang/tradingmode/pkg/exchange"
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/tradingmode/internal/config"
	"github.com/dushixiang/tradingmode/internal/handler"
	"github.com/dushixiang/tradingmode/internal/service"
	"github.com/dushixiang/tradingmode/internal/telegram"
)

const (
	telegramHTTPTimeout = 10 * time.Second
	venueUpbit          = "upbit"
	venueBinance        = "binance"
)

var (
	handlerSet = wire.NewSet(
		handler.NewConsoleHandler,
		handler.NewTradingHandler,
	)

	tradingSet = wire.NewSet(
		provideRegistry,
		provideNotifier,
		provideAutoStop,
		service.NewTradeJournal,
		wire.Bind(new(service.TradeRecorder), new(*service.TradeJournal)),
		wire.Bind(new(handler.TradeHistory), new(*service.TradeJournal)),
		service.NewTradingState,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		tradingSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}

// provideTelegram provides telegram instance
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:    conf.Telegram.Token,
		ChatID:   conf.Telegram.ChatID,
		Template: conf.Telegram.Template,
		Client:   httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}

// provideNotifier 未启用 telegram 时返回 nil 接口
func provideNotifier(tg *telegram.Telegram) service.Notifier {
	if tg == nil {
		return nil
	}
	return tg
}

// provideAutoStop provides the scheduled stop
func provideAutoStop(conf *config.Config, state *service.TradingState, logger *zap.Logger) *service.AutoStop {
	return service.NewAutoStop(conf.AutoStop.Cron, state, logger)
}

// provideRegistry registers the live exchange venues
func provideRegistry(conf *config.Config, logger *zap.Logger) *exchange.Registry {
	exchangeConf := conf.WithDefaults().Exchange

	httpClient := &http.Client{Timeout: time.Duration(exchangeConf.TimeoutSeconds) * time.Second}
	if exchangeConf.ProxyURL != "" {
		u, err := url.Parse(exchangeConf.ProxyURL)
		if err != nil {
			logger.Fatal("failed to parse proxy URL", zap.Error(err))
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}

	registry := exchange.NewRegistry()
	registry.Register(venueUpbit, func(creds exchange.Credentials) (exchange.Exchange, error) {
		return exchange.NewUpbitClient(creds.AccessKey, creds.SecretKey,
			exchange.WithUpbitBaseURL(exchangeConf.BaseURL),
			exchange.WithUpbitHTTPClient(httpClient),
		), nil
	})
	registry.Register(venueBinance, func(creds exchange.Credentials) (exchange.Exchange, error) {
		return exchange.NewBinanceClient(
			creds.AccessKey,
			creds.SecretKey,
			exchangeConf.ProxyURL,
			exchangeConf.Testnet,
		), nil
	})

	logger.Info("exchange registry initialized",
		zap.Strings("venues", registry.Venues()),
		zap.String("venue", exchangeConf.Venue),
		zap.Int("timeout_seconds", exchangeConf.TimeoutSeconds),
		zap.Bool("has_proxy", exchangeConf.ProxyURL != ""),
	)
	return registry
}
