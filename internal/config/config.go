package config

// Config 应用配置，对应 orz 配置文件中的 app 段
type Config struct {
	TradingConfig string       `json:"trading_config"` // 交易配置文件路径（JSON），默认 config.json
	Password      string       `json:"password"`       // 切换模式的口令，为空时禁止切换
	Quote         string       `json:"quote"`          // 计价货币，默认 KRW
	Exchange      ExchangeConf `json:"exchange"`
	Telegram      TelegramConf `json:"telegram"`
	AutoStop      AutoStopConf `json:"auto_stop"`
}

type ExchangeConf struct {
	Venue          string `json:"venue"`           // upbit / binance，默认 upbit
	BaseURL        string `json:"base_url"`        // 自定义API地址
	ProxyURL       string `json:"proxy_url"`       // 代理地址，例如: http://127.0.0.1:7890
	Testnet        bool   `json:"testnet"`         // 是否使用测试网（仅币安）
	TimeoutSeconds int    `json:"timeout_seconds"` // HTTP超时，默认10秒
}

type TelegramConf struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token"`
	ChatID   string `json:"chat_id"`
	Template string `json:"template"` // MarkdownV2 消息模板，支持 {{mode}} {{message}}，模板中的保留字符需转义
}

type AutoStopConf struct {
	Cron string `json:"cron"` // cron 表达式，到点强制切回虚拟模式并清空日志
}

const (
	DefaultTradingConfig = "config.json"
	DefaultQuote         = "KRW"
	DefaultVenue         = "upbit"
	DefaultTimeout       = 10
)

// WithDefaults 填充默认值
func (c Config) WithDefaults() Config {
	if c.TradingConfig == "" {
		c.TradingConfig = DefaultTradingConfig
	}
	if c.Quote == "" {
		c.Quote = DefaultQuote
	}
	if c.Exchange.Venue == "" {
		c.Exchange.Venue = DefaultVenue
	}
	if c.Exchange.TimeoutSeconds <= 0 {
		c.Exchange.TimeoutSeconds = DefaultTimeout
	}
	return c
}
