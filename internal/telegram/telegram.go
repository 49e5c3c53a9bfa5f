package telegram

import (
	"net/http"
	"time"

	"github.com/spf13/cast"
	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

// DefaultTemplate 默认消息模板。模板本身按 MarkdownV2 发送，只有变量会被转义，
// 自定义模板中的保留字符需自行转义
const DefaultTemplate = `*\[{{mode}}\]* {{message}}`

type Telegram struct {
	logger   *zap.Logger
	settings Settings
	client   *tele.Bot
	tmpl     *fasttemplate.Template
}

type Settings struct {
	Token    string
	ChatID   string
	Template string
	Client   *http.Client
}

type Option func(telegram *Telegram)

func NewTelegram(logger *zap.Logger, settings Settings, options ...Option) (*Telegram, error) {

	poller := &tele.LongPoller{Timeout: 10 * time.Second}

	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdownV2,
		Token:     settings.Token,
		Poller:    poller,
		Client:    settings.Client,
	})
	if err != nil {
		return nil, err
	}

	client.Use(middleware.AutoRespond())

	err = client.SetCommands([]tele.Command{
		{Text: "/status", Description: "查看当前交易模式"},
	})
	if err != nil {
		return nil, err
	}

	text := settings.Template
	if text == "" {
		text = DefaultTemplate
	}
	tmpl, err := fasttemplate.NewTemplate(text, "{{", "}}")
	if err != nil {
		return nil, err
	}

	bot := &Telegram{
		logger:   logger,
		settings: settings,
		client:   client,
		tmpl:     tmpl,
	}

	for _, option := range options {
		option(bot)
	}

	return bot, nil
}

// HandleStatus 注册 /status 命令，需在 Start 之前调用
func (r *Telegram) HandleStatus(status func() string) {
	r.client.Handle("/status", func(c tele.Context) error {
		return c.Send(escapeMarkdownV2(status()))
	})
}

func (r *Telegram) Start() {
	go r.client.Start()
}

func (r *Telegram) Stop() {
	r.client.Stop()
}

// Notify 按模板发送通知到配置的 chat
func (r *Telegram) Notify(mode, msg string) error {
	text := Render(r.tmpl, mode, msg)
	_chatId := cast.ToInt64(r.settings.ChatID)
	_, err := r.client.Send(tele.ChatID(_chatId), text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
	if err != nil {
		r.logger.Warn("telegram notify failed", zap.Error(err))
	}
	return err
}

// Render 渲染消息模板，模板变量会被转义
func Render(tmpl *fasttemplate.Template, mode, msg string) string {
	return tmpl.ExecuteString(map[string]interface{}{
		"mode":    escapeMarkdownV2(mode),
		"message": escapeMarkdownV2(msg),
	})
}
