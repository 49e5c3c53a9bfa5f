package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dushixiang/tradingmode/internal/config"
	"github.com/dushixiang/tradingmode/internal/models"
	"github.com/dushixiang/tradingmode/internal/service"
	"github.com/dushixiang/tradingmode/internal/xe"
	"github.com/dushixiang/tradingmode/pkg/exchange"
	"github.com/dushixiang/tradingmode/pkg/nostd"
	"github.com/dushixiang/tradingmode/web"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const testPassword = "s3cret"

type fakeHistory struct {
	records []models.TradeRecord
	mode    string
	limit   int
}

func (f *fakeHistory) Recent(ctx context.Context, mode string, limit int) ([]models.TradeRecord, error) {
	f.mode = mode
	f.limit = limit
	return f.records, nil
}

type fixture struct {
	e       *echo.Echo
	state   *service.TradingState
	conf    *config.Config
	logPath string
	console *ConsoleHandler
	api     *TradingHandler
	history *fakeHistory
}

func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "trading.log")
	configPath := filepath.Join(dir, "config.json")

	data, err := json.Marshal(map[string]interface{}{
		"mode":       mode,
		"coins":      []string{"BTC", "ETH"},
		"log_file":   logPath,
		"access_key": "ak",
		"secret_key": "sk",
	})
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	mem := exchange.NewMemoryExchange(&exchange.Balance{Currency: "BTC", Balance: "0.1", AvgBuyPrice: "90000000"})
	registry := exchange.NewRegistry()
	registry.Register("memory", func(creds exchange.Credentials) (exchange.Exchange, error) {
		return mem, nil
	})

	conf := &config.Config{
		TradingConfig: configPath,
		Password:      testPassword,
		Exchange:      config.ExchangeConf{Venue: "memory"},
		AutoStop:      config.AutoStopConf{Cron: "0 18 * * *"},
	}
	logger := zap.NewNop()
	state, err := service.NewTradingState(logger, conf, registry, nil, nil)
	if err != nil {
		t.Fatalf("NewTradingState error: %v", err)
	}
	autoStop := service.NewAutoStop(conf.AutoStop.Cron, state, logger)

	e := echo.New()
	cv := &nostd.CustomValidator{Validator: validator.New()}
	if err := cv.TransInit(); err != nil {
		t.Fatalf("TransInit error: %v", err)
	}
	e.Validator = cv
	renderer, err := NewTemplateRenderer(web.Templates())
	if err != nil {
		t.Fatalf("NewTemplateRenderer error: %v", err)
	}
	e.Renderer = renderer

	history := &fakeHistory{}
	return &fixture{
		e:       e,
		state:   state,
		conf:    conf,
		logPath: logPath,
		console: NewConsoleHandler(logger, conf, state, autoStop),
		api:     NewTradingHandler(logger, conf, state, history, autoStop),
		history: history,
	}
}

func (f *fixture) form(method, target string, values url.Values) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return f.e.NewContext(req, rec), rec
}

func (f *fixture) json(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return f.e.NewContext(req, rec), rec
}

func (f *fixture) logLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
}

func TestConsoleIndex(t *testing.T) {
	f := newFixture(t, "virtual")
	c, rec := f.form(http.MethodGet, "/", nil)
	if err := f.console.Index(c); err != nil {
		t.Fatalf("Index error: %v", err)
	}
	body := rec.Body.String()
	for _, want := range []string{"No real account connected", "Scheduled stop: 0 18 * * *", "Reset log", "BTC"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
}

func TestConsoleIndexRealMode(t *testing.T) {
	f := newFixture(t, "real")
	c, rec := f.form(http.MethodGet, "/", nil)
	if err := f.console.Index(c); err != nil {
		t.Fatalf("Index error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<td>BTC</td><td>0.1</td>") {
		t.Fatalf("expected holdings in page")
	}
	if strings.Contains(body, `action="/reset"`) {
		t.Fatalf("reset must not be offered in real mode")
	}
}

func TestConsoleSwitchWrongPassword(t *testing.T) {
	f := newFixture(t, "virtual")
	c, rec := f.form(http.MethodPost, "/switch", url.Values{"password": {"guess"}})
	if err := f.console.Switch(c); err != nil {
		t.Fatalf("Switch error: %v", err)
	}
	assertRedirect(t, rec)
	if !f.state.IsVirtual() {
		t.Fatalf("wrong password must not change mode")
	}
	if lines := f.logLines(t); len(lines) != 0 {
		t.Fatalf("expected no log lines, got %v", lines)
	}
}

func TestConsoleSwitchTogglesMode(t *testing.T) {
	f := newFixture(t, "virtual")
	c, rec := f.form(http.MethodPost, "/switch", url.Values{"password": {testPassword}})
	if err := f.console.Switch(c); err != nil {
		t.Fatalf("Switch error: %v", err)
	}
	assertRedirect(t, rec)
	if f.state.IsVirtual() {
		t.Fatalf("expected real mode")
	}

	c, _ = f.form(http.MethodPost, "/switch", url.Values{"password": {testPassword}})
	if err := f.console.Switch(c); err != nil {
		t.Fatalf("Switch error: %v", err)
	}
	if !f.state.IsVirtual() {
		t.Fatalf("expected virtual mode")
	}
}

func TestConsoleSwitchDisabledWithoutPassword(t *testing.T) {
	f := newFixture(t, "virtual")
	f.conf.Password = ""
	c, _ := f.form(http.MethodPost, "/switch", url.Values{"password": {""}})
	if err := f.console.Switch(c); err != nil {
		t.Fatalf("Switch error: %v", err)
	}
	if !f.state.IsVirtual() {
		t.Fatalf("empty configured password must disable switching")
	}
}

func TestConsoleResetIgnoredInRealMode(t *testing.T) {
	f := newFixture(t, "real")
	if err := os.WriteFile(f.logPath, []byte("keep\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	c, rec := f.form(http.MethodPost, "/reset", nil)
	if err := f.console.Reset(c); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	assertRedirect(t, rec)
	if lines := f.logLines(t); len(lines) != 1 || lines[0] != "keep" {
		t.Fatalf("log must be unmodified, got %v", lines)
	}
}

func TestConsoleStop(t *testing.T) {
	f := newFixture(t, "real")
	c, rec := f.form(http.MethodPost, "/stop", nil)
	if err := f.console.Stop(c); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	assertRedirect(t, rec)
	if !f.state.IsVirtual() {
		t.Fatalf("expected virtual mode after stop")
	}
	lines := f.logLines(t)
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "Log file reset by user request") {
		t.Fatalf("unexpected log: %v", lines)
	}
}

func TestAPITradeVirtual(t *testing.T) {
	f := newFixture(t, "virtual")
	c, rec := f.json(http.MethodPost, "/api/trading/trade", `{"coin":"BTC","amount":"10000","side":"BUY"}`)
	if err := f.api.Trade(c); err != nil {
		t.Fatalf("Trade error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Mode  string                `json:"mode"`
		Order *exchange.OrderResult `json:"order"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Mode != "virtual" || resp.Order != nil {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}
	lines := f.logLines(t)
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "BUY BTC 10000 (virtual)") {
		t.Fatalf("unexpected log: %v", lines)
	}
}

func TestAPITradeReal(t *testing.T) {
	f := newFixture(t, "real")
	c, rec := f.json(http.MethodPost, "/api/trading/trade", `{"coin":"ETH","amount":"0.5","side":"sell"}`)
	if err := f.api.Trade(c); err != nil {
		t.Fatalf("Trade error: %v", err)
	}
	var resp struct {
		Order exchange.OrderResult `json:"order"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Order.Market != "KRW-ETH" || resp.Order.Volume != "0.5" || resp.Order.UUID == "" {
		t.Fatalf("unexpected order: %+v", resp.Order)
	}
}

func TestAPITradeValidation(t *testing.T) {
	f := newFixture(t, "virtual")
	cases := []struct {
		body string
		want error
	}{
		{`{"coin":"","amount":"1","side":"buy"}`, xe.ErrInvalidParams},
		{`{"coin":"BTC","amount":"abc","side":"buy"}`, xe.ErrInvalidParams},
		{`{"coin":"BTC","amount":"0","side":"buy"}`, xe.ErrInvalidParams},
		{`{"coin":"BTC","amount":"1","side":"hold"}`, xe.ErrValidation},
		{`{"coin":"DOGE","amount":"1","side":"buy"}`, xe.ErrValidation},
	}
	for _, tc := range cases {
		c, _ := f.json(http.MethodPost, "/api/trading/trade", tc.body)
		err := f.api.Trade(c)
		if !errors.Is(err, tc.want) {
			t.Fatalf("body %s: expected %v, got %v", tc.body, tc.want, err)
		}
	}
	if lines := f.logLines(t); len(lines) != 0 {
		t.Fatalf("validation failures must not log, got %v", lines)
	}
}

func TestAPISwitch(t *testing.T) {
	f := newFixture(t, "virtual")

	c, _ := f.json(http.MethodPost, "/api/trading/switch", `{"password":"nope"}`)
	if err := f.api.Switch(c); !errors.Is(err, xe.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}

	c, _ = f.json(http.MethodPost, "/api/trading/switch", `{"password":"s3cret","mode":"paper"}`)
	if err := f.api.Switch(c); !errors.Is(err, xe.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}

	c, rec := f.json(http.MethodPost, "/api/trading/switch", `{"password":"s3cret","mode":"real"}`)
	if err := f.api.Switch(c); err != nil {
		t.Fatalf("Switch error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"mode":"real"`) {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}

	c, _ = f.json(http.MethodPost, "/api/trading/switch", `{"password":"s3cret"}`)
	if err := f.api.Switch(c); err != nil {
		t.Fatalf("Switch error: %v", err)
	}
	if !f.state.IsVirtual() {
		t.Fatalf("expected toggle back to virtual")
	}
}

func TestAPIResetInRealMode(t *testing.T) {
	f := newFixture(t, "real")
	c, _ := f.json(http.MethodPost, "/api/trading/reset", "")
	if err := f.api.Reset(c); !errors.Is(err, xe.ErrIllegalState) {
		t.Fatalf("expected ErrIllegalState, got %v", err)
	}
}

func TestAPIStatusAndLogs(t *testing.T) {
	f := newFixture(t, "virtual")
	for i := 0; i < 3; i++ {
		if err := f.state.Log("line"); err != nil {
			t.Fatalf("Log error: %v", err)
		}
	}

	c, rec := f.json(http.MethodGet, "/api/trading/status", "")
	if err := f.api.GetStatus(c); err != nil {
		t.Fatalf("GetStatus error: %v", err)
	}
	var status map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["mode"] != "virtual" || status["auto_stop"] != "0 18 * * *" || status["quote"] != "KRW" {
		t.Fatalf("unexpected status: %v", status)
	}

	c, rec = f.json(http.MethodGet, "/api/trading/logs?limit=2", "")
	if err := f.api.GetLogs(c); err != nil {
		t.Fatalf("GetLogs error: %v", err)
	}
	var logs struct {
		Lines []string `json:"lines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if len(logs.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", logs.Lines)
	}
}

func TestAPITradesLimit(t *testing.T) {
	f := newFixture(t, "virtual")
	f.history.records = []models.TradeRecord{{ID: "01J", Coin: "BTC"}}

	c, rec := f.json(http.MethodGet, "/api/trading/trades?mode=real&limit=100000", "")
	if err := f.api.GetTrades(c); err != nil {
		t.Fatalf("GetTrades error: %v", err)
	}
	if f.history.mode != "real" {
		t.Fatalf("expected mode filter, got %q", f.history.mode)
	}
	if f.history.limit != maxTradeLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxTradeLimit, f.history.limit)
	}
	if !strings.Contains(rec.Body.String(), `"BTC"`) {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}

	c, _ = f.json(http.MethodGet, "/api/trading/trades?mode=paper", "")
	if err := f.api.GetTrades(c); !errors.Is(err, xe.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}
