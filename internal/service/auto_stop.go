package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Stopper 可被强制停止的交易状态
type Stopper interface {
	Stop(ctx context.Context) error
}

// AutoStop 定时停止交易：到点强制切回虚拟模式并清空日志
type AutoStop struct {
	expr    string
	state   Stopper
	logger  *zap.Logger
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewAutoStop 创建定时停止调度器，cron 表达式为空时不启用
func NewAutoStop(expr string, state Stopper, logger *zap.Logger) *AutoStop {
	return &AutoStop{
		expr:   expr,
		state:  state,
		logger: logger,
	}
}

// Enabled 是否配置了 cron 表达式
func (a *AutoStop) Enabled() bool {
	return a.expr != ""
}

// Start 启动调度器
func (a *AutoStop) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.Enabled() {
		return nil
	}
	if a.running {
		return fmt.Errorf("auto stop is already running")
	}

	a.cron = cron.New()
	if _, err := a.cron.AddFunc(a.expr, a.Run); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	a.cron.Start()
	a.running = true

	a.logger.Info("auto stop scheduled", zap.String("cron_expression", a.expr))
	return nil
}

// Running 调度器是否已启动
func (a *AutoStop) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Run 执行一次停止
func (a *AutoStop) Run() {
	if err := a.state.Stop(context.Background()); err != nil {
		a.logger.Error("auto stop failed", zap.Error(err))
		return
	}
	a.logger.Info("trading stopped by schedule")
}

// Stop 停止调度器并等待进行中的任务完成
func (a *AutoStop) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	ctx := a.cron.Stop()
	<-ctx.Done()
	a.running = false
	a.logger.Info("auto stop scheduler stopped")
}
