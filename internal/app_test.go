package internal

import (
	"context"
	"testing"

	"github.com/dushixiang/tradingmode/internal/service"
	"go.uber.org/zap"
)

type noopStopper struct{}

func (noopStopper) Stop(ctx context.Context) error { return nil }

func TestShutdownStopsAutoStop(t *testing.T) {
	autoStop := service.NewAutoStop("@daily", noopStopper{}, zap.NewNop())
	if err := autoStop.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if !autoStop.Running() {
		t.Fatalf("expected scheduler running")
	}

	app := NewTradingModeApp()
	app.components = &AppComponents{AutoStop: autoStop}
	app.Shutdown()

	if autoStop.Running() {
		t.Fatalf("expected scheduler stopped after shutdown")
	}
}

func TestShutdownWithoutComponents(t *testing.T) {
	NewTradingModeApp().Shutdown()
}
