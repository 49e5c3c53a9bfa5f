package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradingmode_trades_total", Help: "Trades executed, by mode and side"},
		[]string{"mode", "side"},
	)
	ExchangeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradingmode_exchange_errors_total", Help: "Failed exchange calls"},
		[]string{"operation"},
	)
	RealMode = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tradingmode_real_mode", Help: "1 when real trading is enabled"},
	)
)

func init() {
	prometheus.MustRegister(TradesTotal, ExchangeErrorsTotal, RealMode)
}

// SetRealMode 更新当前模式
func SetRealMode(enabled bool) {
	if enabled {
		RealMode.Set(1)
		return
	}
	RealMode.Set(0)
}
