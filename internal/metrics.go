package internal

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus 指標：追蹤房間數量、tick 吞吐與輸入丟棄率。
// 指標為進程全域，與具體 Registry 實例解耦。
var (
	metricActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pong_active_rooms",
		Help: "當前存在的房間數（含等待中）",
	})

	metricTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_ticks_total",
		Help: "所有房間累計執行的 tick 數",
	})

	metricGamesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_games_finished_total",
		Help: "正常判定出勝負的場次數",
	})

	metricMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_messages_sent_total",
		Help: "發送給客戶端的消息總數",
	})

	metricInputsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_inputs_discarded_total",
		Help: "因格式錯誤或無房間歸屬而丟棄的輸入數",
	})
)

// MetricsHandler 暴露 Prometheus 指標端點
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
