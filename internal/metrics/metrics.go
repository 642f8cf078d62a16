// ============================================================================
// Lunch Rotation Metrics - Prometheus 監控指標
// ============================================================================
//
// Package: internal/metrics
// 文件: metrics.go
// 功能: 收集和暴露輪值服務的運行指標，支持 Prometheus 監控
//
// 指標分類:
//
//   1. 行動計數器 (Counter) - 累計值，只增不減：
//      - lunch_actions_total{action}: 各種使用者行動次數（pass/skip/override...）
//      - lunch_persist_failures_total: 狀態寫入失敗次數
//      - lunch_state_recoveries_total: 載入時因文件損壞而回退預設值的次數
//      - lunch_announcements_total: 每日公告次數
//
//   2. 狀態指標 (Gauge) - 瞬時值：
//      - lunch_roster_size: 目前名單人數
//      - lunch_rotation_offset: 目前輪值相位
//      - lunch_overrides_active: 目前手動覆寫筆數
//
// Prometheus 查詢示例:
//
//   # 每週跳過的次數
//   increase(lunch_actions_total{action="SKIP_DAY"}[7d])
//
//   # 寫入失敗告警
//   increase(lunch_persist_failures_total[1h]) > 0
//
// HTTP 端點:
//   通過 /metrics 端點暴露，默認端口: 9091
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector Prometheus 指標收集器
//
// 所有方法在 nil receiver 上都是 no-op，方便未啟用監控時直接傳 nil。
type Collector struct {
	// 行動相關指標
	actions         *prometheus.CounterVec
	persistFailures prometheus.Counter
	recoveries      prometheus.Counter
	announcements   prometheus.Counter

	// 狀態指標
	rosterSize      prometheus.Gauge
	rotationOffset  prometheus.Gauge
	overridesActive prometheus.Gauge
}

// NewCollector 創建新的指標收集器並註冊到 DefaultRegisterer
func NewCollector() *Collector {
	c := &Collector{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lunch_actions_total",
			Help: "Total number of agenda actions applied, by action",
		}, []string{"action"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lunch_persist_failures_total",
			Help: "Total number of failed state writes",
		}),
		recoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lunch_state_recoveries_total",
			Help: "Total number of malformed documents replaced by defaults on load",
		}),
		announcements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lunch_announcements_total",
			Help: "Total number of daily assignee announcements",
		}),
		rosterSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lunch_roster_size",
			Help: "Current number of people in the roster",
		}),
		rotationOffset: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lunch_rotation_offset",
			Help: "Current rotation offset",
		}),
		overridesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lunch_overrides_active",
			Help: "Current number of manual overrides",
		}),
	}

	// 註冊所有指標
	prometheus.MustRegister(c.actions)
	prometheus.MustRegister(c.persistFailures)
	prometheus.MustRegister(c.recoveries)
	prometheus.MustRegister(c.announcements)
	prometheus.MustRegister(c.rosterSize)
	prometheus.MustRegister(c.rotationOffset)
	prometheus.MustRegister(c.overridesActive)

	return c
}

// RecordAction 記錄一次行動
func (c *Collector) RecordAction(action string) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(action).Inc()
}

// RecordPersistFailure 記錄寫入失敗
func (c *Collector) RecordPersistFailure() {
	if c == nil {
		return
	}
	c.persistFailures.Inc()
}

// RecordRecoveries 記錄載入時回退的文件數
func (c *Collector) RecordRecoveries(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.recoveries.Add(float64(n))
}

// RecordAnnouncement 記錄一次每日公告
func (c *Collector) RecordAnnouncement() {
	if c == nil {
		return
	}
	c.announcements.Inc()
}

// UpdateState 更新狀態指標
func (c *Collector) UpdateState(rosterSize, offset, overrides int) {
	if c == nil {
		return
	}
	c.rosterSize.Set(float64(rosterSize))
	c.rotationOffset.Set(float64(offset))
	c.overridesActive.Set(float64(overrides))
}

// Handler 回傳 /metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer 建立 Prometheus metrics HTTP 伺服器（尚未啟動）
func NewServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}
