package http

import (
	"io"
	"net/http"

	"wineclass/monitoring"
)

var (
	metricsCollector *monitoring.Collector
	metricsHub       *monitoring.Hub
)

// SetMetricsCollector 设置指标收集器
func SetMetricsCollector(c *monitoring.Collector) {
	metricsCollector = c
}

// SetMetricsHub 设置指标推送Hub
func SetMetricsHub(h *monitoring.Hub) {
	metricsHub = h
}

// RegisterMonitorHandlers 注册监控相关的路由
func RegisterMonitorHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/metrics", handleMetricsSnapshot)
	mux.HandleFunc("GET /metrics", handleMetricsPrometheus)
	mux.HandleFunc("GET /api/ws/metrics", handleMetricsStream)
}

func handleMetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	if metricsCollector == nil {
		respondError(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}
	respondJSON(w, http.StatusOK, metricsCollector.GetSnapshot())
}

func handleMetricsPrometheus(w http.ResponseWriter, r *http.Request) {
	if metricsCollector == nil {
		http.Error(w, "metrics not initialized", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	io.WriteString(w, metricsCollector.ExportPrometheus())
}

func handleMetricsStream(w http.ResponseWriter, r *http.Request) {
	if metricsHub == nil {
		respondError(w, http.StatusServiceUnavailable, "metrics stream not initialized")
		return
	}
	metricsHub.HandleWebSocket(w, r)
}
