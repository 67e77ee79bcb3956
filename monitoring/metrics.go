package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// latencyWindow 延迟环形缓冲大小
const latencyWindow = 1024

// Collector 推理服务指标收集器
type Collector struct {
	metricsLock sync.RWMutex

	startTime time.Time

	requestsByRoute  map[string]int64
	requestsByStatus map[int]int64
	predictions      map[int]int64
	cacheHits        int64
	cacheMisses      int64
	validationFails  int64
	inferenceFails   int64

	latencies    []time.Duration
	latencyIdx   int
	latencyTotal int64
}

// NewCollector 创建指标收集器
func NewCollector() *Collector {
	return &Collector{
		startTime:        time.Now(),
		requestsByRoute:  make(map[string]int64),
		requestsByStatus: make(map[int]int64),
		predictions:      make(map[int]int64),
		latencies:        make([]time.Duration, 0, latencyWindow),
	}
}

// RecordRequest 记录一次HTTP请求
func (c *Collector) RecordRequest(route string, status int, duration time.Duration) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.requestsByRoute[route]++
	c.requestsByStatus[status]++
	c.latencyTotal++

	// 只保留最近latencyWindow个样本
	if len(c.latencies) < latencyWindow {
		c.latencies = append(c.latencies, duration)
		return
	}
	c.latencies[c.latencyIdx] = duration
	c.latencyIdx = (c.latencyIdx + 1) % latencyWindow
}

// RecordPrediction 记录一次预测结果
func (c *Collector) RecordPrediction(label int, fromCache bool) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.predictions[label]++
	if fromCache {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}
}

// RecordValidationFailure 记录一次输入校验失败
func (c *Collector) RecordValidationFailure() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.validationFails++
}

// RecordInferenceFailure 记录一次推理失败
func (c *Collector) RecordInferenceFailure() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.inferenceFails++
}

// Snapshot 指标快照
type Snapshot struct {
	UptimeSeconds      float64          `json:"uptime_seconds"`
	RequestsByRoute    map[string]int64 `json:"requests_by_route"`
	RequestsByStatus   map[int]int64    `json:"requests_by_status"`
	PredictionsByClass map[int]int64    `json:"predictions_by_class"`
	CacheHits          int64            `json:"cache_hits"`
	CacheMisses        int64            `json:"cache_misses"`
	ValidationFailures int64            `json:"validation_failures"`
	InferenceFailures  int64            `json:"inference_failures"`
	Latency            LatencySummary   `json:"latency"`
	Runtime            RuntimeStats     `json:"runtime"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// LatencySummary 请求延迟摘要（基于最近latencyWindow个样本）
type LatencySummary struct {
	Count int64   `json:"count"`
	MinMS float64 `json:"min_ms"`
	AvgMS float64 `json:"avg_ms"`
	MaxMS float64 `json:"max_ms"`
	P95MS float64 `json:"p95_ms"`
}

// RuntimeStats 运行时统计
type RuntimeStats struct {
	Goroutines   int     `json:"goroutines"`
	HeapAllocMB  float64 `json:"heap_alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	NumGC        uint32  `json:"num_gc"`
}

// GetSnapshot 获取当前快照
func (c *Collector) GetSnapshot() Snapshot {
	c.metricsLock.RLock()
	defer c.metricsLock.RUnlock()

	snap := Snapshot{
		UptimeSeconds:      time.Since(c.startTime).Seconds(),
		RequestsByRoute:    make(map[string]int64, len(c.requestsByRoute)),
		RequestsByStatus:   make(map[int]int64, len(c.requestsByStatus)),
		PredictionsByClass: make(map[int]int64, len(c.predictions)),
		CacheHits:          c.cacheHits,
		CacheMisses:        c.cacheMisses,
		ValidationFailures: c.validationFails,
		InferenceFailures:  c.inferenceFails,
		Latency:            c.latencySummary(),
		Runtime:            readRuntimeStats(),
		GeneratedAt:        time.Now(),
	}
	for route, n := range c.requestsByRoute {
		snap.RequestsByRoute[route] = n
	}
	for status, n := range c.requestsByStatus {
		snap.RequestsByStatus[status] = n
	}
	for label, n := range c.predictions {
		snap.PredictionsByClass[label] = n
	}
	return snap
}

// latencySummary 计算延迟摘要，调用方必须持有读锁
func (c *Collector) latencySummary() LatencySummary {
	summary := LatencySummary{Count: c.latencyTotal}
	if len(c.latencies) == 0 {
		return summary
	}

	sorted := append([]time.Duration(nil), c.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	summary.MinMS = toMS(sorted[0])
	summary.MaxMS = toMS(sorted[len(sorted)-1])
	summary.AvgMS = toMS(sum / time.Duration(len(sorted)))
	summary.P95MS = toMS(sorted[(len(sorted)*95)/100])
	return summary
}

func toMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func readRuntimeStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		Goroutines:   runtime.NumGoroutine(),
		HeapAllocMB:  float64(m.HeapAlloc) / 1024 / 1024,
		TotalAllocMB: float64(m.TotalAlloc) / 1024 / 1024,
		SysMB:        float64(m.Sys) / 1024 / 1024,
		NumGC:        m.NumGC,
	}
}

// GetUptime 获取运行时间
func (c *Collector) GetUptime() time.Duration {
	c.metricsLock.RLock()
	defer c.metricsLock.RUnlock()
	return time.Since(c.startTime)
}

// ExportPrometheus 导出Prometheus文本格式
func (c *Collector) ExportPrometheus() string {
	snap := c.GetSnapshot()

	var b strings.Builder
	b.WriteString("# HELP wineclass_uptime_seconds Service uptime in seconds\n")
	b.WriteString("# TYPE wineclass_uptime_seconds gauge\n")
	fmt.Fprintf(&b, "wineclass_uptime_seconds %.3f\n", snap.UptimeSeconds)

	b.WriteString("# HELP wineclass_requests_total HTTP requests handled\n")
	b.WriteString("# TYPE wineclass_requests_total counter\n")
	for _, route := range sortedStringKeys(snap.RequestsByRoute) {
		fmt.Fprintf(&b, "wineclass_requests_total{route=%q} %d\n", route, snap.RequestsByRoute[route])
	}

	b.WriteString("# HELP wineclass_responses_total HTTP responses by status code\n")
	b.WriteString("# TYPE wineclass_responses_total counter\n")
	for _, status := range sortedIntKeys(snap.RequestsByStatus) {
		fmt.Fprintf(&b, "wineclass_responses_total{status=\"%d\"} %d\n", status, snap.RequestsByStatus[status])
	}

	b.WriteString("# HELP wineclass_predictions_total Predictions served by class label\n")
	b.WriteString("# TYPE wineclass_predictions_total counter\n")
	for _, label := range sortedIntKeys(snap.PredictionsByClass) {
		fmt.Fprintf(&b, "wineclass_predictions_total{class=\"%d\"} %d\n", label, snap.PredictionsByClass[label])
	}

	b.WriteString("# HELP wineclass_prediction_cache_hits_total Prediction cache hits\n")
	b.WriteString("# TYPE wineclass_prediction_cache_hits_total counter\n")
	fmt.Fprintf(&b, "wineclass_prediction_cache_hits_total %d\n", snap.CacheHits)
	b.WriteString("# HELP wineclass_prediction_cache_misses_total Prediction cache misses\n")
	b.WriteString("# TYPE wineclass_prediction_cache_misses_total counter\n")
	fmt.Fprintf(&b, "wineclass_prediction_cache_misses_total %d\n", snap.CacheMisses)

	b.WriteString("# HELP wineclass_validation_failures_total Requests rejected by schema validation\n")
	b.WriteString("# TYPE wineclass_validation_failures_total counter\n")
	fmt.Fprintf(&b, "wineclass_validation_failures_total %d\n", snap.ValidationFailures)
	b.WriteString("# HELP wineclass_inference_failures_total Predictor invocations that failed\n")
	b.WriteString("# TYPE wineclass_inference_failures_total counter\n")
	fmt.Fprintf(&b, "wineclass_inference_failures_total %d\n", snap.InferenceFailures)

	b.WriteString("# HELP wineclass_request_latency_ms Request latency over the recent window\n")
	b.WriteString("# TYPE wineclass_request_latency_ms gauge\n")
	fmt.Fprintf(&b, "wineclass_request_latency_ms{stat=\"min\"} %.3f\n", snap.Latency.MinMS)
	fmt.Fprintf(&b, "wineclass_request_latency_ms{stat=\"avg\"} %.3f\n", snap.Latency.AvgMS)
	fmt.Fprintf(&b, "wineclass_request_latency_ms{stat=\"max\"} %.3f\n", snap.Latency.MaxMS)
	fmt.Fprintf(&b, "wineclass_request_latency_ms{stat=\"p95\"} %.3f\n", snap.Latency.P95MS)

	b.WriteString("# HELP wineclass_goroutines Current goroutine count\n")
	b.WriteString("# TYPE wineclass_goroutines gauge\n")
	fmt.Fprintf(&b, "wineclass_goroutines %d\n", snap.Runtime.Goroutines)

	return b.String()
}

func sortedStringKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys(m map[int]int64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
