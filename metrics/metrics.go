// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/33cn/evmgateway/common/log"
	"github.com/33cn/evmgateway/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	go_metrics "github.com/rcrowley/go-metrics"
)

var (
	mlog = log.New("module", "metrics")
)

// Namespace prometheus 指标前缀
var Namespace = "evmgateway"

// Collector 对外提供 prometheus 指标的模块
type Collector interface {
	Metrics() []prometheus.Collector
}

// PrometheusCollectorsFromFields 收集结构体中所有 prometheus.Collector 类型的字段
func PrometheusCollectorsFromFields(i interface{}) (cs []prometheus.Collector) {
	v := reflect.Indirect(reflect.ValueOf(i))
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).CanInterface() {
			continue
		}
		if u, ok := v.Field(i).Interface().(prometheus.Collector); ok {
			cs = append(cs, u)
		}
	}
	return cs
}

// Server 指标注册表以及 http 导出
type Server struct {
	enabled  bool
	registry *prometheus.Registry
	gm       go_metrics.Registry
}

// StartMetrics 根据配置创建指标注册表
func StartMetrics(cfg types.Metrics) *Server {
	s := &Server{
		enabled:  cfg.Enable,
		registry: prometheus.NewRegistry(),
		gm:       go_metrics.NewRegistry(),
	}
	if !cfg.Enable {
		mlog.Info("Metrics data is not enabled to emit")
		return s
	}
	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	go_metrics.RegisterRuntimeMemStats(s.gm)
	return s
}

// Enabled 是否导出指标
func (s *Server) Enabled() bool {
	return s.enabled
}

// GoMetrics go-metrics 注册表
func (s *Server) GoMetrics() go_metrics.Registry {
	return s.gm
}

// Register 注册模块的 prometheus 指标
func (s *Server) Register(c Collector) error {
	for _, m := range c.Metrics() {
		if err := s.registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Handler /metrics
func (s *Server) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// DebugHandler /debug/metrics, go-metrics 注册表的 json 快照
func (s *Server) DebugHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		go_metrics.CaptureRuntimeMemStatsOnce(s.gm)
		w.Header().Set("Content-Type", "application/json")
		go_metrics.WriteJSONOnce(s.gm, w)
	})
}

// RPCMetrics jsonrpc 调用的统计
type RPCMetrics struct {
	Requests    *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	BatchSize   prometheus.Histogram
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	RateLimited prometheus.Counter

	gm go_metrics.Registry
}

// NewRPCMetrics gm 为空时只统计 prometheus 指标
func NewRPCMetrics(gm go_metrics.Registry) *RPCMetrics {
	return &RPCMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "jsonrpc calls by method and error code",
		}, []string{"method", "code"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "jsonrpc call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "batch_size",
			Help:      "number of calls in a batch request",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "hits_total",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "misses_total",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "rate_limited_total",
		}),
		gm: gm,
	}
}

// Metrics 实现 Collector
func (m *RPCMetrics) Metrics() []prometheus.Collector {
	return PrometheusCollectorsFromFields(m)
}

// ObserveCall 记录一次调用, code 为 0 表示成功
func (m *RPCMetrics) ObserveCall(method string, d time.Duration, code int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, codeLabel(code)).Inc()
	m.Duration.WithLabelValues(method).Observe(d.Seconds())
	if m.gm == nil {
		return
	}
	go_metrics.GetOrRegisterTimer("rpc/"+method, m.gm).Update(d)
	if code != 0 {
		go_metrics.GetOrRegisterMeter("rpc/"+method+"/errors", m.gm).Mark(1)
	}
}

// ObserveBatch 记录批量请求的大小
func (m *RPCMetrics) ObserveBatch(n int) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(n))
}

// ObserveCache 记录缓存命中
func (m *RPCMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

// ObserveRateLimited 记录被限流的请求
func (m *RPCMetrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
	if m.gm != nil {
		go_metrics.GetOrRegisterMeter("rpc/ratelimited", m.gm).Mark(1)
	}
}

func codeLabel(code int) string {
	if code == 0 {
		return "ok"
	}
	return strconv.Itoa(code)
}
