// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	clog "github.com/33cn/evmgateway/common/log"
	"github.com/33cn/evmgateway/metrics"
	rpctypes "github.com/33cn/evmgateway/rpc/types"
	"github.com/33cn/evmgateway/types"
	"github.com/google/uuid"
	"github.com/kevinms/leakybucket-go"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"golang.org/x/net/netutil"
)

var (
	log = clog.New("module", "rpc")
)

// HealthFunc /health 的返回内容
type HealthFunc func(ctx context.Context) (interface{}, error)

// Server jsonrpc http 服务
type Server struct {
	cfg        types.RPC
	dispatcher *Dispatcher
	metrics    *metrics.RPCMetrics
	mserver    *metrics.Server
	health     HealthFunc

	paths     map[string]bool
	whitelist map[string]bool
	limiter   *leakybucket.Collector

	srv *http.Server
	l   net.Listener
}

// NewServer new jsonrpc http server
func NewServer(cfg types.RPC, d *Dispatcher, m *metrics.RPCMetrics) *Server {
	s := &Server{
		cfg:        cfg,
		dispatcher: d,
		metrics:    m,
		paths:      make(map[string]bool),
		whitelist:  InitIPWhitelist(cfg.Whitelist),
	}
	for _, p := range cfg.Paths {
		s.paths[p] = true
	}
	if len(s.paths) == 0 {
		s.paths["/"] = true
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int64(cfg.RateLimit)
		}
		s.limiter = leakybucket.NewCollector(cfg.RateLimit, burst, true)
	}
	return s
}

// SetHealth 设置健康检查
func (s *Server) SetHealth(fn HealthFunc) {
	s.health = fn
}

// SetMetrics 指标开启时挂载 /metrics 与 /debug/metrics
func (s *Server) SetMetrics(ms *metrics.Server) {
	s.mserver = ms
}

// InitIPWhitelist 白名单为空时只允许本机, "*" 允许所有地址
func InitIPWhitelist(list []string) map[string]bool {
	whitelist := make(map[string]bool)
	if len(list) == 0 {
		whitelist["127.0.0.1"] = true
		return whitelist
	}
	for _, addr := range list {
		if addr == "*" {
			whitelist["0.0.0.0"] = true
			continue
		}
		whitelist[addr] = true
	}
	return whitelist
}

func checkIPWhitelist(whitelist map[string]bool, addr string) bool {
	//回环网络直接允许
	ip := net.ParseIP(addr)
	if ip.IsLoopback() {
		return true
	}
	ipv4 := ip.To4()
	if ipv4 != nil {
		addr = ipv4.String()
	}
	if _, ok := whitelist["0.0.0.0"]; ok {
		return true
	}
	if _, ok := whitelist[addr]; ok {
		return true
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// callerIdentity 调用方标识: X-Forwarded-For 第一个地址, X-Real-IP, 否则为连接地址
func callerIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return remoteHost(r)
}

// Handler 所有路由, 外层为 cors
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.serveHealth)
	if s.mserver != nil && s.mserver.Enabled() {
		mux.Handle("/metrics", s.mserver.Handler())
		mux.Handle("/debug/metrics", s.mserver.DebugHandler())
	}
	for p := range s.paths {
		if p == "/health" || p == "/metrics" || p == "/debug/metrics" {
			continue
		}
		mux.HandleFunc(p, s.serveRPC)
	}
	origins := s.cfg.CorsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(mux)
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if !s.paths[r.URL.Path] {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !checkIPWhitelist(s.whitelist, remoteHost(r)) {
		log.Error("serveRPC", "reject remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	identity := callerIdentity(r)
	if s.limiter != nil {
		if s.limiter.Remaining(identity) <= 0 {
			s.metrics.ObserveRateLimited()
			writeJSON(w, http.StatusTooManyRequests,
				rpctypes.NewErrorResponse(nil, rpctypes.NewError(rpctypes.CodeInvalidRequest, "rate limit exceeded")))
			return
		}
		s.limiter.Add(identity, 1)
	}

	if s.cfg.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodySize)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Error("serveRPC", "read body err", err)
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	info := CallInfo{
		HTTPMethod: r.Method,
		Path:       r.URL.Path,
		Identity:   identity,
		RequestID:  uuid.New().String(),
	}
	start := time.Now()
	reply := s.dispatcher.Handle(r.Context(), info, body)
	if reply.Empty() {
		w.WriteHeader(http.StatusOK)
		return
	}
	status := http.StatusOK
	if reply.Single != nil && reply.Single.Error != nil {
		switch reply.Single.Error.Code {
		case rpctypes.CodeParseError, rpctypes.CodeInvalidRequest:
			status = http.StatusBadRequest
		}
	}
	log.Info("serveRPC", "id", info.RequestID, "caller", identity, "path", info.Path,
		"body", truncate(body, s.cfg.LogBodyLimit), "status", status, "cost", time.Since(start))
	writeJSON(w, status, reply)
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	res, err := s.health(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("writeJSON", "marshal err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Debug("writeJSON", "write err", err)
	}
}

// Listen 监听配置的地址, 返回实际端口
func (s *Server) Listen() (int, error) {
	l, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return 0, errors.Wrap(err, "listen")
	}
	if s.cfg.MaxConnections > 0 {
		l = netutil.LimitListener(l, s.cfg.MaxConnections)
	}
	s.l = l
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.srv.Serve(l); err != nil && err != http.ErrServerClosed {
			log.Error("Listen", "serve err", err)
		}
	}()
	port := l.Addr().(*net.TCPAddr).Port
	log.Info("rpc Listen port", "addr", s.cfg.ListenAddr, "port", port)
	return port, nil
}

// Close 关闭服务, 等待处理中的请求结束
func (s *Server) Close(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
