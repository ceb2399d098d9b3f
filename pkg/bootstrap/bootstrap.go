package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"tickbook.com/pkg/logger"
	"tickbook.com/pkg/metrics"
	"tickbook.com/pkg/safe"
)

// SignalContext SIGINT/SIGTERM 时取消
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Server 辅助 HTTP 服务（metrics / pprof），Shutdown 可重复调用
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Addr 实际监听地址（":0" 时有用）
func (s *Server) Addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// StartMetrics 注册指标并在 addr 上暴露 /metrics；addr 为空返回 nil, nil
func StartMetrics(addr string) (*Server, error) {
	if addr == "" {
		return nil, nil
	}
	metrics.MustRegister()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return serve("metrics", addr, mux)
}

// StartPprof addr 为空返回 nil, nil
func StartPprof(addr string) (*Server, error) {
	if addr == "" {
		return nil, nil
	}
	runtime.SetMutexProfileFraction(10)
	runtime.SetBlockProfileRate(10000)

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return serve("pprof", addr, mux)
}

func serve(name, addr string, h http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 3 * time.Second,
	}
	safe.Go(func() {
		ctx := context.Background()
		logger.Info(ctx, name+" listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, name+" server error", zap.Error(err))
		}
	})
	return &Server{srv: srv, ln: ln}, nil
}
