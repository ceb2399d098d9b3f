package app

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"tickbook.com/internal/engine"
	"tickbook.com/internal/gateway"
	"tickbook.com/pkg/bootstrap"
	"tickbook.com/pkg/logger"
	"tickbook.com/pkg/safe"
)

const shutdownTimeout = 3 * time.Second

// App 一个会话的生命周期：辅助 HTTP、会话文件、监听，然后生产者/消费者两个任务
type App struct {
	cfg *Config

	metricsSrv *bootstrap.Server
	pprofSrv   *bootstrap.Server

	session  *engine.Session
	pipe     *engine.Pipeline
	server   *gateway.Server
	consumer *engine.Consumer

	closeOnce sync.Once
	closeErr  error
}

// New 依次启动各部件；任何一步失败都会释放已经拿到的资源
func New(cfg *Config) (a *App, err error) {
	a = &App{cfg: cfg, pipe: engine.NewPipeline()}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if a.metricsSrv, err = bootstrap.StartMetrics(cfg.Metrics.Addr); err != nil {
		return a, err
	}
	if a.pprofSrv, err = bootstrap.StartPprof(cfg.Pprof.Addr); err != nil {
		return a, err
	}

	a.session, err = engine.OpenSession(engine.SessionConfig{
		BookKind:  cfg.Book.Kind,
		Range:     cfg.Range(),
		TraceDir:  cfg.Latency.Dir,
		ReportDir: cfg.Report.Dir,
		BatchSize: cfg.Latency.BatchSize,
		JSON:      cfg.Report.JSON,
	})
	if err != nil {
		return a, err
	}

	a.server, err = gateway.Listen(gateway.ServerConfig{
		Addr:    cfg.Listen.Addr,
		Range:   cfg.Range(),
		Rejects: a.session,
	})
	if err != nil {
		return a, err
	}
	a.consumer = engine.NewConsumer(a.pipe, a.session)
	return a, nil
}

func (a *App) Addr() net.Addr { return a.server.Addr() }
func (a *App) Session() *engine.Session { return a.session }
func (a *App) MetricsAddr() string { return a.metricsSrv.Addr() }
func (a *App) Pipeline() *engine.Pipeline { return a.pipe }

// Run 阻塞到会话结束：客户端断开、ctx 取消或任一任务出错。
// 队列取空后写 trace 和报告。
func (a *App) Run(ctx context.Context) error {
	ctx = logger.WithSession(ctx, a.session.ID())
	logger.Info(ctx, "session started",
		zap.String("listen", a.server.Addr().String()),
		zap.String("book", a.cfg.Book.Kind),
		zap.Int64("min_price", a.cfg.Book.MinPrice),
		zap.Int64("max_price", a.cfg.Book.MaxPrice))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(safe.Func(gctx, "ingest", func(ctx context.Context) error {
		// 客户端断开即关闭管道，消费者取空后退出
		defer a.pipe.Shutdown()
		return a.server.Serve(ctx, a.pipe)
	}))
	g.Go(safe.Func(gctx, "match", a.consumer.Run))
	runErr := g.Wait()
	if runErr != nil {
		logger.Error(ctx, "session aborted", zap.Error(runErr))
	}

	finErr := a.session.Finalize(ctx)
	return errors.Join(runErr, finErr)
}

// Close 可重复调用；没跑过 Run 的会话也会把 trace 关掉
func (a *App) Close() error {
	a.closeOnce.Do(func() { a.closeErr = a.close() })
	return a.closeErr
}

func (a *App) close() error {
	var errs []error
	if a.server != nil {
		if err := a.server.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	a.pipe.Shutdown()
	if a.session != nil {
		if err := a.session.Finalize(context.Background()); err != nil && !errors.Is(err, engine.ErrFinalized) {
			errs = append(errs, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	errs = append(errs, a.metricsSrv.Shutdown(ctx), a.pprofSrv.Shutdown(ctx))
	return errors.Join(errs...)
}
