package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"
	"tickbook.com/internal/app"
	"tickbook.com/pkg/bootstrap"
	"tickbook.com/pkg/logger"
)

var configFile = flag.String("f", "", "config file (default config/matching-server.yaml)")

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	// SIGINT/SIGTERM 取消 ctx：停止接收，取空队列后写报告
	ctx, stop := bootstrap.SignalContext(context.Background())
	defer stop()

	cfg, err := app.LoadConfig(*configFile, true)
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}
	logger.InitWithFile(cfg.Name, cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()

	a, err := app.New(cfg)
	if err != nil {
		logger.Error(ctx, "startup failed", zap.Error(err))
		return 1
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.Error(ctx, "session failed", zap.Error(err))
		return 1
	}
	logger.Info(ctx, "server exit",
		zap.String("report", a.Session().ReportPath()),
		zap.String("trace", a.Session().TracePath()))
	return 0
}
