package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"tickbook.com/internal/gateway"
	"tickbook.com/internal/orderfile"
	"tickbook.com/pkg/bootstrap"
	"tickbook.com/pkg/config"
	"tickbook.com/pkg/logger"
)

type clientConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Rate     int    `mapstructure:"rate" yaml:"rate"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

func main() {
	// 配置文件 / ORDER_CLIENT_* 环境变量给默认值，命令行参数优先
	var cfg clientConfig
	if _, err := config.Load("order-client", &cfg, config.WithDefaults(map[string]any{
		"addr":      "127.0.0.1:5000",
		"rate":      0,
		"log_level": "warn",
	})); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Addr, "server address")
	file := flag.String("file", "", "replay orders from a binary order file; empty = interactive")
	perSec := flag.Int("rate", cfg.Rate, "replay rate in orders/sec, <= 0 means unpaced")
	flag.Parse()

	logger.Init("order-client", cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := bootstrap.SignalContext(context.Background())
	defer stop()

	cli, err := gateway.Dial(ctx, *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cli.Close()
	fmt.Printf("connected to %s\n", cli.RemoteAddr())

	if *file == "" {
		n, err := cli.REPL(os.Stdin, os.Stdout)
		if err != nil {
			logger.Error(ctx, "repl stopped", zap.Error(err))
		}
		fmt.Printf("sent %d lines\n", n)
		return
	}

	orders, err := orderfile.Load(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	start := time.Now()
	n, err := cli.Replay(ctx, orders, *perSec)
	el := time.Since(start)
	if err != nil {
		logger.Error(ctx, "replay stopped", zap.Int("sent", n), zap.Error(err))
	}
	fmt.Printf("sent %d/%d orders in %s (%.0f orders/s)\n", n, len(orders), el, float64(n)/el.Seconds())
}
