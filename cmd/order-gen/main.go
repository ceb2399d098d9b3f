package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
	"tickbook.com/internal/orderfile"
	"tickbook.com/pkg/logger"
)

func main() {
	seed := flag.Uint64("seed", 0, "random seed, 0 = time based")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-seed N] <num_orders> <file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	n, err := strconv.Atoi(flag.Arg(0))
	if err != nil || n < 0 {
		fmt.Fprintf(os.Stderr, "bad order count %q\n", flag.Arg(0))
		os.Exit(2)
	}
	path := flag.Arg(1)

	logger.Init("order-gen", "info")
	defer logger.Sync()
	ctx := context.Background()

	opt := orderfile.DefaultGenOptions()
	opt.Seed = *seed
	orders := orderfile.Generate(n, opt)
	if err := orderfile.Save(path, orders); err != nil {
		logger.Fatal(ctx, "save orders failed", zap.String("file", path), zap.Error(err))
	}
	logger.Info(ctx, "orders generated", zap.Int("count", n), zap.String("file", path))
	fmt.Printf("wrote %d orders to %s\n", n, path)
}
