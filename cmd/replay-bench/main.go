package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"tickbook.com/internal/engine"
	"tickbook.com/internal/latency"
	"tickbook.com/internal/matching"
	"tickbook.com/internal/orderfile"
	"tickbook.com/pkg/logger"
)

// 不走网络，直接把订单文件灌进一个会话，测撮合吞吐
func main() {
	kind := flag.String("book", matching.KindDense, "book kind: dense|sparse|bounded")
	batch := flag.Int("batch", latency.DefaultBatchSize, "latency trace batch size")
	dir := flag.String("dir", ".", "directory for trace and report files")
	withJSON := flag.Bool("json", false, "also write report_<id>.json")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <orders_file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger.Init("replay-bench", "info")
	defer logger.Sync()

	if err := run(flag.Arg(0), *kind, *batch, *dir, *withJSON); err != nil {
		logger.Fatal(context.Background(), "replay failed", zap.Error(err))
	}
}

func run(file, kind string, batch int, dir string, withJSON bool) error {
	orders, err := orderfile.Load(file)
	if err != nil {
		return err
	}
	if kind == matching.KindBounded {
		runBounded(orders)
		return nil
	}
	s, err := engine.OpenSession(engine.SessionConfig{
		BookKind:  kind,
		Range:     matching.DefaultRange(),
		TraceDir:  dir,
		ReportDir: dir,
		BatchSize: batch,
		JSON:      withJSON,
	})
	if err != nil {
		return err
	}
	ctx := logger.WithSession(context.Background(), s.ID())

	rng := s.Range()
	start := time.Now()
	for i := range orders {
		if err := rng.Check(&orders[i]); err != nil {
			s.CountReject(rejectReason(err))
			continue
		}
		s.Process(&orders[i])
	}
	el := time.Since(start)

	if err := s.Finalize(ctx); err != nil {
		return err
	}
	st := s.Stats()
	trades, qty := s.Trades()
	fmt.Printf("processed %d orders in %s (%.0f orders/s)\n", st.Count, el, float64(st.Count)/el.Seconds())
	fmt.Printf("trades=%d traded_qty=%d rejected=%d avg_ns=%s\n",
		trades, qty, s.Rejected(), latency.FormatAverage(st.Average()))
	fmt.Printf("report: %s\ntrace:  %s\n", s.ReportPath(), s.TracePath())
	return nil
}

// runBounded 定长队列版本没有延迟 trace，只看吞吐和丢单
func runBounded(orders []matching.Order) {
	b := matching.NewBoundedBook(matching.DefaultRange())
	var trades, qty, rejected int64
	start := time.Now()
	for _, o := range orders {
		res := b.Process(o)
		switch {
		case res.Rejected:
			rejected++
		case res.Traded > 0:
			trades++
			qty += res.Traded
		}
	}
	el := time.Since(start)
	fmt.Printf("processed %d orders in %s (%.0f orders/s)\n", len(orders), el, float64(len(orders))/el.Seconds())
	fmt.Printf("trades=%d traded_qty=%d rejected=%d dropped=%d\n", trades, qty, rejected, b.Dropped())
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, matching.ErrBadSide):
		return "bad_side"
	case errors.Is(err, matching.ErrBadQuantity):
		return "bad_quantity"
	case errors.Is(err, matching.ErrPriceOutOfRange):
		return "price_out_of_range"
	default:
		return "unknown"
	}
}
