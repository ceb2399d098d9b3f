package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"tickbook.com/internal/latency"
	"tickbook.com/internal/matching"
	"tickbook.com/pkg/logger"
	"tickbook.com/pkg/metrics"
)

type SessionConfig struct {
	ID        string // 空则自动生成
	BookKind  string
	Range     matching.PriceRange
	TraceDir  string
	ReportDir string
	BatchSize int
	JSON      bool // 额外输出 report_<id>.json
}

// NewSessionID <unix-nanos>_<uuid 前 8 位>
func NewSessionID() string {
	u := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d_%s", time.Now().UnixNano(), u[:8])
}

// tradeCounter 记录本会话的成交笔数与成交量
type tradeCounter struct {
	trades int64
	qty    int64
}

func (c *tradeCounter) Trade(t matching.Trade) {
	c.trades++
	c.qty += t.Qty
	metrics.Trades.Inc()
	metrics.TradedQty.Add(float64(t.Qty))
}

func (c *tradeCounter) Rested(matching.Order) {}

// Session 一次连接的撮合状态：订单簿、延迟记录、报告。
// Process/Finalize 只由消费者调用；CountReject 由生产者调用。
type Session struct {
	id        string
	cfg       SessionConfig
	book      matching.Book
	rec       *latency.Recorder
	counter   tradeCounter
	rejected  atomic.Int64
	finalized bool
}

func OpenSession(cfg SessionConfig) (*Session, error) {
	if cfg.ID == "" {
		cfg.ID = NewSessionID()
	}
	if cfg.Range == (matching.PriceRange{}) {
		cfg.Range = matching.DefaultRange()
	}
	book, err := matching.NewBook(cfg.BookKind, cfg.Range)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.TraceDir, cfg.ReportDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("engine: mkdir %s: %w", dir, err)
		}
	}

	s := &Session{id: cfg.ID, cfg: cfg, book: book}
	rec, err := latency.Open(s.TracePath(), cfg.BatchSize,
		latency.WithFlushHook(func(int) { metrics.TraceFlushes.Inc() }))
	if err != nil {
		return nil, err
	}
	s.rec = rec
	return s, nil
}

func (s *Session) ID() string { return s.id }
func (s *Session) Book() matching.Book { return s.book }
func (s *Session) Stats() latency.Stats { return s.rec.Stats() }
func (s *Session) Trades() (n, qty int64) { return s.counter.trades, s.counter.qty }
func (s *Session) Rejected() int64 { return s.rejected.Load() }
func (s *Session) Range() matching.PriceRange { return s.cfg.Range }

func (s *Session) TracePath() string {
	return filepath.Join(s.cfg.TraceDir, "latencies_"+s.id+".bin")
}

func (s *Session) ReportPath() string {
	return filepath.Join(s.cfg.ReportDir, "report_"+s.id+".rpt")
}

func (s *Session) SummaryPath() string {
	return filepath.Join(s.cfg.ReportDir, "report_"+s.id+".json")
}

// CountReject 入口处拒绝的一行
func (s *Session) CountReject(reason string) {
	s.rejected.Add(1)
	metrics.OrdersRejected.WithLabelValues(reason).Inc()
}

// Process 计时撮合一笔订单，耗时计入 trace 与直方图
func (s *Session) Process(o *matching.Order) {
	start := time.Now()
	s.book.Process(o, &s.counter)
	d := time.Since(start)

	metrics.OrdersProcessed.Inc()
	metrics.MatchLatency.Observe(d.Seconds())
	if err := s.rec.Record(d); err != nil {
		// 样本已进统计，只是 trace 落盘失败
		logger.Error(context.Background(), "latency trace flush failed",
			zap.String("session_id", s.id), zap.Error(err))
	}
}

// Finalize 刷出 trace 并写报告；第二次调用返回 ErrFinalized
func (s *Session) Finalize(ctx context.Context) error {
	if s.finalized {
		return ErrFinalized
	}
	s.finalized = true

	var errs []error
	if err := s.rec.Finalize(); err != nil {
		errs = append(errs, err)
	}
	stats := s.rec.Stats()
	if err := latency.WriteReportFile(s.ReportPath(), stats); err != nil {
		errs = append(errs, err)
	}
	if s.cfg.JSON {
		sum := latency.NewSummary(s.id, stats)
		sum.Trades, sum.TradedQty = s.Trades()
		sum.Rejected = s.Rejected()
		if err := latency.WriteSummaryFile(s.SummaryPath(), sum); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info(ctx, "session finalized",
		zap.Int64("orders", stats.Count),
		zap.String("avg_ns", latency.FormatAverage(stats.Average())),
		zap.Int64("trades", s.counter.trades),
		zap.Int64("rejected", s.Rejected()),
		zap.String("trace", s.TracePath()),
		zap.String("report", s.ReportPath()))
	return errors.Join(errs...)
}
