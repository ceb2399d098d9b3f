package latency

import (
	"errors"
	"fmt"
	"time"

	"tickbook.com/pkg/binlog"
)

const DefaultBatchSize = 10_000

var ErrFinalized = errors.New("latency: recorder finalized")

type Option func(*Recorder)

// WithFlushHook 每次批量落盘后回调，n 是本批样本数
func WithFlushHook(fn func(n int)) Option {
	return func(r *Recorder) { r.onFlush = fn }
}

// Recorder 记录每次撮合的耗时：样本先进内存批次，满 batchSize 条整体追加到 trace 文件。
// 只能被一个 goroutine 使用。
type Recorder struct {
	path      string
	batchSize int
	w         *binlog.Writer
	batch     []int64
	stats     Stats
	finalized bool
	onFlush   func(n int)
}

// Open 打开（截断）trace 文件；batchSize <= 0 用默认值
func Open(path string, batchSize int, opts ...Option) (*Recorder, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	w, err := binlog.OpenWrite(path, binlog.Truncate, 0)
	if err != nil {
		return nil, fmt.Errorf("latency: open trace %s: %w", path, err)
	}
	r := &Recorder{
		path:      path,
		batchSize: batchSize,
		w:         w,
		batch:     make([]int64, 0, batchSize),
		stats:     NewStats(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Recorder) Path() string { return r.path }
func (r *Recorder) Stats() Stats { return r.stats }

// Pending 还没落盘的样本数
func (r *Recorder) Pending() int { return len(r.batch) }

// Time 计时执行 fn 并记录
func (r *Recorder) Time(fn func()) (time.Duration, error) {
	start := time.Now()
	fn()
	d := time.Since(start)
	return d, r.Record(d)
}

// Record 统计值总是更新；返回的错误只来自批量落盘
func (r *Recorder) Record(d time.Duration) error {
	if r.finalized {
		return ErrFinalized
	}
	ns := d.Nanoseconds()
	r.stats.Add(ns)
	r.batch = append(r.batch, ns)
	if len(r.batch) >= r.batchSize {
		return r.flush()
	}
	return nil
}

func (r *Recorder) flush() error {
	n := len(r.batch)
	if n == 0 {
		return nil
	}
	// 写失败也清空批次，避免同一批样本被重复追加
	defer func() { r.batch = r.batch[:0] }()
	if err := r.w.AppendInt64s(r.batch); err != nil {
		return fmt.Errorf("latency: append trace: %w", err)
	}
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("latency: flush trace: %w", err)
	}
	if r.onFlush != nil {
		r.onFlush(n)
	}
	return nil
}

// Finalize 刷出剩余样本并关闭文件，只生效一次
func (r *Recorder) Finalize() error {
	if r.finalized {
		return nil
	}
	r.finalized = true
	err := r.flush()
	return errors.Join(err, r.w.Close())
}
