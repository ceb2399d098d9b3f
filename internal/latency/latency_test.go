package latency

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tickbook.com/pkg/binlog"
)

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	st, err := os.Stat(path)
	require.NoError(t, err)
	return st.Size()
}

func TestRecorder_BatchFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latencies.bin")
	var flushed []int
	r, err := Open(path, 4, WithFlushHook(func(n int) { flushed = append(flushed, n) }))
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, r.Record(time.Duration(i)))
	}
	assert.Equal(t, 3, r.Pending())
	assert.Equal(t, int64(0), fileSize(t, path), "nothing hits disk before the batch fills")

	require.NoError(t, r.Record(4))
	assert.Equal(t, 0, r.Pending())
	assert.Equal(t, int64(32), fileSize(t, path))
	assert.Equal(t, []int{4}, flushed)

	require.NoError(t, r.Record(5))
	require.NoError(t, r.Finalize())
	assert.Equal(t, []int{4, 1}, flushed)

	got, err := binlog.ReadInt64s(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, got)
}

func TestRecorder_StatsSurviveFlush(t *testing.T) {
	r, err := Open(filepath.Join(t.TempDir(), "l.bin"), 2)
	require.NoError(t, err)
	for _, ns := range []int64{50, 10, 90, 30, 20} {
		require.NoError(t, r.Record(time.Duration(ns)))
	}
	require.NoError(t, r.Finalize())

	s := r.Stats()
	assert.Equal(t, int64(5), s.Count)
	assert.Equal(t, int64(200), s.Sum)
	assert.Equal(t, int64(10), s.Min)
	assert.Equal(t, int64(90), s.Max)
	assert.Equal(t, 40.0, s.Average())
}

// M 笔订单后 trace 文件正好 8*M 字节
func TestRecorder_TraceLength(t *testing.T) {
	for _, m := range []int{0, 1, 9_999, 10_000, 10_001, 25_000} {
		path := filepath.Join(t.TempDir(), "trace.bin")
		r, err := Open(path, 0)
		require.NoError(t, err)
		for i := 0; i < m; i++ {
			require.NoError(t, r.Record(time.Duration(i)))
		}
		require.NoError(t, r.Finalize())
		assert.Equal(t, int64(8*m), fileSize(t, path), "m=%d", m)
	}
}

func TestRecorder_FinalizeOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "once.bin")
	r, err := Open(path, 10)
	require.NoError(t, err)
	require.NoError(t, r.Record(7))
	require.NoError(t, r.Finalize())
	require.NoError(t, r.Finalize())
	assert.ErrorIs(t, r.Record(1), ErrFinalized)
	assert.Equal(t, int64(8), fileSize(t, path))
	assert.Equal(t, int64(1), r.Stats().Count)
}

func TestRecorder_Time(t *testing.T) {
	r, err := Open(filepath.Join(t.TempDir(), "t.bin"), 0)
	require.NoError(t, err)
	called := false
	d, err := r.Time(func() { called = true })
	require.NoError(t, err)
	assert.True(t, called)
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, int64(1), r.Stats().Count)
	require.NoError(t, r.Finalize())
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "x.bin"), 0)
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, NewStats()))
		want := "OrderBook Processing Report\n" +
			"-----------------------\n" +
			"Total Orders Processed: 0\n" +
			"Average Latency (ns): 0\n"
		assert.Equal(t, want, buf.String())
	})

	t.Run("with_samples", func(t *testing.T) {
		s := NewStats()
		s.Add(100)
		s.Add(201)
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, s))
		want := "OrderBook Processing Report\n" +
			"-----------------------\n" +
			"Total Orders Processed: 2\n" +
			"Average Latency (ns): 150.5\n" +
			"Min Latency (ns): 100\n" +
			"Max Latency (ns): 201\n"
		assert.Equal(t, want, buf.String())
	})
}

func TestFormatAverage(t *testing.T) {
	assert.Equal(t, "0", FormatAverage(0))
	assert.Equal(t, "123.457", FormatAverage(123.4567))
	assert.Equal(t, "1.23457e+06", FormatAverage(1234567))
}

func TestReportFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStats()
	s.Add(10)

	rpt := filepath.Join(dir, "report.rpt")
	require.NoError(t, WriteReportFile(rpt, s))
	raw, err := os.ReadFile(rpt)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Total Orders Processed: 1\n")

	js := filepath.Join(dir, "report.json")
	sum := NewSummary("abc", s)
	sum.Trades = 3
	require.NoError(t, WriteSummaryFile(js, sum))
	raw, err = os.ReadFile(js)
	require.NoError(t, err)

	var back Summary
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, sum, back)

	empty := NewSummary("none", NewStats())
	assert.Zero(t, empty.MinNs)
	assert.Zero(t, empty.MaxNs)

	// 0ns 的最小值也要出现在 JSON 里
	fast := NewStats()
	fast.Add(0)
	fast.Add(7)
	zs := filepath.Join(dir, "zero.json")
	require.NoError(t, WriteSummaryFile(zs, NewSummary("fast", fast)))
	raw, err = os.ReadFile(zs)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"min_ns": 0`)
	assert.Contains(t, string(raw), `"max_ns": 7`)

	assert.Error(t, WriteReportFile(filepath.Join(dir, "no", "such", "r.rpt"), s))
}
