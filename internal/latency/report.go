package latency

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/segmentio/encoding/json"
)

// Summary 会话结束时的 JSON 摘要
type Summary struct {
	SessionID string  `json:"session_id"`
	Total     int64   `json:"total_orders"`
	AverageNs float64 `json:"average_ns"`
	MinNs     int64   `json:"min_ns"`
	MaxNs     int64   `json:"max_ns"`
	Trades    int64   `json:"trades"`
	TradedQty int64   `json:"traded_qty"`
	Rejected  int64   `json:"rejected"`
}

func NewSummary(sessionID string, s Stats) Summary {
	sum := Summary{
		SessionID: sessionID,
		Total:     s.Count,
		AverageNs: s.Average(),
	}
	if s.Count > 0 {
		sum.MinNs, sum.MaxNs = s.Min, s.Max
	}
	return sum
}

// FormatAverage 6 位有效数字，%g 风格
func FormatAverage(avg float64) string {
	return strconv.FormatFloat(avg, 'g', 6, 64)
}

// WriteReport 文本报告；没有样本时不输出 min/max
func WriteReport(w io.Writer, s Stats) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "OrderBook Processing Report")
	fmt.Fprintln(bw, "-----------------------")
	fmt.Fprintf(bw, "Total Orders Processed: %d\n", s.Count)
	fmt.Fprintf(bw, "Average Latency (ns): %s\n", FormatAverage(s.Average()))
	if s.Count > 0 {
		fmt.Fprintf(bw, "Min Latency (ns): %d\n", s.Min)
		fmt.Fprintf(bw, "Max Latency (ns): %d\n", s.Max)
	}
	return bw.Flush()
}

func WriteReportFile(path string, s Stats) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("latency: open report %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteReport(f, s)
}

func WriteSummaryFile(path string, sum Summary) error {
	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("latency: write summary %s: %w", path, err)
	}
	return nil
}
