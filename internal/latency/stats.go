package latency

import "math"

// Stats 全会话的累计值，不受批量刷盘影响
type Stats struct {
	Count int64 `json:"total_orders"`
	Sum   int64 `json:"sum_ns"`
	Min   int64 `json:"min_ns"`
	Max   int64 `json:"max_ns"`
}

func NewStats() Stats {
	return Stats{Min: math.MaxInt64, Max: math.MinInt64}
}

func (s *Stats) Add(ns int64) {
	s.Count++
	s.Sum += ns
	if ns < s.Min {
		s.Min = ns
	}
	if ns > s.Max {
		s.Max = ns
	}
}

// Average Count 为 0 时返回 0
func (s Stats) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Count)
}
