package matching

import (
	"errors"
	"fmt"
)

type Side uint8

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// 价格一律是整数分
const (
	ScaleFactor            = 100
	DefaultMinPrice  int64 = 1
	DefaultMaxPrice  int64 = 1_000_000
	noLevel                = -1

	// MaxDenseLevels 数组盘口最多开这么多档，更宽的区间用 sparse
	MaxDenseLevels int64 = 1 << 24
)

var (
	ErrPriceOutOfRange = errors.New("matching: price out of range")
	ErrBadQuantity     = errors.New("matching: quantity must be positive")
	ErrBadSide         = errors.New("matching: unknown side")
	ErrBadRange        = errors.New("matching: invalid price range")
	ErrUnknownBookKind = errors.New("matching: unknown book kind")
	ErrRangeTooWide    = errors.New("matching: price range too wide for dense book")
)

// Order Price/Side 不变；Qty 只减不增，0 表示已完全成交
type Order struct {
	ID    uint64
	Side  Side
	Price int64
	Qty   int64
}

type Trade struct {
	TakerID uint64
	MakerID uint64
	Price   int64
	Qty     int64
}

// PriceRange 闭区间 [Min, Max]
type PriceRange struct {
	Min int64
	Max int64
}

func DefaultRange() PriceRange {
	return PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice}
}

func (r PriceRange) Validate() error {
	if r.Min < 1 || r.Max < r.Min {
		return fmt.Errorf("%w: [%d, %d]", ErrBadRange, r.Min, r.Max)
	}
	return nil
}

func (r PriceRange) Contains(price int64) bool {
	return price >= r.Min && price <= r.Max
}

// Levels 区间内的 tick 数
func (r PriceRange) Levels() int {
	return int(r.Max - r.Min + 1)
}

// Check 下单前的校验：数量为正、方向合法、价格在区间内
func (r PriceRange) Check(o *Order) error {
	if o.Side != Buy && o.Side != Sell {
		return ErrBadSide
	}
	if o.Qty <= 0 {
		return ErrBadQuantity
	}
	if !r.Contains(o.Price) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrPriceOutOfRange, o.Price, r.Min, r.Max)
	}
	return nil
}

// Emitter 撮合结果回调，在撮合线程里同步调用，不能阻塞
type Emitter interface {
	Trade(t Trade)
	Rested(o Order)
}

type NopEmitter struct{}

func (NopEmitter) Trade(Trade)   {}
func (NopEmitter) Rested(Order) {}
