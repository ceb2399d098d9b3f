package matching

import "fmt"

const (
	KindDense  = "dense"
	KindSparse = "sparse"
)

// Book 单品种限价簿。非并发安全：只允许撮合线程访问。
//
// 每次调用返回后：
//   - 没有买单时 BestBid 返回 false，卖方同理
//   - 两边都有时 best bid < best ask
//   - 挂单数量都 > 0，并且挂在自己价格对应的档位上
type Book interface {
	// Insert 把订单挂到对应档位队尾，不撮合
	Insert(o *Order) error
	// Process 价格优先、时间优先撮合；剩余部分挂单。o.Qty 被原地扣减
	Process(o *Order, emit Emitter)

	BestBid() (price int64, ok bool)
	BestAsk() (price int64, ok bool)

	LevelQty(side Side, price int64) int64
	LevelOrders(side Side, price int64) []Order
	RestingQty() int64
	Range() PriceRange
}

// NewBook kind 为空时用 dense
func NewBook(kind string, r PriceRange) (Book, error) {
	if err := CheckRange(kind, r); err != nil {
		return nil, err
	}
	if kind == KindSparse {
		return NewSparseBook(r), nil
	}
	return NewDenseBook(r), nil
}

// CheckRange 建盘口之前的检查，配置加载时也用；dense 按档位开数组，区间不能太宽
func CheckRange(kind string, r PriceRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	switch kind {
	case "", KindDense:
		if r.Max-r.Min >= MaxDenseLevels {
			return fmt.Errorf("%w: %d levels > %d", ErrRangeTooWide, r.Max-r.Min+1, MaxDenseLevels)
		}
		return nil
	case KindSparse:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBookKind, kind)
	}
}

func insertCheck(r PriceRange, o *Order) error {
	if o == nil {
		return ErrBadQuantity
	}
	return r.Check(o)
}
