package matching

import "github.com/tidwall/btree"

// SparseBook 只保存有挂单的档位，适合价格区间很宽、挂单稀疏的场景。
// best 依旧是缓存值：档位被吃空时删掉它，再从有序 map 取新的最值。
type SparseBook struct {
	rng     PriceRange
	bids    *btree.Map[int64, *priceLevel]
	asks    *btree.Map[int64, *priceLevel]
	bestBid int64
	bestAsk int64
	hasBid  bool
	hasAsk  bool
	resting int64
}

func NewSparseBook(r PriceRange) *SparseBook {
	return &SparseBook{
		rng:  r,
		bids: btree.NewMap[int64, *priceLevel](32),
		asks: btree.NewMap[int64, *priceLevel](32),
	}
}

func (b *SparseBook) Range() PriceRange { return b.rng }

func (b *SparseBook) Insert(o *Order) error {
	if err := insertCheck(b.rng, o); err != nil {
		return err
	}
	side := b.asks
	if o.Side == Buy {
		side = b.bids
	}
	lv, ok := side.Get(o.Price)
	if !ok {
		lv = &priceLevel{}
		side.Set(o.Price, lv)
	}
	lv.pushBack(*o)
	b.resting += o.Qty

	if o.Side == Buy {
		if !b.hasBid || o.Price > b.bestBid {
			b.bestBid, b.hasBid = o.Price, true
		}
	} else if !b.hasAsk || o.Price < b.bestAsk {
		b.bestAsk, b.hasAsk = o.Price, true
	}
	return nil
}

// cleanup 删除被吃空的最优档并推进 best
func (b *SparseBook) cleanup() {
	for b.hasBid {
		lv, ok := b.bids.Get(b.bestBid)
		if ok && !lv.empty() {
			break
		}
		b.bids.Delete(b.bestBid)
		b.bestBid, _, b.hasBid = b.bids.Max()
	}
	for b.hasAsk {
		lv, ok := b.asks.Get(b.bestAsk)
		if ok && !lv.empty() {
			break
		}
		b.asks.Delete(b.bestAsk)
		b.bestAsk, _, b.hasAsk = b.asks.Min()
	}
}

func (b *SparseBook) Process(o *Order, emit Emitter) {
	if o == nil || o.Qty <= 0 || !b.rng.Contains(o.Price) {
		return
	}
	if emit == nil {
		emit = NopEmitter{}
	}

	switch o.Side {
	case Buy:
		for o.Qty > 0 && b.hasAsk {
			if o.Price < b.bestAsk {
				break
			}
			lv, _ := b.asks.Get(b.bestAsk)
			if lv != nil {
				b.resting -= lv.fill(o, b.bestAsk, emit)
			}
			b.cleanup()
		}
	case Sell:
		for o.Qty > 0 && b.hasBid {
			if o.Price > b.bestBid {
				break
			}
			lv, _ := b.bids.Get(b.bestBid)
			if lv != nil {
				b.resting -= lv.fill(o, b.bestBid, emit)
			}
			b.cleanup()
		}
	default:
		return
	}

	if o.Qty > 0 {
		_ = b.Insert(o)
		emit.Rested(*o)
	}
}

func (b *SparseBook) BestBid() (int64, bool) {
	if !b.hasBid {
		return 0, false
	}
	return b.bestBid, true
}

func (b *SparseBook) BestAsk() (int64, bool) {
	if !b.hasAsk {
		return 0, false
	}
	return b.bestAsk, true
}

func (b *SparseBook) level(side Side, price int64) *priceLevel {
	var lv *priceLevel
	switch side {
	case Buy:
		lv, _ = b.bids.Get(price)
	case Sell:
		lv, _ = b.asks.Get(price)
	}
	return lv
}

func (b *SparseBook) LevelQty(side Side, price int64) int64 {
	if lv := b.level(side, price); lv != nil {
		return lv.qty
	}
	return 0
}

func (b *SparseBook) LevelOrders(side Side, price int64) []Order {
	lv := b.level(side, price)
	if lv == nil || lv.empty() {
		return nil
	}
	out := make([]Order, 0, lv.size)
	lv.each(func(o Order) bool {
		out = append(out, o)
		return true
	})
	return out
}

// Levels 非空档位数量
func (b *SparseBook) Levels() (bids, asks int) {
	return b.bids.Len(), b.asks.Len()
}

func (b *SparseBook) RestingQty() int64 { return b.resting }
