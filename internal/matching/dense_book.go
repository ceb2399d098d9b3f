package matching

// DenseBook 每个 tick 一个档位，数组下标 = price - Min。
// bestBid/bestAsk 缓存最优档下标，-1 表示没有；档位被吃空后由 cleanup 惰性移动。
type DenseBook struct {
	rng     PriceRange
	bids    []priceLevel
	asks    []priceLevel
	bestBid int
	bestAsk int
	resting int64
}

func NewDenseBook(r PriceRange) *DenseBook {
	n := r.Levels()
	return &DenseBook{
		rng:     r,
		bids:    make([]priceLevel, n),
		asks:    make([]priceLevel, n),
		bestBid: noLevel,
		bestAsk: noLevel,
	}
}

func (b *DenseBook) Range() PriceRange { return b.rng }

func (b *DenseBook) index(price int64) int { return int(price - b.rng.Min) }
func (b *DenseBook) price(idx int) int64   { return b.rng.Min + int64(idx) }

func (b *DenseBook) Insert(o *Order) error {
	if err := insertCheck(b.rng, o); err != nil {
		return err
	}
	idx := b.index(o.Price)
	if o.Side == Buy {
		b.bids[idx].pushBack(*o)
		if b.bestBid == noLevel || idx > b.bestBid {
			b.bestBid = idx
		}
	} else {
		b.asks[idx].pushBack(*o)
		if b.bestAsk == noLevel || idx < b.bestAsk {
			b.bestAsk = idx
		}
	}
	b.resting += o.Qty
	return nil
}

// cleanup 只扫描旧 best 到新 best 之间的空档，不做全量重算
func (b *DenseBook) cleanup() {
	for b.bestBid >= 0 && b.bids[b.bestBid].empty() {
		b.bestBid--
	}
	top := len(b.asks)
	for b.bestAsk >= 0 && b.bestAsk < top && b.asks[b.bestAsk].empty() {
		b.bestAsk++
		if b.bestAsk >= top {
			b.bestAsk = noLevel
			break
		}
	}
}

func (b *DenseBook) Process(o *Order, emit Emitter) {
	if o == nil || o.Qty <= 0 || !b.rng.Contains(o.Price) {
		return
	}
	if emit == nil {
		emit = NopEmitter{}
	}

	switch o.Side {
	case Buy:
		for o.Qty > 0 && b.bestAsk != noLevel {
			askPrice := b.price(b.bestAsk)
			if o.Price < askPrice {
				break
			}
			b.resting -= b.asks[b.bestAsk].fill(o, askPrice, emit)
			b.cleanup()
		}
	case Sell:
		for o.Qty > 0 && b.bestBid != noLevel {
			bidPrice := b.price(b.bestBid)
			if o.Price > bidPrice {
				break
			}
			b.resting -= b.bids[b.bestBid].fill(o, bidPrice, emit)
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

func (b *DenseBook) BestBid() (int64, bool) {
	if b.bestBid == noLevel {
		return 0, false
	}
	return b.price(b.bestBid), true
}

func (b *DenseBook) BestAsk() (int64, bool) {
	if b.bestAsk == noLevel {
		return 0, false
	}
	return b.price(b.bestAsk), true
}

func (b *DenseBook) level(side Side, price int64) *priceLevel {
	if !b.rng.Contains(price) {
		return nil
	}
	switch side {
	case Buy:
		return &b.bids[b.index(price)]
	case Sell:
		return &b.asks[b.index(price)]
	}
	return nil
}

func (b *DenseBook) LevelQty(side Side, price int64) int64 {
	if lv := b.level(side, price); lv != nil {
		return lv.qty
	}
	return 0
}

func (b *DenseBook) LevelOrders(side Side, price int64) []Order {
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

func (b *DenseBook) RestingQty() int64 { return b.resting }
