package matching

// KindBounded 不走 Book 接口，只给 replay 压测用
const KindBounded = "bounded"

// QueueCapacity 每档环形队列的槽数，留一个空槽区分满/空，所以最多挂 QueueCapacity-1 笔
const QueueCapacity = 100

type ringSlot struct {
	id    uint64
	price int64
	qty   int64
}

type ringQueue struct {
	slots [QueueCapacity]ringSlot
	head  uint16
	tail  uint16
}

func (q *ringQueue) empty() bool { return q.head == q.tail }
func (q *ringQueue) full() bool  { return (q.tail+1)%QueueCapacity == q.head }

func (q *ringQueue) push(s ringSlot) bool {
	if q.full() {
		return false
	}
	q.slots[q.tail] = s
	q.tail = (q.tail + 1) % QueueCapacity
	return true
}

func (q *ringQueue) pop() {
	q.slots[q.head] = ringSlot{}
	q.head = (q.head + 1) % QueueCapacity
}

func (q *ringQueue) len() int {
	return (int(q.tail) - int(q.head) + QueueCapacity) % QueueCapacity
}

// BoundedResult 一进一出的处理结果
type BoundedResult struct {
	Order    Order  // 处理后的订单，Qty 是剩余量
	Traded   int64  // 本次成交量
	MakerID  uint64 // 有成交时的对手单
	Rested   bool   // 剩余部分已入队
	Dropped  bool   // 队列满，剩余部分被丢弃
	Rejected bool   // 价格越界或数量非法，未处理
}

// BoundedBook 定长环形队列版本：每次只处理一笔订单，只和同一价位对手队列的队头成交一次，
// 剩余量入本方同价位队列，队列满则丢弃并计数。档位按需分配。
type BoundedBook struct {
	rng     PriceRange
	bids    []*ringQueue
	asks    []*ringQueue
	dropped uint64
}

func NewBoundedBook(r PriceRange) *BoundedBook {
	return &BoundedBook{
		rng:  r,
		bids: make([]*ringQueue, r.Levels()),
		asks: make([]*ringQueue, r.Levels()),
	}
}

func (b *BoundedBook) Process(in Order) BoundedResult {
	res := BoundedResult{Order: in}
	if b.rng.Check(&in) != nil {
		res.Rejected = true
		return res
	}
	idx := int(in.Price - b.rng.Min)

	own, opp := b.bids, b.asks
	if in.Side == Sell {
		own, opp = b.asks, b.bids
	}

	if q := opp[idx]; q != nil && !q.empty() {
		top := &q.slots[q.head]
		crosses := top.price <= in.Price
		if in.Side == Sell {
			crosses = top.price >= in.Price
		}
		if crosses && top.qty > 0 {
			traded := min(res.Order.Qty, top.qty)
			res.Order.Qty -= traded
			top.qty -= traded
			res.Traded = traded
			res.MakerID = top.id
			if top.qty == 0 {
				q.pop()
			}
			if res.Order.Qty == 0 {
				return res
			}
		}
	}

	q := own[idx]
	if q == nil {
		q = &ringQueue{}
		own[idx] = q
	}
	if q.push(ringSlot{id: in.ID, price: in.Price, qty: res.Order.Qty}) {
		res.Rested = true
	} else {
		res.Dropped = true
		b.dropped++
	}
	return res
}

// Dropped 因队列满被丢弃的订单数
func (b *BoundedBook) Dropped() uint64 { return b.dropped }

// Depth 某一档当前排队笔数
func (b *BoundedBook) Depth(side Side, price int64) int {
	if !b.rng.Contains(price) {
		return 0
	}
	qs := b.bids
	if side == Sell {
		qs = b.asks
	}
	if q := qs[price-b.rng.Min]; q != nil {
		return q.len()
	}
	return 0
}
