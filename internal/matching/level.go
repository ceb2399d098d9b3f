package matching

import "sync"

// priceLevel 同一价位的挂单，链表 FIFO：新单追加到队尾，成交从队头开始
type priceLevel struct {
	head *lvNode
	tail *lvNode
	size int   // 挂单笔数
	qty  int64 // 挂单总量
}

type lvNode struct {
	next  *lvNode
	order Order
}

var lvNodePool = sync.Pool{
	New: func() any {
		return new(lvNode)
	},
}

func (l *priceLevel) pushBack(o Order) {
	n := lvNodePool.Get().(*lvNode)
	n.order = o
	n.next = nil
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.size++
	l.qty += o.Qty
}

func (l *priceLevel) popFront() {
	n := l.head
	if n == nil {
		return
	}
	l.head = n.next
	if l.head == nil {
		l.tail = nil
	}
	l.size--
	l.qty -= n.order.Qty
	*n = lvNode{}
	lvNodePool.Put(n)
}

func (l *priceLevel) empty() bool {
	return l.size == 0
}

// fill 用 taker 从队头开始吃这一档，直到 taker 吃完或者这一档空了。
// 返回成交总量
func (l *priceLevel) fill(taker *Order, price int64, emit Emitter) int64 {
	var filled int64
	for taker.Qty > 0 && !l.empty() {
		maker := &l.head.order
		exec := min(taker.Qty, maker.Qty)

		taker.Qty -= exec
		maker.Qty -= exec
		l.qty -= exec
		filled += exec

		emit.Trade(Trade{
			TakerID: taker.ID,
			MakerID: maker.ID,
			Price:   price,
			Qty:     exec,
		})
		if maker.Qty == 0 {
			l.popFront()
		}
	}
	return filled
}

// each 按时间顺序遍历挂单
func (l *priceLevel) each(fn func(o Order) bool) {
	for n := l.head; n != nil; n = n.next {
		if !fn(n.order) {
			return
		}
	}
}
