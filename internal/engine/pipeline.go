package engine

import (
	"sync"

	"tickbook.com/internal/matching"
	"tickbook.com/pkg/metrics"
)

const minQueueCap = 1024

// Pipeline 单生产者单消费者的无界 FIFO。
// 生产者 Push 后 Signal；消费者在 "非空 或 已关闭" 上等待。
// 关闭后消费者仍会把队列取空才退出，已接收的订单不会丢。
type Pipeline struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []matching.Order // 环形缓冲，满了翻倍
	head   int
	n      int
	closed bool
}

func NewPipeline() *Pipeline {
	p := &Pipeline{buf: make([]matching.Order, minQueueCap)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Push 关闭之后返回 ErrPipelineClosed，订单不会被接收
func (p *Pipeline) Push(o matching.Order) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPipelineClosed
	}
	if p.n == len(p.buf) {
		p.grow()
	}
	p.buf[(p.head+p.n)%len(p.buf)] = o
	p.n++
	p.mu.Unlock()

	metrics.PipelineDepth.Inc()
	p.cond.Signal()
	return nil
}

func (p *Pipeline) grow() {
	nb := make([]matching.Order, len(p.buf)*2)
	for i := 0; i < p.n; i++ {
		nb[i] = p.buf[(p.head+i)%len(p.buf)]
	}
	p.buf = nb
	p.head = 0
}

// Pop 阻塞直到拿到一笔订单；只有在已关闭且队列为空时返回 false
func (p *Pipeline) Pop() (matching.Order, bool) {
	p.mu.Lock()
	for p.n == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.n == 0 {
		p.mu.Unlock()
		return matching.Order{}, false
	}
	o := p.buf[p.head]
	p.buf[p.head] = matching.Order{}
	p.head = (p.head + 1) % len(p.buf)
	p.n--
	p.mu.Unlock()

	metrics.PipelineDepth.Dec()
	return o, true
}

// Shutdown 幂等；广播唤醒可能在等待的消费者
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *Pipeline) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
