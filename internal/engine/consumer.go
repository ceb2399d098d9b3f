package engine

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"tickbook.com/pkg/logger"
)

// Consumer 唯一的撮合线程：从 Pipeline 取单，交给 Processor
type Consumer struct {
	pipe      *Pipeline
	proc      Processor
	processed atomic.Uint64
}

func NewConsumer(pipe *Pipeline, proc Processor) *Consumer {
	return &Consumer{pipe: pipe, proc: proc}
}

// Run ctx 取消只触发 Shutdown；队列取空后才返回
func (c *Consumer) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, c.pipe.Shutdown)
	defer stop()

	logger.Info(ctx, "consumer started")
	for {
		o, ok := c.pipe.Pop()
		if !ok {
			break
		}
		c.proc.Process(&o)
		c.processed.Add(1)
	}
	logger.Info(ctx, "consumer drained", zap.Uint64("processed", c.processed.Load()))
	return nil
}

func (c *Consumer) Processed() uint64 { return c.processed.Load() }
