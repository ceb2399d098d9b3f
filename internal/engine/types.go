package engine

import (
	"errors"

	"tickbook.com/internal/matching"
)

var (
	ErrPipelineClosed = errors.New("engine: pipeline closed")
	ErrFinalized      = errors.New("engine: session finalized")
)

// Processor 消费者侧的撮合入口，Session 实现它
type Processor interface {
	Process(o *matching.Order)
}
