package safe

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
	"tickbook.com/pkg/logger"
)

// Go 安全启动协程，panic 只记日志
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(context.Background(), "goroutine panic recovered",
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
			}
		}()
		fn()
	}()
}

// PanicError 由 Func 恢复出来的 panic
type PanicError struct {
	Name  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("safe: %s panicked: %v", e.Name, e.Value)
}

// Func 包装给 errgroup.Go 用：panic 转成 *PanicError 返回，组内其他任务会被取消
func Func(ctx context.Context, name string, fn func(ctx context.Context) error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				pe := &PanicError{Name: name, Value: r, Stack: debug.Stack()}
				logger.Error(ctx, "task panic recovered",
					zap.String("task", name),
					zap.Any("panic", r),
					zap.ByteString("stack", pe.Stack),
				)
				err = pe
			}
		}()
		return fn(ctx)
	}
}
