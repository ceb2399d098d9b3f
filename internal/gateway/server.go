package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"tickbook.com/internal/matching"
	"tickbook.com/internal/protocol"
	"tickbook.com/pkg/logger"
	"tickbook.com/pkg/xerr"
)

const maxLineSize = 64 * 1024

// Sink 订单的去处，通常是 *engine.Pipeline
type Sink interface {
	Push(o matching.Order) error
}

// RejectCounter 被拒绝的行按 reason 计数，通常是 *engine.Session
type RejectCounter interface {
	CountReject(reason string)
}

type ServerConfig struct {
	Addr    string
	Range   matching.PriceRange
	Rejects RejectCounter // 可为 nil
}

// Server 只接受一个客户端的行协议入口，即生产者
type Server struct {
	cfg ServerConfig
	ln  net.Listener

	mu   sync.Mutex
	conn net.Conn

	closeOnce sync.Once
	seq       uint64
	accepted  atomic.Int64
	rejected  atomic.Int64
}

// Listen 绑定地址；失败属于启动错误
func Listen(cfg ServerConfig) (*Server, error) {
	if cfg.Range == (matching.PriceRange{}) {
		cfg.Range = matching.DefaultRange()
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("gateway: listen %s: %w", cfg.Addr, err)
	}
	return &Server{cfg: cfg, ln: ln}, nil
}

func (s *Server) Addr() net.Addr  { return s.ln.Addr() }
func (s *Server) Accepted() int64 { return s.accepted.Load() }
func (s *Server) Rejected() int64 { return s.rejected.Load() }

// Close 关闭监听和连接，可重复调用；用来打断阻塞中的 Accept / Read
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ln.Close()
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
	return err
}

// Serve 接受一个客户端，逐行解析后推给 sink，直到 EOF、读错误或 ctx 取消。
// 后两种都算正常结束；只有 Accept 本身失败才返回错误。
func (s *Server) Serve(ctx context.Context, sink Sink) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()
	defer s.Close()

	logger.Info(ctx, "waiting for client", zap.String("addr", s.ln.Addr().String()))
	conn, err := s.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("gateway: accept: %w", err)
	}
	// 只要一个客户端，拿到连接就不再监听
	_ = s.ln.Close()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	if ctx.Err() != nil {
		_ = conn.Close()
		return nil
	}

	ra := conn.RemoteAddr().String()
	logger.Info(ctx, "client connected", zap.String("remote", ra))

	err = s.readLines(ctx, bufio.NewReaderSize(conn, maxLineSize), sink)
	if err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn(ctx, "client read error", zap.String("remote", ra), zap.Error(err))
	}
	logger.Info(ctx, "client disconnected",
		zap.String("remote", ra),
		zap.Int64("accepted", s.accepted.Load()),
		zap.Int64("rejected", s.rejected.Load()))
	return nil
}

// readLines 逐行读到 EOF。超长行整行丢弃并按 bad_format 拒绝，连接继续；
// 最后一行没有换行也会处理。返回非 EOF 的读错误。
func (s *Server) readLines(ctx context.Context, br *bufio.Reader, sink Sink) error {
	for {
		raw, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			head := string(raw[:min(len(raw), 64)])
			err = skipLine(br)
			s.reject(ctx, head+"...", xerr.Newf(xerr.BadFormat, "line too long (> %d bytes)", maxLineSize))
			if err == nil {
				continue
			}
		} else if len(raw) > 0 {
			line := strings.TrimSuffix(strings.TrimSuffix(string(raw), "\n"), "\r")
			if !s.handleLine(ctx, line, sink) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// skipLine 丢掉当前行剩余部分，包括换行符
func skipLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

// handleLine 返回 false 表示不能再接收订单
func (s *Server) handleLine(ctx context.Context, line string, sink Sink) bool {
	logger.Debug(ctx, "received line", zap.String("line", line))
	if strings.TrimSpace(line) == "" {
		return true
	}

	o, err := protocol.ParseLine(line, s.cfg.Range)
	if err != nil {
		s.reject(ctx, line, err)
		return true
	}
	s.seq++
	o.ID = s.seq
	if err := sink.Push(o); err != nil {
		s.reject(ctx, line, xerr.New(xerr.PipelineClosed, err.Error()))
		return false
	}
	s.accepted.Add(1)
	return true
}

func (s *Server) reject(ctx context.Context, line string, err error) {
	s.rejected.Add(1)
	reason := xerr.Reason(err)
	if s.cfg.Rejects != nil {
		s.cfg.Rejects.CountReject(reason)
	}
	logger.Warn(ctx, "order rejected",
		zap.String("line", line),
		zap.Int("code", xerr.CodeOf(err)),
		zap.String("reason", reason),
		zap.Error(err))
}
