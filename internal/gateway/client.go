package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"tickbook.com/internal/matching"
	"tickbook.com/internal/protocol"
)

const dialTimeout = 5 * time.Second

// Client 发送行协议订单
type Client struct {
	conn      net.Conn
	w         *bufio.Writer
	closeOnce sync.Once
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("gateway: dial %s: %w", addr, err)
	}
	return &Client{conn: conn, w: bufio.NewWriterSize(conn, 32*1024)}, nil
}

func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// SendLine 写一行并立即 flush
func (c *Client) SendLine(line string) error {
	if err := c.writeLine(line); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Client) writeLine(line string) error {
	if _, err := c.w.WriteString(line); err != nil {
		return err
	}
	return c.w.WriteByte('\n')
}

// Replay 按顺序发送订单。perSec > 0 时用令牌桶限速并逐条 flush，否则整批写出。
// 返回已写出的订单数。
func (c *Client) Replay(ctx context.Context, orders []matching.Order, perSec int) (int, error) {
	var lim *rate.Limiter
	if perSec > 0 {
		lim = rate.NewLimiter(rate.Limit(perSec), 1)
	}
	for i, o := range orders {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				_ = c.w.Flush()
				return i, err
			}
		} else if err := ctx.Err(); err != nil {
			_ = c.w.Flush()
			return i, err
		}
		if err := c.writeLine(protocol.FormatLine(o)); err != nil {
			return i, fmt.Errorf("gateway: send order %d: %w", o.ID, err)
		}
		if lim != nil {
			if err := c.w.Flush(); err != nil {
				return i, fmt.Errorf("gateway: send order %d: %w", o.ID, err)
			}
		}
	}
	return len(orders), c.w.Flush()
}

// REPL 把 in 的每一行转发出去；EOF 或空行结束。prompt 写到 out，out 可为 nil
func (c *Client) REPL(in io.Reader, out io.Writer) (int, error) {
	if out == nil {
		out = io.Discard
	}
	sc := bufio.NewScanner(in)
	n := 0
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			break
		}
		if err := c.SendLine(line); err != nil {
			return n, fmt.Errorf("gateway: send: %w", err)
		}
		n++
	}
	fmt.Fprintln(out)
	return n, sc.Err()
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		ferr := c.w.Flush()
		err = c.conn.Close()
		if err == nil {
			err = ferr
		}
	})
	return err
}
