package gateway

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tickbook.com/internal/matching"
)

var errClosed = errors.New("closed")

type memSink struct {
	mu     sync.Mutex
	orders []matching.Order
	limit  int // >0 时超过 limit 返回错误
}

func (m *memSink) Push(o matching.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit > 0 && len(m.orders) >= m.limit {
		return errClosed
	}
	m.orders = append(m.orders, o)
	return nil
}

func (m *memSink) all() []matching.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]matching.Order(nil), m.orders...)
}

type reasons struct {
	mu sync.Mutex
	m  map[string]int
}

func (r *reasons) CountReject(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = map[string]int{}
	}
	r.m[reason]++
}

func startServer(t *testing.T, sink Sink, rej RejectCounter) (*Server, <-chan error) {
	t.Helper()
	srv, err := Listen(ServerConfig{
		Addr:    "127.0.0.1:0",
		Range:   matching.PriceRange{Min: 1, Max: 100_000},
		Rejects: rej,
	})
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), sink) }()
	return srv, done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not return")
		return nil
	}
}

func TestServer_ParsesLinesUntilEOF(t *testing.T) {
	sink := &memSink{}
	rej := &reasons{}
	srv, done := startServer(t, sink, rej)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	lines := []string{
		"buy 10 1.5",
		"sell 3 4.555",
		"",
		"hold 1 1.00",
		"buy 0 1.00",
		"buy -2 1.00",
		"sell 1 5000",
		"buy ten 1.00",
		"buy 1",
		"sell 2 12.34 extra",
	}
	_, err = conn.Write([]byte(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.NoError(t, wait(t, done))

	got := sink.all()
	require.Len(t, got, 3)
	assert.Equal(t, matching.Order{ID: 1, Side: matching.Buy, Price: 150, Qty: 10}, got[0])
	assert.Equal(t, matching.Order{ID: 2, Side: matching.Sell, Price: 456, Qty: 3}, got[1])
	// 最后一行没有换行也要解析
	assert.Equal(t, matching.Order{ID: 3, Side: matching.Sell, Price: 1234, Qty: 2}, got[2])

	assert.Equal(t, int64(3), srv.Accepted())
	assert.Equal(t, int64(6), srv.Rejected())
	assert.Equal(t, map[string]int{
		"bad_side":           1,
		"bad_quantity":       2,
		"price_out_of_range": 1,
		"bad_format":         2,
	}, rej.m)
}

func TestServer_OversizedLineRejected(t *testing.T) {
	sink := &memSink{}
	rej := &reasons{}
	srv, done := startServer(t, sink, rej)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	huge := "buy 1 " + strings.Repeat("9", 70*1024)
	_, err = conn.Write([]byte("buy 10 4.00\n" + huge + "\nsell 5 5.00\n"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.NoError(t, wait(t, done))

	// 超长行只丢它自己，后面的订单照常收
	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, matching.Order{ID: 1, Side: matching.Buy, Price: 400, Qty: 10}, got[0])
	assert.Equal(t, matching.Order{ID: 2, Side: matching.Sell, Price: 500, Qty: 5}, got[1])
	assert.Equal(t, int64(2), srv.Accepted())
	assert.Equal(t, int64(1), srv.Rejected())
	assert.Equal(t, map[string]int{"bad_format": 1}, rej.m)
}

func TestServer_OversizedLastLineWithoutNewline(t *testing.T) {
	sink := &memSink{}
	rej := &reasons{}
	srv, done := startServer(t, sink, rej)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("sell 2 1.00\nbuy 1 " + strings.Repeat("1", 200*1024)))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.NoError(t, wait(t, done))
	assert.Len(t, sink.all(), 1)
	assert.Equal(t, map[string]int{"bad_format": 1}, rej.m)
}

func TestServer_StopsWhenSinkClosed(t *testing.T) {
	sink := &memSink{limit: 2}
	rej := &reasons{}
	srv, done := startServer(t, sink, rej)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("buy 1 1\nbuy 1 1\nbuy 1 1\nbuy 1 1\n"))
	require.NoError(t, err)

	require.NoError(t, wait(t, done))
	assert.Len(t, sink.all(), 2)
	assert.Equal(t, 1, rej.m["pipeline_closed"])
}

func TestServer_CancelBeforeAccept(t *testing.T) {
	srv, err := Listen(ServerConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, &memSink{}) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.NoError(t, wait(t, done))
}

func TestServer_CancelMidSession(t *testing.T) {
	sink := &memSink{}
	srv, err := Listen(ServerConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, sink) }()

	cli, err := Dial(context.Background(), srv.Addr().String())
	require.NoError(t, err)
	defer cli.Close()
	require.NoError(t, cli.SendLine("buy 1 2.00"))
	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, wait(t, done))
}

func TestServer_ListenError(t *testing.T) {
	srv, err := Listen(ServerConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	defer srv.Close()

	_, err = Listen(ServerConfig{Addr: srv.Addr().String()})
	assert.Error(t, err)
}

func TestClient_Replay(t *testing.T) {
	sink := &memSink{}
	srv, done := startServer(t, sink, nil)

	cli, err := Dial(context.Background(), srv.Addr().String())
	require.NoError(t, err)

	orders := []matching.Order{
		{ID: 1, Side: matching.Buy, Price: 500, Qty: 7},
		{ID: 2, Side: matching.Sell, Price: 456, Qty: 1},
		{ID: 3, Side: matching.Sell, Price: 100_000, Qty: 1000},
	}
	n, err := cli.Replay(context.Background(), orders, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, cli.Close())
	require.NoError(t, cli.Close())

	require.NoError(t, wait(t, done))
	assert.Equal(t, orders, sink.all())
}

func TestClient_ReplayPacedCancel(t *testing.T) {
	sink := &memSink{}
	srv, done := startServer(t, sink, nil)
	cli, err := Dial(context.Background(), srv.Addr().String())
	require.NoError(t, err)

	orders := make([]matching.Order, 100)
	for i := range orders {
		orders[i] = matching.Order{ID: uint64(i + 1), Side: matching.Buy, Price: 100, Qty: 1}
	}
	// 每秒 20 笔，100ms 内最多发出几笔
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	n, err := cli.Replay(ctx, orders, 20)
	assert.Error(t, err)
	assert.Less(t, n, len(orders))
	require.NoError(t, cli.Close())

	require.NoError(t, wait(t, done))
	assert.Len(t, sink.all(), n)
}

func TestClient_REPL(t *testing.T) {
	sink := &memSink{}
	srv, done := startServer(t, sink, nil)
	cli, err := Dial(context.Background(), srv.Addr().String())
	require.NoError(t, err)

	in := strings.NewReader("buy 1 1.00\n  sell 2 3.5  \n\nbuy 9 9.99\n")
	var out strings.Builder
	n, err := cli.REPL(in, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, strings.HasPrefix(out.String(), "> "))
	require.NoError(t, cli.Close())

	require.NoError(t, wait(t, done))
	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, int64(350), got[1].Price)
}
