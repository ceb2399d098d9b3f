// Package orderfile 压测/回放用的二进制订单文件。
//
// 布局（小端）：
//
//	[0:8)   uint64 记录数
//	之后每条 12 字节：
//	[0]     side，1=buy 0=sell
//	[1:4)   填充，写 0
//	[4:8)   int32 价格（分）
//	[8:12)  int32 数量
package orderfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"tickbook.com/internal/matching"
	"tickbook.com/pkg/binlog"
)

const (
	HeaderSize = 8
	RecordSize = 12
)

var (
	ErrShortFile   = errors.New("orderfile: short file")
	ErrFieldRange  = errors.New("orderfile: field does not fit int32")
	ErrBadSideFlag = errors.New("orderfile: bad side flag")
	ErrBadSide     = errors.New("orderfile: unknown order side")
)

// EncodeRecord 写入 dst[:RecordSize]
func EncodeRecord(dst []byte, o matching.Order) error {
	if o.Price < math.MinInt32 || o.Price > math.MaxInt32 || o.Qty < math.MinInt32 || o.Qty > math.MaxInt32 {
		return fmt.Errorf("%w: price=%d qty=%d", ErrFieldRange, o.Price, o.Qty)
	}
	switch o.Side {
	case matching.Buy:
		dst[0] = 1
	case matching.Sell:
		dst[0] = 0
	default:
		return ErrBadSide
	}
	dst[1], dst[2], dst[3] = 0, 0, 0
	binary.LittleEndian.PutUint32(dst[4:8], uint32(int32(o.Price)))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(int32(o.Qty)))
	return nil
}

func DecodeRecord(src []byte) (matching.Order, error) {
	var o matching.Order
	switch src[0] {
	case 1:
		o.Side = matching.Buy
	case 0:
		o.Side = matching.Sell
	default:
		return o, fmt.Errorf("%w: %d", ErrBadSideFlag, src[0])
	}
	o.Price = int64(int32(binary.LittleEndian.Uint32(src[4:8])))
	o.Qty = int64(int32(binary.LittleEndian.Uint32(src[8:12])))
	return o, nil
}

// Save 覆盖写入
func Save(path string, orders []matching.Order) error {
	w, err := binlog.OpenWrite(path, binlog.Truncate, 0)
	if err != nil {
		return fmt.Errorf("orderfile: open %s: %w", path, err)
	}
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(orders)))
	if err := w.Append(hdr[:]); err != nil {
		_ = w.Close()
		return err
	}
	var rec [RecordSize]byte
	for i := range orders {
		if err := EncodeRecord(rec[:], orders[i]); err != nil {
			_ = w.Close()
			return fmt.Errorf("orderfile: record %d: %w", i, err)
		}
		if err := w.Append(rec[:]); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

// Load 读出全部订单，ID 按文件顺序从 1 开始编号
func Load(path string) ([]matching.Order, error) {
	r, err := binlog.OpenReader(path, 0)
	if err != nil {
		return nil, fmt.Errorf("orderfile: open %s: %w", path, err)
	}
	defer r.Close()

	var hdr [HeaderSize]byte
	if err := r.Next(hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: reading count: %v", ErrShortFile, err)
	}
	count := binary.LittleEndian.Uint64(hdr[:])

	// 不信任文件里的 count，预分配有上限
	orders := make([]matching.Order, 0, min(count, 1<<20))
	var rec [RecordSize]byte
	for i := uint64(0); i < count; i++ {
		if err := r.Next(rec[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, binlog.ErrTruncatedRecord) {
				return nil, fmt.Errorf("%w: have %d of %d records", ErrShortFile, i, count)
			}
			return nil, err
		}
		o, err := DecodeRecord(rec[:])
		if err != nil {
			return nil, fmt.Errorf("orderfile: record %d: %w", i, err)
		}
		o.ID = i + 1
		orders = append(orders, o)
	}
	return orders, nil
}
