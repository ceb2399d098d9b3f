package binlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"os"
)

// binlog：定长记录的追加文件，没有帧头也没有校验，字节序固定小端
const (
	defaultFilePerm   = 0o644
	defaultBufferSize = 1 << 20
	Int64Size         = 8
)

var (
	ErrClosed          = errors.New("binlog: writer closed")
	ErrTruncatedRecord = errors.New("binlog: truncated record")
)

type Mode int

const (
	// Truncate 每个会话一个新文件
	Truncate Mode = iota
	// Append 追加到已有文件末尾
	Append
)

type Writer struct {
	f   *os.File
	bw  *bufio.Writer
	off int64 // 逻辑偏移，包含还在 bufio 里的字节
	buf []byte
}

func OpenWrite(path string, mode Mode, buffSize int) (*Writer, error) {
	if buffSize <= 0 {
		buffSize = defaultBufferSize
	}
	flags := os.O_WRONLY | os.O_CREATE
	if mode == Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, defaultFilePerm)
	if err != nil {
		return nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &Writer{
		f:   file,
		bw:  bufio.NewWriterSize(file, buffSize),
		off: stat.Size(),
	}, nil
}

// Append 原样写入一条记录
func (w *Writer) Append(rec []byte) error {
	if w.f == nil {
		return ErrClosed
	}
	n, err := w.bw.Write(rec)
	w.off += int64(n)
	return err
}

// AppendInt64s 一次写入一批 int64（小端 8 字节）
func (w *Writer) AppendInt64s(vals []int64) error {
	if w.f == nil {
		return ErrClosed
	}
	need := len(vals) * Int64Size
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	b := w.buf[:need]
	for i, v := range vals {
		binary.LittleEndian.PutUint64(b[i*Int64Size:], uint64(v))
	}
	n, err := w.bw.Write(b)
	w.off += int64(n)
	return err
}

// Offset 已写入的逻辑字节数
func (w *Writer) Offset() int64 { return w.off }

// Flush bufio 刷到内核，再 fsync 落盘
func (w *Writer) Flush() error {
	if w.f == nil {
		return ErrClosed
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}
	return w.f.Sync()
}

// Close 先 Flush 再关；重复调用返回 nil
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	f := w.f
	w.f = nil
	if err := w.bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
