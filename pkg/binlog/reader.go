package binlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

type Reader struct {
	f   *os.File
	br  *bufio.Reader
	off int64
}

func OpenReader(path string, bufSize int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	return &Reader{f: f, br: bufio.NewReaderSize(f, bufSize)}, nil
}

func (r *Reader) Close() error { return r.f.Close() }

// Offset 已成功读取的字节数
func (r *Reader) Offset() int64 { return r.off }

// Next 读满 dst；干净的文件尾返回 io.EOF，读到一半返回 ErrTruncatedRecord
func (r *Reader) Next(dst []byte) error {
	n, err := io.ReadFull(r.br, dst)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncatedRecord
		}
		return err
	}
	r.off += int64(n)
	return nil
}

// Int64 读一个小端 int64
func (r *Reader) Int64() (int64, error) {
	var b [Int64Size]byte
	if err := r.Next(b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// ReadInt64s 把整个文件当成 int64 序列读出来
func ReadInt64s(path string) ([]int64, error) {
	r, err := OpenReader(path, 0)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []int64
	if st, err := r.f.Stat(); err == nil {
		out = make([]int64, 0, st.Size()/Int64Size)
	}
	for {
		v, err := r.Int64()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, v)
	}
}
