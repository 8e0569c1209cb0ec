package csvrows

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"qnreport/pkg/contract"
)

// Options 为 CSV 行读取器的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `yaml:"buf_size"`
	// SkipHeader 为 true 时跳过首行表头（由装配层按文件决定）。
	SkipHeader bool `yaml:"-"`
	// LazyQuotes 放宽引号规则（导出工具偶有未转义的引号）。
	LazyQuotes bool `yaml:"lazy_quotes"`
}

// Reader 以流式方式逐行读取 CSV；path 为 "-" 时读取 STDIN。
// 列数允许逐行不同，由调用方按布局校验。
type Reader struct {
	bufSize    int
	skipHeader bool
	lazy       bool
}

// New 创建 CSV 行读取器。
func New(opts *Options) *Reader {
	const defaultBuf = 64 * 1024
	r := &Reader{bufSize: defaultBuf}
	if opts != nil {
		if opts.BufSize > 0 {
			r.bufSize = opts.BufSize
		}
		r.skipHeader = opts.SkipHeader
		r.lazy = opts.LazyQuotes
	}
	return r
}

var _ contract.RowReader = (*Reader)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Iterate 按文件顺序对每一行调用 yield。
// 文件不存在时返回包装了 ErrMissingFile 的错误。
func (r *Reader) Iterate(ctx context.Context, path string, yield func(row []string) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var src io.Reader
	if path == "-" {
		src = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", contract.ErrMissingFile, path)
			}
			return err
		}
		defer f.Close()
		src = f
	}
	br := bufio.NewReaderSize(src, r.bufSize)
	// Excel 导出的 UTF-8 文件常带 BOM
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = r.lazy
	cr.ReuseRecord = false

	first := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", contract.ErrRowInvalid, err)
		}
		if first {
			first = false
			if r.skipHeader {
				continue
			}
		}
		if err := yield(row); err != nil {
			return err
		}
	}
}
