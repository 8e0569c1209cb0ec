package contract

import (
	"context"
	"io"
)

// Fetcher: 远端文件获取。调用方负责 Close。
// 非 2xx 响应以 ErrFetchFailed 包装返回。
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}
