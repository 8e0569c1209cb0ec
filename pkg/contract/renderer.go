package contract

import (
	"context"
	"io"
)

// Renderer: 将 Page 渲染为文档正文。
// 运行期不做 I/O；并发安全（同一实例会被多个 worker 同时调用）。
type Renderer interface {
	Render(ctx context.Context, p Page) (io.Reader, error)
}
