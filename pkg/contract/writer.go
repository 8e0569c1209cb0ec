package contract

import (
	"context"
	"io"
)

// Writer 持久化渲染后的页面与站点占位文件。
// 同一 ArtifactID 在一次运行中只有一个写者；实现不解析内容，只按字节落盘。
// 写入失败直接返回，重试与否由调用方决定。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
	// Touch 确保文件存在；已存在时不改动内容。
	Touch(ctx context.Context, id ArtifactID) error
}
