package contract

import "context"

// RowReader: 表格数据源抽象。
// 约束：
// 1) 流式读取，按行回调，行序即文件顺序；
// 2) 只做词法切分，不做字段语义解析；
// 3) 不在内部起并发；yield 返回错误时立即停止并原样上抛。
type RowReader interface {
	Iterate(ctx context.Context, path string, yield func(row []string) error) error
}
