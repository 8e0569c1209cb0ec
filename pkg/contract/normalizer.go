package contract

// Normalizer: 实体名称归一化（字形/宽度统一、去除括号与标记字符）。
// 纯函数：相同输入恒得相同输出，可被多个 goroutine 同时调用。
type Normalizer interface {
	Normalize(name string) string
}
