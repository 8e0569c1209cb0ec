package contract

import "errors"

// 最小错误分类（用于日志/指标分类与上层策略判定）。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInvalidInput: 调用参数非法。
	ErrInvalidInput = errors.New("invalid input")
	// ErrRowInvalid: 问卷行结构错误（字段缺失、编号/时间无法解析）。
	ErrRowInvalid = errors.New("row invalid")
	// ErrMissingFile: 运行必需的参考文件缺失。
	ErrMissingFile = errors.New("required file missing")
	// ErrFetchFailed: 远端文件获取失败（非 2xx 或重试耗尽）。
	ErrFetchFailed = errors.New("fetch failed")
)
