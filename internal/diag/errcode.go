package diag

import (
	"context"
	"errors"
	"net"
	"os"

	"qnreport/pkg/contract"
)

// Code 为日志与指标使用的错误分类；退出码由命令层另行决定。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeNetwork   Code = "network"
	CodeInvariant Code = "invariant"
	CodeInput     Code = "input"
	CodeConfig    Code = "config"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// sentinels 按顺序匹配，先命中者生效。
var sentinels = []struct {
	err  error
	code Code
}{
	{context.Canceled, CodeCancel},
	{context.DeadlineExceeded, CodeCancel},
	{contract.ErrMissingFile, CodeConfig},
	{contract.ErrRowInvalid, CodeInput},
	{contract.ErrInvalidInput, CodeInput},
	{contract.ErrInvariantViolation, CodeInvariant},
	{contract.ErrPathInvalid, CodeInvariant},
	{contract.ErrFetchFailed, CodeNetwork},
}

// Classify 只看错误链上的哨兵值与类型，不匹配消息文本。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeNetwork
	}
	return CodeUnknown
}
