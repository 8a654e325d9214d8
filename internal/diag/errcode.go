package diag

import (
	"context"
	"errors"
	"os"

	"recordq/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeNotFound  Code = "not_found"
	CodeDecode    Code = "decode"
	CodeEncode    Code = "encode"
	CodeIO        Code = "io"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	switch {
	case errors.Is(err, contract.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, contract.ErrDecode):
		return CodeDecode
	case errors.Is(err, contract.ErrEncode):
		return CodeEncode
	case errors.Is(err, contract.ErrInvalidInput), errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	case errors.Is(err, contract.ErrIO):
		return CodeIO
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var lerr *os.LinkError
	if errors.As(err, &lerr) {
		return CodeIO
	}
	return CodeUnknown
}
