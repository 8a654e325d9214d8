package contract

import (
	"context"
	"errors"
	"fmt"
)

// Kind 为存储故障的分类。
type Kind string

const (
	KindNotFound Kind = "not_found"
	KindDecode   Kind = "decode"
	KindEncode   Kind = "encode"
	KindIO       Kind = "io"
	KindCancel   Kind = "cancel"
)

// StorageError: Storage Adapter 边界上的统一错误载体。
// errors.Is 同时可匹配底层原因与 Kind 对应的哨兵。
type StorageError struct {
	Op   string // load|save
	Path DataPath
	Kind Kind
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	}
	// 原因已带分类哨兵时不再重复 Kind
	if s := e.Kind.sentinel(); s != nil && errors.Is(e.Err, s) {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap 返回底层原因与分类哨兵。
func (e *StorageError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	return out
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindDecode:
		return ErrDecode
	case KindEncode:
		return ErrEncode
	case KindIO:
		return ErrIO
	default:
		return nil
	}
}

// KindOf 将错误归入存储分类；err 为 nil 时返回空串。
// 已是 *StorageError 的直接返回其 Kind。
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancel
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrEncode):
		return KindEncode
	default:
		return KindIO
	}
}
