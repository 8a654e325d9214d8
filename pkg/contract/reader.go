package contract

import (
	"context"
	"io"
)

// Reader: 数据文件的只读打开（文件系统等）。
// 约束：
// 1) 文件不存在时返回的错误满足 errors.Is(err, ErrNotFound)；
// 2) 不做解码/业务解析，仅提供字节流；
// 3) 调用方负责 Close；
// 4) 不在内部起并发。
type Reader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
