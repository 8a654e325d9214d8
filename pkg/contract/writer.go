package contract

import (
	"context"
	"io"
)

// Writer: 将完整字节流持久化到目标路径，覆盖已有内容。
// 约束：
//  1. 整体替换，不支持追加；
//  2. 按字节透传，不读取/修改业务内容；
//  3. ctx 取消/超时需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, path string, r io.Reader) error
}
