package contract

import "io"

// Codec: 类型化集合与字节流之间的编解码（JSON 数组、XML 文档等）。
// 约束：
//  1. Decode 读取完整输入；结构非法时返回满足 errors.Is(err, ErrDecode) 的错误；
//  2. 空输入解码为空集合（非 nil）；
//  3. Encode 保持集合顺序，一次写出完整文档。
type Codec[T any] interface {
	Decode(r io.Reader) ([]T, error)
	Encode(w io.Writer, records []T) error
	// Format 返回格式名（json|xml），用于日志字段。
	Format() string
}
