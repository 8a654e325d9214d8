package jsonarray

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"recordq/pkg/contract"
)

// Options: JSON 数组编解码的最小选项。
type Options struct {
	// Indent: 缩进字符串；为空使用两个空格。
	Indent string `json:"indent"`
	// Compact: 为 true 时单行输出，忽略 Indent。
	Compact bool `json:"compact"`
}

// Codec 将 []T 编解码为顶层 JSON 数组（每条记录一个对象）。
type Codec[T any] struct {
	indent  string
	compact bool
}

// New 创建 JSON 数组编解码器。
func New[T any](opts *Options) *Codec[T] {
	c := &Codec[T]{indent: "  "}
	if opts != nil {
		if opts.Indent != "" {
			c.indent = opts.Indent
		}
		c.compact = opts.Compact
	}
	return c
}

var _ contract.Codec[struct{}] = (*Codec[struct{}])(nil)

// Format 返回 "json"。
func (c *Codec[T]) Format() string { return "json" }

// Decode 读取完整输入并解码。
// 空输入与 null 均视为空集合；尾随多余内容视为结构非法。
func (c *Codec[T]) Decode(r io.Reader) ([]T, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if len(bytes.TrimSpace(b)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	var recs []T
	if err := dec.Decode(&recs); err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrDecode, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after top-level array", contract.ErrDecode)
	}
	return append(out, recs...), nil
}

// Encode 一次写出完整数组（带结尾换行）；nil 集合写为 []。
func (c *Codec[T]) Encode(w io.Writer, records []T) error {
	if records == nil {
		records = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if !c.compact {
		enc.SetIndent("", c.indent)
	}
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrEncode, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
