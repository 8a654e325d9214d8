package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"recordq/pkg/contract"
)

// Options: XML 文档编解码的最小选项。
type Options struct {
	// Root: 根元素名；为空时取记录类型名小写 + "s"（Book → books）。
	Root string `json:"root"`
	// Element: 每条记录的元素名；为空时取记录类型名小写（Book → book）。
	Element string `json:"element"`
	// Indent: 缩进字符串；为空使用两个空格。
	Indent string `json:"indent"`
	// OmitHeader: 为 true 时不写 <?xml ...?> 声明。
	OmitHeader bool `json:"omit_header"`
}

// Codec 将 []T 编解码为 <root><element>…</element>…</root> 文档。
// 字段以子元素表示（由 T 的 xml 标签决定）。
type Codec[T any] struct {
	root       string
	element    string
	indent     string
	omitHeader bool
}

// New 创建 XML 文档编解码器。
func New[T any](opts *Options) *Codec[T] {
	base := strings.ToLower(reflect.TypeFor[T]().Name())
	if base == "" {
		base = "record"
	}
	c := &Codec[T]{root: base + "s", element: base, indent: "  "}
	if opts != nil {
		if s := strings.TrimSpace(opts.Root); s != "" {
			c.root = s
		}
		if s := strings.TrimSpace(opts.Element); s != "" {
			c.element = s
		}
		if opts.Indent != "" {
			c.indent = opts.Indent
		}
		c.omitHeader = opts.OmitHeader
	}
	return c
}

var _ contract.Codec[struct{}] = (*Codec[struct{}])(nil)

// Format 返回 "xml"。
func (c *Codec[T]) Format() string { return "xml" }

// Decode 读取完整文档，按元素名收集记录。
// 根元素名不符、出现第二个根、或语法错误均视为结构非法；根下的其他元素跳过。
func (c *Codec[T]) Decode(r io.Reader) ([]T, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if b, err = stripBOM(b); err != nil {
		return nil, decodeErr(err)
	}
	out := make([]T, 0)
	if len(bytes.TrimSpace(b)) == 0 {
		return out, nil
	}
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.CharsetReader = charsetReader
	rootOpen, rootDone := false, false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, decodeErr(err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if rootDone {
				return nil, decodeErr(fmt.Errorf("unexpected element <%s> after root", se.Name.Local))
			}
			if !rootOpen {
				if se.Name.Local != c.root {
					return nil, decodeErr(fmt.Errorf("root <%s>, want <%s>", se.Name.Local, c.root))
				}
				rootOpen = true
				continue
			}
			if se.Name.Local == c.element {
				var v T
				if err := dec.DecodeElement(&v, &se); err != nil {
					return nil, decodeErr(err)
				}
				out = append(out, v)
				continue
			}
			if err := dec.Skip(); err != nil {
				return nil, decodeErr(err)
			}
		case xml.EndElement:
			// 子元素均已被 DecodeElement/Skip 消费，此处只会是根的结束
			rootOpen, rootDone = false, true
		}
	}
	if !rootDone {
		return nil, decodeErr(fmt.Errorf("missing root <%s>", c.root))
	}
	return out, nil
}

// Encode 一次写出完整文档（带结尾换行）。
func (c *Codec[T]) Encode(w io.Writer, records []T) error {
	var buf bytes.Buffer
	if !c.omitHeader {
		buf.WriteString(xml.Header)
	}
	enc := xml.NewEncoder(&buf)
	enc.Indent("", c.indent)
	root := xml.StartElement{Name: xml.Name{Local: c.root}}
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrEncode, err)
	}
	elem := xml.StartElement{Name: xml.Name{Local: c.element}}
	for i := range records {
		if err := enc.EncodeElement(records[i], elem); err != nil {
			return fmt.Errorf("%w: record %d: %v", contract.ErrEncode, i, err)
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrEncode, err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrEncode, err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

var boms = [][]byte{{0xEF, 0xBB, 0xBF}, {0xFF, 0xFE}, {0xFE, 0xFF}}

// stripBOM 将带 BOM 的文档（UTF-8/UTF-16）整体转为无 BOM 的 UTF-8。
func stripBOM(b []byte) ([]byte, error) {
	for _, bom := range boms {
		if bytes.HasPrefix(b, bom) {
			out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), b)
			return out, err
		}
	}
	return b, nil
}

// charsetReader 按声明的 encoding 转码为 UTF-8。
// 声明为 UTF-16 时字节已与 ASCII 兼容（BOM 已转码，或仅为标注），原样读取。
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	e, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	switch name, _ := htmlindex.Name(e); name {
	case "utf-8", "utf-16le", "utf-16be":
		return input, nil
	}
	return transform.NewReader(input, e.NewDecoder()), nil
}

func decodeErr(err error) error { return fmt.Errorf("%w: %v", contract.ErrDecode, err) }
