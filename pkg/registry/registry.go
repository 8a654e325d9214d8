package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"recordq/pkg/contract"
	"recordq/plugins/codec/jsonarray"
	"recordq/plugins/codec/xmldoc"
	rfs "recordq/plugins/reader/filesystem"
	wfs "recordq/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: options: %v", contract.ErrInvalidInput, err)
	}
	return nil
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 本地文件系统 Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts), nil
	},
}

// Records 为已知记录类型及其默认格式。
// 类型到 Go 结构体的绑定在 cmd 层完成（泛型无法放入 map）。
var Records = map[string]string{
	"product": "json",
	"book":    "xml",
}

// Formats 返回已注册的编解码格式名（排序）。
func Formats() []string {
	out := []string{"json", "xml"}
	sort.Strings(out)
	return out
}

// HasFormat 报告格式名是否已注册。
func HasFormat(name string) bool {
	for _, f := range Formats() {
		if f == name {
			return true
		}
	}
	return false
}

// NewCodec 按格式名构造 T 的编解码器；Options 严格解码。
//   - json: 顶层数组（jsonarray）
//   - xml:  根元素 + 重复子元素（xmldoc）
func NewCodec[T any](format string, raw json.RawMessage) (contract.Codec[T], error) {
	switch format {
	case "json":
		var opts jsonarray.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return jsonarray.New[T](&opts), nil
	case "xml":
		var opts xmldoc.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return xmldoc.New[T](&opts), nil
	}
	return nil, fmt.Errorf("%w: codec %q not registered", contract.ErrInvalidInput, format)
}
