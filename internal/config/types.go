package config

import "encoding/json"

// Config: 运行期只读配置（一次解析，运行期不变）。
// 文件可为 YAML 或 JSON，键使用 snake_case；未知字段在解析期失败。
type Config struct {
	Logging Logging `json:"logging" yaml:"logging"`
	// Strict: 为 true 时查询层上抛加载错误；nil 表示未设置（合并时不覆盖）。
	Strict *bool `json:"strict,omitempty" yaml:"strict,omitempty"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components" yaml:"components"`

	// Datasets: 命名数据集（products、books 等）。
	Datasets map[string]Dataset `json:"datasets" yaml:"datasets"`

	// 各组件 Options 子树，装配时转为 JSON 传入工厂。
	Options Options `json:"options" yaml:"options"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level" yaml:"level"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader string `json:"reader" yaml:"reader"`
	Writer string `json:"writer" yaml:"writer"`
}

// Dataset: 数据文件、格式与记录类型。
type Dataset struct {
	Path   string `json:"path" yaml:"path"`
	Format string `json:"format" yaml:"format"`
	Record string `json:"record" yaml:"record"`
}

// Options: 各组件的原样 Options。
type Options struct {
	Reader Raw            `json:"reader,omitempty" yaml:"reader,omitempty"`
	Writer Raw            `json:"writer,omitempty" yaml:"writer,omitempty"`
	Codecs map[string]Raw `json:"codecs,omitempty" yaml:"codecs,omitempty"`
}

// Raw: 组件 Options 的无类型子树（YAML/JSON 均解码为此形态）。
// 严格字段校验由 registry 工厂在装配时进行。
type Raw map[string]any

// JSON 将子树编码为工厂可用的原样 JSON；空子树返回 nil。
func (r Raw) JSON() (json.RawMessage, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return json.Marshal(map[string]any(r))
}

// Bool 返回指向 b 的指针（用于 Strict 覆盖）。
func Bool(b bool) *bool { return &b }
