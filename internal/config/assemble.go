package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"recordq/pkg/contract"
	"recordq/pkg/registry"
)

var levels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if !levels[strings.ToLower(strings.TrimSpace(cfg.Logging.Level))] {
		return fmt.Errorf("config: logging.level %q invalid (debug|info|warn|error)", cfg.Logging.Level)
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	if name := effName(cfg.Components.Reader, Defaults().Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, Defaults().Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	if len(cfg.Datasets) == 0 {
		return errors.New("config: datasets empty")
	}
	for _, name := range datasetNames(cfg) {
		d := cfg.Datasets[name]
		if strings.TrimSpace(d.Path) == "" {
			return fmt.Errorf("config: dataset %q: path empty", name)
		}
		if _, ok := registry.Records[d.Record]; !ok {
			return fmt.Errorf("config: dataset %q: record %q unknown", name, d.Record)
		}
		if !registry.HasFormat(effName(d.Format, registry.Records[d.Record])) {
			return fmt.Errorf("config: dataset %q: format %q not registered", name, d.Format)
		}
	}
	for format := range cfg.Options.Codecs {
		if !registry.HasFormat(format) {
			return fmt.Errorf("config: options.codecs.%s: format not registered", format)
		}
	}
	return nil
}

// Runtime 为装配结果：共享的 Reader/Writer 实例与按数据集取用的编解码选项。
// 记录类型到 Go 类型的绑定由调用方通过 registry.NewCodec 完成。
type Runtime struct {
	Reader   contract.Reader
	Writer   contract.Writer
	Strict   bool
	Level    string
	Datasets map[string]Dataset
	codecs   map[string]json.RawMessage
}

// Dataset 返回命名数据集（格式已按记录类型补全）。
func (rt Runtime) Dataset(name string) (Dataset, error) {
	d, ok := rt.Datasets[name]
	if !ok {
		names := make([]string, 0, len(rt.Datasets))
		for k := range rt.Datasets {
			names = append(names, k)
		}
		sort.Strings(names)
		return Dataset{}, fmt.Errorf("%w: dataset %q not configured (have %s)", contract.ErrInvalidInput, name, strings.Join(names, ", "))
	}
	return d, nil
}

// CodecOptions 返回格式对应的原样 JSON Options（可能为 nil）。
func (rt Runtime) CodecOptions(format string) json.RawMessage { return rt.codecs[format] }

// Assemble 校验并构造 Runtime。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (Runtime, error) {
	if err := Validate(cfg); err != nil {
		return Runtime{}, err
	}

	// 有效名称
	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	// 构造实例
	rraw, err := cfg.Options.Reader.JSON()
	if err != nil {
		return Runtime{}, fmt.Errorf("config: options.reader: %w", err)
	}
	r, err := registry.Reader[rn](rraw)
	if err != nil {
		return Runtime{}, fmt.Errorf("config: reader %q: %w", rn, err)
	}
	wraw, err := cfg.Options.Writer.JSON()
	if err != nil {
		return Runtime{}, fmt.Errorf("config: options.writer: %w", err)
	}
	w, err := registry.Writer[wn](wraw)
	if err != nil {
		return Runtime{}, fmt.Errorf("config: writer %q: %w", wn, err)
	}

	codecs := make(map[string]json.RawMessage, len(cfg.Options.Codecs))
	for format, sub := range cfg.Options.Codecs {
		raw, err := sub.JSON()
		if err != nil {
			return Runtime{}, fmt.Errorf("config: options.codecs.%s: %w", format, err)
		}
		// 提前暴露未知字段，而不是等到首次查询
		if _, err := registry.NewCodec[struct{}](format, raw); err != nil {
			return Runtime{}, fmt.Errorf("config: options.codecs.%s: %w", format, err)
		}
		codecs[format] = raw
	}

	datasets := make(map[string]Dataset, len(cfg.Datasets))
	for name, ds := range cfg.Datasets {
		ds.Format = effName(ds.Format, registry.Records[ds.Record])
		datasets[name] = ds
	}

	rt := Runtime{
		Reader:   r,
		Writer:   w,
		Level:    effName(strings.TrimSpace(cfg.Logging.Level), d.Logging.Level),
		Datasets: datasets,
		codecs:   codecs,
	}
	if cfg.Strict != nil {
		rt.Strict = *cfg.Strict
	}
	return rt, nil
}

func datasetNames(cfg Config) []string {
	names := make([]string, 0, len(cfg.Datasets))
	for k := range cfg.Datasets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
