package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"recordq/pkg/registry"
)

// EnvPrefix 为环境变量覆盖的前缀。
const EnvPrefix = "RECORDQ_"

// DefaultFiles 为未显式指定时在工作目录查找的配置文件（按顺序）。
var DefaultFiles = []string{"recordq.yaml", "recordq.yml", "recordq.json"}

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Logging:    Logging{Level: "info"},
		Strict:     Bool(false),
		Components: Components{Reader: "fs", Writer: "fs"},
		Datasets: map[string]Dataset{
			"products": {Path: "products.json", Format: registry.Records["product"], Record: "product"},
			"books":    {Path: "books.xml", Format: registry.Records["book"], Record: "book"},
		},
	}
}

// FindFile 决定配置文件路径：显式路径 > RECORDQ_CONFIG_FILE > 工作目录默认文件。
// 均不存在时返回空串。
func FindFile(explicit string, environ []string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	if s := lookupEnv(environ, EnvPrefix+"CONFIG_FILE"); strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	for _, name := range DefaultFiles {
		if st, err := os.Stat(name); err == nil && !st.IsDir() {
			return name
		}
	}
	return ""
}

// LoadFile 按扩展名解析配置文件：.yaml/.yml 使用 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path, nil)
	default:
		return LoadJSON(path, nil)
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	r, closeFn, err := source(path, raw)
	if err != nil {
		return cfg, err
	}
	defer closeFn()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", displayName(path), err)
	}
	return cfg, nil
}

// LoadYAML 从文件路径或原始 YAML 解析 Config（严格拒绝未知字段）。
func LoadYAML(path string, raw []byte) (Config, error) {
	var cfg Config
	r, closeFn, err := source(path, raw)
	if err != nil {
		return cfg, err
	}
	defer closeFn()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config %s: %w", displayName(path), err)
	}
	return cfg, nil
}

func source(path string, raw []byte) (io.Reader, func(), error) {
	switch {
	case len(raw) > 0:
		return bytes.NewReader(raw), func() {}, nil
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	default:
		return nil, nil, errors.New("no config source provided")
	}
}

func displayName(path string) string {
	if path == "" {
		return "<inline>"
	}
	return path
}

// Merge 按优先级合并（后者覆盖前者）。
// 标量/字符串为“替换”；数据集按名合并，字段空不覆盖；Options 子树整体替换。
func Merge(base, over Config) Config {
	out := base
	// Logging（仅 level）
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}
	if over.Strict != nil {
		out.Strict = Bool(*over.Strict)
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// 数据集
	if len(over.Datasets) > 0 {
		ds := make(map[string]Dataset, len(base.Datasets)+len(over.Datasets))
		for k, v := range base.Datasets {
			ds[k] = v
		}
		for k, v := range over.Datasets {
			cur := ds[k]
			if v.Path != "" {
				cur.Path = v.Path
			}
			if v.Format != "" {
				cur.Format = v.Format
			}
			if v.Record != "" {
				cur.Record = v.Record
			}
			ds[k] = cur
		}
		out.Datasets = ds
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	if len(over.Options.Codecs) > 0 {
		codecs := make(map[string]Raw, len(base.Options.Codecs)+len(over.Options.Codecs))
		for k, v := range base.Options.Codecs {
			codecs[k] = v
		}
		for k, v := range over.Options.Codecs {
			codecs[k] = cloneRaw(v)
		}
		out.Options.Codecs = codecs
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 RECORDQ_；未知键忽略。
// 支持：LOG_LEVEL, STRICT, COMPONENTS_{READER,WRITER},
// DATASETS__<name>__{PATH,FORMAT,RECORD}，
// 以及 OPTIONS_{READER,WRITER}_JSON / OPTIONS_CODECS__<format>_JSON（原样 JSON 对象）。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	ds := map[string]Dataset{}
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[:eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			// 空值视为未设置，避免清空文件配置
			continue
		}
		nk := strings.TrimPrefix(key, EnvPrefix)
		switch nk {
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "STRICT":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return over, fmt.Errorf("env %s: %w", key, err)
			}
			over.Strict = Bool(b)
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "OPTIONS_READER_JSON":
			r, err := parseRaw(key, val)
			if err != nil {
				return over, err
			}
			over.Options.Reader = r
		case "OPTIONS_WRITER_JSON":
			r, err := parseRaw(key, val)
			if err != nil {
				return over, err
			}
			over.Options.Writer = r
		default:
			switch {
			case strings.HasPrefix(nk, "DATASETS__"):
				parts := strings.Split(nk, "__")
				if len(parts) != 3 || strings.TrimSpace(parts[1]) == "" {
					continue
				}
				name := strings.ToLower(strings.TrimSpace(parts[1]))
				d := ds[name]
				switch parts[2] {
				case "PATH":
					d.Path = val
				case "FORMAT":
					d.Format = strings.ToLower(val)
				case "RECORD":
					d.Record = strings.ToLower(val)
				default:
					continue
				}
				ds[name] = d
			case strings.HasPrefix(nk, "OPTIONS_CODECS__") && strings.HasSuffix(nk, "_JSON"):
				format := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(nk, "OPTIONS_CODECS__"), "_JSON"))
				if format == "" {
					continue
				}
				r, err := parseRaw(key, val)
				if err != nil {
					return over, err
				}
				if over.Options.Codecs == nil {
					over.Options.Codecs = map[string]Raw{}
				}
				over.Options.Codecs[format] = r
			}
		}
	}
	if len(ds) > 0 {
		over.Datasets = ds
	}
	return over, nil
}

func parseRaw(key, val string) (Raw, error) {
	var r Raw
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return nil, fmt.Errorf("env %s: %w", key, err)
	}
	return r, nil
}

func lookupEnv(environ []string, key string) string {
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}

func cloneRaw(in Raw) Raw {
	if len(in) == 0 {
		return nil
	}
	out := make(Raw, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// SplitList 按逗号拆分并去除空白与空项（CLI 的字段列表等）。
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
