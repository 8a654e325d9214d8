package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 两个示例数据集（products.json / books.xml）；
// - 组件名采用仓库内置实现；
// - 选项给出全部键与中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Logging:    Logging{Level: "info"},
		Strict:     Bool(false),
		Components: d.Components,
		Datasets:   d.Datasets,
	}
	// Options：包含所有键（值可为空/默认），确保键存在。
	cfg.Options.Reader = Raw{"buf_size": 65536}
	cfg.Options.Writer = Raw{"atomic": false, "perm_file": 0, "perm_dir": 0, "buf_size": 65536}
	cfg.Options.Codecs = map[string]Raw{
		"json": {"indent": "  ", "compact": false},
		"xml":  {"root": "", "element": "", "indent": "  ", "omit_header": false},
	}
	return cfg
}

// MarshalYAML 以两空格缩进编码配置。
func MarshalYAML(c Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTemplate 在 dir 生成 recordq.yaml 与 .env 模板；已存在的文件跳过，不覆盖。
// 返回实际写入的文件路径。
func WriteTemplate(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	b, err := MarshalYAML(DefaultTemplateConfig())
	if err != nil {
		return nil, err
	}
	cfgPath := filepath.Join(dir, DefaultFiles[0])
	ok, err := writeExclusive(cfgPath, append([]byte("# recordq 配置模板（由 init-config 生成）\n# 优先级：CLI > ENV(.env) > 本文件 > 默认值\n"), b...))
	if err != nil {
		return written, err
	}
	if ok {
		written = append(written, cfgPath)
	}
	envPath := filepath.Join(dir, ".env")
	ok, err = writeExclusive(envPath, []byte(dotEnvTemplate()))
	if err != nil {
		return written, err
	}
	if ok {
		written = append(written, envPath)
	}
	return written, nil
}

// writeExclusive 仅创建新文件；文件已存在时返回 false。
func writeExclusive(path string, data []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return false, err
	}
	return true, nil
}

func dotEnvTemplate() string {
	var b strings.Builder
	b.WriteString("# recordq .env 模板（由 init-config 生成）\n")
	b.WriteString("# 空值表示未设置；已存在的环境变量优先。\n\n")
	b.WriteString("# 配置来源\n")
	fmt.Fprintf(&b, "%sCONFIG_FILE=\n\n", EnvPrefix)
	b.WriteString("# 运行参数覆盖\n")
	fmt.Fprintf(&b, "%sLOG_LEVEL=\n", EnvPrefix)
	fmt.Fprintf(&b, "%sSTRICT=\n\n", EnvPrefix)
	b.WriteString("# 组件选择\n")
	fmt.Fprintf(&b, "%sCOMPONENTS_READER=\n", EnvPrefix)
	fmt.Fprintf(&b, "%sCOMPONENTS_WRITER=\n\n", EnvPrefix)
	b.WriteString("# 数据集覆盖\n")
	for _, name := range []string{"PRODUCTS", "BOOKS"} {
		fmt.Fprintf(&b, "%sDATASETS__%s__PATH=\n", EnvPrefix, name)
	}
	b.WriteString("\n# 组件 Options（原样 JSON 对象）\n")
	fmt.Fprintf(&b, "%sOPTIONS_READER_JSON=\n", EnvPrefix)
	fmt.Fprintf(&b, "%sOPTIONS_WRITER_JSON=\n", EnvPrefix)
	fmt.Fprintf(&b, "%sOPTIONS_CODECS__XML_JSON=\n", EnvPrefix)
	return b.String()
}
