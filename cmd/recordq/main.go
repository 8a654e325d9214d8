package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "recordq/internal/config"
	"recordq/internal/diag"
)

// 退出码：0 成功；1 运行期错误；3 配置/装配错误。
const (
	exitOK     = 0
	exitRun    = 1
	exitConfig = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app 为一次命令执行的共享状态（配置、日志、终端）。
type app struct {
	stdout io.Writer
	stderr io.Writer
	start  time.Time
	corrID string

	flagConfig   string
	flagLogLevel string
	flagStrict   bool
	flagStatus   bool

	logger *diag.Logger
	term   *diag.Terminal
	rt     cfgpkg.Runtime
}

// configError 标记配置阶段的失败（退出码 3）。
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func run(args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")

	a := &app{stdout: stdout, stderr: stderr, start: time.Now(), corrID: genCorrID()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := root.ExecuteContext(ctx)
	defer a.logger.Close()
	defer diag.SetTerminal(nil)
	if err == nil {
		return exitOK
	}
	a.term.RunFinish(false, time.Since(a.start))
	var cerr configError
	if errors.As(err, &cerr) {
		fmt.Fprintf(stderr, "配置失败: %v\n", err)
		a.logger.Error("cli", string(diag.Classify(err)), "config error", &a.start)
		return exitConfig
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "运行失败: %v\n", err)
	}
	a.logger.Error("cli", string(diag.Classify(err)), "first error", &a.start)
	return exitRun
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "recordq",
		Short: "Query and edit flat record collections stored as JSON arrays or XML documents",
		Long: `recordq loads a whole dataset file on every call, runs one in-memory
operation (filter, sort, group, project, add, remove) and writes the
result as indented JSON. Datasets, formats and component options come from
recordq.yaml (or --config), RECORDQ_* environment variables and flags.

Examples:
  recordq demo
  recordq filter --dataset products --where "price>100"
  recordq group --dataset books --by author
  recordq remove --dataset books --where "title=Clean Code"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init-config" {
				a.logger = diag.Nop()
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.term.RunFinish(true, time.Since(a.start))
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flagConfig, "config", "", "配置文件路径（YAML/JSON）；缺省读取 RECORDQ_CONFIG_FILE 或 ./recordq.yaml")
	pf.StringVar(&a.flagLogLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	pf.BoolVar(&a.flagStrict, "strict", false, "加载失败时报错（默认宽松：按空集合继续）")
	pf.BoolVar(&a.flagStatus, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")

	root.AddCommand(
		newDemoCmd(a),
		newInitConfigCmd(a),
		newFilterCmd(a),
		newSortCmd(a),
		newGroupCmd(a),
		newProjectCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newWatchCmd(a),
	)
	return root
}

// setup: 默认 < 文件 < ENV < CLI，校验并装配组件；随后构建 logger 与终端。
func (a *app) setup(cmd *cobra.Command) error {
	environ := os.Environ()
	cfg := cfgpkg.Defaults()
	if path := cfgpkg.FindFile(a.flagConfig, environ); path != "" {
		base, err := cfgpkg.LoadFile(path)
		if err != nil {
			return configError{err}
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	overEnv, err := cfgpkg.EnvOverlay(environ)
	if err != nil {
		return configError{err}
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	if a.flagLogLevel != "" {
		overCLI.Logging.Level = a.flagLogLevel
	}
	if cmd.Flags().Changed("strict") {
		overCLI.Strict = cfgpkg.Bool(a.flagStrict)
	}
	cfg = cfgpkg.Merge(cfg, overCLI)

	rt, err := cfgpkg.Assemble(cfg)
	if err != nil {
		_ = dumpConfig(a.stderr, cfg)
		return configError{err}
	}
	a.rt = rt
	a.logger = diag.NewLogger(a.corrID, rt.Level)

	// debug: 输出运行时配置信息
	if a.logger.Enabled("debug") {
		kv := map[string]string{
			"reader":   effective(cfg.Components.Reader, "fs"),
			"writer":   effective(cfg.Components.Writer, "fs"),
			"strict":   fmt.Sprintf("%t", rt.Strict),
			"datasets": fmt.Sprintf("%d", len(rt.Datasets)),
		}
		a.logger.DebugStart("config", "effective", "", kv)
	}

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	a.term = diag.NewTerminal(a.stderr, a.flagStatus)
	diag.SetTerminal(a.term)
	a.term.RunStart(cmd.Name())
	return nil
}

func effective(got, def string) string {
	if strings.TrimSpace(got) == "" {
		return def
	}
	return got
}

// writeJSON 以两空格缩进输出结果。
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := cfgpkg.MarshalYAML(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "有效配置:\n%s", b)
	return err
}

func genCorrID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return ""
	}
	return id.String()
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；无法读取时返回错误（但调用处可忽略）。
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export ".
// - 仅按首个 '=' 分割；key 为左侧去空白；value 去首尾空白；
// - 若 value 被成对的单/双引号包裹，则去除外层引号；双引号内常见转义 \n/\t/\\/\" 作最小处理。
// - 不覆盖已存在的环境变量（保持系统/调用者优先）。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		val = unquote(strings.TrimSpace(val))
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// unquote 去除成对引号；双引号内做最小转义处理。
func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	q := val[0]
	if (q != '\'' && q != '"') || val[len(val)-1] != q {
		return val
	}
	val = val[1 : len(val)-1]
	if q == '"' {
		val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
	}
	return val
}
