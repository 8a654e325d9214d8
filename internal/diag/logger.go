package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel 解析日志级别名；未知值回落为 info。
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger 为结构化事件日志器：单行 JSON，字段固定（comp/stage/code/dur_ms/count/path/kv）。
// 所有方法对 nil 接收者安全（no-op）。
type Logger struct {
	z     *zap.Logger
	level zap.AtomicLevel
	sink  *RotatingFile
}

// NewLogger 以配置的 level 初始化，写入 logs/recordq-current.txt（10MiB 轮转）。
// 文件写失败时回落到 stderr。
func NewLogger(corrID, level string) *Logger {
	sink := NewRotatingFile("logs", 10*1024*1024)
	l := newLogger(&fallbackWriter{primary: sink, fallback: os.Stderr}, corrID, level)
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写入任意 io.Writer（测试/stderr 输出）。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	return newLogger(w, corrID, level)
}

// Nop 返回丢弃一切输出的日志器。
func Nop() *Logger {
	return &Logger{z: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.ErrorLevel)}
}

func newLogger(w io.Writer, corrID, level string) *Logger {
	lvl := zap.NewAtomicLevelAt(ParseLevel(level))
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     utcRFC3339,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), lvl)
	z := zap.New(core)
	if corrID != "" {
		z = z.With(zap.String("corr_id", corrID))
	}
	return &Logger{z: z, level: lvl}
}

func utcRFC3339(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339))
}

// Enabled 报告给定级别是否会输出。
func (l *Logger) Enabled(level string) bool {
	if l == nil || l.z == nil {
		return false
	}
	return l.level.Enabled(ParseLevel(level))
}

// Close 刷新缓冲并关闭文件 sink（若有）。
func (l *Logger) Close() error {
	if l == nil || l.z == nil {
		return nil
	}
	_ = l.z.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

// Event 为标准事件结构。
type Event struct {
	Comp  string            // 组件：store|query|writer|reader|demo|watch|cli
	Stage string            // start|finish|error|warn
	Code  string            // 错误分类（见 errcode.go）
	DurMS int64             // 阶段耗时
	Count int64             // 结果条数
	Path  string            // 数据文件（规范化）
	Msg   string
	KV    map[string]string
}

func (l *Logger) log(lv zapcore.Level, ev Event) {
	if l == nil || l.z == nil {
		return
	}
	ce := l.z.Check(lv, ev.Msg)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, 7)
	fields = append(fields, zap.String("comp", ev.Comp), zap.String("stage", ev.Stage))
	if ev.Code != "" {
		fields = append(fields, zap.String("code", ev.Code))
	}
	if ev.DurMS != 0 {
		fields = append(fields, zap.Int64("dur_ms", ev.DurMS))
	}
	if ev.Count != 0 {
		fields = append(fields, zap.Int64("count", ev.Count))
	}
	if ev.Path != "" {
		fields = append(fields, zap.String("path", ev.Path))
	}
	if len(ev.KV) > 0 {
		fields = append(fields, zap.Any("kv", ev.KV))
	}
	ce.Write(fields...)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWithKV(comp, msg, "", nil)
}

// StartWith 记录带 path 的 start。
func (l *Logger) StartWith(comp, msg, path string) *Timer {
	return l.StartWithKV(comp, msg, path, nil)
}

// StartWithKV 记录带 path 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, path string, kv map[string]string) *Timer {
	l.log(zapcore.InfoLevel, Event{Comp: comp, Stage: "start", Path: path, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, path: path, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", nil)
}

// ErrorWith 支持 path。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, path string) {
	l.ErrorWithKV(comp, code, msg, durSince, path, nil)
}

// ErrorWithKV 支持附带键值对（例如底层错误文本）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, path string, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(zapcore.ErrorLevel, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, Path: path, KV: kv})
}

// WarnWith 记录可恢复的故障（例如宽松模式下的加载失败）。
func (l *Logger) WarnWith(comp, code, msg, path string, kv map[string]string) {
	l.log(zapcore.WarnLevel, Event{Comp: comp, Stage: "warn", Code: code, Msg: msg, Path: path, KV: kv})
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, path string, kv map[string]string) {
	l.log(zapcore.DebugLevel, Event{Comp: comp, Stage: "start", Path: path, Msg: msg, KV: kv})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l    *Logger
	comp string
	path string
	t0   time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(zapcore.InfoLevel, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, Path: t.path, Msg: msg})
}

// fallbackWriter: 主 sink 写失败时转写到 fallback。
type fallbackWriter struct {
	mu       sync.Mutex
	primary  io.Writer
	fallback io.Writer
}

func (w *fallbackWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.primary.Write(p); err != nil {
		fmt.Fprintf(w.fallback, "logger sink error: %v\n", err)
		return w.fallback.Write(p)
	}
	return len(p), nil
}
