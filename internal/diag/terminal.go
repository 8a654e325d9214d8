package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Terminal: 终端状态提示（非日志）。
// - 输出到提供的 io.Writer（默认建议 stderr）。
// - TTY: 进行中的操作以 \r 单行覆盖；非 TTY: 仅在操作结束时分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	mode     string
	opsDone  int
	opsFail  int
	runStart time.Time

	lastLen int

	mu sync.Mutex
}

// 进程级终端（可选，全局设置后供 query 层旁路调用）。
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端提示器。
// enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	// CI 环境视为非 TTY
	if os.Getenv("CI") != "" {
		t.isTTY = false
	} else if f, ok := w.(*os.File); ok {
		// 最小 TTY 判定：字符设备
		if fi, err := f.Stat(); err == nil {
			t.isTTY = fi.Mode()&os.ModeCharDevice != 0
		}
	}
	return t
}

// RunStart: 记录运行模式（demo|filter|sort|...）。
func (t *Terminal) RunStart(mode string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.mode = safe(mode)
	t.opsDone, t.opsFail = 0, 0
	t.runStart = time.Now()
	t.println(fmt.Sprintf("[run] %s", t.mode))
}

// OpStart: TTY 下显示进行中的操作。
func (t *Terminal) OpStart(op, path string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	t.printInline(fmt.Sprintf("[op] %s %s …", safe(op), shortenBase(path, 48)))
}

// OpFinish: 操作结束（清尾并换行）。
func (t *Terminal) OpFinish(op, path string, count int, ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	status := "op"
	if ok {
		t.opsDone++
	} else {
		t.opsFail++
		status = "fail"
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	t.println(fmt.Sprintf("[%s] %s %s | 记录 %d | 用时 %s", status, safe(op), shortenBase(path, 48), count, formatDur(dur)))
}

// OpWarn: 加载失败但按空集合继续（宽松模式），与“文件为空”区分。
func (t *Terminal) OpWarn(op, path, reason string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	t.println(fmt.Sprintf("[warn] %s %s | %s | 按空集合继续", safe(op), shortenBase(path, 48), safe(reason)))
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	// 未进入任何操作即失败（参数、数据集等）：不输出计数
	if t.opsDone+t.opsFail == 0 && !ok {
		t.println(fmt.Sprintf("[%s] %s | 总用时 %s", tag, t.mode, formatDur(dur)))
		return
	}
	t.println(fmt.Sprintf("[%s] %s | 操作 %d | 失败 %d | 总用时 %s", tag, t.mode, t.opsDone, t.opsFail, formatDur(dur)))
}

// 内部输出工具
func (t *Terminal) println(s string) {
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		// 写失败即禁用
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	// \r + 内容 + 清尾空格（新行比旧短时覆盖残留）
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按可见宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if visLen(base) <= max {
		return base
	}
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	rs := []rune(base)
	return string(rs[:cut]) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms <= 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	// 秒，保留 1 位小数
	s := float64(d.Milliseconds()) / 1000.0
	return fmt.Sprintf("%.1fs", s)
}
