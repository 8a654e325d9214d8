package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"recordq/internal/diag"
	"recordq/pkg/contract"
)

// Options 为文件监视选项。
type Options struct {
	// Debounce: 连续变更合并窗口；<=0 使用 200ms。
	Debounce time.Duration
}

// Stats 统计监视器活动（测试与 --status 输出用）。
type Stats struct {
	Events   int
	Triggers int
	Errors   int
}

// Watcher 监视单个数据文件，变更（防抖后）触发回调。
// 监视的是文件所在目录：原子替换（临时文件 + rename）会更换 inode，直接监视文件会丢失后续事件。
type Watcher struct {
	target   string
	dir      string
	debounce time.Duration
	logger   *diag.Logger

	mu    sync.Mutex
	stats Stats
}

// New 构造监视器；不启动任何 goroutine。
func New(path string, opts Options, logger *diag.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrPathInvalid, err)
	}
	d := opts.Debounce
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	return &Watcher{target: abs, dir: filepath.Dir(abs), debounce: d, logger: logger}, nil
}

// Stats 返回当前统计的拷贝。
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run 阻塞监视直到 ctx 结束；每批变更调用一次 onChange。
// onChange 的错误只记录不终止监视。返回时已释放 fsnotify 资源。
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.StartWith("watch", "watching", string(contract.NormalizePath(w.target)))

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()
	var pending time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.mu.Lock()
			w.stats.Events++
			w.mu.Unlock()
			pending = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			w.logger.ErrorWithKV("watch", string(diag.CodeIO), "watcher error", nil, string(contract.NormalizePath(w.target)), map[string]string{"err": err.Error()})

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < w.debounce {
				continue
			}
			pending = time.Time{}
			w.mu.Lock()
			w.stats.Triggers++
			w.mu.Unlock()
			if err := onChange(ctx); err != nil {
				w.logger.WarnWith("watch", string(diag.Classify(err)), "change handler failed", string(contract.NormalizePath(w.target)), map[string]string{"err": err.Error()})
			}
		}
	}
}

// relevant 仅关心目标文件的创建/写入/改名/删除。
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.target {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}
