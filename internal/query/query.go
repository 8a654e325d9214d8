package query

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"recordq/internal/diag"
	"recordq/internal/store"
	"recordq/pkg/collection"
	"recordq/pkg/contract"
)

// - 每个操作都重新读取文件：Load → 内存计算 → （变更操作）Save。
// - 宽松模式（默认）：Load 失败已由 store 记录，引擎以空集合继续并返回 nil。
// - 严格模式：Load 的 *contract.StorageError 原样上抛。
// - Save 失败与 ctx 取消在两种模式下都上抛。

// Group 为分组结果中的一组（按键首次出现顺序排列）。
type Group[K comparable, T any] = collection.Group[K, T]

// Options 运行期选项。
type Options struct {
	Strict bool
}

// Engine 为某一记录类型的查询层。
type Engine[T any] struct {
	store  *store.Store[T]
	strict bool
	logger *diag.Logger
}

// New 构造查询引擎；logger 可为 nil。
func New[T any](st *store.Store[T], opts Options, logger *diag.Logger) *Engine[T] {
	return &Engine[T]{store: st, strict: opts.Strict, logger: logger}
}

// Store 返回底层存储适配器。
func (e *Engine[T]) Store() *store.Store[T] { return e.store }

// Filter 返回满足 pred 的记录，保持源顺序。
func (e *Engine[T]) Filter(ctx context.Context, path string, pred func(T) bool) ([]T, error) {
	done := e.track("filter", path)
	recs, err := e.load(ctx, "filter", path)
	if err != nil {
		done(0, err)
		return []T{}, err
	}
	out := collection.Filter(recs, pred)
	done(len(out), nil)
	return out, nil
}

// SortByFunc 以比较函数稳定升序排序。
func (e *Engine[T]) SortByFunc(ctx context.Context, path string, compare func(a, b T) int) ([]T, error) {
	done := e.track("sort", path)
	recs, err := e.load(ctx, "sort", path)
	if err != nil {
		done(0, err)
		return []T{}, err
	}
	out := collection.SortStableFunc(recs, compare)
	done(len(out), nil)
	return out, nil
}

// SortBy 按 key 稳定升序排序。
func SortBy[T any, K cmp.Ordered](ctx context.Context, e *Engine[T], path string, key func(T) K) ([]T, error) {
	done := e.track("sort", path)
	recs, err := e.load(ctx, "sort", path)
	if err != nil {
		done(0, err)
		return []T{}, err
	}
	out := collection.SortStable(recs, key)
	done(len(out), nil)
	return out, nil
}

// GroupBy 按 key 分组；组按键首次出现排序，组内保持源顺序。
func GroupBy[T any, K comparable](ctx context.Context, e *Engine[T], path string, key func(T) K) ([]Group[K, T], error) {
	done := e.track("group", path)
	recs, err := e.load(ctx, "group", path)
	if err != nil {
		done(0, err)
		return []Group[K, T]{}, err
	}
	out := collection.GroupBy(recs, key)
	done(len(recs), nil)
	return out, nil
}

// Project 对每条记录应用 sel，结果与源等长。
func Project[T, R any](ctx context.Context, e *Engine[T], path string, sel func(T) R) ([]R, error) {
	done := e.track("project", path)
	recs, err := e.load(ctx, "project", path)
	if err != nil {
		done(0, err)
		return []R{}, err
	}
	out := collection.Map(recs, sel)
	done(len(out), nil)
	return out, nil
}

// Add 读取集合、追加 rec 并整体写回。
func (e *Engine[T]) Add(ctx context.Context, path string, rec T) error {
	done := e.track("add", path)
	recs, err := e.load(ctx, "add", path)
	if err != nil {
		done(0, err)
		return err
	}
	recs = append(recs, rec)
	if err := e.store.Save(ctx, path, recs); err != nil {
		done(0, err)
		return fmt.Errorf("add: %w", err)
	}
	done(1, nil)
	return nil
}

// Remove 删除所有满足 pred 的记录，返回删除条数；无匹配时不写回文件。
func (e *Engine[T]) Remove(ctx context.Context, path string, pred func(T) bool) (int, error) {
	done := e.track("remove", path)
	recs, err := e.load(ctx, "remove", path)
	if err != nil {
		done(0, err)
		return 0, err
	}
	kept, n := collection.RemoveWhere(recs, pred)
	if n == 0 {
		done(0, nil)
		return 0, nil
	}
	if err := e.store.Save(ctx, path, kept); err != nil {
		done(0, err)
		return 0, fmt.Errorf("remove: %w", err)
	}
	done(n, nil)
	return n, nil
}

// load 按模式处理 Load 失败。
func (e *Engine[T]) load(ctx context.Context, op, path string) ([]T, error) {
	recs, err := e.store.Load(ctx, path)
	if err == nil {
		return recs, nil
	}
	if e.strict || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	kind := contract.KindOf(err)
	e.logger.WarnWith("query", string(diag.Classify(err)), op+" continues with empty collection",
		string(contract.NormalizePath(path)), map[string]string{"kind": string(kind)})
	// 文件缺失等同空集合；不可读/不可解码需在终端上可见
	if kind != contract.KindNotFound {
		if t := diag.GetTerminal(); t != nil {
			t.OpWarn(op, path, string(kind))
		}
	}
	return recs, nil
}

// track 记录终端提示与指标；返回结束回调。
func (e *Engine[T]) track(op, path string) func(count int, err error) {
	start := time.Now()
	if t := diag.GetTerminal(); t != nil {
		t.OpStart(op, path)
	}
	return func(count int, err error) {
		dur := time.Since(start)
		if t := diag.GetTerminal(); t != nil {
			t.OpFinish(op, path, count, err == nil, dur)
		}
		diag.Observe("query", op, dur.Milliseconds(), err)
		if err != nil {
			e.logger.ErrorWith("query", string(diag.Classify(err)), op+" failed", &start, string(contract.NormalizePath(path)))
		}
	}
}
