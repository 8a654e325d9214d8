package main

import (
	"context"
	"fmt"

	"recordq/internal/fieldexpr"
	"recordq/internal/query"
	"recordq/internal/store"
	"recordq/pkg/catalog"
	"recordq/pkg/collection"
	"recordq/pkg/contract"
	"recordq/pkg/registry"
)

// dataset 为按名打开的数据集：字段表达式在此处编译为类型化的谓词/选择器。
type dataset interface {
	Path() string
	Filter(ctx context.Context, where []string) (any, error)
	Sort(ctx context.Context, by string) (any, error)
	Group(ctx context.Context, by string) (any, error)
	Project(ctx context.Context, fields []string) (any, error)
	Add(ctx context.Context, sets []string) (any, error)
	Remove(ctx context.Context, where []string) (int, error)
}

// record 约束：可按名读字段的值类型 T，其指针可按名写字段。
type record[T any] interface {
	*T
	contract.FieldSetter
}

type binding[T contract.Fielder, PT record[T]] struct {
	engine *query.Engine[T]
	path   string
}

// openDataset 依据配置中的记录类型绑定 Go 类型。
func (a *app) openDataset(name string) (dataset, error) {
	ds, err := a.rt.Dataset(name)
	if err != nil {
		return nil, err
	}
	switch ds.Record {
	case "product":
		e, err := engineFor[catalog.Product](a, ds.Format)
		if err != nil {
			return nil, err
		}
		return &binding[catalog.Product, *catalog.Product]{engine: e, path: ds.Path}, nil
	case "book":
		e, err := engineFor[catalog.Book](a, ds.Format)
		if err != nil {
			return nil, err
		}
		return &binding[catalog.Book, *catalog.Book]{engine: e, path: ds.Path}, nil
	}
	return nil, fmt.Errorf("%w: record %q has no binding", contract.ErrInvalidInput, ds.Record)
}

func engineFor[T any](a *app, format string) (*query.Engine[T], error) {
	codec, err := registry.NewCodec[T](format, a.rt.CodecOptions(format))
	if err != nil {
		return nil, err
	}
	st, err := store.New(store.Components[T]{Reader: a.rt.Reader, Writer: a.rt.Writer, Codec: codec}, a.logger)
	if err != nil {
		return nil, err
	}
	return query.New(st, query.Options{Strict: a.rt.Strict}, a.logger), nil
}

func (b *binding[T, PT]) Path() string { return b.path }

func (b *binding[T, PT]) Filter(ctx context.Context, where []string) (any, error) {
	pred, err := fieldexpr.Where[T](where)
	if err != nil {
		return nil, err
	}
	return b.engine.Filter(ctx, b.path, pred)
}

func (b *binding[T, PT]) Sort(ctx context.Context, by string) (any, error) {
	cmp, err := fieldexpr.Compare[T](by)
	if err != nil {
		return nil, err
	}
	return b.engine.SortByFunc(ctx, b.path, cmp)
}

// groupView 为分组的 JSON 形态。
type groupView[T any] struct {
	Key     string `json:"key"`
	Count   int    `json:"count"`
	Records []T    `json:"records"`
}

func (b *binding[T, PT]) Group(ctx context.Context, by string) (any, error) {
	key, err := fieldexpr.GroupKey[T](by)
	if err != nil {
		return nil, err
	}
	groups, err := query.GroupBy(ctx, b.engine, b.path, key)
	if err != nil {
		return nil, err
	}
	return collection.Map(groups, func(g query.Group[string, T]) groupView[T] {
		return groupView[T]{Key: g.Key, Count: len(g.Records), Records: g.Records}
	}), nil
}

func (b *binding[T, PT]) Project(ctx context.Context, fields []string) (any, error) {
	sel, err := fieldexpr.Projector[T](fields)
	if err != nil {
		return nil, err
	}
	return query.Project(ctx, b.engine, b.path, sel)
}

func (b *binding[T, PT]) Add(ctx context.Context, sets []string) (any, error) {
	rec, err := fieldexpr.Assign[T, PT](sets)
	if err != nil {
		return nil, err
	}
	if err := b.engine.Add(ctx, b.path, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *binding[T, PT]) Remove(ctx context.Context, where []string) (int, error) {
	if len(where) == 0 {
		return 0, fmt.Errorf("%w: remove needs at least one --where", contract.ErrInvalidInput)
	}
	pred, err := fieldexpr.Where[T](where)
	if err != nil {
		return 0, err
	}
	return b.engine.Remove(ctx, b.path, pred)
}
