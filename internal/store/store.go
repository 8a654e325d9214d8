package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"recordq/internal/diag"
	"recordq/pkg/contract"
)

// - 无状态：每次 Load/Save 都完整读写一次文件，不做缓存。
// - 统一错误策略：Load 失败时返回空集合（非 nil）与 *contract.StorageError；Save 失败同样上抛。
// - 旁路观测：每次调用都记录结构化事件与指标。

// Components 聚合存储所需的原子组件。
type Components[T any] struct {
	Reader contract.Reader
	Writer contract.Writer
	Codec  contract.Codec[T]
}

// Store 为某一记录类型的存储适配器（JSON 数组或 XML 文档，由 Codec 决定）。
type Store[T any] struct {
	comp   Components[T]
	logger *diag.Logger
}

// New 构造存储适配器；logger 可为 nil。
func New[T any](comp Components[T], logger *diag.Logger) (*Store[T], error) {
	if comp.Reader == nil || comp.Writer == nil || comp.Codec == nil {
		return nil, fmt.Errorf("%w: store requires reader, writer and codec", contract.ErrInvalidInput)
	}
	return &Store[T]{comp: comp, logger: logger}, nil
}

// Format 返回底层编解码格式名。
func (s *Store[T]) Format() string { return s.comp.Codec.Format() }

// Load 读取并解码整个文件。
// 失败时集合为空（非 nil），错误为 *contract.StorageError（not_found|decode|io|cancel）。
func (s *Store[T]) Load(ctx context.Context, path string) ([]T, error) {
	dp := string(contract.NormalizePath(path))
	timer := s.logger.StartWithKV("store", "load", dp, map[string]string{"format": s.Format()})
	start := time.Now()

	recs, err := s.load(ctx, path)
	if err != nil {
		serr := s.fail("load", path, err, start)
		return []T{}, serr
	}
	timer.Finish("load", int64(len(recs)))
	diag.Observe("store", "load", time.Since(start).Milliseconds(), nil)
	return recs, nil
}

func (s *Store[T]) load(ctx context.Context, path string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := s.comp.Reader.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	recs, err := s.comp.Codec.Decode(rc)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

// Save 编码整个集合并替换目标文件。
func (s *Store[T]) Save(ctx context.Context, path string, records []T) error {
	dp := string(contract.NormalizePath(path))
	timer := s.logger.StartWithKV("store", "save", dp, map[string]string{"format": s.Format()})
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return s.fail("save", path, err, start)
	}
	var buf bytes.Buffer
	if err := s.comp.Codec.Encode(&buf, records); err != nil {
		return s.fail("save", path, err, start)
	}
	if err := s.comp.Writer.Write(ctx, path, &buf); err != nil {
		return s.fail("save", path, err, start)
	}
	timer.Finish("save", int64(len(records)))
	diag.Observe("store", "save", time.Since(start).Milliseconds(), nil)
	return nil
}

// fail 将底层错误包装为 StorageError，并记录日志与指标。
func (s *Store[T]) fail(op, path string, err error, start time.Time) *contract.StorageError {
	kind := contract.KindOf(err)
	if op == "save" && kind == contract.KindNotFound {
		kind = contract.KindIO
	}
	serr := &contract.StorageError{Op: op, Path: contract.NormalizePath(path), Kind: kind, Err: unwrapStorage(err)}
	diag.Observe("store", op, time.Since(start).Milliseconds(), serr)
	if kind == contract.KindNotFound {
		s.logger.WarnWith("store", string(diag.Classify(serr)), op+" missing file", string(serr.Path), nil)
		return serr
	}
	s.logger.ErrorWithKV("store", string(diag.Classify(serr)), op+" failed", &start, string(serr.Path), map[string]string{"err": err.Error()})
	return serr
}

// unwrapStorage 避免 StorageError 嵌套（组件已返回 StorageError 时取其原因）。
func unwrapStorage(err error) error {
	var se *contract.StorageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err
	}
	return err
}
