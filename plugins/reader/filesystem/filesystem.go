package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"recordq/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
}

// FileSystem 实现基于本地文件系统的 Reader。
type FileSystem struct {
	bufSize int
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	return &FileSystem{bufSize: b}
}

var _ contract.Reader = (*FileSystem)(nil)

// Open 打开常规文件用于读取。
// 文件不存在时返回的错误同时匹配 contract.ErrNotFound 与 fs.ErrNotExist；
// 目录等非常规目标返回 contract.ErrPathInvalid。
func (r *FileSystem) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if strings.TrimSpace(path) == "" {
		return nil, contract.ErrPathInvalid
	}
	// 跟随符号链接，仅接受常规文件
	info, err := os.Stat(path)
	if err != nil {
		return nil, notFound(err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", contract.ErrPathInvalid, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, notFound(err)
	}
	return newBufferedCloser(ctx, f, r.bufSize), nil
}

// notFound 为“不存在”类错误补充 contract.ErrNotFound 分类。
func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", contract.ErrNotFound, err)
	}
	return err
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser；每次 Read 前检查 ctx。
type bufferedCloser struct {
	ctx context.Context
	br  *bufio.Reader
	c   io.Closer
}

func newBufferedCloser(ctx context.Context, c io.ReadCloser, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &bufferedCloser{ctx: ctx, br: bufio.NewReaderSize(c, bufSize), c: c}
}

func (b *bufferedCloser) Read(p []byte) (int, error) {
	select {
	case <-b.ctx.Done():
		return 0, b.ctx.Err()
	default:
	}
	return b.br.Read(p)
}

func (b *bufferedCloser) Close() error { return b.c.Close() }
