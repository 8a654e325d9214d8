package contract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"
)

// TestNormalizePath 验证路径规范化逻辑。
func TestNormalizePath(t *testing.T) {
	wpath := filepath.Join("data", "books.xml")
	basicCases := map[string]string{
		wpath:                  "data/books.xml",
		"./x/../products.json": "products.json",
		"":                     ".",
	}
	for in, want := range basicCases {
		got := NormalizePath(in)
		if string(got) != want {
			t.Fatalf("基础测试 %s -> %s, 预期 %s", in, got, want)
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Windows路径", "C:\\data\\books.xml", "C:/data/books.xml"},
		{"清理多余斜杠", "data//shop///products.json", "data/shop/products.json"},
		{"清理当前目录", "data/./shop/./products.json", "data/shop/products.json"},
		{"处理父目录", "data/old/../products.json", "data/products.json"},
		{"混合分隔符", "C:\\Users/test\\books.xml", "C:/Users/test/books.xml"},
		{"空格路径", "My Data\\books.xml", "My Data/books.xml"},
		{"Unix绝对路径", "/var/lib/../data/books.xml", "/var/data/books.xml"},
		{"复杂父目录", "a\\b\\..\\..\\..\\d.json", "../d.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePath(tt.input); string(got) != tt.expected {
				t.Errorf("NormalizePath(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

// TestStorageErrorIs 验证 StorageError 同时匹配分类哨兵与底层原因。
func TestStorageErrorIs(t *testing.T) {
	cause := &fs.PathError{Op: "open", Path: "p.json", Err: fs.ErrNotExist}
	err := fmt.Errorf("wrap: %w", &StorageError{Op: "load", Path: "p.json", Kind: KindNotFound, Err: cause})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("应匹配 ErrNotFound")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("应匹配底层 fs.ErrNotExist")
	}
	if errors.Is(err, ErrDecode) {
		t.Fatalf("不应匹配 ErrDecode")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("KindOf = %s", KindOf(err))
	}
	if got := (&StorageError{Op: "save", Path: "b.xml", Kind: KindIO}).Error(); got != "save b.xml: io" {
		t.Fatalf("无原因时的 Error() = %q", got)
	}
	// 原因已包含分类哨兵时 Kind 只出现一次
	dup := &StorageError{Op: "load", Path: "p.json", Kind: KindDecode, Err: fmt.Errorf("%w: invalid character", ErrDecode)}
	if got := dup.Error(); got != "load p.json: decode error: invalid character" {
		t.Fatalf("重复分类: %q", got)
	}
	plain := &StorageError{Op: "load", Path: "p.json", Kind: KindIO, Err: errors.New("permission denied")}
	if got := plain.Error(); got != "load p.json: io: permission denied" {
		t.Fatalf("无哨兵原因: %q", got)
	}
}

// TestKindOf 覆盖非 StorageError 的分类分支。
func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"cancel", context.Canceled, KindCancel},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), KindCancel},
		{"not found", fmt.Errorf("open: %w", ErrNotFound), KindNotFound},
		{"decode", fmt.Errorf("json: %w", ErrDecode), KindDecode},
		{"encode", ErrEncode, KindEncode},
		{"other", errors.New("disk full"), KindIO},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("want %q got %q", tt.want, got)
			}
		})
	}
}

// BenchmarkNormalizePath 性能基准测试
func BenchmarkNormalizePath(b *testing.B) {
	paths := []string{
		"C:\\Users\\test\\Documents\\books.xml",
		"data/shop/../../data/products.json",
		"path//to///many////slashes/products.json",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, p := range paths {
			NormalizePath(p)
		}
	}
}
