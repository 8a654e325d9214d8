package testdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	cfgpkg "recordq/internal/config"
	"recordq/internal/diag"
	"recordq/internal/query"
	"recordq/internal/store"
	"recordq/pkg/catalog"
	"recordq/pkg/contract"
	"recordq/pkg/registry"
)

// baseConfig 以 Defaults 为底，数据集指向 dir 下的文件。
func baseConfig(dir string) cfgpkg.Config {
	cfg := cfgpkg.Defaults()
	cfg.Logging.Level = "error"
	cfg.Datasets = map[string]cfgpkg.Dataset{
		"products": {Path: filepath.Join(dir, "products.json"), Record: "product"},
		"books":    {Path: filepath.Join(dir, "library", "books.xml"), Record: "book"},
	}
	cfg.Options.Writer = cfgpkg.Raw{"atomic": true}
	cfg.Options.Codecs = map[string]cfgpkg.Raw{
		"xml": {"root": "library", "element": "volume"},
	}
	return cfg
}

// openEngine 按数据集名装配 Engine（与 CLI 相同的装配路径）。
func openEngine[T any](t *testing.T, rt cfgpkg.Runtime, name string) (*query.Engine[T], string) {
	t.Helper()
	ds, err := rt.Dataset(name)
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	codec, err := registry.NewCodec[T](ds.Format, rt.CodecOptions(ds.Format))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	st, err := store.New(store.Components[T]{Reader: rt.Reader, Writer: rt.Writer, Codec: codec}, diag.Nop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return query.New(st, query.Options{Strict: rt.Strict}, diag.Nop()), ds.Path
}

func TestE2EProducts(t *testing.T) {
	rt, err := cfgpkg.Assemble(baseConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	e, path := openEngine[catalog.Product](t, rt, "products")
	ctx := context.Background()
	if err := e.Store().Save(ctx, path, catalog.SampleProducts()); err != nil {
		t.Fatalf("save: %v", err)
	}

	expensive, err := e.Filter(ctx, path, func(p catalog.Product) bool { return p.Price > 10000 })
	if err != nil || len(expensive) != 0 {
		t.Fatalf("filter: %v %v", expensive, err)
	}
	groups, err := query.GroupBy(ctx, e, path, func(p catalog.Product) string { return p.Category })
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	gotGroups := map[string]int{}
	for _, g := range groups {
		gotGroups[g.Key] = len(g.Records)
	}
	if d := cmp.Diff(map[string]int{"Electronics": 2, "Furniture": 2}, gotGroups); d != "" {
		t.Fatalf("groups (-want +got):\n%s", d)
	}
	sorted, err := query.SortBy(ctx, e, path, func(p catalog.Product) float64 { return p.Price })
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	names := make([]string, len(sorted))
	for i, p := range sorted {
		names[i] = p.Name
	}
	if d := cmp.Diff([]string{"Chair", "Desk", "Smartphone", "Laptop"}, names); d != "" {
		t.Fatalf("sort (-want +got):\n%s", d)
	}
	prices, err := query.Project(ctx, e, path, func(p catalog.Product) float64 { return p.Price })
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if d := cmp.Diff([]float64{999.99, 499.99, 199.99, 89.99}, prices); d != "" {
		t.Fatalf("project (-want +got):\n%s", d)
	}

	// 原子写入不留临时文件
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, ent := range entries {
		if ent.Name() != "products.json" && ent.Name() != "library" {
			t.Fatalf("unexpected file %q", ent.Name())
		}
	}
}

func TestE2EBooksCustomElements(t *testing.T) {
	rt, err := cfgpkg.Assemble(baseConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	e, path := openEngine[catalog.Book](t, rt, "books")
	ctx := context.Background()
	if err := e.Store().Save(ctx, path, catalog.SampleBooks()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := e.Add(ctx, path, catalog.Book{ID: 5, Title: "Domain-Driven Design", Author: "Eric Evans", Price: 54.99}); err != nil {
		t.Fatalf("add: %v", err)
	}
	n, err := e.Remove(ctx, path, func(b catalog.Book) bool { return b.Title == "Clean Code" })
	if err != nil || n != 1 {
		t.Fatalf("remove: n=%d err=%v", n, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc := string(raw)
	if !strings.HasPrefix(doc, "<?xml") || !strings.Contains(doc, "<library>") || !strings.Contains(doc, "<volume>") {
		t.Fatalf("unexpected document:\n%s", doc)
	}
	if strings.Contains(doc, "Clean Code") {
		t.Fatalf("removed title still present:\n%s", doc)
	}
	books, err := e.Filter(ctx, path, func(catalog.Book) bool { return true })
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(books) != 4 || books[3].Title != "Domain-Driven Design" {
		t.Fatalf("unexpected books: %+v", books)
	}
}

func TestE2EStrictMissing(t *testing.T) {
	cfg := baseConfig(t.TempDir())
	cfg.Strict = cfgpkg.Bool(true)
	rt, err := cfgpkg.Assemble(cfg)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	e, path := openEngine[catalog.Product](t, rt, "products")
	_, err = e.Filter(context.Background(), path, func(catalog.Product) bool { return true })
	if !errors.Is(err, contract.ErrNotFound) {
		t.Fatalf("expect not found, got %v", err)
	}
}

func TestE2EUnknownCodecOption(t *testing.T) {
	cfg := baseConfig(t.TempDir())
	cfg.Options.Codecs["json"] = cfgpkg.Raw{"pretty": true}
	if _, err := cfgpkg.Assemble(cfg); err == nil || !strings.Contains(err.Error(), "options.codecs.json") {
		t.Fatalf("expect codec option error, got %v", err)
	}
}
