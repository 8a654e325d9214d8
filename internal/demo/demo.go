package demo

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"recordq/internal/query"
	"recordq/pkg/catalog"
)

// Products 写入示例商品，然后依次执行 过滤(price > 10000)、按类别分组、按价格排序、价格投影。
func Products(ctx context.Context, e *query.Engine[catalog.Product], path string, w io.Writer) error {
	if err := e.Store().Save(ctx, path, catalog.SampleProducts()); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}

	expensive, err := e.Filter(ctx, path, func(p catalog.Product) bool { return p.Price > 10000 })
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# products with price > 10000")
	for _, p := range expensive {
		fmt.Fprintln(w, p.Name)
	}

	groups, err := query.GroupBy(ctx, e, path, func(p catalog.Product) string { return p.Category })
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# products by category")
	for _, g := range groups {
		fmt.Fprintf(w, "%s: %d products\n", g.Key, len(g.Records))
	}

	sorted, err := query.SortBy(ctx, e, path, func(p catalog.Product) float64 { return p.Price })
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# products by price")
	for _, p := range sorted {
		fmt.Fprintln(w, p.Name)
	}

	prices, err := query.Project(ctx, e, path, func(p catalog.Product) float64 { return p.Price })
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# product prices")
	for _, v := range prices {
		fmt.Fprintf(w, "%.2f\n", v)
	}
	return nil
}

// NewBook 为演示中新增的图书。
var NewBook = catalog.Book{ID: 5, Title: "Domain-Driven Design", Author: "Eric Evans", Price: 54.99}

// Books 写入示例图书，执行四种查询，再新增 NewBook、删除 "Clean Code"，最后打印集合。
func Books(ctx context.Context, e *query.Engine[catalog.Book], path string, w io.Writer) error {
	if err := e.Store().Save(ctx, path, catalog.SampleBooks()); err != nil {
		return fmt.Errorf("seed books: %w", err)
	}

	cheap, err := e.Filter(ctx, path, func(b catalog.Book) bool { return b.Price < 40 })
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# books with price < 40")
	for _, b := range cheap {
		fmt.Fprintln(w, b.Title)
	}

	groups, err := query.GroupBy(ctx, e, path, func(b catalog.Book) string { return b.Author })
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# books by author")
	for _, g := range groups {
		fmt.Fprintf(w, "%s: %d books\n", g.Key, len(g.Records))
	}

	sorted, err := query.SortBy(ctx, e, path, func(b catalog.Book) string { return b.Title })
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# books by title")
	for _, b := range sorted {
		fmt.Fprintln(w, b.Title)
	}

	titles, err := query.Project(ctx, e, path, func(b catalog.Book) string { return b.Title })
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# %d titles\n", len(titles))

	if err := e.Add(ctx, path, NewBook); err != nil {
		return err
	}
	n, err := e.Remove(ctx, path, func(b catalog.Book) bool { return b.Title == "Clean Code" })
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# added %q, removed %d\n", NewBook.Title, n)

	final, err := e.Filter(ctx, path, func(catalog.Book) bool { return true })
	if err != nil {
		return err
	}
	for _, b := range final {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\n", b.ID, b.Title, b.Author, b.Price)
	}
	return nil
}

// Engines 聚合两条流水线的引擎与数据文件。
type Engines struct {
	Products     *query.Engine[catalog.Product]
	ProductsPath string
	Books        *query.Engine[catalog.Book]
	BooksPath    string
}

// RunAll 并发执行两条流水线（各自独立文件）；各自输出缓冲后按 商品、图书 顺序写出，互不交错。
// 任一流水线出错即取消另一条，返回首个错误。
func RunAll(ctx context.Context, en Engines, w io.Writer) error {
	var pout, bout bytes.Buffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return Products(gctx, en.Products, en.ProductsPath, &pout) })
	g.Go(func() error { return Books(gctx, en.Books, en.BooksPath, &bout) })
	err := g.Wait()
	if _, werr := w.Write(pout.Bytes()); werr != nil && err == nil {
		err = werr
	}
	if _, werr := w.Write(bout.Bytes()); werr != nil && err == nil {
		err = werr
	}
	return err
}
