package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"recordq/pkg/contract"
)

// Book: 图书记录（XML 数据集）。
type Book struct {
	ID     int     `json:"id" xml:"id"`
	Title  string  `json:"title" xml:"title"`
	Author string  `json:"author" xml:"author"`
	Price  float64 `json:"price" xml:"price"`
}

var (
	_ contract.Fielder     = Book{}
	_ contract.FieldSetter = (*Book)(nil)
	_ contract.FieldLister = Book{}
)

var bookFields = []string{"id", "title", "author", "price"}

// Fields 返回可寻址字段名（小写，声明顺序）。
func (Book) Fields() []string { return slices.Clone(bookFields) }

// Field 按字段名取值（大小写不敏感）。
func (b Book) Field(name string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "id":
		return b.ID, true
	case "title":
		return b.Title, true
	case "author":
		return b.Author, true
	case "price":
		return b.Price, true
	}
	return nil, false
}

// SetField 以文本形式写入字段。
func (b *Book) SetField(name, value string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "id":
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: id %q: %v", contract.ErrInvalidInput, value, err)
		}
		b.ID = v
	case "title":
		b.Title = value
	case "author":
		b.Author = value
	case "price":
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%w: price %q: %v", contract.ErrInvalidInput, value, err)
		}
		b.Price = v
	default:
		return fmt.Errorf("%w: book has no field %q", contract.ErrInvalidInput, name)
	}
	return nil
}

// SampleBooks 返回演示用的图书记录。
func SampleBooks() []Book {
	return []Book{
		{ID: 1, Title: "Clean Code", Author: "Robert C. Martin", Price: 37.99},
		{ID: 2, Title: "The Pragmatic Programmer", Author: "Andrew Hunt", Price: 42.50},
		{ID: 3, Title: "Refactoring", Author: "Martin Fowler", Price: 47.99},
		{ID: 4, Title: "Clean Architecture", Author: "Robert C. Martin", Price: 29.99},
	}
}
