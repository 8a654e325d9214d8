// Package catalog 定义示例数据集的记录类型（商品、图书）及其样例数据。
package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"recordq/pkg/contract"
)

// Product: 商品记录（JSON 数据集）。
type Product struct {
	ID       int     `json:"id" xml:"id"`
	Name     string  `json:"name" xml:"name"`
	Price    float64 `json:"price" xml:"price"`
	Category string  `json:"category" xml:"category"`
}

var (
	_ contract.Fielder     = Product{}
	_ contract.FieldSetter = (*Product)(nil)
	_ contract.FieldLister = Product{}
)

var productFields = []string{"id", "name", "price", "category"}

// Fields 返回可寻址字段名（小写，声明顺序）。
func (Product) Fields() []string { return slices.Clone(productFields) }

// Field 按字段名取值（大小写不敏感）。
func (p Product) Field(name string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "price":
		return p.Price, true
	case "category":
		return p.Category, true
	}
	return nil, false
}

// SetField 以文本形式写入字段。
func (p *Product) SetField(name, value string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "id":
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: id %q: %v", contract.ErrInvalidInput, value, err)
		}
		p.ID = v
	case "name":
		p.Name = value
	case "price":
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%w: price %q: %v", contract.ErrInvalidInput, value, err)
		}
		p.Price = v
	case "category":
		p.Category = value
	default:
		return fmt.Errorf("%w: product has no field %q", contract.ErrInvalidInput, name)
	}
	return nil
}

// SampleProducts 返回演示用的四条商品记录。
func SampleProducts() []Product {
	return []Product{
		{ID: 1, Name: "Laptop", Price: 999.99, Category: "Electronics"},
		{ID: 2, Name: "Smartphone", Price: 499.99, Category: "Electronics"},
		{ID: 3, Name: "Desk", Price: 199.99, Category: "Furniture"},
		{ID: 4, Name: "Chair", Price: 89.99, Category: "Furniture"},
	}
}
