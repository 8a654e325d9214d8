package catalog

import (
	"errors"
	"testing"

	"recordq/pkg/contract"
)

func TestProductField(t *testing.T) {
	p := SampleProducts()[0]
	for _, name := range p.Fields() {
		if _, ok := p.Field(name); !ok {
			t.Fatalf("字段 %s 应存在", name)
		}
	}
	if v, ok := p.Field(" PRICE "); !ok || v.(float64) != 999.99 {
		t.Fatalf("大小写不敏感取值失败: %v %v", v, ok)
	}
	if _, ok := p.Field("title"); ok {
		t.Fatalf("未知字段应返回 ok=false")
	}
}

func TestProductSetField(t *testing.T) {
	var p Product
	for _, kv := range [][2]string{{"id", "7"}, {"name", "Lamp"}, {"price", "12.5"}, {"Category", "Furniture"}} {
		if err := p.SetField(kv[0], kv[1]); err != nil {
			t.Fatalf("SetField(%s): %v", kv[0], err)
		}
	}
	want := Product{ID: 7, Name: "Lamp", Price: 12.5, Category: "Furniture"}
	if p != want {
		t.Fatalf("got %+v want %+v", p, want)
	}
	if err := p.SetField("price", "abc"); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("非法数值应返回 ErrInvalidInput, got %v", err)
	}
	if err := p.SetField("author", "x"); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("未知字段应返回 ErrInvalidInput, got %v", err)
	}
}

func TestBookFieldAndSetField(t *testing.T) {
	var b Book
	if err := b.SetField("title", "Clean Code"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	if err := b.SetField("id", "x"); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("非法 id 应返回 ErrInvalidInput, got %v", err)
	}
	if v, ok := b.Field("Title"); !ok || v != "Clean Code" {
		t.Fatalf("取值失败: %v %v", v, ok)
	}
	for _, name := range b.Fields() {
		if _, ok := b.Field(name); !ok {
			t.Fatalf("字段 %s 应存在", name)
		}
	}
}
