// Package fieldexpr 将命令行上的文本表达式（field<op>value、字段名列表）
// 编译为查询层使用的谓词、比较函数、分组键与投影函数。
//
// 记录通过 contract.Fielder 按名访问字段；字段类型取自 T 的零值，
// 因此未知字段与类型不符的取值在编译期即报错，而不是在逐条匹配时静默为 false。
package fieldexpr

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"recordq/pkg/contract"
)

// Op 为比较运算符。
type Op string

const (
	OpEq       Op = "="
	OpNe       Op = "!="
	OpLt       Op = "<"
	OpLe       Op = "<="
	OpGt       Op = ">"
	OpGe       Op = ">="
	OpContains Op = "~"
)

// 按长度优先匹配，避免 "<=" 被识别为 "<"。
var ops = []Op{"==", OpNe, OpLe, OpGe, OpEq, OpLt, OpGt, OpContains}

// Cond 为单个条件 field<op>value。
type Cond struct {
	Field string
	Op    Op
	Value string
}

func (c Cond) String() string { return c.Field + string(c.Op) + c.Value }

// ParseWhere 解析 "price>100"、"title=Clean Code" 形式的条件。
func ParseWhere(s string) (Cond, error) {
	i := strings.IndexAny(s, "=!<>~")
	if i <= 0 {
		return Cond{}, fmt.Errorf("%w: where %q: want field<op>value", contract.ErrInvalidInput, s)
	}
	field := strings.TrimSpace(s[:i])
	if field == "" {
		return Cond{}, fmt.Errorf("%w: where %q: empty field", contract.ErrInvalidInput, s)
	}
	rest := s[i:]
	for _, op := range ops {
		if strings.HasPrefix(rest, string(op)) {
			c := Cond{Field: field, Op: op, Value: strings.TrimSpace(rest[len(op):])}
			if c.Op == "==" {
				c.Op = OpEq
			}
			// 空子串匹配任意文本
			if c.Op == OpContains && c.Value == "" {
				return Cond{}, fmt.Errorf("%w: where %q: operator ~ needs a non-empty value", contract.ErrInvalidInput, s)
			}
			return c, nil
		}
	}
	return Cond{}, fmt.Errorf("%w: where %q: unknown operator", contract.ErrInvalidInput, s)
}

// Where 编译多个条件（逻辑与）；空列表匹配全部记录。
func Where[T contract.Fielder](exprs []string) (func(T) bool, error) {
	preds := make([]func(T) bool, 0, len(exprs))
	for _, s := range exprs {
		c, err := ParseWhere(s)
		if err != nil {
			return nil, err
		}
		p, err := compile[T](c)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return func(r T) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}, nil
}

func compile[T contract.Fielder](c Cond) (func(T) bool, error) {
	kind, err := fieldKind[T](c.Field)
	if err != nil {
		return nil, err
	}
	var want any
	switch kind.(type) {
	case int, float64:
		if c.Op == OpContains {
			return nil, fmt.Errorf("%w: %s: operator ~ needs a text field", contract.ErrInvalidInput, c)
		}
		f, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %q is not a number", contract.ErrInvalidInput, c, c.Value)
		}
		want = f
	default:
		want = c.Value
	}
	return func(r T) bool {
		v, ok := r.Field(c.Field)
		if !ok {
			return false
		}
		if c.Op == OpContains {
			return strings.Contains(fmt.Sprint(v), c.Value)
		}
		d := compareValues(v, want)
		switch c.Op {
		case OpEq:
			return d == 0
		case OpNe:
			return d != 0
		case OpLt:
			return d < 0
		case OpLe:
			return d <= 0
		case OpGt:
			return d > 0
		case OpGe:
			return d >= 0
		}
		return false
	}, nil
}

// Compare 返回按 field 升序的比较函数。
func Compare[T contract.Fielder](field string) (func(a, b T) int, error) {
	if _, err := fieldKind[T](field); err != nil {
		return nil, err
	}
	return func(a, b T) int {
		av, _ := a.Field(field)
		bv, _ := b.Field(field)
		return compareValues(av, bv)
	}, nil
}

// GroupKey 返回以 field 文本值为键的分组函数。
func GroupKey[T contract.Fielder](field string) (func(T) string, error) {
	if _, err := fieldKind[T](field); err != nil {
		return nil, err
	}
	return func(r T) string {
		v, _ := r.Field(field)
		return format(v)
	}, nil
}

// Projector 返回投影函数：单字段投影为该字段值，多字段投影为有序 Row。
func Projector[T contract.Fielder](fields []string) (func(T) any, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: project needs at least one field", contract.ErrInvalidInput)
	}
	for _, f := range fields {
		if _, err := fieldKind[T](f); err != nil {
			return nil, err
		}
	}
	if len(fields) == 1 {
		f := fields[0]
		return func(r T) any {
			v, _ := r.Field(f)
			return v
		}, nil
	}
	return func(r T) any {
		row := make(Row, 0, len(fields))
		for _, f := range fields {
			v, _ := r.Field(f)
			row = append(row, Cell{Name: strings.ToLower(f), Value: v})
		}
		return row
	}, nil
}

// Assign 依次应用 "field=value" 赋值，构造一条新记录。
func Assign[T any, PT interface {
	*T
	contract.FieldSetter
}](sets []string) (T, error) {
	var rec T
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return rec, fmt.Errorf("%w: set %q: want field=value", contract.ErrInvalidInput, s)
		}
		if err := PT(&rec).SetField(strings.TrimSpace(k), v); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// Cell 为投影行中的一个字段。
type Cell struct {
	Name  string
	Value any
}

// Row 为多字段投影结果；JSON 编码保持字段顺序。
type Row []Cell

func (r Row) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func fieldKind[T contract.Fielder](field string) (any, error) {
	var zero T
	v, ok := zero.Field(field)
	if !ok {
		if fl, ok := any(zero).(contract.FieldLister); ok {
			return nil, fmt.Errorf("%w: unknown field %q (have %s)", contract.ErrInvalidInput, field, strings.Join(fl.Fields(), ", "))
		}
		return nil, fmt.Errorf("%w: unknown field %q", contract.ErrInvalidInput, field)
	}
	return v, nil
}

// compareValues 比较两个字段值：数值统一按 float64，其余按文本。
func compareValues(a, b any) int {
	af, aok := number(a)
	bf, bok := number(b)
	if aok && bok {
		return cmp.Compare(af, bf)
	}
	return cmp.Compare(format(a), format(b))
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
