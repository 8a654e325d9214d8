package jsonarray

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"recordq/pkg/catalog"
	"recordq/pkg/contract"
)

// TestRoundTrip 编码后解码应逐字段相等且保持顺序。
func TestRoundTrip(t *testing.T) {
	c := New[catalog.Product](nil)
	in := catalog.SampleProducts()
	var buf bytes.Buffer
	if err := c.Encode(&buf, in); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := c.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("len %d want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("[%d] got %+v want %+v", i, got[i], in[i])
		}
	}
}

// TestEncodeIndented 默认两空格缩进、snake_case 键、结尾换行。
func TestEncodeIndented(t *testing.T) {
	c := New[catalog.Product](nil)
	var buf bytes.Buffer
	if err := c.Encode(&buf, catalog.SampleProducts()[:1]); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "[\n  {\n    \"id\": 1,\n    \"name\": \"Laptop\",\n    \"price\": 999.99,\n    \"category\": \"Electronics\"\n  }\n]\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestEncodeCompactAndNil(t *testing.T) {
	c := New[catalog.Product](&Options{Compact: true})
	var buf bytes.Buffer
	if err := c.Encode(&buf, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf.String() != "[]\n" {
		t.Fatalf("nil 集合应写为 []，got %q", buf.String())
	}
}

// TestDecodeEmpty 空输入、空白与 null 均为空集合。
func TestDecodeEmpty(t *testing.T) {
	c := New[catalog.Product](nil)
	for _, in := range []string{"", "  \n", "null", "[]"} {
		got, err := c.Decode(strings.NewReader(in))
		if err != nil {
			t.Fatalf("%q: unexpected err %v", in, err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("%q: want empty non-nil, got %#v", in, got)
		}
	}
}

// TestDecodeInvalid 结构非法返回 ErrDecode。
func TestDecodeInvalid(t *testing.T) {
	c := New[catalog.Product](nil)
	cases := []string{
		`{"id":1}`,
		`[{"id":"x"}]`,
		`[{"id":1}`,
		`[] []`,
		`not json`,
	}
	for _, in := range cases {
		if _, err := c.Decode(strings.NewReader(in)); !errors.Is(err, contract.ErrDecode) {
			t.Fatalf("%q: want ErrDecode got %v", in, err)
		}
	}
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) { return 0, errors.New("boom") }

// TestDecodeReadError 读失败原样上抛，不归为 ErrDecode。
func TestDecodeReadError(t *testing.T) {
	c := New[catalog.Product](nil)
	_, err := c.Decode(errReader{})
	if err == nil || errors.Is(err, contract.ErrDecode) {
		t.Fatalf("want raw read error, got %v", err)
	}
}
