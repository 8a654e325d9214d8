package fieldexpr

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordq/pkg/catalog"
	"recordq/pkg/collection"
	"recordq/pkg/contract"
)

func TestParseWhere(t *testing.T) {
	cases := []struct {
		in   string
		want Cond
	}{
		{"price>100", Cond{"price", OpGt, "100"}},
		{"price >= 99.5", Cond{"price", OpGe, "99.5"}},
		{"price<=1", Cond{"price", OpLe, "1"}},
		{"id<3", Cond{"id", OpLt, "3"}},
		{"title=Clean Code", Cond{"title", OpEq, "Clean Code"}},
		{"title==Clean Code", Cond{"title", OpEq, "Clean Code"}},
		{"category!=Furniture", Cond{"category", OpNe, "Furniture"}},
		{"author~Martin", Cond{"author", OpContains, "Martin"}},
		{"title=a=b", Cond{"title", OpEq, "a=b"}},
	}
	for _, tt := range cases {
		got, err := ParseWhere(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseWhereInvalid(t *testing.T) {
	for _, in := range []string{"", "price", "=100", " >1", "price!100", "title~", "title~  "} {
		_, err := ParseWhere(in)
		assert.ErrorIs(t, err, contract.ErrInvalidInput, "输入 %q 应报错", in)
	}
}

func TestWhere(t *testing.T) {
	products := catalog.SampleProducts()
	names := func(exprs ...string) []string {
		t.Helper()
		pred, err := Where[catalog.Product](exprs)
		require.NoError(t, err)
		return collection.Map(collection.Filter(products, pred), func(p catalog.Product) string { return p.Name })
	}
	if diff := cmp.Diff([]string{"Laptop", "Smartphone", "Desk"}, names("price>100")); diff != "" {
		t.Fatalf("price>100 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Desk"}, names("category=Furniture", "price>=100")); diff != "" {
		t.Fatalf("AND (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Smartphone"}, names("name~phone")); diff != "" {
		t.Fatalf("contains (-want +got):\n%s", diff)
	}
	assert.Len(t, names(), 4, "空条件应匹配全部")
	assert.Empty(t, names("price>10000"))
	assert.Equal(t, []string{"Chair"}, names("ID=4"), "字段名大小写不敏感")
}

func TestWhereCompileErrors(t *testing.T) {
	for _, exprs := range [][]string{
		{"weight>1"},
		{"price>cheap"},
		{"price~9"},
		{"bad"},
	} {
		_, err := Where[catalog.Product](exprs)
		assert.ErrorIs(t, err, contract.ErrInvalidInput, "%v", exprs)
	}

	_, err := Where[catalog.Book]([]string{"name=x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(have id, title, author, price)")

	// 空子串条件不得退化为匹配全部
	_, err = Where[catalog.Book]([]string{"title~"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestCompareAndGroupKey(t *testing.T) {
	books := catalog.SampleBooks()
	byPrice, err := Compare[catalog.Book]("price")
	require.NoError(t, err)
	sorted := collection.SortStableFunc(books, byPrice)
	titles := collection.Map(sorted, func(b catalog.Book) string { return b.Title })
	assert.Equal(t, []string{"Clean Architecture", "Clean Code", "The Pragmatic Programmer", "Refactoring"}, titles)

	byTitle, err := Compare[catalog.Book]("title")
	require.NoError(t, err)
	assert.Negative(t, byTitle(books[0], books[1]))

	key, err := GroupKey[catalog.Book]("author")
	require.NoError(t, err)
	groups := collection.GroupBy(books, key)
	require.Len(t, groups, 3)
	assert.Equal(t, "Robert C. Martin", groups[0].Key)
	assert.Len(t, groups[0].Records, 2)

	pkey, err := GroupKey[catalog.Product]("price")
	require.NoError(t, err)
	assert.Equal(t, "999.99", pkey(catalog.SampleProducts()[0]))

	_, err = Compare[catalog.Book]("isbn")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = GroupKey[catalog.Book]("isbn")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestProjector(t *testing.T) {
	products := catalog.SampleProducts()
	one, err := Projector[catalog.Product]([]string{"price"})
	require.NoError(t, err)
	assert.Equal(t, []any{999.99, 499.99, 199.99, 89.99}, collection.Map(products, one))

	two, err := Projector[catalog.Product]([]string{"Name", "price"})
	require.NoError(t, err)
	b, err := json.Marshal(collection.Map(products[:1], two))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Laptop","price":999.99}]`, string(b))
	assert.Equal(t, `[{"name":"Laptop","price":999.99}]`, string(b), "字段顺序应保持")

	_, err = Projector[catalog.Product](nil)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Projector[catalog.Product]([]string{"name", "nope"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestAssign(t *testing.T) {
	b, err := Assign[catalog.Book]([]string{"id=5", "title=Domain-Driven Design", "author=Eric Evans", "price=54.99"})
	require.NoError(t, err)
	assert.Equal(t, catalog.Book{ID: 5, Title: "Domain-Driven Design", Author: "Eric Evans", Price: 54.99}, b)

	_, err = Assign[catalog.Book]([]string{"price=free"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Assign[catalog.Product]([]string{"novalue"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Assign[catalog.Product]([]string{"color=red"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func BenchmarkWhere(b *testing.B) {
	pred, err := Where[catalog.Product]([]string{"price>100", "category=Electronics"})
	if err != nil {
		b.Fatal(err)
	}
	products := catalog.SampleProducts()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = collection.Filter(products, pred)
	}
}
