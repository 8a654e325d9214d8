package collection

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Seq int // 源位置，用于校验稳定性
	Key int
	Tag string
}

// randomItems 生成含重复键的随机集合（固定种子，结果可复现）。
func randomItems(r *rand.Rand, n int) []item {
	out := make([]item, n)
	tags := []string{"a", "b", "c"}
	for i := range out {
		out[i] = item{Seq: i, Key: r.Intn(5), Tag: tags[r.Intn(len(tags))]}
	}
	return out
}

func TestFilterProperties(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		in := randomItems(r, r.Intn(30))
		pred := func(v item) bool { return v.Key%2 == 0 }
		got := Filter(in, pred)
		require.LessOrEqual(t, len(got), len(in))
		// 恰为满足 pred 的子集且保持源顺序
		var want []item
		for _, v := range in {
			if pred(v) {
				want = append(want, v)
			}
		}
		if diff := cmp.Diff(want, got, cmpEmpty()); diff != "" {
			t.Fatalf("Filter 结果不一致 (-want +got):\n%s", diff)
		}
	}
}

func TestSortStableProperties(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for round := 0; round < 50; round++ {
		in := randomItems(r, r.Intn(30))
		orig := slices.Clone(in)
		got := SortStable(in, func(v item) int { return v.Key })
		require.Len(t, got, len(in))
		assert.Equal(t, orig, in, "输入不应被修改")
		for i := 1; i < len(got); i++ {
			require.LessOrEqual(t, got[i-1].Key, got[i].Key, "输出应非递减")
			if got[i-1].Key == got[i].Key {
				require.Less(t, got[i-1].Seq, got[i].Seq, "相等键应保持源顺序")
			}
		}
		// 排列：按 Seq 还原后与输入一致
		back := slices.Clone(got)
		slices.SortFunc(back, func(a, b item) int { return a.Seq - b.Seq })
		if diff := cmp.Diff(in, back, cmpEmpty()); diff != "" {
			t.Fatalf("SortStable 不是输入的排列:\n%s", diff)
		}
	}
}

func TestGroupByProperties(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for round := 0; round < 50; round++ {
		in := randomItems(r, r.Intn(30))
		groups := GroupBy(in, func(v item) string { return v.Tag })
		total := 0
		seen := map[string]bool{}
		for _, g := range groups {
			require.False(t, seen[g.Key], "键 %s 重复出现", g.Key)
			seen[g.Key] = true
			require.NotEmpty(t, g.Records)
			for i, v := range g.Records {
				require.Equal(t, g.Key, v.Tag)
				if i > 0 {
					require.Less(t, g.Records[i-1].Seq, v.Seq, "组内应保持源顺序")
				}
			}
			total += len(g.Records)
		}
		require.Equal(t, len(in), total, "每条记录恰好出现在一个分组中")
	}
}

func TestGroupByFirstAppearanceOrder(t *testing.T) {
	in := []item{{Tag: "b"}, {Tag: "a"}, {Tag: "b"}, {Tag: "c"}}
	groups := GroupBy(in, func(v item) string { return v.Tag })
	keys := Map(groups, func(g Group[string, item]) string { return g.Key })
	assert.Equal(t, []string{"b", "a", "c"}, keys)
	m := ToMap(groups)
	assert.Len(t, m["b"], 2)
}

func TestMapProperties(t *testing.T) {
	in := []item{{Key: 3}, {Key: 1}, {Key: 3}}
	got := Map(in, func(v item) int { return v.Key * 10 })
	require.Len(t, got, len(in))
	for i := range in {
		assert.Equal(t, in[i].Key*10, got[i])
	}
}

func TestRemoveWhere(t *testing.T) {
	in := []item{{Tag: "x"}, {Tag: "y"}, {Tag: "x"}}
	rest, n := RemoveWhere(in, func(v item) bool { return v.Tag == "x" })
	assert.Equal(t, 2, n)
	assert.Equal(t, []item{{Tag: "y"}}, rest)

	rest, n = RemoveWhere(in, func(v item) bool { return false })
	assert.Zero(t, n)
	assert.Len(t, rest, 3)
}

func TestEmptyInputs(t *testing.T) {
	var in []item
	assert.NotNil(t, Filter(in, func(item) bool { return true }))
	assert.NotNil(t, SortStable(in, func(v item) int { return v.Key }))
	assert.NotNil(t, GroupBy(in, func(v item) int { return v.Key }))
	assert.NotNil(t, Map(in, func(v item) int { return v.Key }))
}

// cmpEmpty 将 nil 与空切片视为相等。
func cmpEmpty() cmp.Option {
	return cmp.Comparer(func(a, b []item) bool { return slices.Equal(a, b) })
}

func BenchmarkSortStable(b *testing.B) {
	in := randomItems(rand.New(rand.NewSource(4)), 10000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SortStable(in, func(v item) int { return v.Key })
	}
}
