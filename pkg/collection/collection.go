// Package collection 提供对已加载集合的纯内存变换（无 I/O）。
// 所有函数不修改输入切片；返回值均为新分配的切片（空输入返回非 nil 空切片）。
package collection

import (
	"cmp"
	"slices"
)

// Filter 返回满足 pred 的记录，保持源顺序。
func Filter[T any](in []T, pred func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// SortStable 按 key 升序稳定排序；相等键保持源相对顺序。
func SortStable[T any, K cmp.Ordered](in []T, key func(T) K) []T {
	return SortStableFunc(in, func(a, b T) int { return cmp.Compare(key(a), key(b)) })
}

// SortStableFunc 按比较函数稳定排序。
func SortStableFunc[T any](in []T, compare func(a, b T) int) []T {
	out := make([]T, len(in))
	copy(out, in)
	slices.SortStableFunc(out, compare)
	return out
}

// Group: 同一键的记录（保持源顺序）。
type Group[K comparable, T any] struct {
	Key     K
	Records []T
}

// GroupBy 按 key 分组；分组按键首次出现的顺序排列。
func GroupBy[T any, K comparable](in []T, key func(T) K) []Group[K, T] {
	out := make([]Group[K, T], 0)
	idx := make(map[K]int)
	for _, v := range in {
		k := key(v)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Group[K, T]{Key: k})
		}
		out[i].Records = append(out[i].Records, v)
	}
	return out
}

// ToMap 将分组结果转为 map 视图。
func ToMap[K comparable, T any](groups []Group[K, T]) map[K][]T {
	m := make(map[K][]T, len(groups))
	for _, g := range groups {
		m[g.Key] = g.Records
	}
	return m
}

// Map 对每条记录应用 sel，保持源顺序与长度。
func Map[T, R any](in []T, sel func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = sel(v)
	}
	return out
}

// RemoveWhere 移除所有满足 pred 的记录，返回剩余记录与移除条数。
func RemoveWhere[T any](in []T, pred func(T) bool) ([]T, int) {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !pred(v) {
			out = append(out, v)
		}
	}
	return out, len(in) - len(out)
}
