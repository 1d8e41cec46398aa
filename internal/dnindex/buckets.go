package dnindex

import "github.com/KilimcininKorOglu/obacore/internal/dn"

// Buckets groups values under a coarser base DN. A value is found by walking
// from a target DN up through its superiors and reading each bucket, so a
// query costs one map lookup per level plus the size of the visited buckets.
type Buckets[T any] struct {
	idx   *Index[[]T]
	count int
}

// NewBuckets returns an empty Buckets.
func NewBuckets[T any]() *Buckets[T] {
	return &Buckets[T]{idx: New[[]T]()}
}

// Add appends v to the bucket for base.
func (b *Buckets[T]) Add(base dn.DN, v T) {
	cur, _ := b.idx.Get(base)
	next := make([]T, len(cur), len(cur)+1)
	copy(next, cur)
	b.idx.Put(base, append(next, v))
	b.count++
}

// Remove deletes the first value in the bucket for base for which match
// returns true. An emptied bucket is pruned.
func (b *Buckets[T]) Remove(base dn.DN, match func(T) bool) (T, bool) {
	var zero T
	cur, ok := b.idx.Get(base)
	if !ok {
		return zero, false
	}
	for i, v := range cur {
		if !match(v) {
			continue
		}
		if len(cur) == 1 {
			b.idx.Delete(base)
		} else {
			next := make([]T, 0, len(cur)-1)
			next = append(next, cur[:i]...)
			next = append(next, cur[i+1:]...)
			b.idx.Put(base, next)
		}
		b.count--
		return v, true
	}
	return zero, false
}

// Bucket returns the values stored for exactly base. The returned slice must
// not be modified.
func (b *Buckets[T]) Bucket(base dn.DN) []T {
	cur, _ := b.idx.Get(base)
	return cur
}

// Ancestors calls fn for every value in the buckets of target and of each of
// its superiors, nearest bucket first.
func (b *Buckets[T]) Ancestors(target dn.DN, fn func(base dn.DN, v T) bool) {
	b.idx.Ancestors(target, func(base dn.DN, vs []T) bool {
		for _, v := range vs {
			if !fn(base, v) {
				return false
			}
		}
		return true
	})
}

// HasSubtree reports whether any bucket is keyed at or below d.
func (b *Buckets[T]) HasSubtree(d dn.DN) bool {
	return b.idx.HasSubtree(d)
}

// Each calls fn for every value in every bucket, in base DN order.
func (b *Buckets[T]) Each(fn func(base dn.DN, v T) bool) {
	b.idx.Ascend(func(base dn.DN, vs []T) bool {
		for _, v := range vs {
			if !fn(base, v) {
				return false
			}
		}
		return true
	})
}

// Len returns the number of values across all buckets.
func (b *Buckets[T]) Len() int {
	return b.count
}

// BucketCount returns the number of non-empty buckets.
func (b *Buckets[T]) BucketCount() int {
	return b.idx.Len()
}
