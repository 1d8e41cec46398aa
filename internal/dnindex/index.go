// Package dnindex provides DN-keyed ordered indexes supporting exact lookup,
// ancestor walks and "everything at or below" subtree queries.
//
// Keys are ordered root first so that the subtree of any DN is one contiguous
// key range. Index is not safe for concurrent use; callers either hold their
// own lock or use Concurrent.
package dnindex

import (
	"github.com/google/btree"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
)

const degree = 32

type item[T any] struct {
	key   string
	dn    dn.DN
	value T
}

func less[T any](a, b item[T]) bool {
	return a.key < b.key
}

// Index maps DNs to values of type T.
type Index[T any] struct {
	tree *btree.BTreeG[item[T]]
}

// New returns an empty Index.
func New[T any]() *Index[T] {
	return &Index[T]{tree: btree.NewG(degree, less[T])}
}

// Put stores v under d, returning the previous value if one was replaced.
func (x *Index[T]) Put(d dn.DN, v T) (T, bool) {
	old, replaced := x.tree.ReplaceOrInsert(item[T]{key: d.Key(), dn: d, value: v})
	return old.value, replaced
}

// Get returns the value stored exactly at d.
func (x *Index[T]) Get(d dn.DN) (T, bool) {
	it, ok := x.tree.Get(item[T]{key: d.Key()})
	return it.value, ok
}

// Delete removes the value stored exactly at d.
func (x *Index[T]) Delete(d dn.DN) (T, bool) {
	it, ok := x.tree.Delete(item[T]{key: d.Key()})
	return it.value, ok
}

// Len returns the number of stored DNs.
func (x *Index[T]) Len() int {
	return x.tree.Len()
}

// Ancestors calls fn for the value stored at d and at each of its superiors,
// nearest first, up to and including the root DSE. It performs one lookup
// per level of d. Iteration stops when fn returns false.
func (x *Index[T]) Ancestors(d dn.DN, fn func(key dn.DN, v T) bool) {
	cur := d
	for {
		if it, ok := x.tree.Get(item[T]{key: cur.Key()}); ok {
			if !fn(it.dn, it.value) {
				return
			}
		}
		parent, ok := cur.Parent()
		if !ok {
			return
		}
		cur = parent
	}
}

// Nearest returns the value stored at d or at its deepest superior.
func (x *Index[T]) Nearest(d dn.DN) (dn.DN, T, bool) {
	var (
		key   dn.DN
		value T
		found bool
	)
	x.Ancestors(d, func(k dn.DN, v T) bool {
		key, value, found = k, v, true
		return false
	})
	return key, value, found
}

// HasSubtree reports whether any value is stored at or below d.
func (x *Index[T]) HasSubtree(d dn.DN) bool {
	base := d.Key()
	found := false
	x.tree.AscendGreaterOrEqual(item[T]{key: base}, func(it item[T]) bool {
		found = dn.SubtreeContainsKey(base, it.key)
		return false
	})
	return found
}

// Subtree calls fn in key order for every value stored at or below d.
// fn must not modify the index; collect first and mutate afterwards.
func (x *Index[T]) Subtree(d dn.DN, fn func(key dn.DN, v T) bool) {
	base := d.Key()
	x.tree.AscendGreaterOrEqual(item[T]{key: base}, func(it item[T]) bool {
		if !dn.SubtreeContainsKey(base, it.key) {
			return false
		}
		return fn(it.dn, it.value)
	})
}

// Ascend calls fn for every stored value in key order.
func (x *Index[T]) Ascend(fn func(key dn.DN, v T) bool) {
	x.tree.Ascend(func(it item[T]) bool {
		return fn(it.dn, it.value)
	})
}

// Clear removes all values.
func (x *Index[T]) Clear() {
	x.tree.Clear(false)
}
