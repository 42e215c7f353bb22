// Package unionfind implements a fixed-size disjoint-set forest with
// union-by-size and path compression.
package unionfind

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSize = errors.New("unionfind: size must be positive")
	ErrOutOfRange  = errors.New("unionfind: element out of range")
)

type RangeError struct {
	Element int
	Size    int
}

// [RangeError] implements [error]
func (e RangeError) Error() string {
	return fmt.Sprintf("unionfind: element %d out of range [0, %d)", e.Element, e.Size)
}

func (e RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// DisjointSet partitions the elements 0..size-1 into disjoint sets.
type DisjointSet struct {
	parent []int
	size   []int // only meaningful at roots
	count  int
}

// New returns a DisjointSet of size singleton sets.
func New(size int) (*DisjointSet, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	d := &DisjointSet{
		parent: make([]int, size),
		size:   make([]int, size),
		count:  size,
	}
	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}
	return d, nil
}

// Count returns the number of disjoint sets.
func (d *DisjointSet) Count() int {
	return d.count
}

func (d *DisjointSet) validate(e int) error {
	if e < 0 || e >= len(d.parent) {
		return RangeError{Element: e, Size: len(d.parent)}
	}
	return nil
}

// root assumes e is in range.
func (d *DisjointSet) root(e int) int {
	r := e
	for r != d.parent[r] {
		r = d.parent[r]
	}
	for e != r {
		next := d.parent[e]
		d.parent[e] = r
		e = next
	}
	return r
}

// Find returns the canonical representative of the set containing e.
func (d *DisjointSet) Find(e int) (int, error) {
	if err := d.validate(e); err != nil {
		return 0, err
	}
	return d.root(e), nil
}

// Union merges the sets containing a and b. The smaller tree is attached
// under the larger one. It reports whether two distinct sets were merged.
func (d *DisjointSet) Union(a, b int) (bool, error) {
	if err := d.validate(a); err != nil {
		return false, err
	}
	if err := d.validate(b); err != nil {
		return false, err
	}
	ra, rb := d.root(a), d.root(b)
	if ra == rb {
		return false, nil
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
	d.count--
	return true, nil
}

// Connected reports whether a and b are in the same set.
func (d *DisjointSet) Connected(a, b int) (bool, error) {
	if err := d.validate(a); err != nil {
		return false, err
	}
	if err := d.validate(b); err != nil {
		return false, err
	}
	return d.root(a) == d.root(b), nil
}

// Size returns the number of elements in the set containing e.
func (d *DisjointSet) Size(e int) (int, error) {
	if err := d.validate(e); err != nil {
		return 0, err
	}
	return d.size[d.root(e)], nil
}
