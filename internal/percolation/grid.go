// Package percolation models an N-by-N grid of sites that are opened one
// at a time, tracking connectivity to the top and bottom boundaries.
package percolation

import (
	"fmt"

	"github.com/vancomm/percolation/internal/unionfind"
)

// Grid is an N-by-N percolation system. Sites are addressed by 1-indexed
// (row, col) pairs; row 1 is the top boundary and row N the bottom.
//
// Connectivity lives in a disjoint set over N*N+2 elements: one per site
// plus two virtual sites, top (N*N) and bottom (N*N+1). Every open site in
// row 1 is joined to top and every open site in row N to bottom, so the
// grid percolates exactly when top and bottom share a set.
type Grid struct {
	n      int
	open   []bool
	opened int
	uf     *unionfind.DisjointSet
}

// MaxDimension is the largest supported N: floor(sqrt(math.MaxInt32)), so
// N*N+2 fits in an int on every platform.
const MaxDimension = 46340

func checkDimension(n int) error {
	if n <= 0 || n > MaxDimension {
		return fmt.Errorf("%w: got %d, want [1, %d]", ErrInvalidArgument, n, MaxDimension)
	}
	return nil
}

func New(n int) (*Grid, error) {
	if err := checkDimension(n); err != nil {
		return nil, err
	}
	uf, err := unionfind.New(n*n + 2)
	if err != nil {
		return nil, err
	}
	g := &Grid{
		n:    n,
		open: make([]bool, n*n),
		uf:   uf,
	}
	return g, nil
}

func (g *Grid) N() int {
	return g.n
}

func (g *Grid) Sites() int {
	return g.n * g.n
}

func (g *Grid) top() int {
	return g.n * g.n
}

func (g *Grid) bottom() int {
	return g.n*g.n + 1
}

// Site maps the 1-indexed (row, col) to the 0-indexed linear site index
// (row-1)*N + (col-1). It is the only place coordinates are translated.
func (g *Grid) Site(row, col int) (int, error) {
	if row < 1 || row > g.n || col < 1 || col > g.n {
		return 0, IndexError{Row: row, Col: col, N: g.n}
	}
	return (row-1)*g.n + (col - 1), nil
}

// panics [AssertionError]
func (g *Grid) join(a, b int) {
	if _, err := g.uf.Union(a, b); err != nil {
		panic(AssertionError{"join of valid sites failed: " + err.Error()})
	}
}

// panics [AssertionError]
func (g *Grid) connected(a, b int) bool {
	ok, err := g.uf.Connected(a, b)
	if err != nil {
		panic(AssertionError{"connected query on valid sites failed: " + err.Error()})
	}
	return ok
}

// Open opens the site at (row, col) and joins it with its open
// neighbours. Opening an open site is a no-op.
func (g *Grid) Open(row, col int) error {
	i, err := g.Site(row, col)
	if err != nil {
		return err
	}
	if g.open[i] {
		return nil
	}
	g.open[i] = true
	g.opened++

	if row == 1 {
		g.join(i, g.top())
	}
	if row == g.n {
		g.join(i, g.bottom())
	}
	if row > 1 && g.open[i-g.n] {
		g.join(i, i-g.n)
	}
	if row < g.n && g.open[i+g.n] {
		g.join(i, i+g.n)
	}
	if col > 1 && g.open[i-1] {
		g.join(i, i-1)
	}
	if col < g.n && g.open[i+1] {
		g.join(i, i+1)
	}
	return nil
}

func (g *Grid) IsOpen(row, col int) (bool, error) {
	i, err := g.Site(row, col)
	if err != nil {
		return false, err
	}
	return g.open[i], nil
}

// IsFull reports whether the site is open and connected to the top row
// through open sites. Closed sites are never full.
func (g *Grid) IsFull(row, col int) (bool, error) {
	i, err := g.Site(row, col)
	if err != nil {
		return false, err
	}
	if !g.open[i] {
		return false, nil
	}
	return g.connected(i, g.top()), nil
}

func (g *Grid) Percolates() bool {
	return g.connected(g.top(), g.bottom())
}

func (g *Grid) OpenedCount() int {
	return g.opened
}

// Fraction is the share of sites opened so far.
func (g *Grid) Fraction() float64 {
	return float64(g.opened) / float64(g.n*g.n)
}
