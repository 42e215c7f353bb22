package percolation

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"
)

type SiteState int8

const (
	Closed SiteState = iota
	Open
	Full
)

func (s SiteState) String() string {
	switch s {
	case Closed:
		return "#"
	case Open:
		return "."
	case Full:
		return "~"
	default:
		return "!"
	}
}

// States returns the state of every site in row-major order.
func (g *Grid) States() []SiteState {
	states := make([]SiteState, len(g.open))
	for i, open := range g.open {
		switch {
		case !open:
			states[i] = Closed
		case g.connected(i, g.top()):
			states[i] = Full
		default:
			states[i] = Open
		}
	}
	return states
}

func (g *Grid) String() string {
	var b strings.Builder
	for i, s := range g.States() {
		b.WriteString(s.String())
		if (i+1)%g.n == 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

type gridState struct {
	N    int
	Open []bool
}

// [Grid] implements [encoding.BinaryMarshaler]
func (g *Grid) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(gridState{N: g.n, Open: g.open})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a grid by replaying the recorded opens, so the
// connectivity structure is rebuilt rather than stored.
func (g *Grid) UnmarshalBinary(data []byte) error {
	var state gridState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return err
	}
	if err := checkDimension(state.N); err != nil {
		return fmt.Errorf("percolation: corrupt grid state: %w", err)
	}
	if len(state.Open) != state.N*state.N {
		return fmt.Errorf(
			"percolation: corrupt grid state (n = %d, sites = %d)",
			state.N, len(state.Open),
		)
	}
	restored, err := New(state.N)
	if err != nil {
		return err
	}
	for i, open := range state.Open {
		if !open {
			continue
		}
		if err := restored.Open(i/state.N+1, i%state.N+1); err != nil {
			return err
		}
	}
	*g = *restored
	return nil
}

func Decode(data []byte) (*Grid, error) {
	var g Grid
	if err := g.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &g, nil
}
