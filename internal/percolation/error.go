package percolation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("percolation: invalid grid dimension")
	ErrIndexOutOfRange = errors.New("percolation: site index out of range")
)

// IndexError describes a 1-indexed coordinate outside [1, N].
type IndexError struct {
	Row, Col, N int
}

// [IndexError] implements [error]
func (e IndexError) Error() string {
	return fmt.Sprintf(
		"percolation: site (%d, %d) out of range [1, %d]", e.Row, e.Col, e.N,
	)
}

func (e IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

type AssertionError struct {
	message string
}

// [AssertionError] implements [error]
func (e AssertionError) Error() string {
	return e.message
}
