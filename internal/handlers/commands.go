package handlers

import (
	"errors"
	"iter"
	"strconv"
	"strings"

	"github.com/vancomm/percolation/internal/percolation"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errCommandArgs    = errors.New("invalid number of arguments")
)

// Maps known commands to number of arguments
var commandNargs = map[string]int{
	"g": 0, // get
	"o": 2, // open <row> <col>
}

func byPiece(s string, sep string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		i := 0
		found := true
		var piece string
		for found {
			piece, s, found = strings.Cut(s, sep)
			if !yield(i, piece) {
				return
			}
			i += 1
		}
	}
}

func parseRowCol(twoStrings []string) (row int, col int, err error) {
	if row, err = strconv.Atoi(twoStrings[0]); err != nil {
		err = errors.New("row must be an int")
		return
	}
	if col, err = strconv.Atoi(twoStrings[1]); err != nil {
		err = errors.New("col must be an int")
		return
	}
	return
}

// executeCommand applies one text command to g. Blank commands are ignored.
func executeCommand(g *percolation.Grid, c string) error {
	parts := strings.Fields(c)
	if len(parts) == 0 {
		return nil
	}
	nargs, ok := commandNargs[parts[0]]
	if !ok {
		return errUnknownCommand
	}
	if nargs != len(parts)-1 {
		return errCommandArgs
	}
	switch parts[0] {
	case "o":
		row, col, err := parseRowCol(parts[1:])
		if err != nil {
			return err
		}
		return g.Open(row, col)
	}
	return nil
}
