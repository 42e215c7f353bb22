package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vancomm/percolation/internal/percolation"
	"github.com/vancomm/percolation/internal/repository"
)

type CreateSessionDTO struct {
	N int `schema:"n,required"`
}

type PositionDTO struct {
	Row int `schema:"row,required"`
	Col int `schema:"col,required"`
}

func ParsePosition(src map[string][]string) (PositionDTO, error) {
	var dto PositionDTO
	err := decoder.Decode(&dto, src)
	return dto, err
}

type SessionDTO struct {
	SessionID  string   `json:"session_id"`
	Owner      *string  `json:"owner,omitempty"`
	N          int      `json:"n"`
	Opened     int      `json:"opened"`
	Fraction   float64  `json:"fraction"`
	Percolates bool     `json:"percolates"`
	Grid       []string `json:"grid"`
	CreatedAt  int64    `json:"created_at"`
	UpdatedAt  int64    `json:"updated_at"`
}

func NewSessionDTO(s *repository.GridSession, g *percolation.Grid) *SessionDTO {
	return &SessionDTO{
		SessionID:  strconv.FormatInt(s.GridSessionID, 10),
		Owner:      s.Owner,
		N:          g.N(),
		Opened:     g.OpenedCount(),
		Fraction:   g.Fraction(),
		Percolates: g.Percolates(),
		Grid:       strings.Fields(g.String()),
		CreatedAt:  s.CreatedAt.UnixMilli(),
		UpdatedAt:  s.UpdatedAt.UnixMilli(),
	}
}

func validateN(n, maxGrid int) error {
	if n < 1 || n > maxGrid {
		return fmt.Errorf("n must be in [1, %d]", maxGrid)
	}
	return nil
}
