package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vancomm/percolation/internal/percolation"
)

type GridSession struct {
	GridSessionID int64     `db:"grid_session_id"`
	Owner         *string   `db:"owner"`
	N             int32     `db:"n"`
	Opened        int32     `db:"opened"`
	Percolates    bool      `db:"percolates"`
	State         []byte    `db:"state"`
	Version       int32     `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (s GridSession) Grid() (*percolation.Grid, error) {
	return percolation.Decode(s.State)
}

func (q *Queries) CreateGridSession(
	ctx context.Context, owner *string, grid *percolation.Grid,
) (*GridSession, error) {
	state, err := grid.MarshalBinary()
	if err != nil {
		return nil, err
	}
	rows, _ := q.db.Query(
		ctx,
		`INSERT INTO grid_session (owner, n, opened, percolates, state)
		VALUES (@owner, @n, @opened, @percolates, @state)
		RETURNING *;`,
		pgx.NamedArgs{
			"owner":      owner,
			"n":          grid.N(),
			"opened":     grid.OpenedCount(),
			"percolates": grid.Percolates(),
			"state":      state,
		},
	)
	return pgx.CollectExactlyOneRow(
		rows, pgx.RowToAddrOfStructByName[GridSession],
	)
}

func (q *Queries) FetchGridSession(ctx context.Context, gridSessionID int64) (*GridSession, error) {
	rows, _ := q.db.Query(
		ctx,
		"SELECT * FROM grid_session WHERE grid_session_id = $1",
		gridSessionID,
	)
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[GridSession])
}

// UpdateGridSession stores grid only if the session is still at version,
// bumping the version. It returns [ErrStaleSession] when another writer got
// there first.
func (q *Queries) UpdateGridSession(
	ctx context.Context, gridSessionID int64, version int32, grid *percolation.Grid,
) (*GridSession, error) {
	state, err := grid.MarshalBinary()
	if err != nil {
		return nil, err
	}
	rows, _ := q.db.Query(
		ctx,
		`UPDATE grid_session
		SET opened = @opened
			, percolates = @percolates
			, state = @state
			, version = version + 1
			, updated_at = now()
		WHERE grid_session_id = @grid_session_id
			AND version = @version
		RETURNING *;`,
		pgx.NamedArgs{
			"grid_session_id": gridSessionID,
			"version":         version,
			"opened":          grid.OpenedCount(),
			"percolates":      grid.Percolates(),
			"state":           state,
		},
	)
	session, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[GridSession])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaleSession
	}
	return session, err
}
