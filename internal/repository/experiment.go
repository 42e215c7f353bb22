package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vancomm/percolation/internal/stats"
)

type Experiment struct {
	ExperimentID int64     `db:"experiment_id"`
	Label        *string   `db:"label"`
	Owner        *string   `db:"owner"`
	N            int32     `db:"n"`
	Trials       int32     `db:"trials"`
	Workers      int32     `db:"workers"`
	Seed         int64     `db:"seed"`
	Mean         *float64  `db:"mean"`
	Stddev       *float64  `db:"stddev"`
	ConfidenceLo *float64  `db:"confidence_lo"`
	ConfidenceHi *float64  `db:"confidence_hi"`
	Thresholds   []float64 `db:"thresholds"`
	ElapsedMs    int64     `db:"elapsed_ms"`
	CreatedAt    time.Time `db:"created_at"`
}

type CreateExperimentParams struct {
	Label  *string
	Owner  *string
	Result *stats.Result
}

func (q *Queries) CreateExperiment(
	ctx context.Context, params CreateExperimentParams,
) (*Experiment, error) {
	report := params.Result.Report()
	thresholds := params.Result.Thresholds
	if thresholds == nil {
		thresholds = []float64{}
	}
	rows, _ := q.db.Query(
		ctx,
		`INSERT INTO experiment (
			label, owner, n, trials, workers, seed,
			mean, stddev, confidence_lo, confidence_hi, thresholds, elapsed_ms
		)
		VALUES (
			@label, @owner, @n, @trials, @workers, @seed,
			@mean, @stddev, @confidence_lo, @confidence_hi, @thresholds, @elapsed_ms
		)
		RETURNING *;`,
		pgx.NamedArgs{
			"label":         params.Label,
			"owner":         params.Owner,
			"n":             report.N,
			"trials":        report.Trials,
			"workers":       report.Workers,
			"seed":          int64(report.Seed), // stored bit-for-bit
			"mean":          report.Mean,
			"stddev":        report.Stddev,
			"confidence_lo": report.ConfidenceLo,
			"confidence_hi": report.ConfidenceHi,
			"thresholds":    thresholds,
			"elapsed_ms":    report.ElapsedMs,
		},
	)
	experiment, err := pgx.CollectExactlyOneRow(
		rows, pgx.RowToAddrOfStructByName[Experiment],
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return nil, ErrDuplicateLabel
	}
	return experiment, err
}

func (q *Queries) FetchExperiment(ctx context.Context, experimentID int64) (*Experiment, error) {
	rows, _ := q.db.Query(
		ctx,
		"SELECT * FROM experiment WHERE experiment_id = $1",
		experimentID,
	)
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Experiment])
}

type ExperimentFilter struct {
	N     *int
	Owner *string
	Limit int
}

func (f ExperimentFilter) WhereClause() (string, pgx.NamedArgs) {
	clauses := make([]string, 0)
	args := pgx.NamedArgs{}
	if f.N != nil {
		clauses = append(clauses, "n = @n")
		args["n"] = *f.N
	}
	if f.Owner != nil {
		clauses = append(clauses, "owner = @owner")
		args["owner"] = *f.Owner
	}
	return strings.Join(clauses, " AND "), args
}

func (q *Queries) ListExperiments(
	ctx context.Context, filter ExperimentFilter,
) ([]Experiment, error) {
	query := "SELECT * FROM experiment"

	whereClause, args := filter.WhereClause()
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	query += " ORDER BY created_at DESC, experiment_id DESC"

	if filter.Limit > 0 {
		query += " LIMIT @limit"
		args["limit"] = filter.Limit
	}

	rows, err := q.db.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Experiment])
}
