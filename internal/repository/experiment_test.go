package repository

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestExperimentFilterWhereClause(t *testing.T) {
	n, owner := 64, "alice"
	testCases := []struct {
		name   string
		filter ExperimentFilter
		clause string
		args   pgx.NamedArgs
	}{
		{"empty", ExperimentFilter{}, "", pgx.NamedArgs{}},
		{"by n", ExperimentFilter{N: &n}, "n = @n", pgx.NamedArgs{"n": 64}},
		{
			"by n and owner",
			ExperimentFilter{N: &n, Owner: &owner, Limit: 5},
			"n = @n AND owner = @owner",
			pgx.NamedArgs{"n": 64, "owner": "alice"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clause, args := tc.filter.WhereClause()
			assert.Equal(t, tc.clause, clause)
			assert.Equal(t, tc.args, args)
		})
	}
}
