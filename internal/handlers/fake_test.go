package handlers_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vancomm/percolation/internal/percolation"
	"github.com/vancomm/percolation/internal/repository"
)

// memStore is an in-memory stand-in for *repository.Queries.
type memStore struct {
	mu          sync.Mutex
	experiments []repository.Experiment
	sessions    map[int64]*repository.GridSession
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[int64]*repository.GridSession)}
}

func (m *memStore) CreateExperiment(
	_ context.Context, params repository.CreateExperimentParams,
) (*repository.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if params.Label != nil {
		for _, e := range m.experiments {
			if e.Label != nil && *e.Label == *params.Label {
				return nil, repository.ErrDuplicateLabel
			}
		}
	}
	report := params.Result.Report()
	e := repository.Experiment{
		ExperimentID: int64(len(m.experiments) + 1),
		Label:        params.Label,
		Owner:        params.Owner,
		N:            int32(report.N),
		Trials:       int32(report.Trials),
		Workers:      int32(report.Workers),
		Seed:         int64(report.Seed),
		Mean:         report.Mean,
		Stddev:       report.Stddev,
		ConfidenceLo: report.ConfidenceLo,
		ConfidenceHi: report.ConfidenceHi,
		Thresholds:   params.Result.Thresholds,
		ElapsedMs:    report.ElapsedMs,
		CreatedAt:    time.Now(),
	}
	m.experiments = append(m.experiments, e)
	return &e, nil
}

func (m *memStore) FetchExperiment(_ context.Context, id int64) (*repository.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.experiments {
		if e.ExperimentID == id {
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) ListExperiments(
	_ context.Context, filter repository.ExperimentFilter,
) ([]repository.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []repository.Experiment{}
	for i := len(m.experiments) - 1; i >= 0; i-- {
		e := m.experiments[i]
		if filter.N != nil && int(e.N) != *filter.N {
			continue
		}
		if filter.Owner != nil && (e.Owner == nil || *e.Owner != *filter.Owner) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) CreateGridSession(
	_ context.Context, owner *string, g *percolation.Grid,
) (*repository.GridSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, err := g.MarshalBinary()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s := &repository.GridSession{
		GridSessionID: int64(len(m.sessions) + 1),
		Owner:         owner,
		N:             int32(g.N()),
		State:         state,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.sessions[s.GridSessionID] = s
	copied := *s
	return &copied, nil
}

func (m *memStore) FetchGridSession(_ context.Context, id int64) (*repository.GridSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (m *memStore) UpdateGridSession(
	_ context.Context, id int64, version int32, g *percolation.Grid,
) (*repository.GridSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Version != version {
		return nil, repository.ErrStaleSession
	}
	state, err := g.MarshalBinary()
	if err != nil {
		return nil, err
	}
	s.State = state
	s.Opened = int32(g.OpenedCount())
	s.Percolates = g.Percolates()
	s.Version++
	s.UpdatedAt = time.Now()
	copied := *s
	return &copied, nil
}

// racingStore opens a site behind the caller's back right before each of
// its first races updates, so those updates find a newer version stored.
type racingStore struct {
	*memStore
	races int
	row   int
	col   int
}

func (m *racingStore) UpdateGridSession(
	ctx context.Context, id int64, version int32, g *percolation.Grid,
) (*repository.GridSession, error) {
	if m.races > 0 {
		m.races--
		current, err := m.FetchGridSession(ctx, id)
		if err != nil {
			return nil, err
		}
		other, err := current.Grid()
		if err != nil {
			return nil, err
		}
		if err := other.Open(m.row, m.col); err != nil {
			return nil, err
		}
		if _, err := m.memStore.UpdateGridSession(ctx, id, current.Version, other); err != nil {
			return nil, err
		}
	}
	return m.memStore.UpdateGridSession(ctx, id, version, g)
}
