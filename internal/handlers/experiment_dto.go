package handlers

import (
	"fmt"
	"strconv"

	"github.com/vancomm/percolation/internal/config"
	"github.com/vancomm/percolation/internal/repository"
	"github.com/vancomm/percolation/internal/stats"
)

const maxWorkers = 64

type CreateExperimentDTO struct {
	N       int     `schema:"n,required"`
	Trials  int     `schema:"trials,required"`
	Workers int     `schema:"workers"`
	Seed    *uint64 `schema:"seed"`
	Label   string  `schema:"label"`
}

func ParseCreateExperimentDTO(src map[string][]string) (CreateExperimentDTO, error) {
	var dto CreateExperimentDTO
	err := decoder.Decode(&dto, src)
	return dto, err
}

func (dto CreateExperimentDTO) Validate(limits *config.Limits) error {
	if dto.N < 1 || dto.N > limits.MaxGrid {
		return fmt.Errorf("n must be in [1, %d]", limits.MaxGrid)
	}
	if dto.Trials < 1 || dto.Trials > limits.MaxTrials {
		return fmt.Errorf("trials must be in [1, %d]", limits.MaxTrials)
	}
	if dto.Workers < 0 || dto.Workers > maxWorkers {
		return fmt.Errorf("workers must be in [0, %d]", maxWorkers)
	}
	return nil
}

type ListExperimentsDTO struct {
	N     *int    `schema:"n"`
	Owner *string `schema:"owner"`
	Limit int     `schema:"limit"`
}

type ExperimentDTO struct {
	ExperimentID string  `json:"experiment_id"`
	Label        *string `json:"label,omitempty"`
	Owner        *string `json:"owner,omitempty"`
	stats.Report
	Thresholds []float64 `json:"thresholds,omitempty"`
	CreatedAt  int64     `json:"created_at"`
}

func NewExperimentDTO(e *repository.Experiment, withThresholds bool) *ExperimentDTO {
	dto := &ExperimentDTO{
		ExperimentID: strconv.FormatInt(e.ExperimentID, 10),
		Label:        e.Label,
		Owner:        e.Owner,
		Report: stats.Report{
			N:            int(e.N),
			Trials:       int(e.Trials),
			Workers:      int(e.Workers),
			Seed:         uint64(e.Seed),
			Mean:         e.Mean,
			Stddev:       e.Stddev,
			ConfidenceLo: e.ConfidenceLo,
			ConfidenceHi: e.ConfidenceHi,
			ElapsedMs:    e.ElapsedMs,
		},
		CreatedAt: e.CreatedAt.UnixMilli(),
	}
	if withThresholds {
		dto.Thresholds = e.Thresholds
	}
	return dto
}
