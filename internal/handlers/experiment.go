package handlers

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/percolation/internal/config"
	"github.com/vancomm/percolation/internal/middleware"
	"github.com/vancomm/percolation/internal/repository"
	"github.com/vancomm/percolation/internal/stats"
)

type ExperimentStore interface {
	CreateExperiment(context.Context, repository.CreateExperimentParams) (*repository.Experiment, error)
	FetchExperiment(context.Context, int64) (*repository.Experiment, error)
	ListExperiments(context.Context, repository.ExperimentFilter) ([]repository.Experiment, error)
}

type ExperimentHandler struct {
	log    logrus.FieldLogger
	repo   ExperimentStore
	limits *config.Limits
	seed   func() uint64
}

func NewExperimentHandler(
	log logrus.FieldLogger,
	repo ExperimentStore,
	limits *config.Limits,
) *ExperimentHandler {
	handler := &ExperimentHandler{
		log:    log,
		repo:   repo,
		limits: limits,
		seed:   rand.Uint64,
	}
	return handler
}

func (h ExperimentHandler) NewExperiment(w http.ResponseWriter, r *http.Request) {
	dto, err := ParseCreateExperimentDTO(r.URL.Query())
	if err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}
	if err := dto.Validate(h.limits); err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}

	params := stats.Params{
		N:       dto.N,
		Trials:  dto.Trials,
		Workers: dto.Workers,
	}
	if dto.Seed != nil {
		params.Seed = *dto.Seed
	} else {
		params.Seed = h.seed()
	}

	log := h.log.WithFields(logrus.Fields{
		"n":      params.N,
		"trials": params.Trials,
		"seed":   params.Seed,
	})
	log.Debug("running experiment")

	result, err := stats.Run(r.Context(), params)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("experiment abandoned by client")
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		log.WithError(err).Error("experiment failed")
		return
	}

	create := repository.CreateExperimentParams{
		Owner:  middleware.Owner(r.Context()),
		Result: result,
	}
	if dto.Label != "" {
		create.Label = &dto.Label
	}

	experiment, err := h.repo.CreateExperiment(r.Context(), create)
	if errors.Is(err, repository.ErrDuplicateLabel) {
		sendErrorOrLog(w, h.log, http.StatusConflict, err)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.WithError(err).Error("unable to store experiment")
		return
	}

	sendStatusJSONOrLog(w, h.log, http.StatusCreated, NewExperimentDTO(experiment, true))
}

func (h ExperimentHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	experiment, err := h.repo.FetchExperiment(r.Context(), id)
	if err != nil {
		sendFetchError(w, h.log, "experiment", err)
		return
	}

	sendJSONOrLog(w, h.log, NewExperimentDTO(experiment, true))
}

func (h ExperimentHandler) List(w http.ResponseWriter, r *http.Request) {
	var dto ListExperimentsDTO
	if err := decoder.Decode(&dto, r.URL.Query()); err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}
	if dto.Limit <= 0 || dto.Limit > 100 {
		dto.Limit = 100
	}

	experiments, err := h.repo.ListExperiments(r.Context(), repository.ExperimentFilter{
		N:     dto.N,
		Owner: dto.Owner,
		Limit: dto.Limit,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to list experiments")
		return
	}

	dtos := make([]*ExperimentDTO, 0, len(experiments))
	for i := range experiments {
		dtos = append(dtos, NewExperimentDTO(&experiments[i], false))
	}
	sendJSONOrLog(w, h.log, dtos)
}
