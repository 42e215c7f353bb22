package app

import (
	"github.com/vancomm/percolation/internal/handlers"
	"github.com/vancomm/percolation/internal/repository"
)

func (a *App) loadRoutes() {
	repo := repository.New(a.db)

	experiment := handlers.NewExperimentHandler(a.log, repo, a.limits)
	session := handlers.NewSessionHandler(a.log, repo, a.limits, a.ws)

	a.router.HandleFunc("POST /experiment", experiment.NewExperiment)
	a.router.HandleFunc("GET /experiment/{id}", experiment.Fetch)
	a.router.HandleFunc("GET /experiments", experiment.List)

	a.router.HandleFunc("POST /session", session.NewSession)
	a.router.HandleFunc("GET /session/{id}", session.Fetch)
	a.router.HandleFunc("POST /session/{id}/open", session.Open)
	a.router.HandleFunc("/session/{id}/connect", session.ConnectWS)
}
