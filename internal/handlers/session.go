package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/percolation/internal/config"
	"github.com/vancomm/percolation/internal/middleware"
	"github.com/vancomm/percolation/internal/percolation"
	"github.com/vancomm/percolation/internal/repository"
)

type GridSessionStore interface {
	CreateGridSession(context.Context, *string, *percolation.Grid) (*repository.GridSession, error)
	FetchGridSession(context.Context, int64) (*repository.GridSession, error)
	UpdateGridSession(context.Context, int64, int32, *percolation.Grid) (*repository.GridSession, error)
}

// Attempts at applying a change before giving up on a session that keeps
// being modified underneath.
const maxUpdateAttempts = 5

var (
	errSessionBusy = errors.New("session is being modified concurrently, try again")
	errNotOwner    = errors.New("session belongs to another owner")
)

type SessionHandler struct {
	log    logrus.FieldLogger
	repo   GridSessionStore
	limits *config.Limits
	ws     *config.WebSocket
}

func NewSessionHandler(
	log logrus.FieldLogger,
	repo GridSessionStore,
	limits *config.Limits,
	ws *config.WebSocket,
) *SessionHandler {
	handler := &SessionHandler{
		log:    log,
		repo:   repo,
		limits: limits,
		ws:     ws,
	}
	return handler
}

func (h SessionHandler) NewSession(w http.ResponseWriter, r *http.Request) {
	var dto CreateSessionDTO
	if err := decoder.Decode(&dto, r.URL.Query()); err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}
	if err := validateN(dto.N, h.limits.MaxGrid); err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}

	grid, err := percolation.New(dto.N)
	if err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}

	session, err := h.repo.CreateGridSession(r.Context(), middleware.Owner(r.Context()), grid)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to create grid session")
		return
	}

	sendStatusJSONOrLog(w, h.log, http.StatusCreated, NewSessionDTO(session, grid))
}

func (h SessionHandler) reload(ctx context.Context, id int64) (
	*repository.GridSession, *percolation.Grid, error,
) {
	session, err := h.repo.FetchGridSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	grid, err := session.Grid()
	if err != nil {
		return nil, nil, fmt.Errorf("db returned invalid grid_session.state: %w", err)
	}
	return session, grid, nil
}

// load fetches the session named by the request path and decodes its grid.
// It writes the error response itself and returns ok == false on failure.
func (h SessionHandler) load(w http.ResponseWriter, r *http.Request) (
	session *repository.GridSession, grid *percolation.Grid, ok bool,
) {
	id, err := parseID(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return nil, nil, false
	}

	session, grid, err = h.reload(r.Context(), id)
	if err != nil {
		sendFetchError(w, h.log, "session", err)
		return nil, nil, false
	}

	return session, grid, true
}

// authorize allows changes to an owned session only by its owner.
// Sessions created anonymously are shared.
func (h SessionHandler) authorize(
	w http.ResponseWriter, r *http.Request, session *repository.GridSession,
) bool {
	if session.Owner == nil {
		return true
	}
	if owner := middleware.Owner(r.Context()); owner != nil && *owner == *session.Owner {
		return true
	}
	sendErrorOrLog(w, h.log, http.StatusForbidden, errNotOwner)
	return false
}

// update applies change to grid and stores the result if any site was
// opened. When another writer has stored a newer version meanwhile, the
// session is reloaded and change is applied again on top of it.
func (h SessionHandler) update(
	ctx context.Context,
	session *repository.GridSession,
	grid *percolation.Grid,
	change func(*percolation.Grid) error,
) (*repository.GridSession, *percolation.Grid, error) {
	for attempt := 1; ; attempt++ {
		opened := grid.OpenedCount()
		if err := change(grid); err != nil {
			return nil, nil, err
		}
		if grid.OpenedCount() == opened {
			return session, grid, nil
		}

		updated, err := h.repo.UpdateGridSession(ctx, session.GridSessionID, session.Version, grid)
		if err == nil {
			return updated, grid, nil
		}
		if !errors.Is(err, repository.ErrStaleSession) {
			return nil, nil, err
		}
		if attempt == maxUpdateAttempts {
			return nil, nil, errSessionBusy
		}

		h.log.WithField("session_id", session.GridSessionID).Debug("stale session, retrying")
		if session, grid, err = h.reload(ctx, session.GridSessionID); err != nil {
			return nil, nil, err
		}
	}
}

func (h SessionHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	session, grid, ok := h.load(w, r)
	if !ok {
		return
	}
	sendJSONOrLog(w, h.log, NewSessionDTO(session, grid))
}

func (h SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	pos, err := ParsePosition(r.URL.Query())
	if err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}

	session, grid, ok := h.load(w, r)
	if !ok || !h.authorize(w, r, session) {
		return
	}

	session, grid, err = h.update(r.Context(), session, grid, func(g *percolation.Grid) error {
		return g.Open(pos.Row, pos.Col)
	})
	switch {
	case errors.Is(err, percolation.ErrIndexOutOfRange):
		sendErrorOrLog(w, h.log, http.StatusUnprocessableEntity, err)
		return
	case errors.Is(err, errSessionBusy):
		sendErrorOrLog(w, h.log, http.StatusConflict, err)
		return
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to open site")
		return
	}

	sendJSONOrLog(w, h.log, NewSessionDTO(session, grid))
}
