package handlers_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vancomm/percolation/internal/config"
	"github.com/vancomm/percolation/internal/handlers"
	"github.com/vancomm/percolation/internal/middleware"
)

type sessionAndExperimentStore interface {
	handlers.ExperimentStore
	handlers.GridSessionStore
}

var (
	jwtOnce sync.Once
	testJWT *config.JWT
)

func signer() *config.JWT {
	jwtOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testJWT = config.NewJWTFromKeys(key, &key.PublicKey)
	})
	return testJWT
}

func bearer(t *testing.T, owner string) string {
	t.Helper()
	token, err := signer().Sign(config.NewOwnerClaims(owner, time.Minute))
	require.NoError(t, err)
	return token
}

func newServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()
	store := newMemStore()
	return serve(t, store), store
}

func serve(t *testing.T, store sessionAndExperimentStore) *httptest.Server {
	t.Helper()
	log, _ := test.NewNullLogger()
	limits := &config.Limits{MaxGrid: 32, MaxTrials: 100}
	ws, err := config.NewWebSocket()
	require.NoError(t, err)

	experiment := handlers.NewExperimentHandler(log, store, limits)
	session := handlers.NewSessionHandler(log, store, limits, ws)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /experiment", experiment.NewExperiment)
	mux.HandleFunc("GET /experiment/{id}", experiment.Fetch)
	mux.HandleFunc("GET /experiments", experiment.List)
	mux.HandleFunc("POST /session", session.NewSession)
	mux.HandleFunc("GET /session/{id}", session.Fetch)
	mux.HandleFunc("POST /session/{id}/open", session.Open)
	mux.HandleFunc("/session/{id}/connect", session.ConnectWS)

	srv := httptest.NewServer(middleware.Wrap(mux, middleware.Auth(log, signer())))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, v any) int {
	t.Helper()
	return doAs(t, "", method, url, v)
}

// doAs sends the request with token as bearer, unless token is empty.
func doAs(t *testing.T, token, method, url string, v any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(v))
	}
	return res.StatusCode
}

func dialSession(t *testing.T, srv *httptest.Server, id string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/session/" + id + "/connect"
	c, res, err := websocket.DefaultDialer.Dial(url, header)
	if c != nil {
		t.Cleanup(func() { c.Close() })
	}
	return c, res, err
}

func TestNewExperiment(t *testing.T) {
	srv, _ := newServer(t)

	var dto handlers.ExperimentDTO
	status := do(t, http.MethodPost, srv.URL+"/experiment?n=8&trials=20&seed=3&label=first", &dto)
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, "1", dto.ExperimentID)
	assert.Equal(t, 8, dto.N)
	assert.Equal(t, 20, dto.Trials)
	assert.Equal(t, uint64(3), dto.Seed)
	assert.Len(t, dto.Thresholds, 20)
	require.NotNil(t, dto.Mean)
	assert.Greater(t, *dto.Mean, 0.0)
	assert.LessOrEqual(t, *dto.Mean, 1.0)
	require.NotNil(t, dto.Label)
	assert.Equal(t, "first", *dto.Label)

	var fetched handlers.ExperimentDTO
	status = do(t, http.MethodGet, srv.URL+"/experiment/1", &fetched)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, *dto.Mean, *fetched.Mean)
}

func TestNewExperimentSingleTrial(t *testing.T) {
	srv, _ := newServer(t)

	var dto handlers.ExperimentDTO
	status := do(t, http.MethodPost, srv.URL+"/experiment?n=4&trials=1", &dto)
	require.Equal(t, http.StatusCreated, status)
	assert.NotNil(t, dto.Mean)
	assert.Nil(t, dto.Stddev)
}

func TestNewExperimentRejected(t *testing.T) {
	srv, _ := newServer(t)

	testCases := []struct {
		name   string
		query  string
		status int
	}{
		{"missing trials", "n=4", http.StatusBadRequest},
		{"zero n", "n=0&trials=3", http.StatusBadRequest},
		{"grid too large", "n=33&trials=3", http.StatusBadRequest},
		{"too many trials", "n=4&trials=101", http.StatusBadRequest},
		{"negative workers", "n=4&trials=3&workers=-1", http.StatusBadRequest},
		{"not a number", "n=four&trials=3", http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]string
			status := do(t, http.MethodPost, srv.URL+"/experiment?"+tc.query, &body)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestNewExperimentDuplicateLabel(t *testing.T) {
	srv, _ := newServer(t)

	require.Equal(t, http.StatusCreated,
		do(t, http.MethodPost, srv.URL+"/experiment?n=3&trials=2&label=x", nil))
	assert.Equal(t, http.StatusConflict,
		do(t, http.MethodPost, srv.URL+"/experiment?n=3&trials=2&label=x", nil))
}

func TestFetchExperimentMissing(t *testing.T) {
	srv, _ := newServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/experiment/42", nil))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/experiment/abc", nil))
}

func TestListExperiments(t *testing.T) {
	srv, _ := newServer(t)

	for _, q := range []string{"n=3&trials=2", "n=5&trials=2", "n=3&trials=4"} {
		require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/experiment?"+q, nil))
	}

	var all []handlers.ExperimentDTO
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/experiments", &all))
	assert.Len(t, all, 3)
	assert.Empty(t, all[0].Thresholds)

	var threes []handlers.ExperimentDTO
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/experiments?n=3", &threes))
	require.Len(t, threes, 2)
	assert.Equal(t, 4, threes[0].Trials)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newServer(t)

	var dto handlers.SessionDTO
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?n=2", &dto))
	assert.Equal(t, "1", dto.SessionID)
	assert.Equal(t, []string{"##", "##"}, dto.Grid)
	assert.False(t, dto.Percolates)

	require.Equal(t, http.StatusOK,
		do(t, http.MethodPost, srv.URL+"/session/1/open?row=1&col=1", &dto))
	assert.Equal(t, 1, dto.Opened)
	assert.Equal(t, []string{"~#", "##"}, dto.Grid)

	require.Equal(t, http.StatusOK,
		do(t, http.MethodPost, srv.URL+"/session/1/open?row=2&col=1", &dto))
	assert.True(t, dto.Percolates)
	assert.Equal(t, 0.5, dto.Fraction)

	var fetched handlers.SessionDTO
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/session/1", &fetched))
	assert.Equal(t, []string{"~#", "~#"}, fetched.Grid)
	assert.True(t, fetched.Percolates)
}

func TestSessionErrors(t *testing.T) {
	srv, _ := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?n=2", nil))

	testCases := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"zero n", http.MethodPost, "/session?n=0", http.StatusBadRequest},
		{"missing n", http.MethodPost, "/session", http.StatusBadRequest},
		{"row out of range", http.MethodPost, "/session/1/open?row=3&col=1", http.StatusUnprocessableEntity},
		{"col zero", http.MethodPost, "/session/1/open?row=1&col=0", http.StatusUnprocessableEntity},
		{"missing col", http.MethodPost, "/session/1/open?row=1", http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/session/9", http.StatusNotFound},
		{"open unknown session", http.MethodPost, "/session/9/open?row=1&col=1", http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, do(t, tc.method, srv.URL+tc.path, nil))
		})
	}

	var dto handlers.SessionDTO
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/session/1", &dto))
	assert.Equal(t, 0, dto.Opened)
}

func TestSessionWebSocket(t *testing.T) {
	srv, store := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?n=3", nil))

	c, _, err := dialSession(t, srv, "1", nil)
	require.NoError(t, err)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("o 1 2\no 2 2")))
	var dto handlers.SessionDTO
	require.NoError(t, c.ReadJSON(&dto))
	assert.Equal(t, 2, dto.Opened)
	assert.False(t, dto.Percolates)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("o 4 2")))
	var errReply map[string]string
	require.NoError(t, c.ReadJSON(&errReply))
	assert.Contains(t, errReply["error"], "out of range")

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("x")))
	require.NoError(t, c.ReadJSON(&errReply))
	assert.Equal(t, "unknown command", errReply["error"])

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("o 3 2\ng")))
	require.NoError(t, c.ReadJSON(&dto))
	assert.True(t, dto.Percolates)
	assert.Equal(t, []string{"#~#", "#~#", "#~#"}, dto.Grid)

	stored, err := store.FetchGridSession(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, stored.Percolates)
	assert.Equal(t, int32(3), stored.Opened)
}

func TestSessionWebSocketSeesOtherWriters(t *testing.T) {
	srv, store := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?n=3", nil))

	c, _, err := dialSession(t, srv, "1", nil)
	require.NoError(t, err)

	// opened over HTTP while the socket is connected
	require.Equal(t, http.StatusOK,
		do(t, http.MethodPost, srv.URL+"/session/1/open?row=1&col=1", nil))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("o 2 2")))
	var dto handlers.SessionDTO
	require.NoError(t, c.ReadJSON(&dto))
	assert.Equal(t, 2, dto.Opened)
	assert.Equal(t, []string{"~##", "#.#", "###"}, dto.Grid)

	require.Equal(t, http.StatusOK,
		do(t, http.MethodPost, srv.URL+"/session/1/open?row=3&col=3", nil))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("g")))
	require.NoError(t, c.ReadJSON(&dto))
	assert.Equal(t, 3, dto.Opened)
	assert.Equal(t, []string{"~##", "#.#", "##."}, dto.Grid)

	stored, err := store.FetchGridSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), stored.Opened)
	grid, err := stored.Grid()
	require.NoError(t, err)
	for _, site := range [][2]int{{1, 1}, {2, 2}, {3, 3}} {
		open, err := grid.IsOpen(site[0], site[1])
		require.NoError(t, err)
		assert.True(t, open, "site %v", site)
	}
}

func TestOpenRetriesStaleUpdate(t *testing.T) {
	store := &racingStore{memStore: newMemStore(), races: 1, row: 1, col: 1}
	srv := serve(t, store)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?n=2", nil))

	var dto handlers.SessionDTO
	require.Equal(t, http.StatusOK,
		do(t, http.MethodPost, srv.URL+"/session/1/open?row=2&col=1", &dto))
	assert.Equal(t, 2, dto.Opened)
	assert.True(t, dto.Percolates)
	assert.Equal(t, []string{"~#", "~#"}, dto.Grid)
}

func TestOpenGivesUpWhenAlwaysStale(t *testing.T) {
	store := &racingStore{memStore: newMemStore(), races: 100, row: 1, col: 1}
	srv := serve(t, store)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?n=2", nil))

	var body map[string]string
	assert.Equal(t, http.StatusConflict,
		do(t, http.MethodPost, srv.URL+"/session/1/open?row=2&col=2", &body))
	assert.NotEmpty(t, body["error"])
}

func TestSessionOwner(t *testing.T) {
	srv, _ := newServer(t)
	alice, bob := bearer(t, "alice"), bearer(t, "bob")

	var dto handlers.SessionDTO
	require.Equal(t, http.StatusCreated,
		doAs(t, alice, http.MethodPost, srv.URL+"/session?n=2", &dto))
	require.NotNil(t, dto.Owner)
	assert.Equal(t, "alice", *dto.Owner)

	testCases := []struct {
		name   string
		token  string
		status int
	}{
		{"anonymous", "", http.StatusForbidden},
		{"other owner", bob, http.StatusForbidden},
		{"owner", alice, http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status,
				doAs(t, tc.token, http.MethodPost, srv.URL+"/session/1/open?row=1&col=1", nil))
		})
	}

	// reading is open to everyone
	assert.Equal(t, http.StatusOK, doAs(t, bob, http.MethodGet, srv.URL+"/session/1", nil))

	_, res, err := dialSession(t, srv, "1", http.Header{"Authorization": {"Bearer " + bob}})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	_, _, err = dialSession(t, srv, "1", http.Header{"Authorization": {"Bearer " + alice}})
	assert.NoError(t, err)

	// anonymous sessions are shared
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?n=2", nil))
	assert.Equal(t, http.StatusOK,
		doAs(t, bob, http.MethodPost, srv.URL+"/session/2/open?row=1&col=1", nil))
}
