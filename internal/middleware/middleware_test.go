package middleware_test

import (
	"crypto/rand"
	"crypto/rsa"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vancomm/percolation/internal/config"
	"github.com/vancomm/percolation/internal/middleware"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if owner := middleware.Owner(r.Context()); owner != nil {
			io.WriteString(w, *owner)
			return
		}
		io.WriteString(w, "anonymous")
	})
}

func TestWrapOrder(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Middleware {
		return func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				h.ServeHTTP(w, r)
			})
		}
	}
	h := middleware.Wrap(http.NotFoundHandler(), mw("inner"), mw("outer"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestAuth(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	j := config.NewJWTFromKeys(key, &key.PublicKey)
	token, err := j.Sign(config.NewOwnerClaims("alice", time.Minute))
	require.NoError(t, err)

	h := middleware.Wrap(ownerEcho(), middleware.Auth(quietLogger(), j))

	testCases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusOK, "anonymous"},
		{"valid token", "Bearer " + token, http.StatusOK, "alice"},
		{"bad token", "Bearer garbage", http.StatusUnauthorized, ""},
		{"other scheme", "Basic abc", http.StatusOK, "anonymous"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
		})
	}
}

func TestAuthDisabled(t *testing.T) {
	h := middleware.Wrap(ownerEcho(), middleware.Auth(quietLogger(), nil))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "anonymous", w.Body.String())
}

func TestLoggingRecordsStatus(t *testing.T) {
	log, hook := test.NewNullLogger()

	h := middleware.Wrap(http.NotFoundHandler(), middleware.Logging(log))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, "handled request", entry.Message)
	assert.Equal(t, http.StatusNotFound, entry.Data["status_code"])
	assert.Equal(t, "/nope", entry.Data["uri"])
}
