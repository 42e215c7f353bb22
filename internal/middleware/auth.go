package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/percolation/internal/config"
)

type CtxKey int

const (
	CtxOwnerClaims CtxKey = iota
)

// Auth attaches verified owner claims to the request context. Requests
// without a token pass through anonymously; a token that fails
// verification is rejected. A nil j disables authentication.
func Auth(log logrus.FieldLogger, j *config.JWT) Middleware {
	return func(h http.Handler) http.Handler {
		if j == nil {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				h.ServeHTTP(w, r)
				return
			}
			claims, err := j.ParseOwnerClaims(token)
			if err != nil {
				log.WithError(err).Debug("rejected bearer token")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), CtxOwnerClaims, claims)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Owner returns the authenticated owner, if any.
func Owner(ctx context.Context) *string {
	claims, ok := ctx.Value(CtxOwnerClaims).(*config.OwnerClaims)
	if !ok {
		return nil
	}
	return &claims.Owner
}
