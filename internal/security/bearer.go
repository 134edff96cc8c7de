package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/spacefoot/pricer/internal/common"
)

// BearerToken guards routes with a static shared token sent as
// "Authorization: Bearer <token>". An empty Token rejects every request.
type BearerToken struct {
	Token string
}

// Middleware rejects requests without the expected bearer token.
func (b BearerToken) Middleware(next http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(b.Token))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(expected) == 0 {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access disabled", nil)
			return
		}
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		scheme, token, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			w.Header().Set("WWW-Authenticate", `Bearer realm="pricer"`)
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), expected) != 1 {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
