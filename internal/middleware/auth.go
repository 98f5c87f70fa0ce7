package middleware

import (
	"net/http"
	"strings"

	"github.com/mjimenez-dev/casita/internal/auth"
	"github.com/mjimenez-dev/casita/internal/store"
)

// CookieName is the HTTP-only cookie carrying the access token for
// browser clients that cannot set an Authorization header.
const CookieName = "auth_token"

// RequireAuth validates the bearer token (Authorization header first,
// auth_token cookie as fallback), resolves the user, and populates
// auth.AuthContext. Disabled users are rejected even with a valid token.
func RequireAuth(tokens *auth.Tokens, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				unauthorized(w)
				return
			}

			username, err := tokens.Verify(tokenStr)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByUsername(username)
			if err != nil || user == nil || !user.Active {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:   user.ID,
				Username: user.Username,
				Role:     user.Role,
				FamilyID: user.FamilyID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":"unauthenticated","error":"could not validate credentials"}`))
}
