package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/kahawahub/kahawa/backend/internal/entity"
)

// TokenVerifier resolves a bearer token to the caller's identity. Token
// issuance and session management live in the auth service; this side
// only verifies.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (entity.Identity, error)
}

// StaticVerifier maps fixed tokens to identities. Development and test
// stand-in for the real auth service.
type StaticVerifier map[string]entity.Identity

func (v StaticVerifier) Verify(ctx context.Context, token string) (entity.Identity, error) {
	id, ok := v[token]
	if !ok {
		return entity.Identity{}, entity.ErrForbidden
	}
	return id, nil
}

type contextKey struct{}

var identityKey contextKey

// Authenticate extracts the bearer token, verifies it and stores the
// identity on the request context. Requests without a valid token get 401.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondMessage(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				respondMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}

func identityFrom(ctx context.Context) (entity.Identity, bool) {
	id, ok := ctx.Value(identityKey).(entity.Identity)
	return id, ok
}

// EnableCORS allows the storefront SPA to call the API from another
// origin.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
