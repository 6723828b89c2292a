// Package middleware provides HTTP middleware for session authentication,
// request IDs, and rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"s3bridge/internal/domain"
	"s3bridge/internal/midway"
)

type principalKey struct{}

// WithPrincipal stores the caller identity in the context.
func WithPrincipal(ctx context.Context, caller domain.CallerIdentity) context.Context {
	return context.WithValue(ctx, principalKey{}, caller)
}

// PrincipalFromContext extracts the caller identity from the context.
func PrincipalFromContext(ctx context.Context) (domain.CallerIdentity, bool) {
	caller, ok := ctx.Value(principalKey{}).(domain.CallerIdentity)
	return caller, ok
}

// MidwayAuth authenticates requests from their session cookie. The extracted
// caller identity is stored in the request context; callers on the global
// deny-list are rejected here, before any service-level checks run.
func MidwayAuth(extractor *midway.Extractor, policy *domain.AuthorizationPolicy, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := extractor.Extract(r.Header.Get("Cookie"))
			if err != nil {
				logger.Info("authentication failed", "path", r.URL.Path, "error", err)
				writeUnauthorized(w)
				return
			}

			if policy.Denied(caller) {
				logger.Info("denied caller rejected", "path", r.URL.Path, "user", caller)
				writeForbidden(w, caller)
				return
			}

			ctx := WithPrincipal(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "Unauthorized - Missing required Midway cookies",
	})
}

func writeForbidden(w http.ResponseWriter, caller domain.CallerIdentity) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "User " + caller.String() + " access restricted",
	})
}
