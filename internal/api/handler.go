// Package api provides the HTTP handlers for the credential broker.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"s3bridge/internal/authz"
	"s3bridge/internal/credcache"
	"s3bridge/internal/domain"
	"s3bridge/internal/exchange"
	"s3bridge/internal/middleware"
	"s3bridge/internal/registry"
)

// RoleExchanger trades a role identifier for a credential triple.
type RoleExchanger interface {
	Exchange(ctx context.Context, roleARN, serviceName string, durationSeconds int32) (domain.CredentialTriple, error)
}

// Handler serves the credential-issuing request path.
type Handler struct {
	gate      *authz.Gate
	reg       registry.Lookup
	cache     *credcache.Cache
	exchanger RoleExchanger
	timeout   time.Duration
	logger    *slog.Logger
}

// NewHandler creates a Handler with its collaborators.
func NewHandler(gate *authz.Gate, reg registry.Lookup, cache *credcache.Cache, exchanger RoleExchanger, timeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		gate:      gate,
		reg:       reg,
		cache:     cache,
		exchanger: exchanger,
		timeout:   timeout,
		logger:    logger,
	}
}

// credentialResponse is the success body of GET /credentials.
type credentialResponse struct {
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken"`
	Expiration      string `json:"Expiration"`
}

// GetCredentials handles GET /credentials?service=<name>&duration=<seconds>.
// The caller identity is taken from the request context, set by the session
// auth middleware.
func (h *Handler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrMissingAuthArtifacts("missing required session cookies"))
		return
	}

	serviceName := r.URL.Query().Get("service")
	duration := int32(exchange.MaxDurationSeconds)
	if v := r.URL.Query().Get("duration"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, domain.ErrMissingServiceParameter("invalid duration parameter"))
			return
		}
		duration = int32(n)
	}

	decision := h.gate.Authorize(caller, serviceName, h.reg)
	if !decision.Allow {
		h.logger.Info("credential request refused",
			"user", caller, "service", serviceName, "reason", decision.Reason)
		writeError(w, decision.Reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	triple, err := h.cache.GetOrRefresh(ctx, serviceName, func(ctx context.Context) (domain.CredentialTriple, error) {
		return h.exchanger.Exchange(ctx, decision.RoleARN, serviceName, duration)
	})
	if err != nil {
		var exchangeErr *domain.ExchangeError
		if !errors.As(err, &exchangeErr) {
			// Timeouts and other non-domain failures surface as exchange failures.
			err = domain.ErrExchange(0, "%v", err)
		}
		h.logger.Error("credential exchange failed",
			"user", caller, "service", serviceName, "error", err)
		writeError(w, err)
		return
	}

	h.logger.Info("credentials issued",
		"user", caller, "service", serviceName, "expires", triple.Expiration)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(credentialResponse{
		AccessKeyID:     triple.AccessKeyID,
		SecretAccessKey: triple.SecretAccessKey,
		SessionToken:    triple.SessionToken,
		Expiration:      triple.Expiration.UTC().Format(time.RFC3339),
	})
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
