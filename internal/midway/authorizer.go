package midway

import (
	"errors"
	"log/slog"

	"s3bridge/internal/domain"
)

// ErrUnauthorized is returned for every authorizer failure. The caller
// translates it into a deny response; no detail is leaked to the client.
var ErrUnauthorized = errors.New("unauthorized")

// AuthorizerRequest is the gateway-style authorization handoff input.
type AuthorizerRequest struct {
	Headers   map[string]string
	MethodARN string
}

// PolicyStatement is one statement of a gateway invoke policy.
type PolicyStatement struct {
	Action   string `json:"Action"`
	Effect   string `json:"Effect"`
	Resource string `json:"Resource"`
}

// PolicyDocument is the policy attached to an authorizer response.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

// AuthorizerResponse is the allow policy handed back to the gateway. The
// userId context value is threaded into the credential request path as the
// caller identity.
type AuthorizerResponse struct {
	PrincipalID    string            `json:"principalId"`
	Context        map[string]string `json:"context"`
	PolicyDocument PolicyDocument    `json:"policyDocument"`
}

// Authorizer validates session artifacts ahead of the credential endpoint
// and produces gateway allow policies.
type Authorizer struct {
	extractor *Extractor
	policy    *domain.AuthorizationPolicy
	logger    *slog.Logger
}

// NewAuthorizer creates an Authorizer sharing the extractor's policy.
func NewAuthorizer(extractor *Extractor, policy *domain.AuthorizationPolicy, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Authorizer{extractor: extractor, policy: policy, logger: logger}
}

// Authorize extracts the caller identity from the request's cookie header,
// applies the global deny-list, and returns an allow policy scoped to the
// method ARN. Any failure yields ErrUnauthorized.
func (a *Authorizer) Authorize(req AuthorizerRequest) (*AuthorizerResponse, error) {
	raw := cookieHeader(req.Headers)
	caller, err := a.extractor.Extract(raw)
	if err != nil {
		a.logger.Info("authorizer rejected request", "reason", err)
		return nil, ErrUnauthorized
	}

	if a.policy.Denied(caller) {
		a.logger.Info("authorizer rejected denied caller", "user", caller)
		return nil, ErrUnauthorized
	}

	user := caller.String()
	return &AuthorizerResponse{
		PrincipalID: user,
		Context: map[string]string{
			"userId":    user,
			"stringKey": user,
		},
		PolicyDocument: PolicyDocument{
			Version: "2012-10-17",
			Statement: []PolicyStatement{
				{
					Action:   "execute-api:Invoke",
					Effect:   "Allow",
					Resource: req.MethodARN,
				},
			},
		},
	}, nil
}

// cookieHeader returns the cookie-bearing header value, accepting either
// header capitalisation.
func cookieHeader(headers map[string]string) string {
	if v := headers["Cookie"]; v != "" {
		return v
	}
	return headers["cookie"]
}
