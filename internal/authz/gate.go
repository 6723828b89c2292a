// Package authz decides whether a caller may obtain credentials for a
// service, and which role the exchange should target.
package authz

import (
	"s3bridge/internal/domain"
	"s3bridge/internal/registry"
)

// Gate maps a caller and a requested service to an authorization decision.
// It is pure: the only inputs are the caller, the service name, the registry
// lookup, and the injected authorization policy.
type Gate struct {
	policy *domain.AuthorizationPolicy
}

// NewGate creates a Gate with the given policy.
func NewGate(policy *domain.AuthorizationPolicy) *Gate {
	return &Gate{policy: policy}
}

// Authorize resolves the requested service and checks the caller against the
// service allow-list and the global deny-list. The deny-list applies to every
// service, including the synthesized universal one - choosing an unrestricted
// service does not bypass it.
func (g *Gate) Authorize(caller domain.CallerIdentity, serviceName string, lookup registry.Lookup) domain.AuthorizationDecision {
	if serviceName == "" {
		return deny(domain.ErrMissingServiceParameter("service parameter required"))
	}

	reg := lookup.Resolve(serviceName)
	if reg == nil {
		return deny(domain.ErrUnknownService("Unknown service: %s", serviceName))
	}

	if !reg.Allows(caller) {
		return deny(domain.ErrNotAuthorized("User %s not authorized for service %s", caller, serviceName))
	}

	if g.policy.Denied(caller) {
		return deny(domain.ErrDenied("User %s access restricted", caller))
	}

	return domain.AuthorizationDecision{Allow: true, RoleARN: reg.RoleARN}
}

func deny(reason error) domain.AuthorizationDecision {
	return domain.AuthorizationDecision{Allow: false, Reason: reason}
}
