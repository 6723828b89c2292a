// Package domain defines core types and errors for the credential broker.
package domain

import "time"

// AuthenticatedUser is the sentinel identity for a caller whose session
// artifact proves authentication but whose username could not be resolved.
const AuthenticatedUser = "authenticated_user"

// CallerIdentity is the resolved principal string for a request. It is either
// a concrete username extracted verbatim from the session artifact, or the
// AuthenticatedUser sentinel.
type CallerIdentity string

// String returns the identity as a plain string.
func (c CallerIdentity) String() string { return string(c) }

// ServiceRegistration binds a service name to an IAM role and an optional
// caller allow-list. RestrictedUsers nil means the service is open to any
// authenticated caller; a non-nil (even empty) slice means allow-list.
type ServiceRegistration struct {
	Name            string   `json:"-"`
	RoleARN         string   `json:"role"`
	BucketPatterns  []string `json:"buckets,omitempty"`
	RestrictedUsers []string `json:"restricted_users,omitempty"`
}

// Restricted reports whether the registration carries an explicit allow-list.
func (r *ServiceRegistration) Restricted() bool { return r.RestrictedUsers != nil }

// Allows reports whether the caller passes the registration's allow-list.
// Unrestricted registrations allow everyone.
func (r *ServiceRegistration) Allows(caller CallerIdentity) bool {
	if !r.Restricted() {
		return true
	}
	for _, u := range r.RestrictedUsers {
		if u == caller.String() {
			return true
		}
	}
	return false
}

// CredentialTriple is a short-lived credential set obtained from a role
// exchange. Immutable once created; a refresh produces a new triple.
type CredentialTriple struct {
	AccessKeyID     string    `json:"AccessKeyId"`
	SecretAccessKey string    `json:"SecretAccessKey"`
	SessionToken    string    `json:"SessionToken"`
	Expiration      time.Time `json:"Expiration"`
}

// AuthorizationDecision is the outcome of the authorization gate for one
// request. Reason is nil when Allow is true.
type AuthorizationDecision struct {
	Allow   bool
	RoleARN string
	Reason  error
}

// AuthorizationPolicy holds operationally configured authorization rules:
// the global deny-list and the legacy substring-to-identity fallback mapping
// used during session extraction. Both are injected configuration, never
// literals in code.
type AuthorizationPolicy struct {
	// DenyList members are refused regardless of per-service restrictions.
	DenyList []string
	// LegacyFallbacks maps a lowercase marker substring to a fixed identity.
	// When the decoded session marker value contains the substring and no
	// username could be extracted, the mapped identity is used. Kept only
	// for compatibility with pre-existing session formats.
	LegacyFallbacks map[string]string
}

// Denied reports whether the caller is on the global deny-list.
func (p *AuthorizationPolicy) Denied(caller CallerIdentity) bool {
	if p == nil {
		return false
	}
	for _, u := range p.DenyList {
		if u == caller.String() {
			return true
		}
	}
	return false
}
