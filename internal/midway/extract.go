// Package midway parses enterprise SSO session artifacts into caller
// identities and implements the gateway-style request authorizer.
package midway

import (
	"encoding/base64"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"s3bridge/internal/domain"
)

// Required cookie markers. Both must appear somewhere in the session blob or
// extraction fails outright.
const (
	identityMarker = "amazon_enterprise_access"
	sessionMarker  = "session"
)

// usernameField matches the identity field inside the decoded token payload.
var usernameField = regexp.MustCompile(`"logged_in_username"\s*:\s*"([^"]+)"`)

// Extractor resolves a caller identity from a raw session blob. Decode
// problems never surface as errors: they degrade through the configured
// legacy fallbacks down to the authenticated_user sentinel. The only hard
// failure is the absence of a required marker.
type Extractor struct {
	policy *domain.AuthorizationPolicy
	logger *slog.Logger
}

// NewExtractor creates an Extractor with the given authorization policy.
// A nil logger disables diagnostics.
func NewExtractor(policy *domain.AuthorizationPolicy, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{policy: policy, logger: logger}
}

// Extract parses the raw session blob and returns the caller identity.
// The blob is a cookie-style string of semicolon-delimited key=value
// segments. The signature of the embedded token is not verified here;
// session validity is an upstream concern.
func (e *Extractor) Extract(raw string) (domain.CallerIdentity, error) {
	if !strings.Contains(raw, identityMarker) || !strings.Contains(raw, sessionMarker) {
		return "", domain.ErrMissingAuthArtifacts("missing required session cookies")
	}

	e.logger.Debug("extracting identity", "blob_prefix", truncate(raw, 40))

	value, ok := markerValue(raw)
	if !ok {
		// Marker present as a substring but not as a parseable segment.
		return domain.AuthenticatedUser, nil
	}

	decoded, err := url.QueryUnescape(value)
	if err != nil {
		decoded = value
	}

	if username, ok := usernameFromToken(decoded); ok {
		e.logger.Debug("extracted identity from session token", "user", username)
		return domain.CallerIdentity(username), nil
	}

	// Legacy compatibility rule: a configured marker substring anywhere in
	// the decoded value maps to a fixed identity.
	if e.policy != nil {
		lower := strings.ToLower(decoded)
		for marker, identity := range e.policy.LegacyFallbacks {
			if strings.Contains(lower, marker) {
				e.logger.Debug("using legacy fallback identity", "user", identity)
				return domain.CallerIdentity(identity), nil
			}
		}
	}

	return domain.AuthenticatedUser, nil
}

// markerValue finds the cookie segment whose key is the identity marker and
// returns its value.
func markerValue(raw string) (string, bool) {
	for _, part := range strings.Split(raw, ";") {
		if !strings.Contains(part, identityMarker) {
			continue
		}
		if _, v, ok := strings.Cut(part, "="); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// usernameFromToken treats the value as a dot-separated header.payload.signature
// token and looks for the logged_in_username field in the payload. It first
// lets the JWT parser decode the claims without verifying the signature, then
// falls back to a raw base64 decode with '=' padding for payloads that are not
// strict JWT encoding.
func usernameFromToken(value string) (string, bool) {
	parts := strings.Split(value, ".")
	if len(parts) < 2 {
		return "", false
	}

	if len(parts) == 3 {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(value, claims); err == nil {
			if u, ok := claims["logged_in_username"].(string); ok && u != "" {
				return u, true
			}
		}
	}

	payload := parts[1]
	if n := len(payload) % 4; n != 0 {
		payload += strings.Repeat("=", 4-n)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	if m := usernameField.FindSubmatch(decoded); m != nil {
		return string(m[1]), true
	}
	return "", false
}

// truncate shortens sensitive values before they reach the log.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
