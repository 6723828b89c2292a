// Package registry maps service names to their registrations, sourced from
// an externally managed key/value configuration snapshot.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"s3bridge/internal/domain"
)

const (
	// KeyPrefix marks registry entries in the configuration snapshot. The
	// key suffix, lowercased, is the service name; the value is the
	// JSON-encoded registration.
	KeyPrefix = "SERVICE_"

	// UniversalService is the synthesized admin-only registration that
	// exists whenever an admin identity is configured.
	UniversalService = "universal"

	adminKey   = "ADMIN_USERNAME"
	accountKey = "AWS_ACCOUNT_ID"
)

// Lookup resolves service registrations at request time. Implementations are
// read-only from the broker's perspective; the registry contents are managed
// by an out-of-core surface.
type Lookup interface {
	Resolve(name string) *domain.ServiceRegistration
	List() []*domain.ServiceRegistration
}

// SnapshotFunc returns the current key/value configuration snapshot.
type SnapshotFunc func() map[string]string

// EnvRegistry reads registrations from a configuration snapshot. The
// snapshot is re-read on every lookup: the admin identity and the service
// set are both mutable configuration, so nothing is cached across lookups.
type EnvRegistry struct {
	snapshot SnapshotFunc
	logger   *slog.Logger
}

// New creates an EnvRegistry over the given snapshot source.
func New(snapshot SnapshotFunc, logger *slog.Logger) *EnvRegistry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EnvRegistry{snapshot: snapshot, logger: logger}
}

// Resolve returns the registration for the named service, or nil when the
// service is unknown.
func (r *EnvRegistry) Resolve(name string) *domain.ServiceRegistration {
	return r.build()[name]
}

// List returns all current registrations sorted by name.
func (r *EnvRegistry) List() []*domain.ServiceRegistration {
	all := r.build()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*domain.ServiceRegistration, 0, len(all))
	for _, name := range names {
		out = append(out, all[name])
	}
	return out
}

// build assembles the full registration map from a fresh snapshot. The
// universal entry is synthesized first so that an explicit SERVICE_UNIVERSAL
// key can still override it.
func (r *EnvRegistry) build() map[string]*domain.ServiceRegistration {
	snap := r.snapshot()
	services := make(map[string]*domain.ServiceRegistration)

	if admin := snap[adminKey]; admin != "" {
		services[UniversalService] = &domain.ServiceRegistration{
			Name:            UniversalService,
			RoleARN:         universalRoleARN(snap[accountKey]),
			BucketPatterns:  []string{"*"},
			RestrictedUsers: []string{admin},
		}
	}

	for key, value := range snap {
		if !strings.HasPrefix(key, KeyPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, KeyPrefix))
		if name == "" {
			continue
		}
		reg := &domain.ServiceRegistration{}
		if err := json.Unmarshal([]byte(value), reg); err != nil {
			r.logger.Warn("skipping malformed service registration", "key", key, "error", err)
			continue
		}
		reg.Name = name
		services[name] = reg
	}

	return services
}

func universalRoleARN(accountID string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/service-role/universal-s3-access-role", accountID)
}
