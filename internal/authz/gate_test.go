package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3bridge/internal/domain"
	"s3bridge/internal/registry"
)

func testRegistry() registry.Lookup {
	return registry.New(func() map[string]string {
		return map[string]string{
			"ADMIN_USERNAME":     "admin_user",
			"AWS_ACCOUNT_ID":     "123456789012",
			"SERVICE_OPEN":       `{"role": "arn:open-role"}`,
			"SERVICE_RESTRICTED": `{"role": "arn:restricted-role", "restricted_users": ["alice"]}`,
		}
	}, nil)
}

func TestAuthorizeMissingService(t *testing.T) {
	gate := NewGate(&domain.AuthorizationPolicy{})

	d := gate.Authorize("alice", "", testRegistry())
	assert.False(t, d.Allow)
	var missing *domain.MissingServiceParameterError
	assert.ErrorAs(t, d.Reason, &missing)
}

func TestAuthorizeUnknownService(t *testing.T) {
	gate := NewGate(&domain.AuthorizationPolicy{})

	d := gate.Authorize("alice", "nosuch", testRegistry())
	assert.False(t, d.Allow)
	var unknown *domain.UnknownServiceError
	require.ErrorAs(t, d.Reason, &unknown)
	assert.Equal(t, "Unknown service: nosuch", d.Reason.Error())
}

func TestAuthorizeRestrictedService(t *testing.T) {
	gate := NewGate(&domain.AuthorizationPolicy{})
	reg := testRegistry()

	d := gate.Authorize("bob", "restricted", reg)
	assert.False(t, d.Allow)
	var notAuthorized *domain.NotAuthorizedError
	require.ErrorAs(t, d.Reason, &notAuthorized)
	assert.Equal(t, "User bob not authorized for service restricted", d.Reason.Error())

	d = gate.Authorize("alice", "restricted", reg)
	assert.True(t, d.Allow)
	assert.Equal(t, "arn:restricted-role", d.RoleARN)
	assert.NoError(t, d.Reason)
}

func TestAuthorizeUnrestrictedServiceAllowsAnyone(t *testing.T) {
	gate := NewGate(&domain.AuthorizationPolicy{})
	reg := testRegistry()

	for _, caller := range []domain.CallerIdentity{"alice", "bob", domain.AuthenticatedUser} {
		d := gate.Authorize(caller, "open", reg)
		assert.True(t, d.Allow, "caller %s", caller)
		assert.Equal(t, "arn:open-role", d.RoleARN)
	}
}

func TestAuthorizeGlobalDenyList(t *testing.T) {
	gate := NewGate(&domain.AuthorizationPolicy{
		DenyList: []string{"test_user"},
	})
	reg := testRegistry()

	// Denied even on an unrestricted service.
	d := gate.Authorize("test_user", "open", reg)
	assert.False(t, d.Allow)
	var denied *domain.DeniedError
	assert.ErrorAs(t, d.Reason, &denied)
}

func TestAuthorizeDenyListAppliesToUniversal(t *testing.T) {
	// The universal registration restricts to the admin; a deny-listed admin
	// must still be refused.
	gate := NewGate(&domain.AuthorizationPolicy{
		DenyList: []string{"admin_user"},
	})

	d := gate.Authorize("admin_user", registry.UniversalService, testRegistry())
	assert.False(t, d.Allow)
	var denied *domain.DeniedError
	assert.ErrorAs(t, d.Reason, &denied)
}

func TestAuthorizeUniversalAdminOnly(t *testing.T) {
	gate := NewGate(&domain.AuthorizationPolicy{})
	reg := testRegistry()

	d := gate.Authorize("admin_user", registry.UniversalService, reg)
	assert.True(t, d.Allow)

	d = gate.Authorize("alice", registry.UniversalService, reg)
	assert.False(t, d.Allow)
	var notAuthorized *domain.NotAuthorizedError
	assert.ErrorAs(t, d.Reason, &notAuthorized)
}
