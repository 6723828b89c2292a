package s3bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokerStub struct {
	mu       sync.Mutex
	requests int
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (b *brokerStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests++
		b.mu.Unlock()
		b.respond(w, r)
	})
}

func (b *brokerStub) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

func credentialsJSON(expiry time.Time) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Credentials{
			AccessKeyID:     "AKIATEST",
			SecretAccessKey: "secret",
			SessionToken:    "token",
			Expiration:      expiry,
		})
	}
}

func newTestProvider(t *testing.T, broker *brokerStub, now func() time.Time) *AuthProvider {
	t.Helper()
	srv := httptest.NewServer(broker.handler())
	t.Cleanup(srv.Close)
	return NewAuthProvider("reports",
		WithDeployment(StaticEndpoint(srv.URL)),
		WithCookieSource(StaticCookieSource("amazon_enterprise_access=tok; session=abc")),
		WithClock(now),
	)
}

func TestGetCredentialsFetchesAndCaches(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := clock.Add(time.Hour)

	var sawCookie, sawQuery string
	broker := &brokerStub{}
	broker.respond = func(w http.ResponseWriter, r *http.Request) {
		sawCookie = r.Header.Get("Cookie")
		sawQuery = r.URL.RawQuery
		credentialsJSON(expiry)(w, r)
	}

	p := newTestProvider(t, broker, func() time.Time { return clock })

	creds, err := p.GetCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIATEST", creds.AccessKeyID)
	assert.Equal(t, expiry, creds.Expiration.UTC())
	assert.Equal(t, "amazon_enterprise_access=tok; session=abc", sawCookie)
	assert.Contains(t, sawQuery, "service=reports")
	assert.Contains(t, sawQuery, "duration=3600")

	// Cached while the expiry is still outside the safety margin.
	_, err = p.GetCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, broker.count())
}

func TestGetCredentialsRefreshesInsideMargin(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	broker := &brokerStub{}
	broker.respond = func(w http.ResponseWriter, r *http.Request) {
		credentialsJSON(clock.Add(time.Hour))(w, r)
	}

	p := newTestProvider(t, broker, func() time.Time { return clock })

	_, err := p.GetCredentials(context.Background())
	require.NoError(t, err)

	// 51 minutes later the triple is inside the 10 minute margin.
	clock = clock.Add(51 * time.Minute)
	_, err = p.GetCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, broker.count())
}

func TestInvalidateForcesFetch(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	broker := &brokerStub{respond: credentialsJSON(clock.Add(time.Hour))}

	p := newTestProvider(t, broker, func() time.Time { return clock })

	_, err := p.GetCredentials(context.Background())
	require.NoError(t, err)
	p.Invalidate()
	_, err = p.GetCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, broker.count())
}

func TestGetCredentialsBrokerError(t *testing.T) {
	broker := &brokerStub{}
	broker.respond = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "User mallory access restricted"})
	}

	p := newTestProvider(t, broker, time.Now)

	_, err := p.GetCredentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential service failed with status 403")
	assert.Contains(t, err.Error(), "User mallory access restricted")
}

func TestRetrieveImplementsProvider(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := clock.Add(time.Hour)
	broker := &brokerStub{respond: credentialsJSON(expiry)}

	p := newTestProvider(t, broker, func() time.Time { return clock })

	creds, err := p.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIATEST", creds.AccessKeyID)
	assert.Equal(t, "s3bridge", creds.Source)
	assert.True(t, creds.CanExpire)
	assert.Equal(t, expiry.Add(-safetyMargin), creds.Expires.UTC())
}
