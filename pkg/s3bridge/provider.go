// Package s3bridge is the client library for the credential broker: it
// obtains service-scoped AWS credentials through a Midway session and plugs
// them into the AWS SDK.
package s3bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// safetyMargin is subtracted from the credential expiry to decide when a
// refresh is needed, mirroring the broker's cache policy.
const safetyMargin = 10 * time.Minute

// defaultDuration is the credential lifetime requested from the broker.
const defaultDuration = 3600

// Credentials is the broker's wire-format credential triple.
type Credentials struct {
	AccessKeyID     string    `json:"AccessKeyId"`
	SecretAccessKey string    `json:"SecretAccessKey"`
	SessionToken    string    `json:"SessionToken"`
	Expiration      time.Time `json:"Expiration"`
}

// AuthProvider fetches and caches broker credentials for one service. It
// implements aws.CredentialsProvider, so it can back any AWS SDK client.
// Concurrent refreshes race benignly: each fetch yields an independently
// valid triple and the cached value is replaced atomically.
type AuthProvider struct {
	service    string
	deployment DeploymentStatus
	cookies    CookieSource
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	cached *Credentials
}

// Option configures an AuthProvider.
type Option func(*AuthProvider)

// WithDeployment sets the deployment status collaborator that resolves the
// broker endpoint.
func WithDeployment(d DeploymentStatus) Option {
	return func(p *AuthProvider) { p.deployment = d }
}

// WithCookieSource sets the Midway cookie source.
func WithCookieSource(s CookieSource) Option {
	return func(p *AuthProvider) { p.cookies = s }
}

// WithHTTPClient overrides the HTTP client used to reach the broker.
func WithHTTPClient(c *http.Client) Option {
	return func(p *AuthProvider) { p.httpClient = c }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *AuthProvider) { p.now = now }
}

// NewAuthProvider creates a provider for the named service. By default it
// resolves the endpoint from the deployment config file and reads cookies
// from the environment, then the Midway cookie jar.
func NewAuthProvider(service string, opts ...Option) *AuthProvider {
	p := &AuthProvider{
		service:    service,
		deployment: DefaultDeployment(),
		cookies:    DefaultCookieSource(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetCredentials returns cached credentials while they remain usable, and
// otherwise fetches a fresh triple from the broker.
func (p *AuthProvider) GetCredentials(ctx context.Context) (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.now().Before(p.cached.Expiration.Add(-safetyMargin)) {
		return *p.cached, nil
	}

	creds, err := p.fetch(ctx)
	if err != nil {
		return Credentials{}, err
	}
	p.cached = &creds
	return creds, nil
}

// Invalidate discards the cached credentials, forcing the next call to fetch.
func (p *AuthProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

// Retrieve implements aws.CredentialsProvider.
func (p *AuthProvider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	creds, err := p.GetCredentials(ctx)
	if err != nil {
		return aws.Credentials{}, err
	}
	return aws.Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		CanExpire:       true,
		Expires:         creds.Expiration.Add(-safetyMargin),
		Source:          "s3bridge",
	}, nil
}

func (p *AuthProvider) fetch(ctx context.Context) (Credentials, error) {
	endpoint, err := p.deployment.Endpoint(ctx)
	if err != nil {
		return Credentials{}, err
	}

	cookieHeader, err := p.cookies.Cookies(ctx)
	if err != nil {
		return Credentials{}, err
	}

	q := url.Values{}
	q.Set("service", p.service)
	q.Set("duration", strconv.Itoa(defaultDuration))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/credentials?"+q.Encode(), nil)
	if err != nil {
		return Credentials{}, err
	}
	req.Header.Set("Cookie", cookieHeader)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("credential service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Credentials{}, fmt.Errorf("credential service failed with status %d: %s", resp.StatusCode, errorMessage(body))
	}

	var creds Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credential response: %w", err)
	}
	return creds, nil
}

// errorMessage extracts the error field from a broker error body, falling
// back to the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return string(body)
}
