package cli

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3bridge/internal/domain"
	"s3bridge/internal/midway"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestTokenMintsExtractableCookie(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out := captureStdout(t, func() {
		require.NoError(t, runCommand(t, "token", "--user", "alice"))
	})

	cookie := strings.TrimSpace(out)
	assert.Contains(t, cookie, "amazon_enterprise_access=")
	assert.Contains(t, cookie, "session=dev-session")

	extractor := midway.NewExtractor(&domain.AuthorizationPolicy{}, nil)
	caller, err := extractor.Extract(cookie)
	require.NoError(t, err)
	assert.Equal(t, domain.CallerIdentity("alice"), caller)
}

func TestTokenRequiresUser(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	err := runCommand(t, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user is required")
}
