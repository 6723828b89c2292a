package s3bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJar(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookie")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func jarLine(name, value string, expiry int64) string {
	return fmt.Sprintf(".midway.example\tTRUE\t/\tTRUE\t%d\t%s\t%s", expiry, name, value)
}

func TestFileCookieSourceParsesJar(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	path := writeJar(t,
		"# Netscape HTTP Cookie File",
		jarLine("amazon_enterprise_access", "tok123", future),
		jarLine("session", "sess456", future),
		jarLine("unrelated", "ignored", future),
	)

	header, err := FileCookieSource{Path: path}.Cookies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "amazon_enterprise_access=tok123; session=sess456", header)
}

func TestFileCookieSourceExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour).Unix()
	path := writeJar(t, jarLine("amazon_enterprise_access", "tok123", past))

	_, err := FileCookieSource{Path: path}.Cookies(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mwinit -o")
}

func TestFileCookieSourceMissingFile(t *testing.T) {
	_, err := FileCookieSource{Path: filepath.Join(t.TempDir(), "nope")}.Cookies(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mwinit -o")
}

func TestFileCookieSourceNoRequiredCookies(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	path := writeJar(t, jarLine("unrelated", "x", future))

	_, err := FileCookieSource{Path: path}.Cookies(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required Midway cookies not found")
}

func TestEnvCookieSource(t *testing.T) {
	t.Setenv("MIDWAY_COOKIES", "amazon_enterprise_access=tok; session=abc")
	header, err := EnvCookieSource{}.Cookies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "amazon_enterprise_access=tok; session=abc", header)

	t.Setenv("MIDWAY_COOKIES", "")
	_, err = EnvCookieSource{}.Cookies(context.Background())
	assert.Error(t, err)
}

func TestChainCookieSourceFallsBack(t *testing.T) {
	t.Setenv("MIDWAY_COOKIES", "")
	future := time.Now().Add(time.Hour).Unix()
	path := writeJar(t,
		jarLine("amazon_enterprise_access", "tok", future),
		jarLine("session", "abc", future),
	)

	chain := ChainCookieSource{EnvCookieSource{}, FileCookieSource{Path: path}}
	header, err := chain.Cookies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "amazon_enterprise_access=tok; session=abc", header)
}

func TestChainCookieSourceAllFail(t *testing.T) {
	t.Setenv("MIDWAY_COOKIES", "")
	chain := ChainCookieSource{
		EnvCookieSource{},
		FileCookieSource{Path: filepath.Join(t.TempDir(), "nope")},
	}
	_, err := chain.Cookies(context.Background())
	assert.Error(t, err)
}
