package s3bridge

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// The cookie names the broker requires for authentication.
var requiredCookies = []string{"amazon_enterprise_access", "session"}

// CookieSource supplies the Midway cookie header presented to the broker.
type CookieSource interface {
	Cookies(ctx context.Context) (string, error)
}

// DefaultCookieSource reads MIDWAY_COOKIES from the environment first and
// falls back to the Midway cookie jar at ~/.midway/cookie.
func DefaultCookieSource() CookieSource {
	return ChainCookieSource{
		EnvCookieSource{},
		FileCookieSource{},
	}
}

// EnvCookieSource reads the cookie header from an environment variable.
type EnvCookieSource struct {
	// Var is the variable name; defaults to MIDWAY_COOKIES.
	Var string
}

// Cookies returns the variable's value, or an error when unset.
func (s EnvCookieSource) Cookies(_ context.Context) (string, error) {
	name := s.Var
	if name == "" {
		name = "MIDWAY_COOKIES"
	}
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s is not set", name)
}

// FileCookieSource reads a Netscape-format cookie jar, keeping only the
// cookies the broker requires.
type FileCookieSource struct {
	// Path is the jar location; defaults to ~/.midway/cookie.
	Path string
}

func (s FileCookieSource) path() (string, error) {
	if s.Path != "" {
		return s.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".midway", "cookie"), nil
}

// Cookies parses the jar and returns a cookie header string. It fails when
// the jar is missing, unreadable, holds none of the required cookies, or the
// session has expired.
func (s FileCookieSource) Cookies(_ context.Context) (string, error) {
	path, err := s.path()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("no Midway cookie found - authenticate with 'mwinit -o': %w", err)
	}
	defer f.Close()

	var pairs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 7 {
			continue
		}
		name, value := fields[5], fields[6]
		for _, want := range requiredCookies {
			if name != want {
				continue
			}
			if expired(fields[4]) {
				return "", fmt.Errorf("Midway cookie expired - authenticate with 'mwinit -o'")
			}
			pairs = append(pairs, name+"="+value)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if len(pairs) == 0 {
		return "", fmt.Errorf("required Midway cookies not found in %s", path)
	}
	return strings.Join(pairs, "; "), nil
}

// expired reports whether the jar expiry field is in the past. Unparseable
// expiries are treated as expired.
func expired(field string) bool {
	secs, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return true
	}
	return time.Now().Unix() >= secs
}

// ChainCookieSource tries each source in order, returning the first success.
type ChainCookieSource []CookieSource

// Cookies returns the first available cookie header. When every source
// fails, the last error is returned.
func (c ChainCookieSource) Cookies(ctx context.Context) (string, error) {
	var lastErr error
	for _, s := range c {
		header, err := s.Cookies(ctx)
		if err == nil {
			return header, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no cookie sources configured")
	}
	return "", lastErr
}

// StaticCookieSource returns a fixed cookie header, for tests and tooling.
type StaticCookieSource string

// Cookies returns the fixed header.
func (s StaticCookieSource) Cookies(_ context.Context) (string, error) {
	return string(s), nil
}
