package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3bridge/internal/domain"
)

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestServiceAddWritesRegistration(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), ".env")

	err := runCommand(t,
		"service", "add", "Reports",
		"--file", file,
		"--role", "arn:aws:iam::123456789012:role/reports-role",
		"--bucket", "reports-*",
		"--restrict-user", "alice",
	)
	require.NoError(t, err)

	vars, err := readEnvFile(file)
	require.NoError(t, err)

	raw, ok := vars["SERVICE_REPORTS"]
	require.True(t, ok)

	var reg domain.ServiceRegistration
	require.NoError(t, json.Unmarshal([]byte(raw), &reg))
	assert.Equal(t, "arn:aws:iam::123456789012:role/reports-role", reg.RoleARN)
	assert.Equal(t, []string{"reports-*"}, reg.BucketPatterns)
	assert.Equal(t, []string{"alice"}, reg.RestrictedUsers)
}

func TestServiceAddRejectsBadRole(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), ".env")

	err := runCommand(t, "service", "add", "reports", "--file", file, "--role", "not-an-arn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an IAM role ARN")

	err = runCommand(t, "service", "add", "reports", "--file", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--role is required")
}

func TestServiceAddPreservesOtherVars(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("ADMIN_USERNAME=admin_user\n# comment\n"), 0o600))

	err := runCommand(t, "service", "add", "ingest", "--file", file,
		"--role", "arn:aws:iam::123456789012:role/ingest-role")
	require.NoError(t, err)

	vars, err := readEnvFile(file)
	require.NoError(t, err)
	assert.Equal(t, "admin_user", vars["ADMIN_USERNAME"])
	assert.Contains(t, vars, "SERVICE_INGEST")
}

func TestServiceRemove(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), ".env")

	err := runCommand(t, "service", "add", "reports", "--file", file,
		"--role", "arn:aws:iam::123456789012:role/reports-role")
	require.NoError(t, err)

	err = runCommand(t, "service", "remove", "reports", "--file", file)
	require.NoError(t, err)

	vars, err := readEnvFile(file)
	require.NoError(t, err)
	assert.NotContains(t, vars, "SERVICE_REPORTS")

	err = runCommand(t, "service", "remove", "reports", "--file", file)
	require.Error(t, err)
	assert.Equal(t, "Unknown service: reports", err.Error())
}

func TestEnvFileRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	in := map[string]string{
		"B_KEY": "second",
		"A_KEY": "first",
	}
	require.NoError(t, writeEnvFile(file, in))

	// Sorted output keeps deployment diffs stable.
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "A_KEY=first\nB_KEY=second\n", string(data))

	out, err := readEnvFile(file)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
