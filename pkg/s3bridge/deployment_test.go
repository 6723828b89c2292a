package s3bridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEndpoint(t *testing.T) {
	url, err := StaticEndpoint("https://api.example/prod/").Endpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example/prod", url)

	_, err = StaticEndpoint("").Endpoint(context.Background())
	assert.Error(t, err)
}

func TestFileDeploymentReadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployment.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api_gateway_url": "https://abc123.execute-api.us-east-1.amazonaws.com/prod/",
		"account_id": "123456789012",
		"region": "us-east-1",
		"admin_username": "admin_user"
	}`), 0o600))

	url, err := FileDeployment{Path: path}.Endpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://abc123.execute-api.us-east-1.amazonaws.com/prod", url)
}

func TestFileDeploymentNotDeployed(t *testing.T) {
	_, err := FileDeployment{Path: filepath.Join(t.TempDir(), "nope.json")}.Endpoint(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not deployed")
}

func TestFileDeploymentMissingURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployment.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"account_id": "123456789012"}`), 0o600))

	_, err := FileDeployment{Path: path}.Endpoint(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_gateway_url")
}

func TestDefaultDeploymentPrefersEnv(t *testing.T) {
	t.Setenv("S3BRIDGE_ENDPOINT", "https://api.example")
	url, err := DefaultDeployment().Endpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example", url)
}
