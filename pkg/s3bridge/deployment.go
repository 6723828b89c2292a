package s3bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DeploymentStatus answers whether the broker is deployed and where it is
// reachable. Injected as a collaborator so callers are never forced into
// exception-driven existence probes against the cloud provider.
type DeploymentStatus interface {
	// Endpoint returns the broker's base URL, or an error when the broker
	// is not deployed.
	Endpoint(ctx context.Context) (string, error)
}

// DefaultDeployment resolves the endpoint from S3BRIDGE_ENDPOINT when set,
// falling back to the saved deployment config file.
func DefaultDeployment() DeploymentStatus {
	if v := os.Getenv("S3BRIDGE_ENDPOINT"); v != "" {
		return StaticEndpoint(v)
	}
	return FileDeployment{}
}

// StaticEndpoint is a fixed broker endpoint.
type StaticEndpoint string

// Endpoint returns the fixed URL.
func (s StaticEndpoint) Endpoint(_ context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("broker endpoint is empty")
	}
	return strings.TrimSuffix(string(s), "/"), nil
}

// deploymentConfig mirrors the file written by the deployment tooling.
type deploymentConfig struct {
	APIGatewayURL string `json:"api_gateway_url"`
	AccountID     string `json:"account_id"`
	Region        string `json:"region"`
	AdminUsername string `json:"admin_username"`
}

// FileDeployment reads the saved deployment configuration.
type FileDeployment struct {
	// Path is the config location; defaults to ~/.s3bridge/deployment.json.
	Path string
}

func (d FileDeployment) path() (string, error) {
	if d.Path != "" {
		return d.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".s3bridge", "deployment.json"), nil
}

// Endpoint loads the deployment config and returns the recorded URL.
func (d FileDeployment) Endpoint(_ context.Context) (string, error) {
	path, err := d.path()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("s3bridge is not deployed - run 's3bridge setup' first: %w", err)
	}
	var cfg deploymentConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("parse deployment config %s: %w", path, err)
	}
	if cfg.APIGatewayURL == "" {
		return "", fmt.Errorf("deployment config %s has no api_gateway_url", path)
	}
	return strings.TrimSuffix(cfg.APIGatewayURL, "/"), nil
}
