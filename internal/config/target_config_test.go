package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTargetSpecYAML(t *testing.T) {
	path := writeConfigFile(t, "switchback.yaml", `
name: api
image: ghcr.io/acme/api:1.4.2
port: 3000
health_check_path: /healthz
network_mode: host
env:
  - name: LOG_LEVEL
    value: debug
  - name: DB_PASSWORD
    secret_name: db-password
volumes:
  - /var/data:/data
policy:
  maxProbeAttempts: 3
  probeInterval: 2s
  probeTimeout: 1s
  startupGracePeriod: 500ms
`)

	spec, format, err := config.LoadTargetSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", format)

	assert.Equal(t, "api", spec.Name)
	assert.Equal(t, "ghcr.io/acme/api:1.4.2", spec.Image)
	assert.Equal(t, "3000", spec.Port.String())
	assert.Equal(t, "/healthz", spec.HealthCheckPath)
	assert.Equal(t, "host", spec.NetworkMode)
	assert.Equal(t, []string{"/var/data:/data"}, spec.Volumes)

	require.Len(t, spec.Env, 2)
	assert.Equal(t, "LOG_LEVEL", spec.Env[0].Name)
	value, err := spec.Env[0].GetValue()
	require.NoError(t, err)
	assert.Equal(t, "debug", value)
	assert.Equal(t, "DB_PASSWORD", spec.Env[1].Name)
	require.NotNil(t, spec.Env[1].SecretName)
	assert.Equal(t, "db-password", *spec.Env[1].SecretName)

	policy := spec.ProbePolicy()
	assert.Equal(t, 3, policy.MaxProbeAttempts)
	assert.Equal(t, 2*time.Second, policy.ProbeInterval)
	assert.Equal(t, time.Second, policy.ProbeTimeout)
	assert.Equal(t, 500*time.Millisecond, policy.StartupGracePeriod)
}

func TestLoadTargetSpecTOML(t *testing.T) {
	path := writeConfigFile(t, "switchback.toml", `
name = "worker"
image = "acme/worker:2.0"
port = "9000"

[[env]]
name = "QUEUE"
value = "jobs"

[policy]
maxProbeAttempts = 2
probeInterval = "1s"
`)

	spec, format, err := config.LoadTargetSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "toml", format)

	assert.Equal(t, "worker", spec.Name)
	assert.Equal(t, "9000", spec.Port.String())

	policy := spec.ProbePolicy()
	assert.Equal(t, 2, policy.MaxProbeAttempts)
	assert.Equal(t, time.Second, policy.ProbeInterval)
	// Unset fields fall back to defaults.
	assert.Equal(t, orchestrator.DefaultProbeTimeout, policy.ProbeTimeout)
}

func TestLoadTargetSpecDefaults(t *testing.T) {
	path := writeConfigFile(t, "switchback.yaml", `
name: minimal
image: nginx:1.27
`)

	spec, _, err := config.LoadTargetSpec(path)
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultContainerPort, spec.Port.String())
	assert.Equal(t, constants.DefaultHealthCheckPath, spec.HealthCheckPath)
	assert.Equal(t, constants.DefaultAPIServerURL, spec.Server)

	policy := spec.ProbePolicy()
	assert.Equal(t, orchestrator.DefaultMaxProbeAttempts, policy.MaxProbeAttempts)
	assert.Equal(t, orchestrator.DefaultProbeInterval, policy.ProbeInterval)
}

func TestLoadTargetSpecFromDirectory(t *testing.T) {
	dir := t.TempDir()
	content := "name: fromdir\nimage: nginx:1.27\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "switchback.yml"), []byte(content), 0o644))

	spec, format, err := config.LoadTargetSpec(dir)
	require.NoError(t, err)
	// .yml files decode with the yaml struct tags.
	assert.Equal(t, "yaml", format)
	assert.Equal(t, "fromdir", spec.Name)
}

func TestLoadTargetSpecValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "image: nginx:1.27\n",
			wantErr: "target name is required",
		},
		{
			name:    "missing image",
			content: "name: api\n",
			wantErr: "image is required",
		},
		{
			name:    "bad port",
			content: "name: api\nimage: nginx:1.27\nport: not-a-port\n",
			wantErr: "not a valid number",
		},
		{
			name: "env with both value and secret",
			content: `name: api
image: nginx:1.27
env:
  - name: CONFLICT
    value: plain
    secret_name: secret
`,
			wantErr: "cannot provide both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, "switchback.yaml", tt.content)
			_, _, err := config.LoadTargetSpec(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindConfigFileRejectsUnknownExtension(t *testing.T) {
	path := writeConfigFile(t, "switchback.ini", "name=api\n")
	_, err := config.FindConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid switchback config file")
}
