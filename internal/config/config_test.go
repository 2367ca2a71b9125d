package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aescanero/chloe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	// Keep any .env in the package directory out of the picture
	t.Chdir(t.TempDir())
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("APIFY_API_TOKEN", "test-token")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 30, cfg.LLM.MaxConcurrentRequests)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, "French", cfg.Agent.DefaultOutreachLanguage)
	assert.Equal(t, time.Hour, cfg.Timeouts.RunTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Timeouts.NodeTimeout)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
	assert.Equal(t, ":9090", cfg.GetGRPCAddr())

	models := cfg.Models()
	assert.Equal(t, cfg.LLM.ModelFast, models[domain.ModeFast])
	assert.Equal(t, cfg.LLM.ModelPro, models[domain.ModePro])
}

func TestLoadFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("LLM_API_KEY=from-dotenv\nAPIFY_API_TOKEN=token\nCHLOE_HTTP_PORT=8181\n"), 0o600))
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("APIFY_API_TOKEN", "")
	t.Setenv("CHLOE_HTTP_PORT", "")
	// godotenv does not override variables that are already set
	os.Unsetenv("LLM_API_KEY")
	os.Unsetenv("APIFY_API_TOKEN")
	os.Unsetenv("CHLOE_HTTP_PORT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.LLM.APIKey)
	assert.Equal(t, 8181, cfg.HTTPPort)
}

func TestLoadAgentProfile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
company_name: Acme
company_context: We sell rockets.
default_outreach_language: Spanish
prompts:
  outreach: "Write to {{.FullName}}"
`), 0o600))
	t.Setenv("AGENT_PROFILE_FILE", path)
	t.Setenv("AGENT_COMPANY_NAME", "Acme Corp")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", cfg.Agent.CompanyName, "environment wins over the profile")
	assert.Equal(t, "We sell rockets.", cfg.Agent.CompanyContext)
	assert.Equal(t, "Spanish", cfg.Agent.DefaultOutreachLanguage)
	assert.Equal(t, "Write to {{.FullName}}", cfg.Agent.Prompts.Outreach)
	assert.Empty(t, cfg.Agent.Prompts.Profile)
}

func TestLoadAgentProfileErrors(t *testing.T) {
	_, err := LoadAgentProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read agent profile")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompts: [unclosed"), 0o600))
	_, err = LoadAgentProfile(path)
	assert.ErrorContains(t, err, "failed to parse agent profile")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing llm key", map[string]string{"LLM_API_KEY": ""}, "LLM API key is required"},
		{"missing apify token", map[string]string{"APIFY_API_TOKEN": ""}, "Apify API token is required"},
		{"bad port", map[string]string{"CHLOE_HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"bad provider", map[string]string{"LLM_PROVIDER": "mistral"}, "unsupported LLM provider"},
		{"bad storage", map[string]string{"STORAGE_BACKEND": "postgres"}, "unsupported storage backend"},
		{"bad bus", map[string]string{"EVENT_BUS": "kafka"}, "unsupported event bus"},
		{"zero concurrency", map[string]string{"LLM_MAX_CONCURRENT_REQUESTS": "0"}, "max concurrent requests"},
		{"negative retries", map[string]string{"LLM_MAX_RETRIES": "-1"}, "max retries"},
		{"bad language", map[string]string{"AGENT_DEFAULT_OUTREACH_LANGUAGE": "Klingon"}, "unsupported default outreach language"},
		{"bad exporter", map[string]string{"TRACING_EXPORTER": "zipkin"}, "unsupported tracing exporter"},
		{"bad log level", map[string]string{"LOG_LEVEL": "trace"}, "invalid log level"},
		{"zero pool", map[string]string{"WORKER_POOL_SIZE": "0"}, "worker pool size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
