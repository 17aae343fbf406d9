package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/quicknotes-agent/internal/config"
)

func TestLoad_DefaultsWithBypass(t *testing.T) {
	t.Setenv("BYPASS_AUTH", "1")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ModeLocal, cfg.Mode)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, config.ProviderMock, cfg.LLM.Provider)
	assert.Equal(t, config.BackendMemory, cfg.Storage.Backend)
	assert.True(t, cfg.AuthBypassed())
	assert.Equal(t, "dev-user", cfg.Auth.DevUserID)
	assert.Equal(t, 40, cfg.Assistant.MaxTranscriptTurns)
}

func TestLoad_RequiresSecretWithoutBypass(t *testing.T) {
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_BypassIgnoredInGCPMode(t *testing.T) {
	t.Setenv("BYPASS_AUTH", "true")
	t.Setenv("QUICKNOTES_MODE", "gcp")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_YAMLFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quicknotes.yaml")
	content := `
server:
  port: "9090"
  write_timeout: 30s
storage:
  backend: sqlite
  sqlite_path: /tmp/notes.db
auth:
  jwt_secret: from-file
assistant:
  timezone: Europe/Madrid
  max_transcript_turns: 10
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("QUICKNOTES_CONFIG", path)
	t.Setenv("QUICKNOTES_PORT", "7070")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, config.BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/notes.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 10, cfg.Assistant.MaxTranscriptTurns)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "Europe/Madrid", cfg.Location().String())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("QUICKNOTES_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := config.Load()
	require.Error(t, err)
}

func TestValidate_ProviderAndBackendRequirements(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"gemini without key", func(c *config.Config) { c.LLM.Provider = config.ProviderGemini }, "GEMINI_API_KEY"},
		{"vertex without project", func(c *config.Config) { c.LLM.Provider = config.ProviderVertex }, "QUICKNOTES_GCP_PROJECT"},
		{"unknown provider", func(c *config.Config) { c.LLM.Provider = "gpt" }, "unknown llm provider"},
		{"postgres without dsn", func(c *config.Config) { c.Storage.Backend = config.BackendPostgres }, "QUICKNOTES_POSTGRES_DSN"},
		{"mongo without uri", func(c *config.Config) { c.Storage.Backend = config.BackendMongo }, "QUICKNOTES_MONGO_URI"},
		{"firestore without project", func(c *config.Config) { c.Storage.Backend = config.BackendFirestore }, "QUICKNOTES_FIRESTORE_PROJECT"},
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "redis" }, "unknown storage backend"},
		{"bad timezone", func(c *config.Config) { c.Assistant.Timezone = "Mars/Olympus" }, "invalid timezone"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Auth.JWTSecret = "secret"
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
