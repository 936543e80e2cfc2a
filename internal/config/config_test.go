package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DOCFILL_PROVIDER", "DOCFILL_MODEL", "DOCFILL_BASE_URL", "DOCFILL_LEDGER",
		"DOCFILL_API_KEY", "DOCFILL_BATCH_SIZE", "DOCFILL_STRICT",
		"OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Empty(t, cfg.Source)
}

func TestLoadConfig_JSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	write(t, dir, JSONFile, `{"provider": "openai", "model": "gpt-4o-mini", "batch_size": 8, "languages": ["python"], "strict": true}`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, []string{"python"}, cfg.Languages)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 60, cfg.TimeoutSeconds, "unset fields keep defaults")
	assert.Equal(t, filepath.Join(dir, JSONFile), cfg.Source)
}

func TestLoadConfig_YAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	write(t, dir, YAMLFile, "provider: gemini\ninclude:\n  - src/**\ntemperature: 0.5\ntimestamp_backups: true\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/**"}, cfg.Include)
	assert.InDelta(t, 0.5, cfg.Temperature, 0.0001)
	assert.True(t, cfg.TimestampBackups)
}

func TestLoadConfig_SchemaRejects(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"Unknown key", JSONFile, `{"providr": "openai"}`},
		{"Unknown provider", JSONFile, `{"provider": "ollama"}`},
		{"Batch size out of range", YAMLFile, "batch_size: 0\n"},
		{"Unknown language", YAMLFile, "languages: [ruby]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			write(t, dir, tt.file, tt.content)
			_, err := LoadConfig(dir)
			assert.ErrorContains(t, err, "schema validation failed")
		})
	}
}

func TestLoadConfig_MultipleFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	write(t, dir, JSONFile, `{}`)
	write(t, dir, YAMLFile, "provider: openai\n")
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "multiple config files")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	write(t, dir, JSONFile, `{"provider": "gemini", "api_key": "from-file", "batch_size": 2}`)
	t.Setenv("DOCFILL_PROVIDER", "openai")
	t.Setenv("DOCFILL_BATCH_SIZE", "9")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 9, cfg.BatchSize)
	assert.Equal(t, "sk-env", cfg.APIKey)

	t.Setenv("DOCFILL_BATCH_SIZE", "many")
	_, err = LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("DOCFILL_API_KEY")
	dir := t.TempDir()
	write(t, dir, ".env", "DOCFILL_API_KEY=dotenv-secret\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-secret", cfg.APIKey)
	t.Cleanup(func() { os.Unsetenv("DOCFILL_API_KEY") })
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "sk-secret"
	cfg.MaxAttempts = 0
	cfg.BaseURL = "not a url"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxAttempts")
	assert.Contains(t, err.Error(), "BaseURL")
	assert.NotContains(t, err.Error(), "sk-secret")
}

func TestSecretsNeverSerialized(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "sk-secret"

	r := cfg.Redacted()
	assert.Equal(t, redactedValue, r.APIKey)
	assert.Equal(t, "sk-secret", cfg.APIKey, "original untouched")

	snap, err := cfg.Snapshot()
	require.NoError(t, err)
	assert.NotContains(t, snap, "api_key")
	assert.Equal(t, "gemini", snap["provider"])

	path := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, cfg.Save(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-secret")
	assert.NotContains(t, string(raw), "api_key")

	var back map[string]any
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, float64(5), back["batch_size"])
}
