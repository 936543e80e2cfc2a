package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docfill.json"),
		[]byte(`{"provider": "openai", "batch_size": 3, "strict": true}`), 0o644))
	t.Setenv("DOCFILL_BATCH_SIZE", "")
	t.Setenv("DOCFILL_PROVIDER", "")

	require.NoError(t, runCmd.Flags().Set("batch-size", "7"))
	t.Cleanup(func() {
		runCmd.Flags().Lookup("batch-size").Changed = false
		flags.batchSize = 0
	})

	cfg, err := loadConfig(runCmd, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 7, cfg.BatchSize)
	assert.True(t, cfg.Strict)
}

func TestLoadConfig_InvalidFlag(t *testing.T) {
	require.NoError(t, runCmd.Flags().Set("batch-size", "500"))
	t.Cleanup(func() {
		runCmd.Flags().Lookup("batch-size").Changed = false
		flags.batchSize = 0
	})

	_, err := loadConfig(runCmd, t.TempDir())
	assert.Error(t, err)
}

func TestOpenLedger_RelativeToRoot(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCFILL_LEDGER", "")
	cfg, err := loadConfig(scanCmd, dir)
	require.NoError(t, err)

	store, err := openLedger(cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.FileExists(t, filepath.Join(dir, ".docfill", "ledger.db"))
}
