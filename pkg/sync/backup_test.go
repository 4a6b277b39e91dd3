package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("original"), 0o644))

	b, err := CreateBackup(dir, time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC), cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".sync_backup_20260801_093000"), b.Dir)

	require.NoError(t, os.WriteFile(cfg, []byte("clobbered"), 0o644))
	require.NoError(t, b.Restore())

	got, err := os.ReadFile(cfg)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}

func TestBackupSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("x"), 0o644))

	b, err := CreateBackup(dir, time.Now(), cfg, filepath.Join(dir, "absent.bsl"), "")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(b.Dir, "absent.bsl"))
	assert.True(t, os.IsNotExist(err))
}

func TestOpenBackupRestores(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("original"), 0o644))

	b, err := CreateBackup(dir, time.Now(), cfg)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfg, []byte("changed"), 0o644))

	reopened, err := OpenBackup(b.Dir)
	require.NoError(t, err)
	require.NoError(t, reopened.Restore())

	got, err := os.ReadFile(cfg)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}
