package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSQLMigrationProducesValidFile(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add offer expiry!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_offer_expiry.sql"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- add_offer_expiry")
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationSortsAfterFutureDatedFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "29990101000000_far_future.sql")
	require.NoError(t, os.WriteFile(existing, []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := CreateSQLMigration(dir, "next")
	require.NoError(t, err)
	assert.Equal(t, "29990101000001_next.sql", filepath.Base(path))
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsEmptyNames(t *testing.T) {
	_, err := CreateSQLMigration(t.TempDir(), " --- ")
	assert.Error(t, err)
	_, err = CreateSQLMigration("", "x")
	assert.Error(t, err)
}

func TestNextVersion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	assert.Equal(t, now.Truncate(time.Second), nextVersion(now, time.Time{}))

	latest := time.Date(2026, 3, 1, 12, 0, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC), nextVersion(now, latest))
}
