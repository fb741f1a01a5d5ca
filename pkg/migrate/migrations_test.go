package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/swapmeet-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestOffersMigrationGuardsSingleAcceptedOffer(t *testing.T) {
	content := readMigration(t, "create_offers")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS offers",
		"CHECK (amount > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS offers_one_accepted_per_listing",
		"WHERE status = 'accepted'",
		"DROP TABLE IF EXISTS offers",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSettlementMigrationKeysOrdersBySession(t *testing.T) {
	content := readMigration(t, "create_payments_and_orders")
	for _, sub := range []string{
		"CONSTRAINT pending_payments_session_id_key UNIQUE (session_id)",
		"CONSTRAINT orders_session_id_key UNIQUE (session_id)",
		"CONSTRAINT payments_order_id_key UNIQUE (order_id)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestListingsMigrationCarriesAcceptedOfferSlot(t *testing.T) {
	content := readMigration(t, "create_users_and_listings")
	require.Contains(t, content, "accepted_offer jsonb")
	require.Contains(t, content, "offer_version bigint NOT NULL DEFAULT 0")
}

func TestEmbeddedMigrationsMatchSourceTree(t *testing.T) {
	require.NoError(t, migrate.ValidateFS(migrate.Embedded()))

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
}

func TestValidateRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	bad := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301120000_bad.sql"), []byte(bad), 0o644))
	require.ErrorContains(t, migrate.ValidateDir(dir), "StatementEnd")
}

func TestValidateRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	ok := "-- +goose Up\n-- +goose Down\n"
	for _, name := range []string{"20260301120000_a.sql", "20260301120000_b.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(ok), 0o644))
	}
	require.ErrorContains(t, migrate.ValidateDir(dir), "already used")
}

func TestParseVersion(t *testing.T) {
	v, err := migrate.ParseVersion("20260301120600")
	require.NoError(t, err)
	require.Equal(t, int64(20260301120600), v)

	_, err = migrate.ParseVersion("2026")
	require.Error(t, err)
	_, err = migrate.ParseVersion("2026030112060x")
	require.Error(t, err)
}
