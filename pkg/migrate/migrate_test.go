package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coinledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestCoinHistoryMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_coin_history.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS coin_history",
		"REFERENCES users(id)",
		"CHECK (coin >= 0)",
		"CHECK (type BETWEEN 0 AND 9)",
		"idx_coin_history_user_date ON coin_history (user_id, date DESC, id DESC)",
		"DROP TABLE IF EXISTS coin_history",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_users.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_users.sql"), []byte("-- +goose Up\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Report Index!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_report_index.sql"))
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	client := dbtest.Open(t)
	require.NoError(t, migrate.AutoMigrate(context.Background(), client.DB()))
	for _, m := range models.All() {
		require.True(t, client.DB().Migrator().HasTable(m))
	}
}

func TestValidateDirRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_users.sql"), []byte(body), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigrationOrdersAfterNewestAndRejectsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	future := "-- +goose Up\n-- +goose Down\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "29990101000000_future.sql"), []byte(future), 0o644))

	path, err := migrate.CreateSQLMigration(dir, "next step")
	require.NoError(t, err)
	require.Equal(t, "29990101000001_next_step.sql", filepath.Base(path))

	_, err = migrate.CreateSQLMigration(dir, "Next Step")
	require.Error(t, err)
	require.NoError(t, migrate.ValidateDir(dir))
}
