package reports

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coinledger-backend/internal/ledger"
	"github.com/angelmondragon/coinledger-backend/internal/users"
	"github.com/angelmondragon/coinledger-backend/pkg/db"
	"github.com/angelmondragon/coinledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
	"github.com/angelmondragon/coinledger-backend/pkg/storage"
	"github.com/angelmondragon/coinledger-backend/pkg/storage/local"
)

// flakyStore fails selected operations and delegates the rest.
type flakyStore struct {
	storage.ArtifactStore
	writeErr  error
	deleteErr error
}

func (f *flakyStore) Write(ctx context.Context, userID, fileName string, r io.Reader) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.ArtifactStore.Write(ctx, userID, fileName, r)
}

func (f *flakyStore) Delete(ctx context.Context, userID, fileName string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.ArtifactStore.Delete(ctx, userID, fileName)
}

type fixture struct {
	client    *db.Client
	users     *users.Repository
	entries   *ledger.Repository
	repo      *Repository
	disk      *local.Store
	store     *flakyStore
	generator *Generator
	archive   *Archive
	now       time.Time
}

func newFixture(t *testing.T, tables ...any) *fixture {
	t.Helper()
	if len(tables) == 0 {
		tables = []any{&models.User{}, &models.LedgerEntry{}, &models.ReportRecord{}, &models.OutboxEvent{}}
	}
	client := dbtest.Open(t, tables...)
	disk, err := local.New(t.TempDir(), "/reports")
	require.NoError(t, err)
	logg := logger.New(logger.Options{ServiceName: "reports-test", Output: io.Discard})
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), logg)

	f := &fixture{
		client:  client,
		users:   users.NewRepository(client.DB()),
		entries: ledger.NewRepository(client.DB()),
		repo:    NewRepository(client.DB()),
		disk:    disk,
		store:   &flakyStore{ArtifactStore: disk},
		now:     time.Date(2026, 5, 10, 14, 30, 0, 0, time.UTC),
	}
	f.generator, err = NewGenerator(GeneratorParams{
		Tx:      client,
		Users:   f.users,
		Entries: f.entries,
		Repo:    f.repo,
		Store:   f.store,
		Outbox:  emitter,
		Logger:  logg,
		Brand:   "Coin Ledger",
		Now:     func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.archive, err = NewArchive(ArchiveParams{Tx: client, Repo: f.repo, Store: f.store, Outbox: emitter, Logger: logg})
	require.NoError(t, err)

	require.NoError(t, f.users.Create(context.Background(), &models.User{ID: "u-1", Name: "Ada"}))
	require.NoError(t, f.users.Create(context.Background(), &models.User{ID: "u-2", Name: "Grace"}))
	return f
}

func (f *fixture) seed(t *testing.T, userID string, at time.Time, coin int64, income bool) {
	t.Helper()
	require.NoError(t, f.entries.Create(context.Background(), &models.LedgerEntry{
		UserID: userID, Date: at, Coin: coin, IsIncome: income, Type: enums.CoinTypeCreate,
	}))
}

func (f *fixture) reportRows(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(&models.ReportRecord{}).Count(&n).Error)
	return n
}

var window = GenerateInput{
	UserID:    "u-1",
	StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	EndDate:   time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
}

func TestGenerateRegistersArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u-1", time.Date(2026, 4, 30, 23, 0, 0, 0, time.UTC), 500, true)
	f.seed(t, "u-1", time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), 100, true)
	f.seed(t, "u-1", time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC), 30, false)
	f.seed(t, "u-1", time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), 7, false)

	report, err := f.generator.Generate(ctx, window)
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.TotalRecords)
	assert.Equal(t, int64(70), report.TotalCoins)
	assert.Equal(t, "2026-05-01", report.StartDate)
	assert.Equal(t, "2026-05-02", report.EndDate)
	assert.Contains(t, report.FileName, "u-1_2026-05-10-14-30-00-")
	assert.Equal(t, "/reports/u-1/"+report.FileName, report.DownloadURL)

	info, err := f.disk.Stat(ctx, "u-1", report.FileName)
	require.NoError(t, err)
	assert.Equal(t, info.Size, report.FileSize)
	assert.Equal(t, int64(1), f.reportRows(t))

	var events int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventReportGenerated).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestGenerateValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.generator.Generate(ctx, GenerateInput{StartDate: window.StartDate, EndDate: window.EndDate})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.generator.Generate(ctx, GenerateInput{UserID: "u-1", StartDate: window.EndDate, EndDate: window.StartDate})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.generator.Generate(ctx, GenerateInput{UserID: "../u-1", StartDate: window.StartDate, EndDate: window.EndDate})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.generator.Generate(ctx, GenerateInput{UserID: "ghost", StartDate: window.StartDate, EndDate: window.EndDate})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGenerateWriteFailureLeavesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.store.writeErr = errors.New("disk full")

	_, err := f.generator.Generate(context.Background(), window)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorage), "got %v", err)
	assert.Zero(t, f.reportRows(t))
}

func TestGenerateRegistrationFailureRemovesArtifact(t *testing.T) {
	// report_history is not migrated, so the insert fails after the write.
	f := newFixture(t, &models.User{}, &models.LedgerEntry{}, &models.OutboxEvent{})
	ctx := context.Background()

	var written []string
	f.store.ArtifactStore = &recordingStore{ArtifactStore: f.disk, written: &written}

	_, err := f.generator.Generate(ctx, window)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorage), "got %v", err)

	require.Len(t, written, 1)
	exists, err := f.disk.Exists(ctx, "u-1", written[0])
	require.NoError(t, err)
	assert.False(t, exists, "artifact should be removed when registration fails")
}

type recordingStore struct {
	storage.ArtifactStore
	written *[]string
}

func (r *recordingStore) Write(ctx context.Context, userID, fileName string, rd io.Reader) error {
	*r.written = append(*r.written, fileName)
	return r.ArtifactStore.Write(ctx, userID, fileName, rd)
}

func TestDeleteChecksOwnershipAndIsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.generator.Generate(ctx, window)
	require.NoError(t, err)

	err = f.archive.Delete(ctx, report.ID, "u-2")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	exists, err := f.disk.Exists(ctx, "u-1", report.FileName)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(1), f.reportRows(t))

	require.NoError(t, f.archive.Delete(ctx, report.ID, "u-1"))
	exists, err = f.disk.Exists(ctx, "u-1", report.FileName)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, f.reportRows(t))

	err = f.archive.Delete(ctx, report.ID, "u-1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteKeepsRowWhenArtifactDeleteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.generator.Generate(ctx, window)
	require.NoError(t, err)

	f.store.deleteErr = errors.New("permission denied")
	err = f.archive.Delete(ctx, report.ID, "u-1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorage))
	assert.Equal(t, int64(1), f.reportRows(t))
}

func TestDeleteToleratesMissingArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report, err := f.generator.Generate(ctx, window)
	require.NoError(t, err)

	require.NoError(t, f.disk.Delete(ctx, "u-1", report.FileName))
	require.NoError(t, f.archive.Delete(ctx, report.ID, "u-1"))
	assert.Zero(t, f.reportRows(t))
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.generator.Generate(ctx, window)
	require.NoError(t, err)
	f.now = f.now.Add(24 * time.Hour)
	second, err := f.generator.Generate(ctx, window)
	require.NoError(t, err)
	_, err = f.generator.Generate(ctx, GenerateInput{UserID: "u-2", StartDate: window.StartDate, EndDate: window.EndDate})
	require.NoError(t, err)

	page, err := f.archive.List(ctx, ListFilters{UserID: "u-1"}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, second.ID, page.Items[0].ID)
	assert.Equal(t, int64(2), page.Meta.TotalRecords)

	day := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	page, err = f.archive.List(ctx, ListFilters{UserID: "u-1", StartDate: &day, EndDate: &day}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)

	got, err := f.archive.Get(ctx, first.ID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, first.FileName, got.FileName)

	_, err = f.archive.Get(ctx, first.ID, "u-2")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = f.archive.Get(ctx, 9999, "u-1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPurgeOlderThan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.generator.Generate(ctx, window)
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 0, 40)
	fresh, err := f.generator.Generate(ctx, window)
	require.NoError(t, err)

	removed, err := f.archive.PurgeOlderThan(ctx, f.now.AddDate(0, 0, -30), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = f.archive.Get(ctx, old.ID, "u-1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.archive.Get(ctx, fresh.ID, "u-1")
	require.NoError(t, err)
}
