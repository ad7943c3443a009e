package ledger

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coinledger-backend/internal/plans"
	"github.com/angelmondragon/coinledger-backend/internal/users"
	"github.com/angelmondragon/coinledger-backend/pkg/db"
	"github.com/angelmondragon/coinledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
)

type harness struct {
	client  *db.Client
	entries *Repository
	users   *users.Repository
	plans   *plans.Repository
	mutator *Mutator
	query   *Query
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := dbtest.Open(t, &models.User{}, &models.CoinPlan{}, &models.LedgerEntry{}, &models.OutboxEvent{})
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Output: io.Discard})

	h := &harness{
		client:  client,
		entries: NewRepository(client.DB()),
		users:   users.NewRepository(client.DB()),
		plans:   plans.NewRepository(client.DB()),
	}
	mutator, err := NewMutator(MutatorParams{
		Tx:              client,
		Entries:         h.entries,
		Users:           h.users,
		Plans:           plans.NewService(h.plans),
		Outbox:          outbox.NewService(outbox.NewRepository(client.DB()), logg),
		Logger:          logg,
		SpendDollarRate: "0.04",
	})
	require.NoError(t, err)
	h.mutator = mutator
	h.query = NewQuery(h.entries, h.users)
	return h
}

func (h *harness) seedUser(t *testing.T, id string, coin int64) {
	t.Helper()
	require.NoError(t, h.users.Create(context.Background(), &models.User{ID: id, Name: id, Coin: coin}))
}

// seedEntry inserts directly, bypassing the balance, for read-side tests.
func (h *harness) seedEntry(t *testing.T, userID string, at time.Time, coin int64, income bool, typ enums.CoinType) models.LedgerEntry {
	t.Helper()
	entry := models.LedgerEntry{
		UserID:   userID,
		Date:     at.UTC(),
		IsIncome: income,
		Coin:     coin,
		Dollar:   decimal.Zero,
		Type:     typ,
	}
	require.NoError(t, h.entries.Create(context.Background(), &entry))
	return entry
}

func (h *harness) balance(t *testing.T, userID string) int64 {
	t.Helper()
	user, err := h.users.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return user.Coin
}

func (h *harness) outboxCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).Count(&n).Error)
	return n
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
