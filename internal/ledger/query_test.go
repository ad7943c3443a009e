package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
)

func defaultParams() pagination.Params {
	return pagination.Params{Page: 1, Limit: pagination.DefaultLimit}
}

func TestPaginateSecondPageNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "u-1", 0)
	h.seedUser(t, "u-2", 0)

	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	var ids []uint64
	for i := 0; i < 25; i++ {
		e := h.seedEntry(t, "u-1", start.Add(time.Duration(i)*time.Hour), int64(i+1), true, enums.CoinTypeAdmin)
		ids = append(ids, e.ID)
	}
	h.seedEntry(t, "u-2", start, 1, true, enums.CoinTypeAdmin)

	page, err := h.query.UserHistory(ctx, Filters{UserID: "u-1"}, pagination.Params{Page: 2, Limit: 10})
	require.NoError(t, err)

	require.Len(t, page.Items, 10)
	assert.Equal(t, int64(25), page.Meta.TotalRecords)
	assert.Equal(t, int64(3), page.Meta.TotalPages)
	assert.True(t, page.Meta.HasNext)
	assert.True(t, page.Meta.HasPrev)
	// newest first: page 2 holds the 11th..20th newest
	for i, item := range page.Items {
		assert.Equal(t, ids[24-10-i], item.ID)
	}
}

func TestUserHistoryRequiresExistingUser(t *testing.T) {
	h := newHarness(t)
	_, err := h.query.UserHistory(context.Background(), Filters{UserID: "ghost"}, defaultParams())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.query.UserHistory(context.Background(), Filters{}, defaultParams())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestFiltersUseHalfOpenDayWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "u-1", 0)

	h.seedEntry(t, "u-1", time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC), 1, true, enums.CoinTypeAdmin)
	h.seedEntry(t, "u-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 2, true, enums.CoinTypeAdmin)
	h.seedEntry(t, "u-1", time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC), 4, false, enums.CoinTypeEdit)
	h.seedEntry(t, "u-1", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), 8, true, enums.CoinTypeAdmin)

	startDay, endDay := day(2026, 3, 1), day(2026, 3, 2)
	window := Filters{UserID: "u-1", StartDate: &startDay, EndDate: &endDay}

	page, err := h.query.Paginate(ctx, window, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Meta.TotalRecords)

	sum, err := h.query.SumSigned(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), sum)

	debits, err := h.query.Paginate(ctx, window.WithIncome(false), defaultParams())
	require.NoError(t, err)
	require.Len(t, debits.Items, 1)
	assert.Equal(t, enums.CoinTypeEdit, debits.Items[0].Type)

	_, err = h.query.Paginate(ctx, Filters{StartDate: &endDay, EndDate: &startDay}, defaultParams())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSumSignedConvention(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "u-1", 0)

	empty, err := h.query.SumSigned(ctx, Filters{UserID: "u-1"})
	require.NoError(t, err)
	assert.Zero(t, empty)

	now := time.Now().UTC().Truncate(time.Second)
	h.seedEntry(t, "u-1", now, 100, true, enums.CoinTypePurchase)
	h.seedEntry(t, "u-1", now, 30, false, enums.CoinTypeCreate)

	sum, err := h.query.SumSigned(ctx, Filters{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(70), sum)
}

func TestByTypeAttachesDescription(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "u-1", 0)
	now := time.Now().UTC().Truncate(time.Second)
	h.seedEntry(t, "u-1", now, 3, false, enums.CoinTypeTrainer)
	h.seedEntry(t, "u-1", now, 5, false, enums.CoinTypeEdit)

	_, err := h.query.ByType(ctx, Filters{}, defaultParams())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	page, err := h.query.ByType(ctx, Filters{}.WithType(enums.CoinTypeTrainer), defaultParams())
	require.NoError(t, err)
	assert.Equal(t, "Model Training", page.Description)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Items[0].Coin)
	assert.Equal(t, int64(-3), page.Items[0].SignedCoin)
}

func TestStatsBreakdown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "u-1", 0)

	for _, step := range []DeltaInput{
		{Coin: 500, IsIncome: true, Type: enums.CoinTypePurchase},
		{Coin: 20, IsIncome: true, Type: enums.CoinTypeAdmin},
		{Coin: 5, IsIncome: false, Type: enums.CoinTypeAdmin},
		{Coin: 40, IsIncome: false, Type: enums.CoinTypeTrainer},
		{Coin: 12, IsIncome: false, Type: enums.CoinTypeGenerate},
		{Coin: 8, IsIncome: false, Type: enums.CoinTypeGenerate},
	} {
		step.UserID = "u-1"
		_, err := h.mutator.ApplyDelta(ctx, step)
		require.NoError(t, err)
	}

	stats, err := h.query.Stats(ctx, Filters{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(455), stats.CurrentBalance)
	assert.Equal(t, int64(455), stats.TotalNetCoins)
	assert.Equal(t, int64(500), stats.TotalPurchased)
	assert.Equal(t, int64(65), stats.TotalSpent)
	assert.Equal(t, int64(15), stats.Breakdown["admin"])
	assert.Equal(t, int64(40), stats.Breakdown["trainer"])
	assert.Equal(t, int64(20), stats.Breakdown["generate"])
	assert.Equal(t, int64(0), stats.Breakdown["faceSwap"])
	assert.Len(t, stats.Breakdown, 9)

	_, err = h.query.Stats(ctx, Filters{UserID: "ghost"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
