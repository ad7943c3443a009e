package ledger

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/coinledger-backend/pkg/db"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
)

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Query serves paginated and aggregated views of the ledger.
type Query struct {
	entries *Repository
	users   userReader
}

func NewQuery(entries *Repository, users userReader) *Query {
	return &Query{entries: entries, users: users}
}

func validateWindow(f Filters) error {
	if f.StartDate != nil && f.EndDate != nil && StartOfDay(*f.StartDate).After(StartOfDay(*f.EndDate)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "startDate must not be after endDate").
			WithDetails(map[string]string{"startDate": "after_end_date"})
	}
	return nil
}

func (q *Query) requireUser(ctx context.Context, userID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.MissingField("userId")
	}
	user, err := q.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsRecordNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load user")
	}
	return user, nil
}

// Paginate returns one page of entries, newest first, with totals computed
// from a count under the same predicate.
func (q *Query) Paginate(ctx context.Context, filters Filters, params pagination.Params) (*pagination.Page[EntryDTO], error) {
	if err := validateWindow(filters); err != nil {
		return nil, err
	}
	rows, total, err := q.entries.Find(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list ledger entries")
	}
	return &pagination.Page[EntryDTO]{
		Items: fromModels(rows),
		Meta:  pagination.NewMeta(params, total),
	}, nil
}

// UserHistory paginates one existing user's entries.
func (q *Query) UserHistory(ctx context.Context, filters Filters, params pagination.Params) (*pagination.Page[EntryDTO], error) {
	if _, err := q.requireUser(ctx, filters.UserID); err != nil {
		return nil, err
	}
	return q.Paginate(ctx, filters, params)
}

// ByType paginates a single category and attaches its description.
func (q *Query) ByType(ctx context.Context, filters Filters, params pagination.Params) (*TypePage, error) {
	if filters.Type == nil {
		return nil, pkgerrors.MissingField("type")
	}
	page, err := q.Paginate(ctx, filters, params)
	if err != nil {
		return nil, err
	}
	return &TypePage{
		Type:        *filters.Type,
		Description: filters.Type.Description(),
		Items:       page.Items,
		Pagination:  page.Meta,
	}, nil
}

// SumSigned is the net signed total of the matching entries.
func (q *Query) SumSigned(ctx context.Context, filters Filters) (int64, error) {
	total, err := q.entries.SumSigned(ctx, filters)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "sum ledger entries")
	}
	return total, nil
}

// Stats runs the per-category sums concurrently. Spend figures are reported as
// magnitudes; the admin figure keeps its sign.
func (q *Query) Stats(ctx context.Context, filters Filters) (*Stats, error) {
	user, err := q.requireUser(ctx, filters.UserID)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(filters); err != nil {
		return nil, err
	}
	base := Filters{UserID: filters.UserID, StartDate: filters.StartDate, EndDate: filters.EndDate}

	stats := &Stats{CurrentBalance: user.Coin, Breakdown: make(map[string]int64, len(enums.CoinTypes)-1)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	sum := func(f Filters, store func(int64)) {
		g.Go(func() error {
			total, err := q.entries.SumSigned(gctx, f)
			if err != nil {
				return err
			}
			mu.Lock()
			store(total)
			mu.Unlock()
			return nil
		})
	}

	sum(base, func(v int64) { stats.TotalNetCoins = v })
	sum(base.WithType(enums.CoinTypePurchase).WithIncome(true), func(v int64) { stats.TotalPurchased = v })
	sum(base.WithIncome(false), func(v int64) { stats.TotalSpent = abs(v) })
	sum(base.WithType(enums.CoinTypeAdmin), func(v int64) { stats.Breakdown[enums.CoinTypeAdmin.Key()] = v })
	for _, t := range enums.CoinTypes {
		if !t.IsSpend() {
			continue
		}
		key := t.Key()
		sum(base.WithType(t).WithIncome(false), func(v int64) { stats.Breakdown[key] = abs(v) })
	}

	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "aggregate ledger stats")
	}
	return stats, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
