package ledger

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/coinledger-backend/internal/repo"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
)

const signedSumExpr = "CAST(COALESCE(SUM(CASE WHEN is_income THEN coin ELSE -coin END), 0) AS BIGINT)"

// Repository is the ledger entry store. Entries are append-only: there is no
// update or delete path.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.base.DB(ctx).Create(entry).Error
}

func (r *Repository) FindByID(ctx context.Context, id uint64) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.base.DB(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Find returns one page, newest first, and the total count under the same predicate.
func (r *Repository) Find(ctx context.Context, filters Filters, params pagination.Params) ([]models.LedgerEntry, int64, error) {
	params = params.Normalize()

	var total int64
	if err := filters.apply(r.base.DB(ctx).Model(&models.LedgerEntry{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.LedgerEntry{}, 0, nil
	}

	var rows []models.LedgerEntry
	err := filters.apply(r.base.DB(ctx)).
		Order("date DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListChronological returns every matching entry, oldest first.
func (r *Repository) ListChronological(ctx context.Context, filters Filters) ([]models.LedgerEntry, error) {
	var rows []models.LedgerEntry
	err := filters.apply(r.base.DB(ctx)).
		Order("date ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SumSigned adds credits and subtracts debits. An empty set sums to 0.
func (r *Repository) SumSigned(ctx context.Context, filters Filters) (int64, error) {
	var total int64
	err := filters.apply(r.base.DB(ctx).Model(&models.LedgerEntry{})).
		Select(signedSumExpr).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
