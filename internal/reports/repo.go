package reports

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/coinledger-backend/internal/repo"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
)

// ListFilters narrows a user's report listing by generation day, [start, end+1d).
type ListFilters struct {
	UserID    string
	StartDate *time.Time
	EndDate   *time.Time
}

// Repository persists report metadata.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, record *models.ReportRecord) error {
	return r.base.DB(ctx).Create(record).Error
}

func (r *Repository) FindByID(ctx context.Context, id uint64) (*models.ReportRecord, error) {
	var record models.ReportRecord
	if err := r.base.DB(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.ReportRecord, int64, error) {
	params = params.Normalize()
	scoped := func() *gorm.DB {
		q := r.base.DB(ctx).Model(&models.ReportRecord{}).Where("user_id = ?", filters.UserID)
		if filters.StartDate != nil {
			q = q.Where("generated_at >= ?", startOfDay(*filters.StartDate))
		}
		if filters.EndDate != nil {
			q = q.Where("generated_at < ?", startOfDay(*filters.EndDate).AddDate(0, 0, 1))
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []models.ReportRecord{}
	if total == 0 {
		return rows, 0, nil
	}
	err := scoped().
		Order("generated_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListGeneratedBefore returns up to limit of the oldest reports generated before cutoff.
func (r *Repository) ListGeneratedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportRecord, error) {
	var rows []models.ReportRecord
	err := r.base.DB(ctx).
		Where("generated_at < ?", cutoff).
		Order("generated_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the row and reports how many rows went away.
func (r *Repository) Delete(ctx context.Context, id uint64) (int64, error) {
	res := r.base.DB(ctx).Where("id = ?", id).Delete(&models.ReportRecord{})
	return res.RowsAffected, res.Error
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
