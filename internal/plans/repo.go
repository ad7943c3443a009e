package plans

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/coinledger-backend/internal/repo"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
)

// Repository reads the coin plan catalogue. Plans are managed elsewhere.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, plan *models.CoinPlan) error {
	return r.base.DB(ctx).Create(plan).Error
}

// FindActive returns gorm.ErrRecordNotFound for unknown or inactive plans.
func (r *Repository) FindActive(ctx context.Context, id string) (*models.CoinPlan, error) {
	var plan models.CoinPlan
	err := r.base.DB(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListActive orders plans by price so clients render them cheapest first.
func (r *Repository) ListActive(ctx context.Context, platform string) ([]models.CoinPlan, error) {
	q := r.base.DB(ctx).Where("is_active = ?", true)
	if platform != "" {
		q = q.Where("platform_type = ?", platform)
	}

	var out []models.CoinPlan
	if err := q.Order("dollar ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
