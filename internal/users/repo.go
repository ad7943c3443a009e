package users

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/coinledger-backend/internal/repo"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
)

// PlanEnrollment is written alongside a purchase credit. PlanID may be empty
// for purchases made outside the plan catalogue.
type PlanEnrollment struct {
	PlanID    string
	StartedAt time.Time
	Purchased int64
}

// Repository reads and updates the ledger-owned columns of a user row.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.base.DB(ctx).Create(user).Error
}

// FindByID returns gorm.ErrRecordNotFound when the user is absent.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.base.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LockByID loads the user with FOR UPDATE. Only meaningful inside a transaction;
// sqlite ignores the clause and relies on its single writer.
func (r *Repository) LockByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.base.DB(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SwapBalance sets coin to next only if it still equals expected. It returns
// false when another writer got there first. A non-nil enrollment also bumps
// purchased_coin and records the plan.
func (r *Repository) SwapBalance(ctx context.Context, id string, expected, next int64, enrollment *PlanEnrollment) (bool, error) {
	updates := map[string]any{
		"coin":       next,
		"updated_at": time.Now().UTC(),
	}
	if enrollment != nil {
		updates["purchased_coin"] = gorm.Expr("purchased_coin + ?", enrollment.Purchased)
		if enrollment.PlanID != "" {
			updates["coin_plan_id"] = enrollment.PlanID
			updates["plan_start_date"] = enrollment.StartedAt
			updates["is_coin_plan"] = true
		}
	}

	res := r.base.DB(ctx).
		Model(&models.User{}).
		Where("id = ? AND coin = ?", id, expected).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
