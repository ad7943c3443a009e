package models

import "time"

// User is the slice of the user profile the ledger reads and mutates.
// The profile itself is owned by the user service.
type User struct {
	ID            string     `gorm:"column:id;type:text;primaryKey" json:"id"`
	Name          string     `gorm:"column:name;type:text;not null;default:''" json:"name"`
	Email         *string    `gorm:"column:email;type:text" json:"email,omitempty"`
	Coin          int64      `gorm:"column:coin;not null;default:0" json:"coin"`
	PurchasedCoin int64      `gorm:"column:purchased_coin;not null;default:0" json:"purchasedCoin"`
	IsCoinPlan    bool       `gorm:"column:is_coin_plan;not null;default:false" json:"isCoinPlan"`
	PlanStartDate *time.Time `gorm:"column:plan_start_date" json:"planStartDate,omitempty"`
	CoinPlanID    *string    `gorm:"column:coin_plan_id;type:text" json:"coinPlanId,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// DisplayName prefers the profile name and falls back to the id.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
