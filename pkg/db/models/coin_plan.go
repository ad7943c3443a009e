package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoinPlan is a purchasable coin bundle.
type CoinPlan struct {
	ID           string          `gorm:"column:id;type:text;primaryKey" json:"id"`
	PlatformType string          `gorm:"column:platform_type;type:text;not null;default:''" json:"platformType"`
	ProductKey   string          `gorm:"column:product_key;type:text;not null;default:''" json:"productKey"`
	Dollar       decimal.Decimal `gorm:"column:dollar;type:numeric(12,2);not null;default:0" json:"dollar"`
	Coin         int64           `gorm:"column:coin;not null;default:0" json:"coin"`
	ExtraCoin    int64           `gorm:"column:extra_coin;not null;default:0" json:"extraCoin"`
	Tag          *string         `gorm:"column:tag;type:text" json:"tag,omitempty"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (CoinPlan) TableName() string { return "coin_plans" }

// TotalCoins is what a purchase of the plan credits.
func (p CoinPlan) TotalCoins() int64 {
	return p.Coin + p.ExtraCoin
}
