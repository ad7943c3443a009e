package models

import (
	"time"

	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// LedgerEntry is one immutable balance-affecting event. Coin is a magnitude;
// IsIncome carries the sign.
type LedgerEntry struct {
	ID             uint64               `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID         string               `gorm:"column:user_id;type:text;not null;index:idx_coin_history_user_date,priority:1" json:"userId"`
	PlanID         *string              `gorm:"column:plan_id;type:text" json:"planId,omitempty"`
	PaymentGateway enums.PaymentGateway `gorm:"column:payment_gateway;not null;default:0" json:"paymentGateway"`
	Date           time.Time            `gorm:"column:date;not null;index:idx_coin_history_user_date,priority:2" json:"date"`
	IsIncome       bool                 `gorm:"column:is_income;not null" json:"isIncome"`
	Coin           int64                `gorm:"column:coin;not null" json:"coin"`
	Dollar         decimal.Decimal      `gorm:"column:dollar;type:numeric(12,2);not null;default:0" json:"dollar"`
	Type           enums.CoinType       `gorm:"column:type;not null;index" json:"type"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (LedgerEntry) TableName() string { return "coin_history" }

// Signed returns the entry's effect on the balance.
func (e LedgerEntry) Signed() int64 {
	if e.IsIncome {
		return e.Coin
	}
	return -e.Coin
}
