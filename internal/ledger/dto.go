package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
)

// EntryDTO is the wire shape of a ledger entry.
type EntryDTO struct {
	ID             uint64               `json:"id"`
	UserID         string               `json:"userId"`
	PlanID         *string              `json:"planId,omitempty"`
	PaymentGateway enums.PaymentGateway `json:"paymentGateway"`
	Date           time.Time            `json:"date"`
	IsIncome       bool                 `json:"isIncome"`
	Coin           int64                `json:"coin"`
	SignedCoin     int64                `json:"signedCoin"`
	Dollar         decimal.Decimal      `json:"dollar"`
	Type           enums.CoinType       `json:"type"`
	TypeLabel      string               `json:"typeLabel"`
	CreatedAt      time.Time            `json:"createdAt"`
}

func FromModel(e models.LedgerEntry) EntryDTO {
	return EntryDTO{
		ID:             e.ID,
		UserID:         e.UserID,
		PlanID:         e.PlanID,
		PaymentGateway: e.PaymentGateway,
		Date:           e.Date.UTC(),
		IsIncome:       e.IsIncome,
		Coin:           e.Coin,
		SignedCoin:     e.Signed(),
		Dollar:         e.Dollar,
		Type:           e.Type,
		TypeLabel:      e.Type.Label(),
		CreatedAt:      e.CreatedAt,
	}
}

func fromModels(rows []models.LedgerEntry) []EntryDTO {
	out := make([]EntryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// TypePage is a page of one category with its description.
type TypePage struct {
	Type        enums.CoinType  `json:"type"`
	Description string          `json:"description"`
	Items       []EntryDTO      `json:"items"`
	Pagination  pagination.Meta `json:"pagination"`
}

// Stats summarises a user's ledger over an optional window.
type Stats struct {
	CurrentBalance int64            `json:"currentBalance"`
	TotalNetCoins  int64            `json:"totalNetCoins"`
	TotalPurchased int64            `json:"totalPurchased"`
	TotalSpent     int64            `json:"totalSpent"`
	Breakdown      map[string]int64 `json:"breakdown"`
}
