// Package analytics turns ledger outbox events into BigQuery fact rows.
package analytics

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox/payloads"
)

// LedgerEventRow mirrors the coin_ledger_events table. The table is day
// partitioned on ingestion time; entry_date carries the ledger date.
type LedgerEventRow struct {
	EventID        string              `bigquery:"event_id"`
	EventType      string              `bigquery:"event_type"`
	OccurredAt     time.Time           `bigquery:"occurred_at"`
	EntryID        int64               `bigquery:"entry_id"`
	UserID         string              `bigquery:"user_id"`
	CoinType       int64               `bigquery:"coin_type"`
	TypeLabel      string              `bigquery:"type_label"`
	IsIncome       bool                `bigquery:"is_income"`
	Coin           int64               `bigquery:"coin"`
	SignedCoin     int64               `bigquery:"signed_coin"`
	Dollar         *big.Rat            `bigquery:"dollar"`
	PaymentGateway int64               `bigquery:"payment_gateway"`
	PlanID         bigquery.NullString `bigquery:"plan_id"`
	BalanceAfter   int64               `bigquery:"balance_after"`
	EntryDate      time.Time           `bigquery:"entry_date"`
}

// Schema is the inferred table schema for LedgerEventRow.
func Schema() (bigquery.Schema, error) {
	return bigquery.InferSchema(LedgerEventRow{})
}

// IsLedgerEvent reports whether eventType carries a LedgerEntryEvent.
func IsLedgerEvent(eventType enums.OutboxEventType) bool {
	return eventType == enums.EventCoinCredited || eventType == enums.EventCoinDebited
}

func NewLedgerEventRow(env outbox.PayloadEnvelope, entry payloads.LedgerEntryEvent) (LedgerEventRow, error) {
	if env.EventID == "" {
		return LedgerEventRow{}, fmt.Errorf("event id missing")
	}
	if entry.UserID == "" {
		return LedgerEventRow{}, fmt.Errorf("user id missing")
	}
	dollar := decimal.Zero
	if entry.Dollar != "" {
		parsed, err := decimal.NewFromString(entry.Dollar)
		if err != nil {
			return LedgerEventRow{}, fmt.Errorf("dollar %q: %w", entry.Dollar, err)
		}
		dollar = parsed
	}

	signed := entry.Coin
	if !entry.IsIncome {
		signed = -signed
	}
	label := entry.TypeLabel
	if label == "" {
		label = enums.CoinType(entry.Type).Label()
	}
	row := LedgerEventRow{
		EventID:        env.EventID,
		EventType:      string(env.EventType),
		OccurredAt:     env.OccurredAt.UTC(),
		EntryID:        int64(entry.EntryID),
		UserID:         entry.UserID,
		CoinType:       int64(entry.Type),
		TypeLabel:      label,
		IsIncome:       entry.IsIncome,
		Coin:           entry.Coin,
		SignedCoin:     signed,
		Dollar:         dollar.Rat(),
		PaymentGateway: int64(entry.PaymentGateway),
		BalanceAfter:   entry.BalanceAfter,
		EntryDate:      entry.Date.UTC(),
	}
	if entry.PlanID != nil && *entry.PlanID != "" {
		row.PlanID = bigquery.NullString{StringVal: *entry.PlanID, Valid: true}
	}
	return row, nil
}
