// Package payloads defines the data carried by ledger and report events.
package payloads

import "time"

// LedgerEntryEvent is the payload of coin_credited and coin_debited.
type LedgerEntryEvent struct {
	EntryID        uint64    `json:"entryId"`
	UserID         string    `json:"userId"`
	Type           int       `json:"type"`
	TypeLabel      string    `json:"typeLabel"`
	IsIncome       bool      `json:"isIncome"`
	Coin           int64     `json:"coin"`
	Dollar         string    `json:"dollar"`
	PaymentGateway int       `json:"paymentGateway"`
	PlanID         *string   `json:"planId,omitempty"`
	BalanceAfter   int64     `json:"balanceAfter"`
	Date           time.Time `json:"date"`
}

// ReportEvent is the payload of report_generated and report_deleted.
type ReportEvent struct {
	ReportID     uint64    `json:"reportId"`
	UserID       string    `json:"userId"`
	FileName     string    `json:"fileName"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	TotalRecords int64     `json:"totalRecords"`
	TotalCoins   int64     `json:"totalCoins"`
	FileSize     int64     `json:"fileSize"`
	Trigger      string    `json:"trigger,omitempty"`
}
