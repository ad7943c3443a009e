package models

// All lists the models owned by this service, in dependency order.
func All() []any {
	return []any{
		&User{},
		&CoinPlan{},
		&LedgerEntry{},
		&ReportRecord{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
