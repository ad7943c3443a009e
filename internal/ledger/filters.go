package ledger

import (
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/coinledger-backend/pkg/enums"
)

const oneDay = 24 * time.Hour

// Filters narrows ledger queries. Dates are UTC days: StartDate is inclusive and
// EndDate covers its whole day, so the predicate is [start, end+1d).
type Filters struct {
	UserID    string
	Type      *enums.CoinType
	IsIncome  *bool
	StartDate *time.Time
	EndDate   *time.Time
}

func (f Filters) apply(q *gorm.DB) *gorm.DB {
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", int(*f.Type))
	}
	if f.IsIncome != nil {
		q = q.Where("is_income = ?", *f.IsIncome)
	}
	if f.StartDate != nil {
		q = q.Where("date >= ?", StartOfDay(*f.StartDate))
	}
	if f.EndDate != nil {
		q = q.Where("date < ?", StartOfDay(*f.EndDate).Add(oneDay))
	}
	return q
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WithType returns a copy scoped to one category.
func (f Filters) WithType(t enums.CoinType) Filters {
	f.Type = &t
	return f
}

// WithIncome returns a copy scoped to credits or debits.
func (f Filters) WithIncome(income bool) Filters {
	f.IsIncome = &income
	return f
}
