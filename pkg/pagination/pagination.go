package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds 1-based page inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Normalize returns params with the page clamped to >= 1 and the limit bounded.
func (p Params) Normalize() Params {
	return Params{Page: NormalizePage(p.Page), Limit: NormalizeLimit(p.Limit)}
}

// Offset is the number of rows skipped before this page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Page         int   `json:"page"`
	Limit        int   `json:"limit"`
	TotalRecords int64 `json:"totalRecords"`
	TotalPages   int64 `json:"totalPages"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

// NewMeta derives page counts from the filtered total, not from the page length.
func NewMeta(params Params, total int64) Meta {
	n := params.Normalize()
	pages := int64(0)
	if total > 0 {
		pages = (total + int64(n.Limit) - 1) / int64(n.Limit)
	}
	return Meta{
		Page:         n.Page,
		Limit:        n.Limit,
		TotalRecords: total,
		TotalPages:   pages,
		HasNext:      int64(n.Page) < pages,
		HasPrev:      n.Page > 1,
	}
}

// Page is a slice of results plus its metadata.
type Page[T any] struct {
	Items []T `json:"items"`
	Meta  Meta `json:"pagination"`
}
