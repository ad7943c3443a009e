package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
)

// DateLayout is the UTC calendar day format accepted for window bounds.
const DateLayout = "2006-01-02"

// ParseQueryBool returns nil when the parameter is absent.
func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a boolean").WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

// ParseQueryDate reads a YYYY-MM-DD parameter as midnight UTC; nil when absent.
func ParseQueryDate(r *http.Request, key string) (*time.Time, error) {
	return ParseDate(key, r.URL.Query().Get(key))
}

// ParseDate is ParseQueryDate for values that arrive in a body.
func ParseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must use the YYYY-MM-DD format", field).
			WithDetails(map[string]any{"field": field})
	}
	return &value, nil
}

// ParsePagination reads page and limit. Out-of-range values are clamped the
// same way the store clamps them; only non-numeric input is rejected.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	page, err := parseLooseInt(r, "page", 1)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := parseLooseInt(r, "limit", pagination.DefaultLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}.Normalize(), nil
}

func parseLooseInt(r *http.Request, key string, defaultVal int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
