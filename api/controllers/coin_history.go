package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coinledger-backend/api/responses"
	"github.com/angelmondragon/coinledger-backend/api/validators"
	"github.com/angelmondragon/coinledger-backend/internal/ledger"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
)

const maxUserIDLen = 128

// LedgerReader serves the read side of the coin history.
type LedgerReader interface {
	UserHistory(ctx context.Context, filters ledger.Filters, params pagination.Params) (*pagination.Page[ledger.EntryDTO], error)
	Paginate(ctx context.Context, filters ledger.Filters, params pagination.Params) (*pagination.Page[ledger.EntryDTO], error)
	ByType(ctx context.Context, filters ledger.Filters, params pagination.Params) (*ledger.TypePage, error)
	Stats(ctx context.Context, filters ledger.Filters) (*ledger.Stats, error)
}

// LedgerMutator applies balance-affecting events.
type LedgerMutator interface {
	Create(ctx context.Context, in ledger.DeltaInput) (*ledger.DeltaResult, error)
	Spend(ctx context.Context, in ledger.SpendInput) (*ledger.DeltaResult, error)
	PurchasePlan(ctx context.Context, in ledger.PurchaseInput) (*ledger.DeltaResult, error)
}

type mutationResponse struct {
	Entry   ledger.EntryDTO `json:"entry"`
	Balance int64           `json:"balance"`
}

func newMutationResponse(res *ledger.DeltaResult) mutationResponse {
	return mutationResponse{Entry: ledger.FromModel(res.Entry), Balance: res.Balance}
}

type spendResponse struct {
	Status  bool             `json:"status"`
	Message string           `json:"message"`
	Entry   *ledger.EntryDTO `json:"entry,omitempty"`
	Balance *int64           `json:"balance,omitempty"`
}

// CreateCoinHistoryRequest records an arbitrary credit or debit.
type CreateCoinHistoryRequest struct {
	UserID         string          `json:"userId" validate:"required,max=128,ledger_id"`
	Coin           *int64          `json:"coin" validate:"required,gte=0"`
	IsIncome       *bool           `json:"isIncome" validate:"required"`
	Type           *int            `json:"type" validate:"required,coin_type"`
	Dollar         decimal.Decimal `json:"dollar"`
	PaymentGateway int             `json:"paymentGateway" validate:"payment_gateway"`
	PlanID         *string         `json:"planId"`
}

type SpendCoinsRequest struct {
	UserID         string `json:"userId" validate:"required,max=128,ledger_id"`
	Coin           int64  `json:"coin" validate:"gt=0"`
	Type           *int   `json:"type" validate:"required,coin_type"`
	PaymentGateway int    `json:"paymentGateway" validate:"payment_gateway"`
}

type PurchasePlanRequest struct {
	UserID         string `json:"userId" validate:"required,max=128,ledger_id"`
	PlanID         string `json:"planId" validate:"required,max=128,ledger_id"`
	PaymentGateway int    `json:"paymentGateway" validate:"payment_gateway"`
}

func invalidUserID() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid userId").
		WithDetails(map[string]any{"field": "userId"})
}

// parseLedgerFilters reads userId, type, isIncome, startDate and endDate.
func parseLedgerFilters(r *http.Request) (ledger.Filters, error) {
	var filters ledger.Filters
	filters.UserID = validators.SanitizeString(r.URL.Query().Get("userId"), maxUserIDLen)
	if filters.UserID != "" && !validators.IsLedgerID(filters.UserID) {
		return filters, invalidUserID()
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		t, err := enums.ParseCoinType(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type").
				WithDetails(map[string]any{"field": "type"})
		}
		filters.Type = &t
	}

	income, err := validators.ParseQueryBool(r, "isIncome")
	if err != nil {
		return filters, err
	}
	filters.IsIncome = income

	if filters.StartDate, err = validators.ParseQueryDate(r, "startDate"); err != nil {
		return filters, err
	}
	if filters.EndDate, err = validators.ParseQueryDate(r, "endDate"); err != nil {
		return filters, err
	}
	return filters, nil
}

// UserCoinHistory pages one user's entries, newest first.
func UserCoinHistory(svc LedgerReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := parseLedgerFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.UserID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.MissingField("userId"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.UserHistory(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AllCoinHistory pages entries across every user.
func AllCoinHistory(svc LedgerReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := parseLedgerFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Paginate(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func CoinHistoryByType(svc LedgerReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := parseLedgerFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.Type == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.MissingField("type"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ByType(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func UserCoinStats(svc LedgerReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := parseLedgerFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.UserID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.MissingField("userId"))
			return
		}

		stats, err := svc.Stats(r.Context(), ledger.Filters{
			UserID:    filters.UserID,
			StartDate: filters.StartDate,
			EndDate:   filters.EndDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func CreateCoinHistory(svc LedgerMutator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CreateCoinHistoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Create(r.Context(), ledger.DeltaInput{
			UserID:         strings.TrimSpace(body.UserID),
			Coin:           *body.Coin,
			IsIncome:       *body.IsIncome,
			Type:           enums.CoinType(*body.Type),
			Dollar:         body.Dollar,
			PaymentGateway: enums.PaymentGateway(body.PaymentGateway),
			PlanID:         body.PlanID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newMutationResponse(res))
	}
}

// SpendCoins debits a feature's cost. Insufficient funds is an expected
// outcome here and is answered with status=false instead of an error.
func SpendCoins(svc LedgerMutator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body SpendCoinsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Spend(r.Context(), ledger.SpendInput{
			UserID:         strings.TrimSpace(body.UserID),
			Coin:           body.Coin,
			Type:           enums.CoinType(*body.Type),
			PaymentGateway: enums.PaymentGateway(body.PaymentGateway),
		})
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds) {
			responses.WriteSuccess(w, spendResponse{Status: false, Message: "insufficient coins"})
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry := ledger.FromModel(res.Entry)
		balance := res.Balance
		responses.WriteSuccess(w, spendResponse{Status: true, Message: "coins spent", Entry: &entry, Balance: &balance})
	}
}

func PurchaseCoinPlan(svc LedgerMutator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body PurchasePlanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.PurchasePlan(r.Context(), ledger.PurchaseInput{
			UserID:         strings.TrimSpace(body.UserID),
			PlanID:         strings.TrimSpace(body.PlanID),
			PaymentGateway: enums.PaymentGateway(body.PaymentGateway),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newMutationResponse(res))
	}
}
