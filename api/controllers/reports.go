package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/coinledger-backend/api/responses"
	"github.com/angelmondragon/coinledger-backend/api/validators"
	"github.com/angelmondragon/coinledger-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
)

type ReportGenerator interface {
	Generate(ctx context.Context, in reports.GenerateInput) (*reports.ReportDTO, error)
}

type ReportArchive interface {
	List(ctx context.Context, filters reports.ListFilters, params pagination.Params) (*pagination.Page[reports.ReportDTO], error)
	Get(ctx context.Context, reportID uint64, requestingUserID string) (*reports.ReportDTO, error)
	Delete(ctx context.Context, reportID uint64, requestingUserID string) error
}

type GenerateReportRequest struct {
	UserID    string `json:"userId" validate:"required,max=128,ledger_id"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

type ListReportsRequest struct {
	UserID    string `json:"userId" validate:"required,max=128,ledger_id"`
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// GenerateReport renders the window to a PDF and returns its descriptor.
func GenerateReport(svc ReportGenerator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body GenerateReportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseDate("startDate", body.StartDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseDate("endDate", body.EndDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Generate(r.Context(), reports.GenerateInput{
			UserID:    strings.TrimSpace(body.UserID),
			StartDate: *start,
			EndDate:   *end,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, report)
	}
}

func ListReports(svc ReportArchive, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ListReportsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters := reports.ListFilters{UserID: strings.TrimSpace(body.UserID)}
		var err error
		if filters.StartDate, err = validators.ParseDate("startDate", body.StartDate); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.EndDate, err = validators.ParseDate("endDate", body.EndDate); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{Page: body.Page, Limit: body.Limit}.Normalize()
		page, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetReport(svc ReportArchive, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, userID, err := reportTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Get(r.Context(), reportID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// DeleteReport removes the artifact and its row; only the owner may do so.
func DeleteReport(svc ReportArchive, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, userID, err := reportTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), reportID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": reportID, "deleted": true})
	}
}

func reportTarget(r *http.Request) (uint64, string, error) {
	rawID := strings.TrimSpace(chi.URLParam(r, "reportId"))
	reportID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || reportID == 0 {
		return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid report id").
			WithDetails(map[string]any{"field": "reportId"})
	}
	userID := validators.SanitizeString(r.URL.Query().Get("userId"), maxUserIDLen)
	if userID == "" {
		return 0, "", pkgerrors.MissingField("userId")
	}
	if !validators.IsLedgerID(userID) {
		return 0, "", invalidUserID()
	}
	return reportID, userID, nil
}
