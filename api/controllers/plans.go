package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/coinledger-backend/api/responses"
	"github.com/angelmondragon/coinledger-backend/internal/plans"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
)

type PlanCatalog interface {
	List(ctx context.Context, platform string) ([]plans.PlanDTO, error)
}

// ListCoinPlans returns the active plans, optionally for one platform.
func ListCoinPlans(svc PlanCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context(), r.URL.Query().Get("platform"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
