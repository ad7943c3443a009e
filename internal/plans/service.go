package plans

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coinledger-backend/pkg/db"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
)

// PlanDTO is the catalogue entry returned to clients.
type PlanDTO struct {
	ID           string          `json:"id"`
	PlatformType string          `json:"platformType"`
	ProductKey   string          `json:"productKey"`
	Dollar       decimal.Decimal `json:"dollar"`
	Coin         int64           `json:"coin"`
	ExtraCoin    int64           `json:"extraCoin"`
	TotalCoins   int64           `json:"totalCoins"`
	Tag          *string         `json:"tag,omitempty"`
}

func FromModel(p models.CoinPlan) PlanDTO {
	return PlanDTO{
		ID:           p.ID,
		PlatformType: p.PlatformType,
		ProductKey:   p.ProductKey,
		Dollar:       p.Dollar,
		Coin:         p.Coin,
		ExtraCoin:    p.ExtraCoin,
		TotalCoins:   p.TotalCoins(),
		Tag:          p.Tag,
	}
}

type planReader interface {
	FindActive(ctx context.Context, id string) (*models.CoinPlan, error)
	ListActive(ctx context.Context, platform string) ([]models.CoinPlan, error)
}

type Service struct {
	repo planReader
}

func NewService(repo planReader) *Service {
	return &Service{repo: repo}
}

// Get resolves an active plan or fails with NOT_FOUND.
func (s *Service) Get(ctx context.Context, id string) (*models.CoinPlan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.MissingField("planId")
	}
	plan, err := s.repo.FindActive(ctx, id)
	if err != nil {
		if db.IsRecordNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coin plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load coin plan")
	}
	return plan, nil
}

func (s *Service) List(ctx context.Context, platform string) ([]PlanDTO, error) {
	rows, err := s.repo.ListActive(ctx, strings.TrimSpace(platform))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list coin plans")
	}
	out := make([]PlanDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}
