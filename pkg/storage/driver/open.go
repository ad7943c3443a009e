// Package driver picks the artifact store named by the reports configuration.
package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/coinledger-backend/pkg/config"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/storage"
	"github.com/angelmondragon/coinledger-backend/pkg/storage/gcs"
	"github.com/angelmondragon/coinledger-backend/pkg/storage/local"
)

// Pinger is implemented by every store returned from Open.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is an artifact store that can also report its health.
type Store interface {
	storage.ArtifactStore
	Pinger
}

func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Reports.StorageDriver)) {
	case config.StorageDriverGCS:
		store, err := gcs.New(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageDriverLocal, "":
		store, err := local.New(cfg.Reports.LocalRoot, cfg.Reports.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		logg.Info(logg.WithField(ctx, "root", cfg.Reports.LocalRoot), "local artifact store initialized")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Reports.StorageDriver)
	}
}
