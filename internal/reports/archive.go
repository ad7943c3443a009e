package reports

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/coinledger-backend/pkg/db"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/metrics"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
	"github.com/angelmondragon/coinledger-backend/pkg/pagination"
	"github.com/angelmondragon/coinledger-backend/pkg/storage"
)

const (
	TriggerUser      = "user"
	TriggerRetention = "retention"
)

type ArchiveParams struct {
	Tx      db.TxRunner
	Repo    *Repository
	Store   storage.ArtifactStore
	Outbox  outbox.Emitter
	Metrics *metrics.LedgerMetrics
	Logger  *logger.Logger
}

// Archive lists and removes reports. Removal deletes the artifact before the
// row, and keeps the row when the artifact could not be removed.
type Archive struct {
	tx      db.TxRunner
	repo    *Repository
	store   storage.ArtifactStore
	outbox  outbox.Emitter
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
}

func NewArchive(p ArchiveParams) (*Archive, error) {
	switch {
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Repo == nil:
		return nil, fmt.Errorf("reports repository required")
	case p.Store == nil:
		return nil, fmt.Errorf("artifact store required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Archive{
		tx:      p.Tx,
		repo:    p.Repo,
		store:   p.Store,
		outbox:  p.Outbox,
		metrics: p.Metrics,
		logg:    p.Logger,
	}, nil
}

func (a *Archive) List(ctx context.Context, filters ListFilters, params pagination.Params) (*pagination.Page[ReportDTO], error) {
	if strings.TrimSpace(filters.UserID) == "" {
		return nil, pkgerrors.MissingField("userId")
	}
	if filters.StartDate != nil && filters.EndDate != nil && startOfDay(*filters.StartDate).After(startOfDay(*filters.EndDate)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startDate must not be after endDate").
			WithDetails(map[string]string{"startDate": "after_end_date"})
	}

	rows, total, err := a.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list reports")
	}
	items := make([]ReportDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDTO(row, a.store))
	}
	return &pagination.Page[ReportDTO]{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

// Get returns one report owned by requestingUserID.
func (a *Archive) Get(ctx context.Context, reportID uint64, requestingUserID string) (*ReportDTO, error) {
	record, err := a.owned(ctx, reportID, requestingUserID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*record, a.store)
	return &dto, nil
}

// Delete removes a report owned by requestingUserID. A second delete of the
// same id fails with NOT_FOUND.
func (a *Archive) Delete(ctx context.Context, reportID uint64, requestingUserID string) error {
	record, err := a.owned(ctx, reportID, requestingUserID)
	if err != nil {
		return err
	}
	return a.remove(ctx, *record, TriggerUser)
}

// PurgeOlderThan removes up to batch reports generated before cutoff and
// returns how many were removed. Failures are collected, not fatal.
func (a *Archive) PurgeOlderThan(ctx context.Context, cutoff time.Time, batch int) (int, error) {
	if batch <= 0 {
		batch = pagination.MaxLimit
	}
	rows, err := a.repo.ListGeneratedBefore(ctx, cutoff.UTC(), batch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list expired reports")
	}

	var (
		removed int
		errs    error
	)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return removed, multierr.Append(errs, err)
		}
		if err := a.remove(ctx, row, TriggerRetention); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("report %d: %w", row.ID, err))
			continue
		}
		removed++
	}
	return removed, errs
}

func (a *Archive) owned(ctx context.Context, reportID uint64, requestingUserID string) (*models.ReportRecord, error) {
	if reportID == 0 {
		return nil, pkgerrors.MissingField("reportId")
	}
	if strings.TrimSpace(requestingUserID) == "" {
		return nil, pkgerrors.MissingField("userId")
	}
	record, err := a.repo.FindByID(ctx, reportID)
	if err != nil {
		if db.IsRecordNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load report")
	}
	if record.UserID != requestingUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "report belongs to another user")
	}
	return record, nil
}

func (a *Archive) remove(ctx context.Context, record models.ReportRecord, trigger string) error {
	ctx = a.logg.WithReportID(a.logg.WithUserID(ctx, record.UserID), record.ID)

	if err := a.store.Delete(ctx, record.UserID, record.FileName); err != nil {
		if !storage.IsNotExist(err) {
			a.logg.Error(ctx, "report artifact delete failed, keeping metadata", err)
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete report artifact")
		}
		a.logg.Warn(ctx, "report artifact already absent")
	}

	err := a.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := a.repo.WithTx(tx).Delete(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete report row")
		}
		if n == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return a.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReportDeleted,
			AggregateType: enums.AggregateReport,
			AggregateID:   strconv.FormatUint(record.ID, 10),
			Actor:         &outbox.ActorRef{UserID: record.UserID, Source: trigger},
			Data:          reportEvent(record, trigger),
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete report")
		}
		return err
	}

	a.metrics.IncReportDeleted(trigger)
	a.logg.Info(ctx, "report deleted")
	return nil
}
