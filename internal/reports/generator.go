package reports

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/coinledger-backend/internal/ledger"
	"github.com/angelmondragon/coinledger-backend/pkg/db"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coinledger-backend/pkg/errors"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/metrics"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/coinledger-backend/pkg/storage"
)

const fileTimestampLayout = "2006-01-02-15-04-05"

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type entrySource interface {
	ListChronological(ctx context.Context, filters ledger.Filters) ([]models.LedgerEntry, error)
}

// GenerateInput is a report request. Dates are whole UTC days, both inclusive.
type GenerateInput struct {
	UserID    string
	StartDate time.Time
	EndDate   time.Time
}

type GeneratorParams struct {
	Tx       db.TxRunner
	Users    userReader
	Entries  entrySource
	Repo     *Repository
	Store    storage.ArtifactStore
	Renderer Renderer
	Outbox   outbox.Emitter
	Metrics  *metrics.LedgerMetrics
	Logger   *logger.Logger
	Brand    string
	Now      func() time.Time
}

// Generator renders a ledger window to an artifact and registers it. The
// artifact and its metadata row are created together or not at all.
type Generator struct {
	tx       db.TxRunner
	users    userReader
	entries  entrySource
	repo     *Repository
	store    storage.ArtifactStore
	renderer Renderer
	outbox   outbox.Emitter
	metrics  *metrics.LedgerMetrics
	logg     *logger.Logger
	brand    string
	now      func() time.Time
}

func NewGenerator(p GeneratorParams) (*Generator, error) {
	switch {
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Users == nil:
		return nil, fmt.Errorf("users reader required")
	case p.Entries == nil:
		return nil, fmt.Errorf("ledger entries source required")
	case p.Repo == nil:
		return nil, fmt.Errorf("reports repository required")
	case p.Store == nil:
		return nil, fmt.Errorf("artifact store required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	renderer := p.Renderer
	if renderer == nil {
		renderer = NewPDFRenderer()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		tx:       p.Tx,
		users:    p.Users,
		entries:  p.Entries,
		repo:     p.Repo,
		store:    p.Store,
		renderer: renderer,
		outbox:   p.Outbox,
		metrics:  p.Metrics,
		logg:     p.Logger,
		brand:    p.Brand,
		now:      now,
	}, nil
}

func (in GenerateInput) validate() error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return pkgerrors.MissingField("userId")
	case in.StartDate.IsZero():
		return pkgerrors.MissingField("startDate")
	case in.EndDate.IsZero():
		return pkgerrors.MissingField("endDate")
	case startOfDay(in.StartDate).After(startOfDay(in.EndDate)):
		return pkgerrors.New(pkgerrors.CodeValidation, "startDate must not be after endDate").
			WithDetails(map[string]string{"startDate": "after_end_date"})
	}
	if err := storage.ValidateKey(in.UserID, "probe"); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId").
			WithDetails(map[string]string{"userId": "invalid"})
	}
	return nil
}

// FileName is unique per user and generation instant.
func FileName(userID string, at time.Time) string {
	return fmt.Sprintf("%s_%s-%s.pdf", userID, at.UTC().Format(fileTimestampLayout), uuid.NewString()[:8])
}

func (g *Generator) Generate(ctx context.Context, in GenerateInput) (*ReportDTO, error) {
	started := time.Now()
	record, err := g.generate(ctx, in)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			g.metrics.ObserveReport(metrics.ResultError, time.Since(started), 0)
		}
		return nil, err
	}
	g.metrics.ObserveReport(metrics.ResultOK, time.Since(started), record.FileSize)
	dto := toDTO(*record, g.store)
	return &dto, nil
}

func (g *Generator) generate(ctx context.Context, in GenerateInput) (*models.ReportRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	start, end := startOfDay(in.StartDate), startOfDay(in.EndDate)
	ctx = g.logg.WithUserID(ctx, in.UserID)

	user, err := g.users.FindByID(ctx, in.UserID)
	if err != nil {
		if db.IsRecordNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load user")
	}

	entries, err := g.entries.ListChronological(ctx, ledger.Filters{UserID: in.UserID, StartDate: &start, EndDate: &end})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load ledger window")
	}
	var total int64
	for _, e := range entries {
		total += e.Signed()
	}

	generatedAt := g.now().UTC().Truncate(time.Second)
	st := Statement{
		Brand:       g.brand,
		UserID:      user.ID,
		UserName:    user.DisplayName(),
		StartDate:   start,
		EndDate:     end,
		GeneratedAt: generatedAt,
		Entries:     entries,
		TotalCoins:  total,
	}
	var buf bytes.Buffer
	if err := g.renderer.Render(&buf, st); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render report")
	}

	fileName := FileName(in.UserID, generatedAt)
	if err := g.store.Write(ctx, in.UserID, fileName, &buf); err != nil {
		g.logg.Error(ctx, "report artifact write failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write report artifact")
	}

	info, err := g.store.Stat(ctx, in.UserID, fileName)
	if err != nil {
		return nil, g.discard(ctx, in.UserID, fileName, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "stat report artifact"))
	}

	record := &models.ReportRecord{
		UserID:       in.UserID,
		FileName:     fileName,
		GeneratedAt:  generatedAt,
		StartDate:    start,
		EndDate:      end,
		TotalRecords: int64(len(entries)),
		TotalCoins:   total,
		FileSize:     info.Size,
	}
	err = g.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := g.repo.WithTx(tx).Create(ctx, record); err != nil {
			return err
		}
		return g.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReportGenerated,
			AggregateType: enums.AggregateReport,
			AggregateID:   strconv.FormatUint(record.ID, 10),
			OccurredAt:    generatedAt,
			Actor:         &outbox.ActorRef{UserID: in.UserID, Source: "report"},
			Data:          reportEvent(*record, ""),
		})
	})
	if err != nil {
		return nil, g.discard(ctx, in.UserID, fileName, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "register report"))
	}

	logCtx := g.logg.WithFields(ctx, map[string]any{
		"report_id":     record.ID,
		"file_name":     fileName,
		"total_records": record.TotalRecords,
		"file_size":     record.FileSize,
	})
	g.logg.Info(logCtx, "report generated")
	return record, nil
}

// discard removes an artifact whose metadata could not be registered.
func (g *Generator) discard(ctx context.Context, userID, fileName string, cause error) error {
	if err := g.store.Delete(ctx, userID, fileName); err != nil && !storage.IsNotExist(err) {
		combined := multierr.Combine(cause, fmt.Errorf("remove orphaned artifact %s: %w", fileName, err))
		g.logg.Error(ctx, "report artifact left behind", combined)
		return pkgerrors.Wrap(pkgerrors.CodeStorage, combined, "register report")
	}
	g.logg.Warn(ctx, "report registration failed, artifact removed")
	return cause
}

func reportEvent(r models.ReportRecord, trigger string) payloads.ReportEvent {
	return payloads.ReportEvent{
		ReportID:     r.ID,
		UserID:       r.UserID,
		FileName:     r.FileName,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		TotalRecords: r.TotalRecords,
		TotalCoins:   r.TotalCoins,
		FileSize:     r.FileSize,
		Trigger:      trigger,
	}
}
