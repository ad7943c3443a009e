package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/coinledger-backend/pkg/config"
	"github.com/angelmondragon/coinledger-backend/pkg/db"
	"github.com/angelmondragon/coinledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox/registry"
)

var testTopics = config.PubSubConfig{LedgerTopic: "ledger", ReportsTopic: "reports"}

type fakePublisher struct {
	publishFn func(msg *gcppubsub.Message) error
	sent      []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) (string, error) {
	if f.publishFn != nil {
		if err := f.publishFn(msg); err != nil {
			return "", err
		}
	}
	f.sent = append(f.sent, msg)
	return "server-id", nil
}

type harness struct {
	db      *db.Client
	emitter *outbox.Service
	pubs    map[string]*fakePublisher
	svc     *Service
}

func newHarness(t *testing.T, maxAttempts int) *harness {
	t.Helper()
	client := dbtest.Open(t, &models.OutboxEvent{}, &models.OutboxDLQ{})
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
	eventRegistry, err := registry.NewEventRegistry(testTopics)
	require.NoError(t, err)

	h := &harness{
		db:      client,
		emitter: outbox.NewService(outbox.NewRepository(client.DB()), logg),
		pubs:    map[string]*fakePublisher{"ledger": {}, "reports": {}},
	}
	svc, err := NewService(ServiceParams{
		Config:     config.OutboxConfig{BatchSize: 10, MaxAttempts: maxAttempts},
		Logger:     logg,
		DB:         client,
		Repository: outbox.NewRepository(client.DB()),
		DLQ:        outbox.NewDLQRepository(client.DB()),
		Registry:   eventRegistry,
		Publishers: func(topic string) publisher {
			if p, ok := h.pubs[topic]; ok {
				return p
			}
			return nil
		},
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) emit(t *testing.T, event outbox.DomainEvent) {
	t.Helper()
	err := h.db.WithTx(context.Background(), func(tx *gorm.DB) error {
		return h.emitter.Emit(context.Background(), tx, event)
	})
	require.NoError(t, err)
}

func (h *harness) rows(t *testing.T) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, h.db.DB().Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (h *harness) deadLetters(t *testing.T) []models.OutboxDLQ {
	t.Helper()
	var rows []models.OutboxDLQ
	require.NoError(t, h.db.DB().Find(&rows).Error)
	return rows
}

func credited(userID string) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventCoinCredited,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   "1",
		Data: payloads.LedgerEntryEvent{
			EntryID: 1, UserID: userID, Type: 1, IsIncome: true, Coin: 50, Dollar: "5.00",
			BalanceAfter: 50, Date: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

func generated(userID string) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventReportGenerated,
		AggregateType: enums.AggregateReport,
		AggregateID:   "7",
		Data:          payloads.ReportEvent{ReportID: 7, UserID: userID, FileName: "u-1_x.pdf"},
	}
}

func TestDrainRoutesEventsByTopic(t *testing.T) {
	h := newHarness(t, 5)
	h.emit(t, credited("u-1"))
	h.emit(t, generated("u-1"))

	n, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, h.pubs["ledger"].sent, 1)
	require.Len(t, h.pubs["reports"].sent, 1)
	msg := h.pubs["ledger"].sent[0]
	assert.Equal(t, "coin_credited", msg.Attributes["event_type"])
	assert.Equal(t, "1", msg.Attributes["aggregate_id"])
	assert.Equal(t, "1", msg.Attributes["version"])
	assert.NotEmpty(t, msg.Attributes["event_id"])

	for _, row := range h.rows(t) {
		assert.NotNil(t, row.PublishedAt)
	}

	n, err = h.svc.drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainRecordsTransientFailure(t *testing.T) {
	h := newHarness(t, 5)
	h.pubs["ledger"].publishFn = func(*gcppubsub.Message) error { return errors.New("unavailable") }
	h.emit(t, credited("u-1"))
	h.emit(t, generated("u-1"))

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)

	rows := h.rows(t)
	require.Len(t, rows, 2)
	byType := map[enums.OutboxEventType]models.OutboxEvent{}
	for _, row := range rows {
		byType[row.EventType] = row
	}
	failed := byType[enums.EventCoinCredited]
	assert.Nil(t, failed.PublishedAt)
	assert.Equal(t, 1, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	assert.Contains(t, *failed.LastError, "unavailable")
	assert.NotNil(t, byType[enums.EventReportGenerated].PublishedAt)
	assert.Empty(t, h.deadLetters(t))
}

func TestDrainDeadLettersAfterMaxAttempts(t *testing.T) {
	h := newHarness(t, 2)
	h.pubs["ledger"].publishFn = func(*gcppubsub.Message) error { return errors.New("unavailable") }
	h.emit(t, credited("u-1"))

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.deadLetters(t))

	_, err = h.svc.drain(context.Background())
	require.NoError(t, err)

	dlq := h.deadLetters(t)
	require.Len(t, dlq, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq[0].ErrorReason)
	assert.Equal(t, 2, dlq[0].AttemptCount)
	assert.NotNil(t, h.rows(t)[0].PublishedAt)
}

func TestDrainDeadLettersUnresolvableRows(t *testing.T) {
	h := newHarness(t, 5)
	require.NoError(t, h.db.DB().Create(&models.OutboxEvent{
		ID:            mustUUID(t),
		EventType:     enums.OutboxEventType("coin_minted"),
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   "9",
		Payload:       []byte(`{"data":{}}`),
	}).Error)

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)

	dlq := h.deadLetters(t)
	require.Len(t, dlq, 1)
	assert.Equal(t, enums.OutboxDLQReasonUnknownEvent, dlq[0].ErrorReason)
	assert.Empty(t, h.pubs["ledger"].sent)
}

func TestDrainDeadLettersMissingPublisher(t *testing.T) {
	h := newHarness(t, 5)
	delete(h.pubs, "reports")
	h.emit(t, generated("u-1"))

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)

	dlq := h.deadLetters(t)
	require.Len(t, dlq, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq[0].ErrorReason)
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return id
}

func TestDrainRefreshesExistingDeadLetterOnReplay(t *testing.T) {
	h := newHarness(t, 5)
	eventID := mustUUID(t)
	earlier := "publish timed out"
	require.NoError(t, h.db.DB().Create(&models.OutboxDLQ{
		ID:            mustUUID(t),
		EventID:       eventID,
		EventType:     enums.OutboxEventType("coin_minted"),
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   "9",
		Payload:       []byte(`{"data":{}}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &earlier,
		AttemptCount:  10,
		FailedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}).Error)
	require.NoError(t, h.db.DB().Create(&models.OutboxEvent{
		ID:            eventID,
		EventType:     enums.OutboxEventType("coin_minted"),
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   "9",
		Payload:       []byte(`{"data":{}}`),
	}).Error)

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)

	dlq := h.deadLetters(t)
	require.Len(t, dlq, 1)
	assert.Equal(t, enums.OutboxDLQReasonUnknownEvent, dlq[0].ErrorReason)
	assert.Equal(t, 1, dlq[0].AttemptCount)
	require.NotNil(t, dlq[0].ErrorMessage)
	assert.NotEqual(t, earlier, *dlq[0].ErrorMessage)
	assert.NotNil(t, h.rows(t)[0].PublishedAt)
}
