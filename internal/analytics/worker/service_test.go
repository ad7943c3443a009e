package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coinledger-backend/internal/analytics"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox/payloads"
)

type stubReceiver struct{}

func (stubReceiver) Receive(context.Context, func(context.Context, *gcppubsub.Message)) error {
	return nil
}

type fakeSink struct {
	insertFn func(rows []analytics.LedgerEventRow) error
	rows     []analytics.LedgerEventRow
}

func (f *fakeSink) Insert(_ context.Context, rows ...analytics.LedgerEventRow) error {
	if f.insertFn != nil {
		if err := f.insertFn(rows); err != nil {
			return err
		}
	}
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeDedupe struct {
	seen     map[uuid.UUID]bool
	checkErr error
	released []uuid.UUID
}

func (f *fakeDedupe) CheckAndMarkProcessed(_ context.Context, _ string, id uuid.UUID) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	if f.seen[id] {
		return true, nil
	}
	f.seen[id] = true
	return false, nil
}

func (f *fakeDedupe) Release(_ context.Context, _ string, id uuid.UUID) error {
	delete(f.seen, id)
	f.released = append(f.released, id)
	return nil
}

func newTestService(t *testing.T, sink *fakeSink, dedupe *fakeDedupe) *Service {
	t.Helper()
	svc, err := NewService(Params{
		Subscription: stubReceiver{},
		Sink:         sink,
		Dedupe:       dedupe,
		Logger:       logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func ledgerMessage(t *testing.T, eventType enums.OutboxEventType, data any) (*gcppubsub.Message, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:       1,
		EventID:       id.String(),
		EventType:     eventType,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   "5",
		OccurredAt:    time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		Data:          raw,
	})
	require.NoError(t, err)
	return &gcppubsub.Message{ID: "m-1", Data: body, Attributes: map[string]string{"event_type": string(eventType)}}, id
}

func creditPayload() payloads.LedgerEntryEvent {
	return payloads.LedgerEntryEvent{EntryID: 5, UserID: "u-1", Type: 1, IsIncome: true, Coin: 100, Dollar: "9.99", BalanceAfter: 100}
}

func TestHandleRecordsOnce(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, sink, &fakeDedupe{seen: map[uuid.UUID]bool{}})
	msg, _ := ledgerMessage(t, enums.EventCoinCredited, creditPayload())

	assert.True(t, svc.handle(context.Background(), msg))
	assert.True(t, svc.handle(context.Background(), msg))

	require.Len(t, sink.rows, 1)
	assert.Equal(t, "u-1", sink.rows[0].UserID)
	assert.Equal(t, int64(100), sink.rows[0].SignedCoin)
}

func TestHandleNacksAndReleasesOnInsertFailure(t *testing.T) {
	sink := &fakeSink{insertFn: func([]analytics.LedgerEventRow) error { return errors.New("quota") }}
	dedupe := &fakeDedupe{seen: map[uuid.UUID]bool{}}
	svc := newTestService(t, sink, dedupe)
	msg, id := ledgerMessage(t, enums.EventCoinDebited, creditPayload())

	assert.False(t, svc.handle(context.Background(), msg))
	assert.Equal(t, []uuid.UUID{id}, dedupe.released)
	assert.False(t, dedupe.seen[id])
}

func TestHandleNacksWhenDedupeUnavailable(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, sink, &fakeDedupe{seen: map[uuid.UUID]bool{}, checkErr: errors.New("redis down")})
	msg, _ := ledgerMessage(t, enums.EventCoinCredited, creditPayload())

	assert.False(t, svc.handle(context.Background(), msg))
	assert.Empty(t, sink.rows)
}

func TestHandleAcksPoisonAndForeignMessages(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, sink, &fakeDedupe{seen: map[uuid.UUID]bool{}})

	report, _ := ledgerMessage(t, enums.EventReportGenerated, payloads.ReportEvent{ReportID: 1})
	badPayload, _ := ledgerMessage(t, enums.EventCoinCredited, map[string]any{"userId": "u-1", "dollar": "n/a"})
	garbage := &gcppubsub.Message{ID: "x", Data: []byte("not json")}

	for _, msg := range []*gcppubsub.Message{report, badPayload, garbage} {
		assert.True(t, svc.handle(context.Background(), msg))
	}
	assert.Empty(t, sink.rows)
}

func TestHandleFallsBackToEventTypeAttribute(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, sink, &fakeDedupe{seen: map[uuid.UUID]bool{}})

	untyped, _ := ledgerMessage(t, "", creditPayload())
	untyped.Attributes["event_type"] = string(enums.EventCoinCredited)
	assert.True(t, svc.handle(context.Background(), untyped))
	require.Len(t, sink.rows, 1)

	unknown, _ := ledgerMessage(t, "", creditPayload())
	unknown.Attributes["event_type"] = "coin_minted"
	assert.True(t, svc.handle(context.Background(), unknown))
	assert.Len(t, sink.rows, 1)
}
