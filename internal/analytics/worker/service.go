// Package worker consumes ledger events from Pub/Sub and records them in BigQuery.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/coinledger-backend/internal/analytics"
	"github.com/angelmondragon/coinledger-backend/pkg/enums"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/coinledger-backend/pkg/outbox/registry"
)

const consumerName = "analytics"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type rowSink interface {
	Insert(ctx context.Context, rows ...analytics.LedgerEventRow) error
}

type deduper interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Decoders returns the payload decoders the worker understands.
func Decoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventCoinCredited, 1, registry.JSONDecoder[payloads.LedgerEntryEvent]())
	decoders.Register(enums.EventCoinDebited, 1, registry.JSONDecoder[payloads.LedgerEntryEvent]())
	return decoders
}

type Params struct {
	Subscription receiver
	Sink         rowSink
	Dedupe       deduper
	Decoders     *registry.DecoderRegistry
	Logger       *logger.Logger
}

// Service acks poison messages after logging them and nacks transient
// failures so Pub/Sub redelivers.
type Service struct {
	sub      receiver
	sink     rowSink
	dedupe   deduper
	decoders *registry.DecoderRegistry
	logg     *logger.Logger
}

func NewService(p Params) (*Service, error) {
	switch {
	case p.Subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case p.Sink == nil:
		return nil, errors.New("row sink is required")
	case p.Dedupe == nil:
		return nil, errors.New("idempotency manager is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	decoders := p.Decoders
	if decoders == nil {
		decoders = Decoders()
	}
	return &Service{sub: p.Subscription, sink: p.Sink, dedupe: p.Dedupe, decoders: decoders, logg: p.Logger}, nil
}

func (s *Service) Run(ctx context.Context) error {
	return s.sub.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.handle(msgCtx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle returns true when the message should be acked.
func (s *Service) handle(ctx context.Context, msg *gcppubsub.Message) bool {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping undecodable analytics message")
		return true
	}
	if env.EventType == "" {
		if parsed, err := enums.ParseOutboxEventType(msg.Attributes["event_type"]); err == nil {
			env.EventType = parsed
		}
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     env.EventID,
		"event_type":   string(env.EventType),
		"aggregate_id": env.AggregateID,
	})
	if !analytics.IsLedgerEvent(env.EventType) {
		s.logg.Debug(ctx, "skipping non-ledger event")
		return true
	}

	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		s.logg.Warn(ctx, "dropping analytics message with invalid event id")
		return true
	}

	row, err := s.decode(env)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping analytics message with invalid payload")
		return true
	}

	seen, err := s.dedupe.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		s.logg.Error(ctx, "idempotency check failed", err)
		return false
	}
	if seen {
		s.logg.Debug(ctx, "analytics event already recorded")
		return true
	}

	if err := s.sink.Insert(ctx, row); err != nil {
		s.logg.Error(ctx, "bigquery insert failed", err)
		if relErr := s.dedupe.Release(ctx, consumerName, eventID); relErr != nil {
			s.logg.Error(ctx, "idempotency release failed", relErr)
		}
		return false
	}
	s.logg.Info(ctx, "analytics event recorded")
	return true
}

func (s *Service) decode(env outbox.PayloadEnvelope) (analytics.LedgerEventRow, error) {
	version := env.Version
	if version == 0 {
		version = 1
	}
	decoded, err := s.decoders.Decode(env.EventType, version, env.Data)
	if err != nil {
		return analytics.LedgerEventRow{}, err
	}
	entry, ok := decoded.(*payloads.LedgerEntryEvent)
	if !ok {
		return analytics.LedgerEventRow{}, fmt.Errorf("unexpected payload %T", decoded)
	}
	return analytics.NewLedgerEventRow(env, *entry)
}
