package outbox

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/coinledger-backend/pkg/enums"
)

// ActorRef identifies who triggered the event.
type ActorRef struct {
	UserID string `json:"userId,omitempty"`
	Source string `json:"source,omitempty"`
}

// PayloadEnvelope is stored in outbox_events.payload and published verbatim.
type PayloadEnvelope struct {
	Version       int                       `json:"version"`
	EventID       string                    `json:"eventId"`
	EventType     enums.OutboxEventType     `json:"eventType"`
	AggregateType enums.OutboxAggregateType `json:"aggregateType"`
	AggregateID   string                    `json:"aggregateId"`
	OccurredAt    time.Time                 `json:"occurredAt"`
	Actor         *ActorRef                 `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}
