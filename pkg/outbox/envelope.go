package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// SchemaVersion is stamped on envelopes written by this build.
const SchemaVersion = 1

// ActorRef identifies the user, and the shop they acted for, behind an event.
type ActorRef struct {
	UserID uuid.UUID  `json:"userId"`
	ShopID *uuid.UUID `json:"shopId,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// verbatim as the Pub/Sub message body. EventID equals the outbox row id, so
// subscribers can use it to drop redeliveries.
type PayloadEnvelope struct {
	Version     int                   `json:"version"`
	EventID     string                `json:"eventId"`
	Type        enums.OutboxEventType `json:"type,omitempty"`
	AggregateID uuid.UUID             `json:"aggregateId"`
	OccurredAt  time.Time             `json:"occurredAt"`
	Actor       *ActorRef             `json:"actor,omitempty"`
	Data        json.RawMessage       `json:"data"`
}

var errEmptyData = errors.New("envelope has no data")

// DecodeEnvelope parses raw and rejects envelopes without a data section.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, errEmptyData
	}
	return env, nil
}
