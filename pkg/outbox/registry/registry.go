package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/pkg/config"
	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox"
	"github.com/shopbridge/shopbridge-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type to its topic and payload type.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry knows every event the purchasing workflow emits.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that can never be published as stored.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// NewEventRegistry routes every purchase order event to the purchasing topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.PurchasingTopic)
	if topic == "" {
		return nil, errors.New("purchasing topic is required")
	}

	factories := map[enums.OutboxEventType]func() any{
		enums.EventPurchaseOrderCreated:       payloadOf[payloads.PurchaseOrderCreatedEvent](),
		enums.EventPurchaseOrderUpdated:       payloadOf[payloads.PurchaseOrderUpdatedEvent](),
		enums.EventPurchaseOrderStatusChanged: payloadOf[payloads.PurchaseOrderStatusChangedEvent](),
		enums.EventPurchaseOrderDeleted:       payloadOf[payloads.PurchaseOrderDeletedEvent](),
		enums.EventPurchasePaymentRecorded:    payloadOf[payloads.PurchasePaymentRecordedEvent](),
		enums.EventStockTransferred:           payloadOf[payloads.StockTransferredEvent](),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(factories))}
	for eventType, factory := range factories {
		reg.entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregatePurchaseOrder,
			Topic:          topic,
			PayloadFactory: factory,
		}
	}
	return reg, nil
}

// Resolve validates a row against its descriptor and decodes the payload.
// Every failure is non-retryable: the stored row will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, nonRetryable("%s: %v", event.EventType, err)
	}
	if envelope.Type != "" && envelope.Type != event.EventType {
		return nil, nonRetryable("envelope type %s does not match row type %s", envelope.Type, event.EventType)
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %v", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func nonRetryable(format string, args ...any) NonRetryableError {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}
