package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// Topics для событий продаж.
const (
	TopicSaleEvents      = "pos.sale.events"
	TopicDeadLetterQueue = "pos.sale.events.dlq"
)

// Заголовки сообщений.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
	HeaderAttempts      = "x-attempts"
)

// Envelope — конверт, в котором outbox-сообщение уходит в Kafka.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope упаковывает outbox-сообщение.
func NewEnvelope(msg domain.OutboxMessage, publishedAt time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		CreatedAt:     msg.CreatedAt,
		PublishedAt:   publishedAt.UTC(),
	}
}

// DecodeSaleEvent разбирает конверт с событием продажи.
func DecodeSaleEvent(data []byte) (Envelope, domain.SaleEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, domain.SaleEvent{}, err
	}
	var event domain.SaleEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		return env, domain.SaleEvent{}, err
	}
	return env, event, nil
}
