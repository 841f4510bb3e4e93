package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	sale := domain.NewSale("sale-123", "cust-1", domain.PaymentMethodCard, "", time.Now().UTC())
	sale.Total = decimal.RequireFromString("59.00")
	payload, err := json.Marshal(domain.NewSaleEvent(domain.EventSaleCreated, sale, "", time.Now()))
	if err != nil {
		t.Fatal(err)
	}

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != "sale-123" {
			return errors.New("message must be keyed by sale id")
		}
		value, _ := msg.Value.Encode()
		env, event, err := DecodeSaleEvent(value)
		if err != nil {
			return err
		}
		if env.ID != "outbox-1" || env.EventType != domain.EventSaleCreated {
			return errors.New("unexpected envelope")
		}
		if event.SaleID != "sale-123" || !event.Total.Equal(decimal.RequireFromString("59.00")) {
			return errors.New("unexpected sale event")
		}
		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[string(h.Key)] = string(h.Value)
		}
		if headers[HeaderOutboxID] != "outbox-1" || headers[HeaderAttempts] != "0" {
			return errors.New("unexpected headers")
		}
		return nil
	})

	publisher := NewOutboxPublisher(newProducer(mockProducer), "")
	if publisher.Topic() != TopicSaleEvents {
		t.Fatalf("expected default topic %s, got %s", TopicSaleEvents, publisher.Topic())
	}

	err = publisher.Publish(context.Background(), domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: domain.AggregateTypeSale,
		AggregateID:   "sale-123",
		EventType:     domain.EventSaleCreated,
		Payload:       payload,
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewOutboxPublisher(newProducer(mockProducer), TopicDeadLetterQueue)
	err := publisher.Publish(context.Background(), domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: domain.AggregateTypeSale,
		AggregateID:   "sale-234",
		EventType:     domain.EventSaleStatusChanged,
		Payload:       []byte(`{"status":"CANCELLED"}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicSaleEvents)
	if err := publisher.Publish(context.Background(), domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}

func TestNewEnvelope_EmptyPayload(t *testing.T) {
	t.Parallel()

	env := NewEnvelope(domain.OutboxMessage{ID: "x"}, time.Now())
	if string(env.Payload) != "null" {
		t.Fatalf("expected null payload, got %s", env.Payload)
	}
}
