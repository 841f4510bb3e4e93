package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
)

func TestSplitBrokers(t *testing.T) {
	cases := map[string][]string{
		" a:9092, ,b:9092 ,": {"a:9092", "b:9092"},
		"a:9092":             {"a:9092"},
		"  ":                 nil,
		"":                   nil,
	}
	for raw, want := range cases {
		assert.Equal(t, want, splitBrokers(raw), "raw=%q", raw)
	}
}

func TestInitKafkaProducer(t *testing.T) {
	t.Run("no brokers disables kafka", func(t *testing.T) {
		producer, err := initKafkaProducer(" , ", quietEntry("kafka-off"))
		require.NoError(t, err)
		assert.Nil(t, producer)
	})

	t.Run("unreachable brokers", func(t *testing.T) {
		if testing.Short() {
			t.Skip("dials brokers")
		}
		producer, err := initKafkaProducer("127.0.0.1:1, 127.0.0.1:2", quietEntry("kafka-down"))
		assert.Error(t, err)
		assert.Nil(t, producer)
	})
}

func TestCloseKafkaProducer_NilIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { closeKafkaProducer(nil, quietEntry("close")) })
}

func TestOutboxPublishers(t *testing.T) {
	t.Run("without kafka events go to the log", func(t *testing.T) {
		primary, dlq := outboxPublishers(nil, kafka.TopicSaleEvents, quietEntry("publishers"))
		assert.Nil(t, dlq)
		assert.IsType(t, logPublisher{}, primary)

		err := primary.Publish(context.Background(), domain.OutboxMessage{
			ID:          "m1",
			AggregateID: "s1",
			EventType:   domain.EventSaleCreated,
		})
		assert.NoError(t, err)
	})

	t.Run("with kafka both publishers are wired", func(t *testing.T) {
		primary, dlq := outboxPublishers(&kafka.Producer{}, kafka.TopicSaleEvents, quietEntry("publishers"))
		assert.IsType(t, &kafka.OutboxTopicPublisher{}, primary)
		assert.IsType(t, &kafka.OutboxTopicPublisher{}, dlq)
	})
}
