package main

import (
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type replayProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// consumerAdapter сужает sarama.PartitionConsumer до partitionConsumer.
type consumerAdapter struct {
	consumer sarama.Consumer
}

func (a consumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a consumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

// replayDeps держит соединения с Kafka на время одного прогона.
type replayDeps struct {
	offsets  offsetClient
	consumer partitionConsumerSource
	producer replayProducer
}

// close закрывает зависимости в обратном порядке открытия.
func (d replayDeps) close() {
	for _, c := range []interface{ Close() error }{d.producer, d.consumer, d.offsets} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("close kafka dependency")
		}
	}
}

// producerConfig настраивает идемпотентный sync producer.
func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "pos-dlq-replay"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// newReplayDependencies подменяется в тестах.
var newReplayDependencies = func(cfg config) (replayDeps, error) {
	scanConfig := sarama.NewConfig()
	scanConfig.ClientID = "pos-dlq-scan"
	scanConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, scanConfig)
	if err != nil {
		return replayDeps{}, fmt.Errorf("connect to kafka %v: %w", cfg.brokers, err)
	}
	deps := replayDeps{offsets: client}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		deps.close()
		return replayDeps{}, fmt.Errorf("open dlq consumer: %w", err)
	}
	deps.consumer = consumerAdapter{consumer: consumer}

	if !cfg.execute {
		return deps, nil
	}

	producer, err := sarama.NewSyncProducer(cfg.brokers, producerConfig())
	if err != nil {
		deps.close()
		return replayDeps{}, fmt.Errorf("open replay producer: %w", err)
	}
	deps.producer = producer
	return deps, nil
}
