// Package kafka wires the messaging abstractions to a Kafka broker via
// Watermill.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/kahawahub/kahawa/backend/internal/messaging"
)

const partitionKeyMetadata = "partition_key"

// marshaler partitions messages by the order or product id so events for
// one aggregate stay ordered.
var marshaler = kafka.NewWithPartitioningMarshaler(func(topic string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(partitionKeyMetadata), nil
})

type publisher struct {
	pub message.Publisher
}

// NewPublisher creates a Kafka-backed messaging.Publisher.
func NewPublisher(brokers []string, clientID string, logger watermill.LoggerAdapter) (messaging.Publisher, func() error, error) {
	saramaConfig := kafka.DefaultSaramaSyncPublisherConfig()
	saramaConfig.ClientID = clientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             marshaler,
		OverwriteSaramaConfig: saramaConfig,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return &publisher{pub: pub}, pub.Close, nil
}

func (p *publisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(partitionKeyMetadata, key)
	return p.pub.Publish(topic, msg)
}

// NewSubscriber creates a Kafka consumer-group subscriber for the
// notification worker.
func NewSubscriber(brokers []string, clientID, group string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.ClientID = clientID
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           marshaler,
		OverwriteSaramaConfig: saramaConfig,
		ConsumerGroup:         group,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}
	return sub, nil
}
