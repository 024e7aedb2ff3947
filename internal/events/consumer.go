package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"
)

// EventConsumer reads audit events back from Pulsar.
type EventConsumer struct {
	client   pulsar.Client
	consumer pulsar.Consumer
}

// NewEventConsumer subscribes to topic. Messages that fail three times are
// moved to a dead-letter topic.
func NewEventConsumer(pulsarURL, topic, subscription string) (*EventConsumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: pulsarURL})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscription,
		Type:             pulsar.Shared,
		DLQ: &pulsar.DLQPolicy{
			MaxDeliveries:   3,
			DeadLetterTopic: topic + "-dlq",
		},
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar consumer: %w", err)
	}

	return &EventConsumer{client: client, consumer: consumer}, nil
}

// Receive blocks until the next audit event arrives. Undecodable messages are
// nacked and returned as an error.
func (c *EventConsumer) Receive(ctx context.Context) (AuditEvent, error) {
	msg, err := c.consumer.Receive(ctx)
	if err != nil {
		return AuditEvent{}, fmt.Errorf("failed to receive message: %w", err)
	}

	event, err := DecodeAuditEvent(msg.Payload())
	if err != nil {
		c.consumer.Nack(msg)
		return AuditEvent{}, err
	}

	if err := c.consumer.Ack(msg); err != nil {
		return event, fmt.Errorf("failed to ack message: %w", err)
	}
	return event, nil
}

// DecodeAuditEvent parses an audit event payload.
func DecodeAuditEvent(payload []byte) (AuditEvent, error) {
	var event AuditEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return AuditEvent{}, fmt.Errorf("failed to decode audit event: %w", err)
	}
	if event.Action == "" || event.Resource == "" {
		return AuditEvent{}, fmt.Errorf("audit event is missing action or resource")
	}
	return event, nil
}

// Close cleans up the Pulsar consumer and client.
func (c *EventConsumer) Close() {
	c.consumer.Close()
	c.client.Close()
}
