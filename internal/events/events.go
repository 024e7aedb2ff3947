// Package events publishes audit events for changes made through the console.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Audited actions.
const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
	ActionPasswordChange = "password_change"
)

// Audited resources.
const (
	ResourceSession      = "session"
	ResourcePoliceOffice = "police_office"
	ResourceReport       = "report"
	ResourceProfile      = "profile"
)

// AuditEvent records one action taken by a signed-in administrator.
type AuditEvent struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	Resource   string            `json:"resource"`
	ResourceID string            `json:"resource_id,omitempty"`
	ActorID    string            `json:"actor_id"`
	Actor      string            `json:"actor,omitempty"`
	Time       time.Time         `json:"time"`
	Details    map[string]string `json:"details,omitempty"`
}

// NewAuditEvent creates an event stamped with a fresh id and the current time.
func NewAuditEvent(action, resource, resourceID, actorID, actor string) AuditEvent {
	return AuditEvent{
		ID:         uuid.NewString(),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		ActorID:    actorID,
		Actor:      actor,
		Time:       time.Now().UTC(),
	}
}

// Notifier delivers audit events.
type Notifier interface {
	Notify(ctx context.Context, event AuditEvent) error
	Close()
}

type sender interface {
	Send(ctx context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error)
}

// EventPublisher sends audit events to a Pulsar topic.
type EventPublisher struct {
	client   pulsar.Client
	producer sender
	closer   func()
	log      *zerolog.Logger
}

// NewEventPublisher connects to Pulsar and creates a producer for topic.
func NewEventPublisher(pulsarURL, topic string, log *zerolog.Logger) (*EventPublisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: pulsarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar producer: %w", err)
	}

	log.Info().Str("topic", topic).Msg("Pulsar client and producer initialized successfully")
	return &EventPublisher{
		client:   client,
		producer: producer,
		closer:   producer.Close,
		log:      log,
	}, nil
}

// Notify publishes event, keyed by the resource so events about one record
// stay ordered.
func (p *EventPublisher) Notify(ctx context.Context, event AuditEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not serialize audit event: %w", err)
	}

	_, err = p.producer.Send(ctx, &pulsar.ProducerMessage{
		Key:     event.Resource + ":" + event.ResourceID,
		Payload: message,
		Properties: map[string]string{
			"action":   event.Action,
			"resource": event.Resource,
		},
		EventTime: event.Time,
	})
	if err != nil {
		return fmt.Errorf("could not send audit event to Pulsar: %w", err)
	}

	p.log.Debug().Str("action", event.Action).Str("resource", event.Resource).Msg("audit event sent to Pulsar")
	return nil
}

// Close closes the producer and client.
func (p *EventPublisher) Close() {
	if p.closer != nil {
		p.closer()
	}
	if p.client != nil {
		p.client.Close()
	}
	p.log.Info().Msg("Pulsar client and producer closed successfully")
}

// NoopNotifier drops every event. It is used when no Pulsar URL is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, AuditEvent) error { return nil }
func (NoopNotifier) Close()                                    {}
