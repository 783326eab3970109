// Package events publishes user activity (sign-ins, listings created, rental
// requests) so other services can follow what happens in the client.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rentals/internal/amqp"
	"rentals/internal/core"
)

// Type is the event name and doubles as the AMQP routing key.
type Type string

const (
	AuthLogin            Type = "auth.login"
	AuthRegister         Type = "auth.register"
	AuthLogout           Type = "auth.logout"
	PropertyCreated      Type = "property.created"
	PropertyUpdated      Type = "property.updated"
	PropertyDeleted      Type = "property.deleted"
	TransactionRequested Type = "transaction.requested"
	TransactionApproved  Type = "transaction.approved"
)

// Event is the JSON body of every published message.
type Event struct {
	Type       Type      `json:"type"`
	UserID     core.ID   `json:"userId,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(t Type, userID core.ID, subject string) Event {
	return Event{Type: t, UserID: userID, Subject: subject, OccurredAt: time.Now().UTC()}
}

func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}

// Publisher sends events. Publishing is best effort: callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// transport is the part of *amqp.Client the publisher uses.
type transport interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// AMQPPublisher publishes events to a topic exchange.
type AMQPPublisher struct {
	client transport
}

func NewAMQPPublisher(client *amqp.Client) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.client.Publish(ctx, string(e.Type), body)
}

func (p *AMQPPublisher) Close() error { return p.client.Close() }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Connect returns an AMQP publisher when url is set and Noop otherwise. A
// broker that cannot be reached is logged and replaced by Noop.
func Connect(url, exchange string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		logger.Info("AMQP not configured, activity events disabled")
		return Noop{}
	}
	client, err := amqp.NewClient(url, exchange, "", logger)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return Noop{}
	}
	logger.Info("Initialized AMQP event publisher", "exchange", exchange)
	return NewAMQPPublisher(client)
}

// Handler processes one consumed event.
type Handler func(ctx context.Context, e Event) error

// Dispatch adapts h to the AMQP consumer, dropping undecodable messages.
func Dispatch(h Handler) func(context.Context, amqp.Message) error {
	return func(ctx context.Context, msg amqp.Message) error {
		e, err := Decode(msg.Body)
		if err != nil {
			return fmt.Errorf("%w: %v", amqp.ErrPoison, err)
		}
		return h(ctx, e)
	}
}
