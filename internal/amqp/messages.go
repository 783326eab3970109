package amqp

import (
	"errors"
	"time"
)

// ErrPoison marks a message that can never be handled and must not be
// requeued.
var ErrPoison = errors.New("poison message")

// Message is one delivery as seen by a consumer handler.
type Message struct {
	RoutingKey string
	Body       []byte
	Timestamp  time.Time
}
