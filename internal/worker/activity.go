// Package worker consumes the activity events published by the web client.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rentals/internal/events"
)

// ActivityWorker logs each activity event and keeps per-type counts.
type ActivityWorker struct {
	logger *slog.Logger

	mu       sync.Mutex
	counts   map[events.Type]int
	lastSeen time.Time
}

func NewActivityWorker(logger *slog.Logger) *ActivityWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityWorker{
		logger: logger,
		counts: make(map[events.Type]int),
	}
}

// HandleEvent records one event. Unknown types are logged and counted so a
// newer publisher never stalls an older consumer.
func (w *ActivityWorker) HandleEvent(ctx context.Context, e events.Event) error {
	if e.Type == "" {
		return fmt.Errorf("event without type")
	}

	w.mu.Lock()
	w.counts[e.Type]++
	w.lastSeen = e.OccurredAt
	w.mu.Unlock()

	attrs := []any{
		"event", string(e.Type),
		"user_id", e.UserID.String(),
		"occurred_at", e.OccurredAt,
	}
	switch e.Type {
	case events.AuthLogin, events.AuthRegister, events.AuthLogout:
		w.logger.InfoContext(ctx, "Account activity", attrs...)
	case events.PropertyCreated:
		w.logger.InfoContext(ctx, "Property listed", append(attrs, "property_id", e.Subject)...)
	case events.PropertyUpdated, events.PropertyDeleted:
		w.logger.InfoContext(ctx, "Listing changed", append(attrs, "property_id", e.Subject)...)
	case events.TransactionRequested, events.TransactionApproved:
		w.logger.InfoContext(ctx, "Rental activity", append(attrs, "transaction_id", e.Subject)...)
	default:
		w.logger.WarnContext(ctx, "Unknown activity event", append(attrs, "subject", e.Subject)...)
	}
	return nil
}

// Stats returns a copy of the per-type counts and the time of the latest
// event.
func (w *ActivityWorker) Stats() (map[events.Type]int, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[events.Type]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out, w.lastSeen
}

// ReportEvery logs the counts every interval until ctx is done.
func (w *ActivityWorker) ReportEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			counts, last := w.Stats()
			if len(counts) == 0 {
				continue
			}
			attrs := make([]any, 0, 2*len(counts)+2)
			for t, n := range counts {
				attrs = append(attrs, string(t), n)
			}
			attrs = append(attrs, "last_event_at", last)
			w.logger.InfoContext(ctx, "Activity summary", attrs...)
		}
	}
}
