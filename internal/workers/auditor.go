// Package workers holds the background consumers of task change events.
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benvon/taskwise/internal/logger"
	"github.com/benvon/taskwise/internal/queue"
	"go.uber.org/zap"
)

// ErrInvalidEvent is returned for messages without a usable event
var ErrInvalidEvent = errors.New("invalid task event")

// EventAuditor writes one audit log line per task change event. It never
// touches the task collection.
type EventAuditor struct {
	logger *zap.Logger

	mu     sync.Mutex
	counts map[queue.EventType]int
}

// NewEventAuditor creates a new auditor
func NewEventAuditor(log *zap.Logger) *EventAuditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventAuditor{logger: log, counts: map[queue.EventType]int{}}
}

// ProcessMessage audits and acknowledges one message. Messages that carry no
// valid event are rejected without requeue so they land in the dead letter queue.
func (a *EventAuditor) ProcessMessage(ctx context.Context, msg queue.MessageInterface) error {
	event := msg.GetEvent()
	if event == nil || !event.Type.Valid() {
		if nackErr := msg.Nack(false); nackErr != nil {
			return fmt.Errorf("failed to nack invalid event: %w", nackErr)
		}
		return ErrInvalidEvent
	}

	fields := []zap.Field{
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", string(event.Type)),
		zap.String("task_id", logger.SanitizeTaskID(event.TaskID.String())),
		zap.Time("occurred_at", event.OccurredAt),
	}
	if event.Task != nil {
		fields = append(fields,
			zap.String("title", logger.SanitizeTitle(event.Task.Title)),
			zap.Bool("completed", event.Task.Completed),
			zap.String("recurrence", string(event.Task.Recurrence)),
		)
	}
	a.logger.Info("task_event_audited", fields...)

	a.mu.Lock()
	a.counts[event.Type]++
	a.mu.Unlock()

	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack event %s: %w", event.ID, err)
	}
	return nil
}

// Run processes messages until ctx is cancelled or msgs is closed. Transport
// errors are logged and do not stop the loop.
func (a *EventAuditor) Run(ctx context.Context, msgs <-chan *queue.Message, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgs:
			if !ok {
				a.logger.Info("message_channel_closed")
				return
			}
			if err := a.ProcessMessage(ctx, msg); err != nil {
				a.logger.Warn("failed_to_process_event", zap.Error(err))
			}
		}
	}
}

// Counts returns how many events of each type were audited
func (a *EventAuditor) Counts() map[queue.EventType]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[queue.EventType]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}
