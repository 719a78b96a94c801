package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/benvon/taskwise/internal/models"
	"github.com/google/uuid"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	task := &models.Task{ID: "t1", Title: "Call mom", DueDate: &due}
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	event := NewEvent(EventTaskCreated, task.ID, task, at)

	if event.ID == uuid.Nil {
		t.Error("Expected event ID to be set")
	}
	if event.Type != EventTaskCreated {
		t.Errorf("Expected type %s, got %s", EventTaskCreated, event.Type)
	}
	if event.TaskID != "t1" {
		t.Errorf("Expected task id t1, got %s", event.TaskID)
	}
	if event.Metadata == nil {
		t.Error("Expected metadata to be initialized")
	}
	if !event.OccurredAt.Equal(at) {
		t.Errorf("Expected occurred_at %v, got %v", at, event.OccurredAt)
	}
	if event.RoutingKey() != "task.created" {
		t.Errorf("Unexpected routing key %q", event.RoutingKey())
	}

	// Event carries a snapshot, not the live task
	*task.DueDate = due.AddDate(0, 0, 5)
	task.Title = "changed"
	if event.Task.Title != "Call mom" || !event.Task.DueDate.Equal(due) {
		t.Error("Expected event to hold a copy of the task")
	}

	deleted := NewEvent(EventTaskDeleted, "t1", nil, at)
	if deleted.Task != nil {
		t.Error("Expected nil task for delete event")
	}
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	event := NewEvent(EventTaskCompleted, "t9", &models.Task{ID: "t9", Title: "Gym"}, time.Now().UTC())
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	decoded, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if decoded.ID != event.ID || decoded.Type != EventTaskCompleted || decoded.Task.Title != "Gym" {
		t.Errorf("Decoded event mismatch: %+v", decoded)
	}

	if _, err := DecodeEvent([]byte(`{"type":"task.exploded"}`)); err == nil {
		t.Error("Expected error for unknown event type")
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Error("Expected error for malformed body")
	}
}

func TestMemoryPublisher(t *testing.T) {
	t.Parallel()

	p := &MemoryPublisher{}
	ctx := context.Background()
	_ = p.Publish(ctx, NewEvent(EventTaskCreated, "a", nil, time.Now()))
	_ = p.Publish(ctx, NewEvent(EventTaskDeleted, "a", nil, time.Now()))

	types := p.Types()
	if len(types) != 2 || types[0] != EventTaskCreated || types[1] != EventTaskDeleted {
		t.Errorf("Unexpected types %v", types)
	}

	p.Err = errors.New("broker down")
	if err := p.Publish(ctx, NewEvent(EventTaskCreated, "b", nil, time.Now())); err == nil {
		t.Error("Expected configured error")
	}

	if err := (NopPublisher{}).Publish(ctx, nil); err != nil {
		t.Errorf("NopPublisher returned %v", err)
	}
}

func TestRabbitMQQueue_PublishConsume(t *testing.T) {
	url := os.Getenv("TASKWISE_TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("TASKWISE_TEST_RABBITMQ_URL not set")
	}

	q, err := NewRabbitMQQueue(url)
	if err != nil {
		t.Fatalf("NewRabbitMQQueue failed: %v", err)
	}
	defer func() {
		_ = q.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := q.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	event := NewEvent(EventTaskUpdated, "rt-1", &models.Task{ID: "rt-1", Title: "Integration"}, time.Now().UTC())
	if err := q.Publish(ctx, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msgs, _, err := q.Consume(ctx, 1)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	for msg := range msgs {
		_ = msg.Ack()
		if msg.GetEvent().ID == event.ID {
			return
		}
	}
	t.Error("Published event was not consumed")
}
