package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockPurger struct {
	calls     atomic.Int32
	purgeFunc func(ctx context.Context, retention time.Duration) (int, error)
}

func (m *mockPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	m.calls.Add(1)
	if m.purgeFunc != nil {
		return m.purgeFunc(ctx, retention)
	}
	return 0, nil
}

func TestGarbageCollector_Collect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		purger     DLQPurger
		wantCount  int
		wantErr    bool
		wantLogged bool
	}{
		{
			name:   "nil purger is a no-op",
			purger: nil,
		},
		{
			name: "purged messages are logged",
			purger: &mockPurger{purgeFunc: func(_ context.Context, retention time.Duration) (int, error) {
				if retention != 24*time.Hour {
					return 0, errors.New("unexpected retention")
				}
				return 3, nil
			}},
			wantCount:  3,
			wantLogged: true,
		},
		{
			name:   "empty DLQ logs nothing",
			purger: &mockPurger{},
		},
		{
			name: "purger error is wrapped",
			purger: &mockPurger{purgeFunc: func(context.Context, time.Duration) (int, error) {
				return 0, errors.New("channel closed")
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.InfoLevel)
			gc := NewGarbageCollector(tt.purger, time.Minute, 24*time.Hour, zap.New(core))

			n, err := gc.collect(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("collect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.wantCount {
				t.Errorf("collect() = %d, want %d", n, tt.wantCount)
			}
			logged := logs.FilterMessage("dlq_gc_purged").Len() == 1
			if logged != tt.wantLogged {
				t.Errorf("dlq_gc_purged logged = %v, want %v", logged, tt.wantLogged)
			}
		})
	}
}

func TestGarbageCollector_StartRunsUntilCancelled(t *testing.T) {
	t.Parallel()

	purger := &mockPurger{}
	gc := NewGarbageCollector(purger, 5*time.Millisecond, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- gc.Start(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for purger.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if purger.calls.Load() < 2 {
		t.Errorf("Expected repeated purges, got %d", purger.calls.Load())
	}
}

func TestGarbageCollector_StartKeepsGoingAfterError(t *testing.T) {
	t.Parallel()

	purger := &mockPurger{purgeFunc: func(context.Context, time.Duration) (int, error) {
		return 0, errors.New("broker unavailable")
	}}
	core, logs := observer.New(zap.WarnLevel)
	gc := NewGarbageCollector(purger, 5*time.Millisecond, time.Hour, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- gc.Start(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for purger.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if purger.calls.Load() < 2 {
		t.Errorf("Expected the loop to survive purge errors, got %d calls", purger.calls.Load())
	}
	if logs.FilterMessage("dlq_gc_failed").Len() == 0 {
		t.Error("Expected dlq_gc_failed to be logged")
	}
}

func TestDeadLetteredAt(t *testing.T) {
	t.Parallel()

	published := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	died := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		delivery amqp.Delivery
		want     time.Time
	}{
		{
			name: "x-death time wins",
			delivery: amqp.Delivery{
				Timestamp: published,
				Headers: amqp.Table{
					"x-death": []interface{}{amqp.Table{"time": died, "reason": "rejected"}},
				},
			},
			want: died,
		},
		{
			name:     "falls back to publish timestamp",
			delivery: amqp.Delivery{Timestamp: published},
			want:     published,
		},
		{
			name: "malformed x-death falls back",
			delivery: amqp.Delivery{
				Timestamp: published,
				Headers:   amqp.Table{"x-death": "not a list"},
			},
			want: published,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := deadLetteredAt(tt.delivery); !got.Equal(tt.want) {
				t.Errorf("deadLetteredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
