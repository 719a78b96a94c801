// Package store owns the task collection.
//
// The Store is the only writer of the collection. Every mutation re-sorts it,
// saves the whole collection through the injected Persistence, and publishes a
// change event. Save and publish failures are logged and never undo the
// in-memory change. Readers receive deep copies.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/benvon/taskwise/internal/logger"
	"github.com/benvon/taskwise/internal/models"
	"github.com/benvon/taskwise/internal/queue"
	"github.com/benvon/taskwise/internal/recurrence"
	"github.com/benvon/taskwise/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Persistence loads and saves the full collection
type Persistence interface {
	Load(ctx context.Context) ([]models.Task, error)
	Save(ctx context.Context, tasks []models.Task) error
}

// Store holds the task collection for one session
type Store struct {
	mu          sync.Mutex
	tasks       []models.Task
	persistence Persistence
	publisher   queue.Publisher
	logger      *zap.Logger
	clock       func() time.Time
	loc         *time.Location
	policy      recurrence.Policy
	newID       func() models.TaskID
	lastSaveErr error
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the zone calendar days are computed in
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRecurrencePolicy sets when the recurrence engine runs
func WithRecurrencePolicy(policy recurrence.Policy) Option {
	return func(s *Store) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// WithPublisher sets where change events go
func WithPublisher(p queue.Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithIDGenerator overrides the UUID id generator
func WithIDGenerator(gen func() models.TaskID) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New creates an empty store. Call Load to read the persisted collection.
func New(p Persistence, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		tasks:       []models.Task{},
		persistence: p,
		publisher:   queue.NopPublisher{},
		logger:      log,
		clock:       time.Now,
		loc:         time.Local,
		policy:      recurrence.PolicyOnRead,
		newID: func() models.TaskID {
			return models.TaskID(uuid.New().String())
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone used for calendar-day comparisons
func (s *Store) Location() *time.Location {
	return s.loc
}

// Policy returns the configured recurrence policy
func (s *Store) Policy() recurrence.Policy {
	return s.policy
}

// Now returns the store clock's current instant in the store location
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) now() time.Time {
	return s.clock().In(s.loc)
}

// Load replaces the collection with the persisted one, applies the recurrence
// engine once and sorts. On failure the collection is left empty and a
// *PersistenceError is returned; the store remains usable.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.persistence.Load(ctx)
	if err != nil {
		s.tasks = []models.Task{}
		s.logger.Warn("persistence_load_failed_starting_empty",
			zap.String("error", logger.SanitizeError(err)),
		)
		return &PersistenceError{Op: "load", Err: err}
	}

	s.tasks = s.normalizeLoaded(loaded)
	sortTasks(s.tasks)

	reset := s.resetDueLocked(ctx)
	s.logger.Info("tasks_loaded",
		zap.Int("count", len(s.tasks)),
		zap.Int("reset", len(reset)),
		zap.String("recurrence_policy", string(s.policy)),
	)
	return nil
}

// normalizeLoaded enforces the collection invariants on persisted data
func (s *Store) normalizeLoaded(loaded []models.Task) []models.Task {
	out := make([]models.Task, 0, len(loaded))
	seen := make(map[models.TaskID]bool, len(loaded))

	for _, t := range loaded {
		t = t.Clone()
		if t.ID == "" {
			t.ID = s.newID()
		}
		if seen[t.ID] {
			s.logger.Warn("duplicate_task_id_dropped", zap.String("task_id", logger.SanitizeTaskID(t.ID.String())))
			continue
		}
		seen[t.ID] = true

		t.Category = t.Category.Normalize()
		if !t.Recurrence.Valid() {
			t.Recurrence = models.RecurrenceNone
		}
		if t.Recurrence == models.RecurrenceNone {
			t.LastCompletedDate = nil
		}
		out = append(out, t)
	}
	return out
}

// Snapshot returns a deep copy of the sorted collection. Under PolicyOnRead the
// recurrence engine runs first.
func (s *Store) Snapshot(ctx context.Context) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked(ctx)
	out := models.CloneTasks(s.tasks)
	if out == nil {
		out = []models.Task{}
	}
	return out
}

// Get returns a copy of one task
func (s *Store) Get(ctx context.Context, id models.TaskID) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked(ctx)
	i := s.indexLocked(id)
	if i < 0 {
		return models.Task{}, &NotFoundError{ID: id}
	}
	return s.tasks[i].Clone(), nil
}

// Len returns the number of tasks
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Create validates the input and appends a new pending task
func (s *Store) Create(ctx context.Context, in models.TaskInput) (models.Task, error) {
	if err := normalizeInput(&in); err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx)

	task := models.Task{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     copyTime(in.DueDate),
		Category:    in.Category,
		Completed:   false,
		Recurrence:  in.Recurrence,
	}
	s.tasks = append(s.tasks, task)
	sortTasks(s.tasks)

	s.logger.Info("task_created",
		zap.String("task_id", task.ID.String()),
		zap.String("title", logger.SanitizeTitle(task.Title)),
		zap.String("recurrence", string(task.Recurrence)),
	)
	s.commitLocked(ctx, queue.NewEvent(queue.EventTaskCreated, task.ID, &task, s.now()))
	return task.Clone(), nil
}

// Update replaces the editable fields of a task. Completion state is untouched,
// except that LastCompletedDate is dropped once the task stops recurring.
func (s *Store) Update(ctx context.Context, id models.TaskID, in models.TaskInput) (models.Task, error) {
	if err := normalizeInput(&in); err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx)

	i := s.indexLocked(id)
	if i < 0 {
		return models.Task{}, &NotFoundError{ID: id}
	}

	t := &s.tasks[i]
	t.Title = in.Title
	t.Description = in.Description
	t.DueDate = copyTime(in.DueDate)
	t.Category = in.Category
	t.Recurrence = in.Recurrence
	if t.Recurrence == models.RecurrenceNone {
		t.LastCompletedDate = nil
	}
	updated := t.Clone()
	sortTasks(s.tasks)

	s.logger.Info("task_updated", zap.String("task_id", id.String()))
	s.commitLocked(ctx, queue.NewEvent(queue.EventTaskUpdated, id, &updated, s.now()))
	return updated, nil
}

// ToggleCompletion flips the completed flag. Completing a recurring task stamps
// LastCompletedDate with the current instant; reopening leaves it as is.
func (s *Store) ToggleCompletion(ctx context.Context, id models.TaskID) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx)

	i := s.indexLocked(id)
	if i < 0 {
		return models.Task{}, &NotFoundError{ID: id}
	}

	t := &s.tasks[i]
	t.Completed = !t.Completed
	eventType := queue.EventTaskReopened
	if t.Completed {
		eventType = queue.EventTaskCompleted
		if t.IsRecurring() {
			// persisted timestamps keep milliseconds
			now := s.now().Truncate(time.Millisecond)
			t.LastCompletedDate = &now
		}
	}
	toggled := t.Clone()

	s.logger.Info("task_toggled",
		zap.String("task_id", id.String()),
		zap.Bool("completed", toggled.Completed),
	)
	s.commitLocked(ctx, queue.NewEvent(eventType, id, &toggled, s.now()))
	return toggled, nil
}

// Delete removes a task. Deleting an unknown id returns *NotFoundError.
func (s *Store) Delete(ctx context.Context, id models.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx)

	i := s.indexLocked(id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)

	s.logger.Info("task_deleted", zap.String("task_id", id.String()))
	s.commitLocked(ctx, queue.NewEvent(queue.EventTaskDeleted, id, nil, s.now()))
	return nil
}

// ResetRecurring runs the recurrence engine now and returns the ids it reset
func (s *Store) ResetRecurring(ctx context.Context) []models.TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetDueLocked(ctx)
}

// LastSaveError returns the error of the most recent save, nil after a success
func (s *Store) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaveErr
}

// refreshLocked runs the recurrence engine when it is evaluated lazily
func (s *Store) refreshLocked(ctx context.Context) {
	if s.policy == recurrence.PolicyOnRead {
		s.resetDueLocked(ctx)
	}
}

func (s *Store) resetDueLocked(ctx context.Context) []models.TaskID {
	ids := recurrence.Due(s.tasks, s.now())
	if len(ids) == 0 {
		return nil
	}

	events := make([]*queue.Event, 0, len(ids))
	for _, id := range ids {
		i := s.indexLocked(id)
		s.tasks[i].Completed = false
		reset := s.tasks[i].Clone()
		events = append(events, queue.NewEvent(queue.EventTaskReset, id, &reset, s.now()))
	}

	s.logger.Info("recurring_tasks_reset", zap.Int("count", len(ids)))
	s.commitLocked(ctx, events...)
	return ids
}

// commitLocked saves the collection and publishes events. Failures are logged only.
func (s *Store) commitLocked(ctx context.Context, events ...*queue.Event) {
	if err := s.persistence.Save(ctx, models.CloneTasks(s.tasks)); err != nil {
		s.lastSaveErr = &PersistenceError{Op: "save", Err: err}
		s.logger.Warn("persistence_save_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.Int("count", len(s.tasks)),
		)
	} else {
		s.lastSaveErr = nil
	}

	for _, event := range events {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("task_event_publish_failed",
				zap.String("event_type", string(event.Type)),
				zap.String("task_id", event.TaskID.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *Store) indexLocked(id models.TaskID) int {
	return slices.IndexFunc(s.tasks, func(t models.Task) bool {
		return t.ID == id
	})
}

func normalizeInput(in *models.TaskInput) error {
	if fieldErr := validation.NormalizeTaskInput(in); fieldErr != nil {
		return &ValidationError{Field: fieldErr.Field, Message: fieldErr.Message}
	}
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
