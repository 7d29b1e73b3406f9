package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/qvox/qvox-server/internal/service/logger"
)

var ErrNotRegistered = errors.New("task not registered")

// Body is the work executed for one task. It runs on its own goroutine,
// mutates the bound task directly (progress, Complete) and returns an error
// for failures. Returning the context's cancellation error marks the task
// cancelled instead of failed.
type Body func(ctx context.Context, t *Task) error

// Manager tracks generation tasks for the process lifetime.
//
// Two-phase usage:
//  1. Register creates and stores a Task in running state.
//  2. Start attaches a Body to the registered Task and launches it.
//
// The split lets the body capture a live reference to the stored task so its
// progress updates are visible to pollers from the first instant.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

func NewManager() *Manager {
	return &Manager{tasks: make(map[string]*Task)}
}

// Get returns the live task for id, or false when unknown.
func (m *Manager) Get(id string) (*Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	return t, ok
}

// Register creates and stores a running task with no worker attached.
func (m *Manager) Register(id string, meta Meta) *Task {
	t := newTask(id, meta)
	m.mu.Lock()
	m.tasks[id] = t
	m.mu.Unlock()
	return t
}

// Start launches body on its own goroutine bound to an already-registered
// task. A panic or error inside body is converted to a failed status on the
// task; it never escapes the worker goroutine.
func (m *Manager) Start(t *Task, body Body) error {
	m.mu.RLock()
	registered := m.tasks[t.ID()] == t
	m.mu.RUnlock()
	if !registered {
		return fmt.Errorf("%w: %s", ErrNotRegistered, t.ID())
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.bindCancel(cancel)

	go m.run(ctx, t, body)
	return nil
}

func (m *Manager) run(ctx context.Context, t *Task, body Body) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error().Str("task_id", t.ID()).Interface("panic", r).Msg("task panicked")
			t.Fail(fmt.Sprintf("%v", r))
		}
	}()

	err := body(ctx, t)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		t.markCancelled()
	default:
		logger.Log.Error().Err(err).Str("task_id", t.ID()).Msg("task failed")
		t.Fail(err.Error())
	}
}

// Cancel requests cooperative cancellation of the worker bound to id.
// Returns false when the id is unknown, no worker is attached, or the task
// already reached a terminal status. The cancelled status is set immediately
// and sticks even if the worker is past its last cancellation check.
func (m *Manager) Cancel(id string) bool {
	t, ok := m.Get(id)
	if !ok {
		return false
	}
	return t.requestCancel()
}

// CancelAll cancels every tracked task. Called at shutdown so no background
// work is orphaned.
func (m *Manager) CancelAll() {
	m.mu.RLock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.RUnlock()

	for _, t := range tasks {
		t.requestCancel()
	}
}
