package taskmanager

import (
	"context"
	"sync"
	"time"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Meta carries the kind-specific fields fixed at registration time.
type Meta struct {
	RefAudioID    string
	MultiSpeaker  bool
	TotalSegments int
}

// Snapshot is a point-in-time copy of a task's state, safe to read after the
// task keeps mutating.
type Snapshot struct {
	ID                string
	Status            Status
	Progress          int
	OutputPath        string
	RefAudioID        string
	GenerationSeconds float64
	Error             string
	MultiSpeaker      bool
	TotalSegments     int
	CurrentSegment    int
	StartedAt         time.Time
}

// Task is the mutable record of one generation task. The worker goroutine
// bound by Manager.Start is the only writer; pollers read through Snapshot.
// Once a terminal status is set no further writes are accepted, so a Cancel
// racing the worker's own completion always sticks.
type Task struct {
	id string

	mu                sync.Mutex
	status            Status
	progress          int
	outputPath        string
	refAudioID        string
	generationSeconds float64
	errMsg            string
	multiSpeaker      bool
	totalSegments     int
	currentSegment    int
	startedAt         time.Time
	cancel            context.CancelFunc
}

func newTask(id string, meta Meta) *Task {
	return &Task{
		id:            id,
		status:        StatusRunning,
		refAudioID:    meta.RefAudioID,
		multiSpeaker:  meta.MultiSpeaker,
		totalSegments: meta.TotalSegments,
		startedAt:     time.Now(),
	}
}

func (t *Task) ID() string {
	return t.id
}

// Snapshot returns a consistent copy of the current state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ID:                t.id,
		Status:            t.status,
		Progress:          t.progress,
		OutputPath:        t.outputPath,
		RefAudioID:        t.refAudioID,
		GenerationSeconds: t.generationSeconds,
		Error:             t.errMsg,
		MultiSpeaker:      t.multiSpeaker,
		TotalSegments:     t.totalSegments,
		CurrentSegment:    t.currentSegment,
		StartedAt:         t.startedAt,
	}
}

// SetProgress reports progress in [0, 100]. Ignored once the task is
// terminal, and never moves backwards.
func (t *Task) SetProgress(p int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	if p > t.progress {
		t.progress = p
	}
}

// SetCurrentSegment updates the segment counter of a multi-speaker task.
func (t *Task) SetCurrentSegment(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	t.currentSegment = i
}

// Complete marks the task completed with its output, flips progress to 100.
// A no-op if the task already reached a terminal status.
func (t *Task) Complete(outputPath string, generationSeconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	t.status = StatusCompleted
	t.progress = 100
	t.outputPath = outputPath
	t.generationSeconds = generationSeconds
}

// Fail marks the task failed with a human-readable error. A no-op if the
// task already reached a terminal status.
func (t *Task) Fail(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	t.status = StatusFailed
	t.errMsg = msg
}

func (t *Task) bindCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = cancel
}

// requestCancel flips the task to cancelled and signals the worker. Returns
// false when no worker is bound yet or the task is already terminal.
func (t *Task) requestCancel() bool {
	t.mu.Lock()
	if t.status != StatusRunning || t.cancel == nil {
		t.mu.Unlock()
		return false
	}
	t.status = StatusCancelled
	cancel := t.cancel
	t.mu.Unlock()

	cancel()
	return true
}

// markCancelled records a cancellation the worker observed itself.
func (t *Task) markCancelled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	t.status = StatusCancelled
}
