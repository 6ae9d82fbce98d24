package status

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// Tracker tracks the lifecycle of rule generation runs, one live entry per
// template. A new run for a template supersedes the previous entry, even a
// still-processing one (latest run wins), and cancels its run context.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	status models.GenerationStatus
	cancel context.CancelFunc
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Start creates or overwrites the template's entry in the processing state
// and records the run's cancel handle. A superseded in-flight run is
// cancelled best-effort.
func (t *Tracker) Start(templateID string, instanceCount int, cancel context.CancelFunc) models.GenerationStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.entries[templateID]; ok && prev.status.Status == models.GenerationProcessing && prev.cancel != nil {
		prev.cancel()
	}

	st := models.GenerationStatus{
		TemplateID:    templateID,
		RunID:         uuid.New().String(),
		InstanceCount: instanceCount,
		StartTime:     time.Now(),
		Status:        models.GenerationProcessing,
	}
	t.entries[templateID] = &entry{status: st, cancel: cancel}
	return st
}

// Complete transitions the template's processing entry to completed.
func (t *Tracker) Complete(templateID string, rulesIndexed int) error {
	return t.finish(templateID, func(st *models.GenerationStatus) {
		st.Status = models.GenerationCompleted
		st.RulesIndexedCount = &rulesIndexed
	})
}

// Fail transitions the template's processing entry to failed, recording
// the cause.
func (t *Tracker) Fail(templateID string, cause error) error {
	return t.finish(templateID, func(st *models.GenerationStatus) {
		st.Status = models.GenerationFailed
		if cause != nil {
			st.ErrorMessage = cause.Error()
		}
	})
}

func (t *Tracker) finish(templateID string, apply func(*models.GenerationStatus)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[templateID]
	if !ok {
		return fmt.Errorf("%w: missing status for template %s", models.ErrNotFound, templateID)
	}
	if e.status.Status != models.GenerationProcessing {
		return fmt.Errorf("%w: generation for template %s is not processing (status %s)", models.ErrProcessing, templateID, e.status.Status)
	}

	now := time.Now()
	duration := now.Sub(e.status.StartTime)
	e.status.FinishTime = &now
	e.status.ExecutionDuration = &duration
	apply(&e.status)
	e.cancel = nil
	return nil
}

// Cancel cancels the template's in-flight run and marks the entry
// cancelled. Cancelling a finished run is a no-op on its state.
func (t *Tracker) Cancel(templateID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[templateID]
	if !ok {
		return fmt.Errorf("%w: missing status for template %s", models.ErrNotFound, templateID)
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.status.Status == models.GenerationProcessing {
		now := time.Now()
		duration := now.Sub(e.status.StartTime)
		e.status.FinishTime = &now
		e.status.ExecutionDuration = &duration
		e.status.Status = models.GenerationCancelled
	}
	return nil
}

// Get returns a copy of the template's status entry.
func (t *Tracker) Get(templateID string) (models.GenerationStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[templateID]
	if !ok {
		return models.GenerationStatus{}, fmt.Errorf("%w: missing status for template %s", models.ErrNotFound, templateID)
	}
	return e.status, nil
}

// GetAll returns a snapshot of all status entries sorted by template id.
func (t *Tracker) GetAll() []models.GenerationStatus {
	t.mu.RLock()
	snapshot := make([]models.GenerationStatus, 0, len(t.entries))
	for _, e := range t.entries {
		snapshot = append(snapshot, e.status)
	}
	t.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].TemplateID < snapshot[j].TemplateID
	})
	return snapshot
}

// IsProcessing reports whether a generation run is in flight for the
// template.
func (t *Tracker) IsProcessing(templateID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[templateID]
	return ok && e.status.Status == models.GenerationProcessing
}
