package models

import "time"

// GenerationState represents the lifecycle state of a rule generation run.
type GenerationState string

const (
	GenerationProcessing GenerationState = "processing"
	GenerationCompleted  GenerationState = "completed"
	GenerationFailed     GenerationState = "failed"
	GenerationCancelled  GenerationState = "cancelled"
)

// GenerationStatus tracks one rule generation run for a template. There is
// one live entry per template; a new run for the same template overwrites
// the previous entry (latest run wins).
type GenerationStatus struct {
	TemplateID        string          `json:"templateId"`
	RunID             string          `json:"runId"`
	InstanceCount     int             `json:"instanceCount"`
	StartTime         time.Time       `json:"startTime"`
	FinishTime        *time.Time      `json:"finishTime,omitempty"`
	ExecutionDuration *time.Duration  `json:"executionDuration,omitempty"`
	RulesIndexedCount *int            `json:"rulesIndexedCount,omitempty"`
	Status            GenerationState `json:"status"`
	ErrorMessage      string          `json:"errorMessage,omitempty"`
}
