package models

import "time"

// MigrationPhase is a state of the background migration state machine.
type MigrationPhase string

const (
	PhaseIdle         MigrationPhase = "idle"
	PhaseInitializing MigrationPhase = "initializing"
	PhaseClassifying  MigrationPhase = "classifying"
	PhaseCritical     MigrationPhase = "critical"
	PhaseBackground   MigrationPhase = "background"
	PhasePaused       MigrationPhase = "paused"
	PhaseCompleting   MigrationPhase = "completing"
	PhaseCompleted    MigrationPhase = "completed"
	PhaseCancelled    MigrationPhase = "cancelled"
	PhaseFailed       MigrationPhase = "failed"
)

// Terminal reports whether no further transition can happen from p.
func (p MigrationPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseFailed
}

// MigrationStatus is a point-in-time snapshot of the migration engine.
type MigrationStatus struct {
	Phase                  MigrationPhase `json:"phase"`
	Progress               float64        `json:"progress"`
	ProcessedItems         int            `json:"processedItems"`
	TotalItems             int            `json:"totalItems"`
	EstimatedTimeRemaining time.Duration  `json:"estimatedTimeRemaining"`
	ErrorCount             int            `json:"errorCount"`
	CanPause               bool           `json:"canPause"`
	CanResume              bool           `json:"canResume"`
	CanCancel              bool           `json:"canCancel"`
}

// KeyFailure records a key that could not be migrated.
type KeyFailure struct {
	Key      string `json:"key"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// MigrationResult is what a finished (completed or cancelled) run reports.
type MigrationResult struct {
	Phase          MigrationPhase `json:"phase"`
	SessionID      string         `json:"sessionId"`
	ItemsProcessed int            `json:"itemsProcessed"`
	TotalItems     int            `json:"totalItems"`
	BytesProcessed int64          `json:"bytesProcessed"`
	CriticalKeys   int            `json:"criticalKeys"`
	BackgroundKeys int            `json:"backgroundKeys"`
	Resumed        bool           `json:"resumed"`
	FailedKeys     []KeyFailure   `json:"failedKeys,omitempty"`
	Duration       time.Duration  `json:"duration"`
}
