package models

// MigrationResumeData is a persisted migration checkpoint.
//
// Checksum covers every other field; a record whose checksum does not verify
// is treated as corrupt and discarded. Times are ms since epoch.
type MigrationResumeData struct {
	LastProcessedKey    string   `json:"lastProcessedKey"`
	ProcessedKeys       []string `json:"processedKeys"`
	RemainingKeys       []string `json:"remainingKeys"`
	ItemsProcessed      int      `json:"itemsProcessed"`
	TotalItems          int      `json:"totalItems"`
	BytesProcessed      int64    `json:"bytesProcessed"`
	TotalBytes          int64    `json:"totalBytes"`
	CheckpointID        string   `json:"checkpointId"`
	CheckpointTimestamp int64    `json:"checkpointTimestamp"`
	SessionID           string   `json:"sessionId"`
	StartTime           int64    `json:"startTime"`
	PauseTime           int64    `json:"pauseTime,omitempty"`
	Checksum            string   `json:"checksum,omitempty"`
}

// WithoutChecksum returns a copy with Checksum cleared, i.e. the body the
// checksum is computed over.
func (d MigrationResumeData) WithoutChecksum() MigrationResumeData {
	d.Checksum = ""
	return d
}

// MigrationProgress is the raw progress snapshot handed to the control
// manager when a checkpoint is taken.
type MigrationProgress struct {
	LastKey        string
	ProcessedKeys  []string
	RemainingKeys  []string
	ItemsProcessed int
	TotalItems     int
	BytesProcessed int64
	TotalBytes     int64
}

// ControlState is the externally visible state of the migration control plane.
type ControlState struct {
	CanPause     bool                 `json:"canPause"`
	CanCancel    bool                 `json:"canCancel"`
	CanResume    bool                 `json:"canResume"`
	IsPaused     bool                 `json:"isPaused"`
	IsCancelling bool                 `json:"isCancelling"`
	ResumeData   *MigrationResumeData `json:"resumeData,omitempty"`
}

// CancellationResult reports how a cancelled migration was wound down.
type CancellationResult struct {
	Reason           string `json:"reason"`
	DataRolledBack   bool   `json:"dataRolledBack"`
	CleanupCompleted bool   `json:"cleanupCompleted"`
	BackupRestored   bool   `json:"backupRestored"`
	CompletedAt      int64  `json:"completedAt"`
}
