package models

// Winner names the side whose version survives a conflict.
type Winner string

const (
	WinnerLocal Winner = "local"
	WinnerCloud Winner = "cloud"
)

// ConflictResolution is the outcome of resolving one [SyncOperation].
// A fresh value is produced per resolution and never mutated afterwards.
type ConflictResolution struct {
	Winner         Winner     `json:"winner"`
	EntityType     EntityType `json:"entityType"`
	EntityID       string     `json:"entityId"`
	LocalTimestamp int64      `json:"localTimestamp"`
	CloudTimestamp int64      `json:"cloudTimestamp"`
}

// ResolveResult couples a resolution with whether any write was performed.
type ResolveResult struct {
	Resolution  ConflictResolution `json:"resolution"`
	ActionTaken bool               `json:"actionTaken"`
}
