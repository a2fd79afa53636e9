package models

import "time"

// Confidence qualifies how far an estimate can be trusted.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// MigrationEstimation is a read-only extrapolation computed from a
// stratified sample of the keys to migrate. It is never persisted.
type MigrationEstimation struct {
	TotalKeys         int            `json:"totalKeys"`
	SampledKeys       int            `json:"sampledKeys"`
	EstimatedBytes    int64          `json:"estimatedBytes"`
	EstimatedDuration time.Duration  `json:"estimatedDuration"`
	AverageItemBytes  int64          `json:"averageItemBytes"`
	AverageItemTime   time.Duration  `json:"averageItemTime"`
	LargestItemKey    string         `json:"largestItemKey,omitempty"`
	LargestItemBytes  int64          `json:"largestItemBytes"`
	Confidence        Confidence     `json:"confidence"`
	SamplingCutShort  bool           `json:"samplingCutShort"`
	Categories        map[string]int `json:"categories"`
}

// PlatformCapabilities lists which optional storage features were detected.
type PlatformCapabilities struct {
	KeyEnumeration    bool `json:"keyEnumeration"`
	ConditionalWrites bool `json:"conditionalWrites"`
	QuotaReporting    bool `json:"quotaReporting"`
	IdleScheduling    bool `json:"idleScheduling"`
}

// ResourceReport is the resource probe part of a [MigrationPreview].
type ResourceReport struct {
	QuotaKnown      bool    `json:"quotaKnown"`
	StorageUsed     int64   `json:"storageUsed"`
	StorageQuota    int64   `json:"storageQuota"`
	StorageHeadroom int64   `json:"storageHeadroom"`
	MemoryPressure  float64 `json:"memoryPressure"`
	MemoryHigh      bool    `json:"memoryHigh"`
}

// MigrationPreview is a dry-run report: the estimate plus resource probes
// and human-readable warnings. Warnings never fail the preview.
type MigrationPreview struct {
	Estimation   MigrationEstimation  `json:"estimation"`
	Resources    ResourceReport       `json:"resources"`
	Capabilities PlatformCapabilities `json:"capabilities"`
	LargeItems   []string             `json:"largeItems,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
	CanProceed   bool                 `json:"canProceed"`
}
