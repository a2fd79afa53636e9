package models

// MigrationLock is the persisted record that marks which running instance
// currently owns the migration. All times are ms since epoch.
type MigrationLock struct {
	OwnerID   string `json:"ownerId"`
	Timestamp int64  `json:"timestamp"`
	Operation string `json:"operation"`
	Heartbeat int64  `json:"heartbeat"`
}
