package models

import "encoding/json"

// CloudRecord is the remote-side view of an entity.
type CloudRecord struct {
	ID string `json:"id"`

	// UpdatedAt is an RFC 3339 timestamp of the last remote modification.
	UpdatedAt string `json:"updatedAt"`

	// Data is the full remote payload, written locally when the cloud wins.
	Data json.RawMessage `json:"data,omitempty"`
}
