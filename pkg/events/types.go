// Package events carries the registrar's append-only notification feed:
// every committed state change produces exactly one event, persisted in
// emission order and fanned out live to subscribers.
package events

import (
	"encoding/json"
	"time"
)

// Event types emitted by the registrar.
const (
	TypeUserRegistered = "UserRegistered"
	TypeEntrySubmitted = "EntrySubmitted"
)

// Event is a single notification. Seq is assigned by the store and is
// strictly increasing in emission order.
type Event struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// UserRegisteredPayload is the payload of a UserRegistered event.
type UserRegisteredPayload struct {
	User     string `json:"user"`
	Username string `json:"username"`
}

// EntrySubmittedPayload is the payload of an EntrySubmitted event.
type EntrySubmittedPayload struct {
	EntryID     int64     `json:"entry_id"`
	DataHash    string    `json:"data_hash"`
	Submitter   string    `json:"submitter"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
	MetadataURI string    `json:"metadata_uri,omitempty"`
}
