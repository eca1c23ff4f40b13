// Package registrar implements the registration and ledger core: addresses
// register a username once, then append immutable timestamped entries that
// carry a content hash, a category, and an optional metadata URI.
package registrar

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// User is a registered identity. An address registers at most once and the
// record never changes afterwards.
type User struct {
	Address      common.Address `json:"address"`
	Username     string         `json:"username"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// Entry is a single ledger record. Entries are append-only: once written
// they are never modified or deleted, and ids are assigned densely starting
// at 1.
type Entry struct {
	ID          int64          `json:"id"`
	DataHash    common.Hash    `json:"data_hash"`
	Submitter   common.Address `json:"submitter"`
	Timestamp   time.Time      `json:"timestamp"`
	Category    string         `json:"category"`
	MetadataURI string         `json:"metadata_uri,omitempty"`
}

// Stats is a snapshot of ledger state for the status endpoint.
type Stats struct {
	EntryCount int64 `json:"entry_count"`
	UserCount  int64 `json:"user_count"`
	EventCount int64 `json:"event_count"`
}
