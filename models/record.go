package models

import (
	"encoding/json"
	"time"
)

// Record is a single CRM entity as stored on this device. LocalKey is
// assigned by the local store at insert time and never reused; ServerKey is
// assigned by the remote API once the record's creation has been confirmed
// there. A record with an empty ServerKey exists only on this device.
type Record struct {
	// LocalKey is the locally-unique identifier of the record. It is valid
	// for the lifetime of the local copy and is the only identifier UI code
	// should hold on to.
	LocalKey int64 `json:"local_key"`

	// Collection names the entity type this record belongs to
	// (e.g. "leads", "contacts").
	Collection string `json:"collection"`

	// ServerKey is the identifier assigned by the remote system, empty until
	// the CREATE intent for this record has been reconciled.
	ServerKey string `json:"server_key,omitempty"`

	// Payload holds the entity fields as JSON. Use DecodePayload to obtain
	// the concrete entity type for the record's collection.
	Payload json.RawMessage `json:"payload"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Confirmed reports whether the record's creation has been acknowledged by
// the remote system.
func (r Record) Confirmed() bool {
	return r.ServerKey != ""
}

// IndexEntry is a single secondary-index row derived from a record's current
// field values. The store rewrites a record's index entries on every put, so
// index membership always matches the stored payload.
type IndexEntry struct {
	IndexName string
	Value     string
}

// IndexDefinition declares a secondary index on a collection. Extract derives
// the indexed value from an entity payload; records for which Extract returns
// an empty string are not indexed.
type IndexDefinition struct {
	Name    string
	Extract func(payload any) string
}
