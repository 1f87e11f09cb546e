package models

import (
	"encoding/json"
	"time"
)

// RemoteRecord is the wire representation of a record as the CRM backend
// returns it. ServerKey is the backend-assigned identifier; Data carries the
// entity fields in the same shape as Record.Payload.
type RemoteRecord struct {
	ServerKey string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RemoteList is the response envelope of the backend's per-collection list
// endpoint.
type RemoteList struct {
	Records []RemoteRecord `json:"records"`
	Length  int            `json:"length"`
}
