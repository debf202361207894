package session

import (
	"encoding/json"
	"fmt"
)

// document is the persisted wire layout. Exactly these fields are stored;
// the CAS token and lastAccessTime are transport metadata and in-memory
// state respectively and must never appear here.
type document struct {
	Attributes          map[string]any `json:"attributes"`
	CreationTime        int64          `json:"creationTime"`
	SessionID           string         `json:"sessionId"`
	LastSaved           int64          `json:"lastSaved"`
	MaxInactiveInterval int            `json:"maxInactiveInterval"`
}

// Encode serializes a record to its JSON wire document. A non-serializable
// attribute value fails with ErrSerialization and aborts the write.
func Encode(r *Record) ([]byte, error) {
	doc := document{
		Attributes:          r.attributes,
		CreationTime:        r.creationTime,
		SessionID:           r.id,
		LastSaved:           r.lastSaved,
		MaxInactiveInterval: r.maxInactive,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// Decode rebuilds a record from its JSON wire document. Malformed content
// fails with ErrSerialization and aborts the read — never silently absent.
// The record's lastAccessTime is reconstructed as now; its CAS token is
// supplied out of band by the read that produced the bytes.
func Decode(data []byte) (*Record, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	attributes := doc.Attributes
	if attributes == nil {
		attributes = make(map[string]any)
	}

	return restore(doc.SessionID, doc.CreationTime, doc.LastSaved, doc.MaxInactiveInterval, attributes), nil
}
