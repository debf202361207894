package session

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	rec := NewRecord("sid-1", 3600)
	rec.SetWritable(true)
	// JSON numbers decode as float64; use values representable in the wire
	// format so equality holds across the round trip.
	if err := rec.SetAttribute("user", "alice"); err != nil {
		t.Fatalf("set attribute: %v", err)
	}
	if err := rec.SetAttribute("visits", float64(3)); err != nil {
		t.Fatalf("set attribute: %v", err)
	}
	rec.setLastSaved(1234567890)

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.ID() != rec.ID() {
		t.Fatalf("id mismatch: %q != %q", decoded.ID(), rec.ID())
	}
	if decoded.CreationTime() != rec.CreationTime() {
		t.Fatalf("creationTime mismatch: %d != %d", decoded.CreationTime(), rec.CreationTime())
	}
	if decoded.LastSaved() != 1234567890 {
		t.Fatalf("lastSaved mismatch: %d", decoded.LastSaved())
	}
	if decoded.MaxInactive() != 3600 {
		t.Fatalf("maxInactive mismatch: %d", decoded.MaxInactive())
	}
	if !reflect.DeepEqual(decoded.Attributes(), rec.Attributes()) {
		t.Fatalf("attributes mismatch: %v != %v", decoded.Attributes(), rec.Attributes())
	}

	// lastAccessTime is not persisted; it is reconstructed as "now".
	if decoded.LastAccessed() == 0 {
		t.Fatal("decoded record must carry a fresh last access time")
	}
	// Transients never survive the wire.
	if decoded.Writable() || decoded.Dirty() {
		t.Fatal("writable and dirty are in-memory state only")
	}
}

func TestEncodedDocumentLayout(t *testing.T) {
	rec := NewRecord("sid-1", 3600)

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []string{"attributes", "creationTime", "sessionId", "lastSaved", "maxInactiveInterval"}
	if len(doc) != len(want) {
		t.Fatalf("document carries %d fields, want %d: %v", len(doc), len(want), doc)
	}
	for _, field := range want {
		if _, ok := doc[field]; !ok {
			t.Fatalf("document is missing field %q: %v", field, doc)
		}
	}
}

func TestEncodeNonSerializableAttribute(t *testing.T) {
	rec := NewRecord("sid-1", 3600)
	rec.SetWritable(true)
	if err := rec.SetAttribute("bad", make(chan int)); err != nil {
		t.Fatalf("set attribute: %v", err)
	}

	if _, err := Encode(rec); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestDecodeMalformedContent(t *testing.T) {
	if _, err := Decode([]byte("{not json")); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}
