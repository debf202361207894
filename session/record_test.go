package session

import (
	"errors"
	"strings"
	"testing"
)

func TestReadOnlyRecordRejectsMutation(t *testing.T) {
	rec := NewRecord("sid-1", 3600)

	err := rec.SetAttribute("user", "alice")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if !strings.Contains(err.Error(), "SetAttribute") {
		t.Fatalf("error should name the offending operation: %v", err)
	}
	if rec.Dirty() {
		t.Fatal("rejected mutation must leave the record clean")
	}

	if err := rec.RemoveAttribute("user"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if rec.Dirty() {
		t.Fatal("rejected removal must leave the record clean")
	}

	// Reads are never gated.
	if _, ok := rec.Attribute("user"); ok {
		t.Fatal("attribute must not have been stored")
	}
}

func TestWritableRecordMutation(t *testing.T) {
	rec := NewRecord("sid-1", 3600)
	rec.SetWritable(true)

	if err := rec.SetAttribute("user", "alice"); err != nil {
		t.Fatalf("set attribute: %v", err)
	}
	if !rec.Dirty() {
		t.Fatal("mutation must mark the record dirty")
	}
	if v, ok := rec.Attribute("user"); !ok || v != "alice" {
		t.Fatalf("unexpected attribute value %v (present=%v)", v, ok)
	}

	rec.ClearDirty()
	if rec.Dirty() {
		t.Fatal("ClearDirty must drop the flag")
	}

	if err := rec.RemoveAttribute("user"); err != nil {
		t.Fatalf("remove attribute: %v", err)
	}
	if !rec.Dirty() {
		t.Fatal("removal must mark the record dirty")
	}
	if _, ok := rec.Attribute("user"); ok {
		t.Fatal("attribute should be gone")
	}
}

func TestMaxInactiveNotGated(t *testing.T) {
	rec := NewRecord("sid-1", 3600)

	rec.SetMaxInactive(600)
	if rec.MaxInactive() != 600 {
		t.Fatalf("expected 600, got %d", rec.MaxInactive())
	}
	if rec.Dirty() {
		t.Fatal("TTL change is store policy, not an attribute mutation")
	}
}
