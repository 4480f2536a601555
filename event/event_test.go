package event

import "testing"

func TestLocationValid(t *testing.T) {
	if !(Location{Filename: "a.js", Line: 1, Column: 1}).Valid() {
		t.Fatal("expected valid location")
	}
	if (Location{Filename: "", Line: 1, Column: 1}).Valid() {
		t.Fatal("empty filename should be invalid")
	}
	if (Location{Filename: "a.js", Line: 0, Column: 1}).Valid() {
		t.Fatal("line 0 should be invalid (1-based)")
	}
	if UnknownLocation.Valid() == false {
		t.Fatal("UnknownLocation itself should satisfy Valid (it's a real placeholder, not a zero value)")
	}
}

func TestNewCallDefaultsArguments(t *testing.T) {
	e := NewCall("fetch()", nil, LiteralUndefined(), false, UnknownLocation)
	if e.Arguments == nil {
		t.Fatal("NewCall must never leave Arguments nil")
	}
	if len(e.Arguments) != 0 {
		t.Fatalf("expected zero arguments, got %d", len(e.Arguments))
	}
}

func TestEventHasValue(t *testing.T) {
	get := NewGet("a.b", LiteralValue(1), UnknownLocation)
	set := NewSet("a.b", LiteralValue(1), UnknownLocation)
	call := NewCall("a.b()", []Value{}, LiteralUndefined(), false, UnknownLocation)

	if !get.HasValue() || !set.HasValue() {
		t.Fatal("Get/Set events should report HasValue")
	}
	if call.HasValue() {
		t.Fatal("Call events should not report HasValue")
	}
}
