// Package event defines the tagged records the sandbox orchestrator appends
// to the report store: observed values, source locations, and the three
// event shapes (get, set, call) the bootstrap emits for every guest access.
package event

import (
	"encoding/json"
	"fmt"
)

// Value is a tagged union naming whatever was read, written, or passed
// across the guest/host boundary. Exactly one of Ref or Literal is set.
type Value struct {
	Ref     int64 `json:"ref,omitempty"`
	hasRef  bool
	Literal any  `json:"literal"`
	hasLit  bool
}

// RefValue builds a reference Value naming a non-primitive guest object by id.
func RefValue(id int64) Value {
	return Value{Ref: id, hasRef: true}
}

// LiteralValue builds a Value carrying a primitive by copy. v must be a string,
// finite number, bool, or nil (nil represents JS null; use LiteralUndefined
// for the undefined case, since both decode to an absent Go value otherwise).
func LiteralValue(v any) Value {
	return Value{Literal: v, hasLit: true}
}

// undefinedMarker disambiguates JS `undefined` from `null` when both are
// otherwise represented by an absent Go value.
type undefinedMarker struct{}

// Undefined is the sentinel Literal payload representing the JS undefined value.
var Undefined = undefinedMarker{}

func LiteralUndefined() Value {
	return Value{Literal: Undefined, hasLit: true}
}

// IsRef reports whether this Value names an object by identity.
func (v Value) IsRef() bool { return v.hasRef }

// IsLiteral reports whether this Value carries a primitive by copy.
func (v Value) IsLiteral() bool { return v.hasLit }

// Valid reports the §3.1 invariant: exactly one variant populated.
func (v Value) Valid() bool { return v.hasRef != v.hasLit }

// Equal implements the matchesValue(q, t) rule from §4.2: if q is a ref,
// compare ref ids; if q carries a literal, require t also carries one and
// that the two are equal (undefined and null are distinct).
func (v Value) Equal(t Value) bool {
	if v.hasRef {
		return t.hasRef && v.Ref == t.Ref
	}
	if v.hasLit {
		return t.hasLit && literalsEqual(v.Literal, t.Literal)
	}
	return false
}

func literalsEqual(a, b any) bool {
	_, aUndef := a.(undefinedMarker)
	_, bUndef := b.(undefinedMarker)
	if aUndef || bUndef {
		return aUndef == bUndef
	}
	return a == b
}

// wireValue is the JSON shape consumers rely on per §6.2: {"ref": n} xor
// {"literal": v}, with undefined encoded as {"undefined": true} since JSON
// has no undefined literal.
type wireValue struct {
	Ref     *int64 `json:"ref,omitempty"`
	Literal *any   `json:"literal,omitempty"`
	Undef   bool   `json:"undefined,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("event: invalid Value: ref=%v literal-set=%v", v.hasRef, v.hasLit)
	}
	if v.hasRef {
		return json.Marshal(wireValue{Ref: &v.Ref})
	}
	if _, ok := v.Literal.(undefinedMarker); ok {
		return json.Marshal(wireValue{Undef: true})
	}
	return json.Marshal(wireValue{Literal: &v.Literal})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	// A JSON null literal leaves w.Literal nil, so key presence marks it.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	_, hasLiteral := keys["literal"]
	switch {
	case w.Ref != nil:
		*v = Value{Ref: *w.Ref, hasRef: true}
	case w.Undef:
		*v = LiteralUndefined()
	case hasLiteral:
		var lit any
		if w.Literal != nil {
			lit = *w.Literal
		}
		*v = Value{Literal: lit, hasLit: true}
	default:
		return fmt.Errorf("event: Value has neither ref, literal, nor undefined")
	}
	return nil
}

func (v Value) String() string {
	if v.hasRef {
		return fmt.Sprintf("ref(%d)", v.Ref)
	}
	if _, ok := v.Literal.(undefinedMarker); ok {
		return "undefined"
	}
	return fmt.Sprintf("%#v", v.Literal)
}
