package report

import "github.com/wardenjs/warden/event"

// Query is a partial event record whose present fields act as conjunctive
// filters (§4.2). A zero-value field is "not queried" except where a
// pointer/slice distinguishes "absent" from "present but empty" -
// Arguments in particular: a non-nil empty slice means "match events with
// no arguments at all", matching the asymmetric rule documented in §9
// Open Question 1.
type Query struct {
	Type          event.Type
	Path          string
	Location      LocationQuery
	Value         *event.Value
	Arguments     []event.Value
	Returns       *event.Value
	IsConstructor *bool

	hasType bool
	hasPath bool
}

// LocationQuery lets callers constrain only the subfields they supply.
type LocationQuery struct {
	Filename *string
	Line     *int
	Column   *int
}

// WithType constrains the query to one event Type.
func (q Query) WithType(t event.Type) Query { q.Type = t; q.hasType = true; return q }

// WithPath constrains the query to one access path.
func (q Query) WithPath(p string) Query { q.Path = p; q.hasPath = true; return q }

// Matches implements the §4.2 query semantics against a single event.
func (q Query) Matches(e event.Event) bool {
	if q.hasType && e.Type != q.Type {
		return false
	}
	if q.hasPath && e.Path != q.Path {
		return false
	}
	if !q.Location.matches(e.Location) {
		return false
	}
	if q.Value != nil {
		if !e.HasValue() || !q.Value.Equal(e.Value) {
			return false
		}
	}
	if q.Arguments != nil {
		if e.Type != event.Call {
			return false
		}
		if !matchArguments(q.Arguments, e.Arguments) {
			return false
		}
	}
	if q.Returns != nil {
		if e.Type != event.Call || !q.Returns.Equal(e.Returns) {
			return false
		}
	}
	if q.IsConstructor != nil {
		if e.Type != event.Call || e.IsConstructor != *q.IsConstructor {
			return false
		}
	}
	return true
}

func (lq LocationQuery) matches(l event.Location) bool {
	if lq.Filename != nil && l.Filename != *lq.Filename {
		return false
	}
	if lq.Line != nil && l.Line != *lq.Line {
		return false
	}
	if lq.Column != nil && l.Column != *lq.Column {
		return false
	}
	return true
}

// matchArguments implements the asymmetric set-containment rule from §4.2
// and §9 Open Question 1: an empty query list matches only events with an
// empty argument list; for a non-empty query list, every queried argument
// must match *some* event argument (no positional correspondence, and
// repeats in the query are not required to match distinct event arguments).
func matchArguments(query, actual []event.Value) bool {
	if len(query) == 0 {
		return len(actual) == 0
	}
	for _, q := range query {
		found := false
		for _, a := range actual {
			if q.Equal(a) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
