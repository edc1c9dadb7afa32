package kernel

import "fmt"

// EntityKind enumerates the entity kinds a pick may return.
type EntityKind int

const (
	KindBody EntityKind = iota
	KindOccurrence
)

func (k EntityKind) String() string {
	switch k {
	case KindBody:
		return "body"
	case KindOccurrence:
		return "occurrence"
	default:
		return "unknown"
	}
}

// Selection is the result of a pick: exactly one of a body or an
// occurrence. It is resolved to a target body once, at the selection
// boundary.
type Selection struct {
	kind       EntityKind
	body       Body
	occurrence Occurrence
}

// BodySelection wraps a picked body.
func BodySelection(b Body) Selection {
	return Selection{kind: KindBody, body: b}
}

// OccurrenceSelection wraps a picked occurrence.
func OccurrenceSelection(o Occurrence) Selection {
	return Selection{kind: KindOccurrence, occurrence: o}
}

// Kind returns what was picked.
func (s Selection) Kind() EntityKind {
	return s.kind
}

// Resolve returns the body the run operates on: the picked body itself, or
// the first body of a picked occurrence.
func (s Selection) Resolve() (Body, error) {
	switch s.kind {
	case KindBody:
		if s.body == nil {
			return nil, ErrNoSelection
		}
		return s.body, nil
	case KindOccurrence:
		if s.occurrence == nil {
			return nil, ErrNoSelection
		}
		bodies := s.occurrence.Bodies()
		if len(bodies) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyOccurrence, s.occurrence.Name())
		}
		return bodies[0], nil
	default:
		return nil, ErrWrongKind
	}
}
