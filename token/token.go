// Package token defines the value type that flows through a workflow graph.
package token

import (
	"time"

	"github.com/google/uuid"
)

// Data is the payload a token carries between nodes. Keys are strings;
// values are JSON-equivalent scalars, arrays, or maps, matching the
// definition document's own JSON shape.
type Data map[string]interface{}

// Token is a value-typed record carrying a payload and a cursor to the
// node it currently occupies.
//
// Tokens are never mutated in place. Every operation that "moves" or
// "updates" a token returns a new Token value; callers replace their
// reference rather than reaching into an existing one. This keeps workers
// honest about the no-shared-mutable-state contract: the only way to
// change a token's visible state is to hold the new value.
type Token struct {
	// ID uniquely identifies this token for the lifetime of the process.
	ID uuid.UUID

	// Data is the current payload. Never nil after New.
	Data Data

	// CurrentNode is the id of the node the token currently occupies.
	// Empty before the first MoveTo call.
	CurrentNode string

	// ParentID is the id of the token this one was cloned from during a
	// parallel gateway fan-out. Zero value (uuid.Nil) for tokens that were
	// never split.
	ParentID uuid.UUID

	// Timestamp is the UTC time of the last move, millisecond resolution.
	Timestamp time.Time
}

// New creates a fresh token with the given initial data. CurrentNode is
// empty; the first ForwardToken moves it onto the start node.
func New(initial Data) Token {
	return Token{
		ID:        uuid.New(),
		Data:      cloneData(initial),
		Timestamp: now(),
	}
}

// MoveTo returns a copy of t positioned at nodeID with a refreshed
// timestamp. Data is unchanged.
func (t Token) MoveTo(nodeID string) Token {
	next := t
	next.CurrentNode = nodeID
	next.Timestamp = now()
	return next
}

// Merge returns a copy of t whose Data is the right-biased merge of t.Data
// and delta: keys present in delta overwrite keys in t.Data. Nested maps
// are replaced wholesale, not deep-merged, matching the spec's data model.
func (t Token) Merge(delta Data) Token {
	next := t
	next.Data = make(Data, len(t.Data)+len(delta))
	for k, v := range t.Data {
		next.Data[k] = v
	}
	for k, v := range delta {
		next.Data[k] = v
	}
	next.Timestamp = now()
	return next
}

// WithError returns a copy of t with an "error" key set in Data, used when
// a workFn or script raises so the token carries a visible failure marker
// instead of vanishing.
func (t Token) WithError(msg string) Token {
	return t.Merge(Data{"error": msg})
}

// Split returns n independent copies of t for a parallel gateway fan-out.
// Each copy gets a freshly cloned ID and ParentID set to t.ID, resolving
// the token-identity open question in favor of cloned ids with a parent
// pointer (see DESIGN.md).
func (t Token) Split(n int) []Token {
	out := make([]Token, n)
	for i := 0; i < n; i++ {
		c := t
		c.ID = uuid.New()
		c.ParentID = t.ID
		c.Data = cloneData(t.Data)
		out[i] = c
	}
	return out
}

func cloneData(d Data) Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// now is a seam so tests can freeze time if ever needed; production code
// always uses wall-clock UTC, truncated to milliseconds.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
