package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// GraphTrace is the record of what a compute pass over one problem decided
// for each operation node.
//
// Events describe cache decisions, never timings, so two passes over the same
// graph in the same state produce the same canonical bytes.
type GraphTrace struct {
	Problem string
	Events  []Event
}

// EventKind discriminates Event. The string values are part of the canonical
// encoding; do not rename.
type EventKind string

const (
	NodeInvalidated EventKind = "NodeInvalidated"
	NodeDeferred    EventKind = "NodeDeferred"
	NodeNeedsInfo   EventKind = "NodeNeedsInfo"
	NodeComputed    EventKind = "NodeComputed"
	NodeFailed      EventKind = "NodeFailed"
)

// Event is a single cache decision about one node.
type Event struct {
	Kind EventKind

	// Node is the stable id of the node the event refers to.
	Node string
	// Op is the operation name of the node.
	Op string

	// Reason is a stable reason code such as "AnswerChanged" or "ParentChanged".
	Reason string

	// Cause is the node whose change or failure led to this event.
	Cause string

	// Questions lists unanswered question names for NodeNeedsInfo.
	Questions []string
}

// Validate checks basic invariants and returns a descriptive error.
func (t *GraphTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.Problem == "" {
		return errors.New("problem is required")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.Node == "" {
			return fmt.Errorf("events[%d].node is required for kind %q", i, e.Kind)
		}
		for j, q := range e.Questions {
			if q == "" {
				return fmt.Errorf("events[%d].questions[%d] is empty", i, j)
			}
		}
	}
	return nil
}

// Canonicalize sorts questions and orders events by (node, kind, reason,
// cause, questions).
func (t *GraphTrace) Canonicalize() {
	if t == nil {
		return
	}
	for i := range t.Events {
		t.Events[i].Questions = sortedCopy(t.Events[i].Questions)
	}

	sort.SliceStable(t.Events, func(i, j int) bool {
		a, b := t.Events[i], t.Events[j]
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		if a.Cause != b.Cause {
			return a.Cause < b.Cause
		}
		return lessStrings(a.Questions, b.Questions)
	})
}

func kindOrder(k EventKind) int {
	switch k {
	case NodeInvalidated:
		return 10
	case NodeDeferred:
		return 20
	case NodeNeedsInfo:
		return 30
	case NodeComputed:
		return 40
	case NodeFailed:
		return 50
	default:
		return 1000
	}
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func lessStrings(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// CanonicalJSON returns the canonical encoding of a canonicalized copy of t.
func (t GraphTrace) CanonicalJSON() ([]byte, error) {
	cp := GraphTrace{Problem: t.Problem, Events: append([]Event(nil), t.Events...)}
	cp.Canonicalize()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&cp)
}

// Hash returns the sha256 hex digest of the canonical encoding.
func (t GraphTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeHash(b), nil
}

// MarshalJSON fixes field order. It does not sort.
func (t GraphTrace) MarshalJSON() ([]byte, error) {
	if t.Problem == "" {
		return nil, errors.New("problem is required")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"problem":`)
	pb, _ := json.Marshal(t.Problem)
	buf.Write(pb)
	buf.WriteString(`,"events":[`)
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON fixes field order and omits empty optional fields.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	field := func(name, v string) {
		if v == "" {
			return
		}
		buf.WriteString(`,"` + name + `":`)
		b, _ := json.Marshal(v)
		buf.Write(b)
	}
	field("node", e.Node)
	field("op", e.Op)
	field("reason", e.Reason)
	field("cause", e.Cause)

	if qs := sortedCopy(e.Questions); len(qs) > 0 {
		buf.WriteString(`,"questions":`)
		b, _ := json.Marshal(qs)
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
