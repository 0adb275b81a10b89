package graph

import (
	"errors"
	"fmt"
	"strings"

	"opgraph/internal/data"
)

var (
	ErrNoParent         = errors.New("operation has no parent")
	ErrDuplicateName    = data.ErrDuplicateName
	ErrCycle            = errors.New("cycle detected")
	ErrNotFound         = errors.New("not found")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidAnswer    = errors.New("invalid answer")
	ErrNoEngine         = errors.New("no compute engine")
)

// StructuralError wraps misuse of the graph: a missing parent, a duplicate
// name, a cycle. It is never recoverable by retrying the same call.
type StructuralError struct {
	Kind error
	Msg  string
}

func (e *StructuralError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *StructuralError) Unwrap() error { return e.Kind }

func structuralf(kind error, format string, args ...any) error {
	return &StructuralError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
	}
	return &StructuralError{Kind: ErrCycle, Msg: msg}
}

// InfoRequiredError reports that an operation cannot compute until the listed
// questions are answered. Callers are expected to prompt and retry.
type InfoRequiredError struct {
	Op        *Operation
	Questions []*Question
	Msg       string
}

func (e *InfoRequiredError) Error() string {
	if e == nil {
		return ""
	}
	names := make([]string, len(e.Questions))
	for i, q := range e.Questions {
		names[i] = q.Name()
	}
	op := "operation"
	if e.Op != nil {
		op = fmt.Sprintf("%s (#%d)", e.Op.Type(), e.Op.ID())
	}
	msg := e.Msg
	if msg == "" {
		msg = "information required"
	}
	if len(names) == 0 {
		return fmt.Sprintf("%s: %s", op, msg)
	}
	return fmt.Sprintf("%s: %s: %s", op, msg, strings.Join(names, ", "))
}

// IsInfoRequired reports whether err is (or wraps) an InfoRequiredError.
func IsInfoRequired(err error) bool {
	var ie *InfoRequiredError
	return errors.As(err, &ie)
}

func invalidAnswer(q *Question, format string, args ...any) error {
	return &InfoRequiredError{
		Op:        q.op,
		Questions: []*Question{q},
		Msg:       fmt.Sprintf(format, args...),
	}
}
