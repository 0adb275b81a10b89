package script

import "errors"

// Error reports a malformed or contradictory definition, or a computation
// that a definition aborted on purpose. Op names the operation whose
// computation failed, once known.
type Error struct {
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	s := e.Msg
	if e.Op != "" {
		s = "operation " + e.Op + ": " + s
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(err error, msg string) *Error {
	return &Error{Msg: msg, Err: err}
}

// IsError reports whether err is or wraps an *Error.
func IsError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// attribute names op on err. Errors raised outside the interpreter are
// wrapped so the operation still shows up in the message.
func attribute(err error, op string) error {
	var se *Error
	if errors.As(err, &se) {
		if se.Op == "" {
			se.Op = op
		}
		return err
	}
	return &Error{Op: op, Msg: "computation failed", Err: err}
}
