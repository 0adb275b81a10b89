package data

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateName = errors.New("duplicate column name")
	ErrNoColumn      = errors.New("column not found")
	ErrMode          = errors.New("value does not fit column mode")
	ErrMalformed     = errors.New("malformed data")
)

// ColumnError wraps deterministic column and set failures.
type ColumnError struct {
	Kind error
	Msg  string
}

func (e *ColumnError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *ColumnError) Unwrap() error { return e.Kind }

func duplicatef(format string, args ...any) error {
	return &ColumnError{Kind: ErrDuplicateName, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &ColumnError{Kind: ErrNoColumn, Msg: fmt.Sprintf(format, args...)}
}

func modef(format string, args ...any) error {
	return &ColumnError{Kind: ErrMode, Msg: fmt.Sprintf(format, args...)}
}

func malformedf(format string, args ...any) error {
	return &ColumnError{Kind: ErrMalformed, Msg: fmt.Sprintf(format, args...)}
}
