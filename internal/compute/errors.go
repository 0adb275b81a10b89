package compute

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProtocol marks a caller violating the one-statement contract.
	ErrProtocol = errors.New("protocol violation")
	// ErrDeadChannel marks a channel whose subprocess or pipes are gone.
	ErrDeadChannel = errors.New("compute channel is dead")
)

// ChannelError wraps failures of the channel itself, as opposed to failures
// reported by the engine.
type ChannelError struct {
	Kind error
	Msg  string
	Err  error
}

func (e *ChannelError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ChannelError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func protocolf(format string, args ...any) error {
	return &ChannelError{Kind: ErrProtocol, Msg: fmt.Sprintf(format, args...)}
}

func deadf(err error, format string, args ...any) error {
	return &ChannelError{Kind: ErrDeadChannel, Msg: fmt.Sprintf(format, args...), Err: err}
}

// EngineError is raised when the engine reports an error for a statement.
// Output carries the raw engine text, error lines included.
type EngineError struct {
	Statement string
	Output    string
}

func (e *EngineError) Error() string {
	if e == nil {
		return ""
	}
	return "engine: " + strings.TrimRight(e.Output, "\n")
}

// ParseError is raised when engine output does not have the expected shape.
type ParseError struct {
	Want   string
	Output string
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("unable to parse %s from engine output %q", e.Want, strings.TrimRight(e.Output, "\n"))
}

// IsEngineError reports whether err is (or wraps) an EngineError.
func IsEngineError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
