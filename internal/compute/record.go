package compute

import (
	"fmt"
	"strings"
)

// RecordMode selects which side of the conversation is kept in a transcript.
type RecordMode int

const (
	Disabled RecordMode = iota
	CommandsOnly
	OutputOnly
	Full
)

func (m RecordMode) String() string {
	switch m {
	case Disabled:
		return "disabled"
	case CommandsOnly:
		return "cmds_only"
	case OutputOnly:
		return "output_only"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("RecordMode(%d)", int(m))
	}
}

// ParseRecordMode accepts the names produced by String, case-insensitively.
func ParseRecordMode(s string) (RecordMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "disabled":
		return Disabled, nil
	case "cmds_only", "commands_only":
		return CommandsOnly, nil
	case "output_only":
		return OutputOnly, nil
	case "full":
		return Full, nil
	default:
		return Disabled, fmt.Errorf("unknown record mode %q", s)
	}
}

func (m RecordMode) commands() bool { return m == CommandsOnly || m == Full }

func (m RecordMode) output() bool { return m == OutputOnly || m == Full }
