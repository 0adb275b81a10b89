package trace

import "github.com/hashicorp/go-hclog"

// LogSink writes every event to a logger. Failures are logged at Warn and
// everything else at Debug.
type LogSink struct {
	Logger hclog.Logger
}

func (s LogSink) Record(e Event) {
	if s.Logger == nil {
		return
	}
	args := []any{"node", e.Node, "op", e.Op}
	if e.Reason != "" {
		args = append(args, "reason", e.Reason)
	}
	if e.Cause != "" {
		args = append(args, "cause", e.Cause)
	}
	if len(e.Questions) > 0 {
		args = append(args, "questions", e.Questions)
	}
	if e.Kind == NodeFailed {
		s.Logger.Warn(string(e.Kind), args...)
		return
	}
	s.Logger.Debug(string(e.Kind), args...)
}
