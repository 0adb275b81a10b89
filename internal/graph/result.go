package graph

import "fmt"

// CacheStatus is the outcome of bringing an operation's cache up to date.
type CacheStatus int

const (
	// Ready means the cached results are current.
	Ready CacheStatus = iota
	// Deferred means the node or an ancestor is still loading; the cache was
	// left as it was.
	Deferred
	// NeedsInfo means some questions are unanswered on the node in Node.
	NeedsInfo
	// Failed means a computation or structural check failed; Err says why.
	Failed
)

func (s CacheStatus) String() string {
	switch s {
	case Ready:
		return "ready"
	case Deferred:
		return "deferred"
	case NeedsInfo:
		return "needs-info"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("CacheStatus(%d)", int(s))
	}
}

// CacheResult is returned by CheckCache. Node is the operation that produced
// a non-Ready status, which may be an ancestor of the one asked.
type CacheResult struct {
	Status    CacheStatus
	Node      *Operation
	Questions []*Question
	Err       error
}

// Error converts the result into an error: nil for Ready and Deferred, an
// InfoRequiredError for NeedsInfo and Err for Failed.
func (r CacheResult) Error() error {
	switch r.Status {
	case NeedsInfo:
		return &InfoRequiredError{Op: r.Node, Questions: r.Questions}
	case Failed:
		return r.Err
	default:
		return nil
	}
}

func ready() CacheResult { return CacheResult{Status: Ready} }

func failed(op *Operation, err error) CacheResult {
	return CacheResult{Status: Failed, Node: op, Err: err}
}
