package graph

// NodeReport is a serializable summary of one compute outcome.
type NodeReport struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
	// Cause is the operation that blocked this one, when it is not the
	// operation itself.
	Cause     int              `json:"cause,omitempty" yaml:"cause,omitempty"`
	Questions []QuestionReport `json:"questions,omitempty" yaml:"questions,omitempty"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// QuestionReport describes an unanswered question to whoever must answer it.
type QuestionReport struct {
	Name    string   `json:"name" yaml:"name"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Kind    string   `json:"kind" yaml:"kind"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty,flow"`
}

// Report summarizes results in order.
func Report(results []NodeResult) []NodeReport {
	out := make([]NodeReport, 0, len(results))
	for _, r := range results {
		out = append(out, r.Report())
	}
	return out
}

func (r NodeResult) Report() NodeReport {
	rep := NodeReport{ID: r.Op.ID(), Name: r.Op.Name(), Status: r.Result.Status.String()}
	if n := r.Result.Node; n != nil && n != r.Op {
		rep.Cause = n.ID()
	}
	for _, q := range r.Result.Questions {
		rep.Questions = append(rep.Questions, ReportQuestion(q))
	}
	if err := r.Result.Err; err != nil {
		rep.Error = err.Error()
	}
	return rep
}

// ReportQuestion describes q.
func ReportQuestion(q *Question) QuestionReport {
	return QuestionReport{Name: q.Name(), Prompt: q.Prompt(), Kind: q.Kind().String(), Options: q.Options()}
}
