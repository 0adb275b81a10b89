package graph

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// ApplyAnswers sets answers given as text, keyed by question name, in name
// order. Every answer is attempted; the failures are reported together.
func ApplyAnswers(op *Operation, answers map[string]string) error {
	names := make([]string, 0, len(answers))
	for name := range answers {
		names = append(names, name)
	}
	sort.Strings(names)

	var result *multierror.Error
	for _, name := range names {
		if err := op.SetAnswer(name, answers[name]); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}
