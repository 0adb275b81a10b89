package command

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"opgraph/internal/graph"
	"opgraph/internal/store"
	"opgraph/internal/trace"
)

// answerFlags collects repeated -answer ID.QUESTION=VALUE flags.
type answerFlags map[int]map[string]string

func (a answerFlags) String() string { return "" }

func (a answerFlags) Set(s string) error {
	target, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("answer %q is not ID.QUESTION=VALUE", s)
	}
	idText, question, ok := strings.Cut(target, ".")
	if !ok || question == "" {
		return fmt.Errorf("answer %q is not ID.QUESTION=VALUE", s)
	}
	id, err := strconv.Atoi(idText)
	if err != nil {
		return fmt.Errorf("answer %q: operation id %q is not a number", s, idText)
	}
	if a[id] == nil {
		a[id] = map[string]string{}
	}
	a[id][question] = value
	return nil
}

// ComputeCommand brings the pending operations of a problem up to date and
// prints a report of each one.
type ComputeCommand struct {
	Meta
}

func (c *ComputeCommand) Synopsis() string { return "Compute the pending operations of a problem" }

func (c *ComputeCommand) Help() string {
	return strings.TrimSpace(`
Usage: opgraph compute [options] PROBLEM

  Applies the given answers, computes every pending operation of PROBLEM and
  prints a YAML report. The problem is saved afterwards.

  Exits with 1 when an operation failed and with 5 when operations are
  still waiting for answers.

Options:

  -config=path            Configuration file. Defaults to opgraph.hcl.
  -answer=ID.QUESTION=V   Answer a question before computing. Repeatable.
  -trace=path             Write the canonical JSON trace of cache decisions.
`)
}

func (c *ComputeCommand) Run(args []string) int {
	var configPath, tracePath string
	answers := answerFlags{}
	fs := c.flagSet("compute", &configPath)
	fs.Var(answers, "answer", "")
	fs.StringVar(&tracePath, "trace", "", "")
	if err := parseFlags(fs, args); err != nil {
		return c.fail(err)
	}
	if fs.NArg() != 1 {
		return c.fail(invalidInvocationf("expected exactly one problem name"))
	}

	s, err := c.open(context.Background(), configPath, true)
	if err != nil {
		return c.fail(err)
	}
	defer s.Close()

	p, err := c.loadProblem(s, fs.Arg(0))
	if err != nil {
		return c.fail(err)
	}
	var rec *trace.Recorder
	if tracePath != "" {
		rec = trace.NewRecorder()
		s.env.Trace = trace.Multi{s.env.Trace, rec}
	}

	ids := make([]int, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		op, ok := p.Operation(id)
		if !ok {
			return c.fail(invalidInvocationf("no operation %d in %s", id, p.Name()))
		}
		if err := graph.ApplyAnswers(op, answers[id]); err != nil {
			return c.fail(invalidInvocationf("operation %d: %v", id, err))
		}
	}

	reports := graph.Report(p.ComputePending())
	out, err := yaml.Marshal(reports)
	if err != nil {
		return c.fail(err)
	}
	c.Ui.Output(strings.TrimRight(string(out), "\n"))

	if err := store.SaveProblem(s.store, p); err != nil {
		return c.fail(err)
	}
	if err := store.RecordTranscripts(s.store, p); err != nil {
		return c.fail(err)
	}
	if rec != nil {
		b, err := rec.Trace(p.Name()).CanonicalJSON()
		if err != nil {
			return c.fail(err)
		}
		if err := os.WriteFile(tracePath, b, 0o644); err != nil {
			return c.fail(err)
		}
	}
	return reportCode(reports)
}

// reportCode prefers failures over missing answers.
func reportCode(reports []graph.NodeReport) int {
	code := ExitSuccess
	for _, r := range reports {
		switch r.Status {
		case graph.Failed.String():
			return ExitComputeFailure
		case graph.NeedsInfo.String():
			code = ExitInfoRequired
		}
	}
	return code
}
