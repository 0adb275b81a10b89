package command

import (
	"context"
	"fmt"
	"strings"

	"opgraph/internal/graph"
	"opgraph/internal/store"
)

// questionFlags collects repeated -answer QUESTION=VALUE flags.
type questionFlags map[string]string

func (q questionFlags) String() string { return "" }

func (q questionFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("answer %q is not QUESTION=VALUE", s)
	}
	q[name] = value
	return nil
}

// AddCommand attaches a new operation to a problem. Nothing is computed.
type AddCommand struct {
	Meta
}

func (c *AddCommand) Synopsis() string { return "Add an operation to a problem" }

func (c *AddCommand) Help() string {
	return strings.TrimSpace(`
Usage: opgraph add [options] PROBLEM TYPE

  Adds an operation of TYPE to PROBLEM and prints its id.

Options:

  -config=path        Configuration file. Defaults to opgraph.hcl.
  -parent=id          Operation to attach to.
  -dataset=name       Dataset to attach to. May be omitted when the problem
                      has a single dataset and -parent is not given.
  -answer=QUESTION=V  Answer a question of the new operation. Repeatable.
`)
}

func (c *AddCommand) Run(args []string) int {
	var configPath, dataset string
	var parentID int
	answers := questionFlags{}
	fs := c.flagSet("add", &configPath)
	fs.IntVar(&parentID, "parent", 0, "")
	fs.StringVar(&dataset, "dataset", "", "")
	fs.Var(answers, "answer", "")
	if err := parseFlags(fs, args); err != nil {
		return c.fail(err)
	}
	if fs.NArg() != 2 {
		return c.fail(invalidInvocationf("expected a problem name and an operation type"))
	}
	if parentID != 0 && dataset != "" {
		return c.fail(invalidInvocationf("-parent and -dataset are mutually exclusive"))
	}

	s, err := c.open(context.Background(), configPath, false)
	if err != nil {
		return c.fail(err)
	}
	defer s.Close()

	p, err := c.loadProblem(s, fs.Arg(0))
	if err != nil {
		return c.fail(err)
	}
	parent, err := c.parent(p, parentID, dataset)
	if err != nil {
		return c.fail(err)
	}
	op, err := s.env.NewOperation(fs.Arg(1))
	if err != nil {
		return c.fail(invalidInvocationf("%v", err))
	}
	if err := op.SetParent(parent, -1); err != nil {
		return c.fail(invalidInvocationf("%v", err))
	}
	if err := graph.ApplyAnswers(op, answers); err != nil {
		return c.fail(invalidInvocationf("%v", err))
	}
	if err := store.SaveProblem(s.store, p); err != nil {
		return c.fail(err)
	}
	c.Ui.Output(fmt.Sprintf("added %d: %s", op.ID(), op.Name()))
	return ExitSuccess
}

func (c *AddCommand) parent(p *graph.Problem, id int, dataset string) (graph.DataSource, error) {
	if id != 0 {
		op, ok := p.Operation(id)
		if !ok {
			return nil, invalidInvocationf("no operation %d in %s", id, p.Name())
		}
		return op, nil
	}
	if dataset != "" {
		ds, ok := p.DataSet(dataset)
		if !ok {
			return nil, invalidInvocationf("no dataset %q in %s", dataset, p.Name())
		}
		return ds, nil
	}
	all := p.DataSets()
	if len(all) != 1 {
		return nil, invalidInvocationf("%s has %d datasets; use -dataset or -parent", p.Name(), len(all))
	}
	return all[0], nil
}
