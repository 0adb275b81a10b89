package command

import (
	"context"
	"strconv"
	"strings"

	"opgraph/internal/graph"
)

// ShowCommand prints the columns of one operation, computing it first when
// needed.
type ShowCommand struct {
	Meta
}

func (c *ShowCommand) Synopsis() string { return "Print the columns of an operation" }

func (c *ShowCommand) Help() string {
	return strings.TrimSpace(`
Usage: opgraph show [options] PROBLEM ID

  Prints the columns visible on operation ID of PROBLEM as a table.

Options:

  -config=path   Configuration file. Defaults to opgraph.hcl.
  -record        Print the engine statements of the operation instead.
`)
}

func (c *ShowCommand) Run(args []string) int {
	var configPath string
	var record bool
	fs := c.flagSet("show", &configPath)
	fs.BoolVar(&record, "record", false, "")
	if err := parseFlags(fs, args); err != nil {
		return c.fail(err)
	}
	if fs.NArg() != 2 {
		return c.fail(invalidInvocationf("expected a problem name and an operation id"))
	}
	id, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return c.fail(invalidInvocationf("operation id %q is not a number", fs.Arg(1)))
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
	op, ok := p.Operation(id)
	if !ok {
		return c.fail(invalidInvocationf("no operation %d in %s", id, p.Name()))
	}
	switch res := op.CheckCache(); res.Status {
	case graph.NeedsInfo:
		c.Ui.Error("waiting for answers: " + questionList(res.Questions))
		return ExitInfoRequired
	case graph.Failed:
		c.Ui.Error(res.Err.Error())
		return ExitComputeFailure
	}

	if record {
		c.Ui.Output(strings.TrimRight(op.Record(), "\n"))
		return ExitSuccess
	}
	var b strings.Builder
	if err := graph.WriteColumns(&b, op); err != nil {
		return c.fail(err)
	}
	c.Ui.Output(strings.TrimRight(b.String(), "\n"))
	return ExitSuccess
}
