package command

import (
	"context"
	"strings"

	"opgraph/internal/graph"
)

// TreeCommand draws a stored problem. Nothing is computed.
type TreeCommand struct {
	Meta
}

func (c *TreeCommand) Synopsis() string { return "Show the operations of a problem" }

func (c *TreeCommand) Help() string {
	return strings.TrimSpace(`
Usage: opgraph tree [options] [PROBLEM]

  Draws the datasets and operations of PROBLEM with the state of each
  operation. Without PROBLEM, lists the stored problems.

Options:

  -config=path   Configuration file. Defaults to opgraph.hcl.
`)
}

func (c *TreeCommand) Run(args []string) int {
	var configPath string
	fs := c.flagSet("tree", &configPath)
	if err := parseFlags(fs, args); err != nil {
		return c.fail(err)
	}
	if fs.NArg() > 1 {
		return c.fail(invalidInvocationf("expected at most one problem name"))
	}

	s, err := c.open(context.Background(), configPath, false)
	if err != nil {
		return c.fail(err)
	}
	defer s.Close()

	if fs.NArg() == 0 {
		names, err := s.store.List()
		if err != nil {
			return c.fail(err)
		}
		for _, n := range names {
			c.Ui.Output(n)
		}
		return ExitSuccess
	}
	p, err := c.loadProblem(s, fs.Arg(0))
	if err != nil {
		return c.fail(err)
	}
	c.Ui.Output(strings.TrimRight(graph.RenderTree(p), "\n"))
	return ExitSuccess
}
