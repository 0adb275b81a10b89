package command

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"opgraph/internal/graph"
)

// OpsCommand lists the available operation types and optionally probes each
// one against generated data.
type OpsCommand struct {
	Meta
}

func (c *OpsCommand) Synopsis() string { return "List operation types" }

func (c *OpsCommand) Help() string {
	return strings.TrimSpace(`
Usage: opgraph ops [options]

  Lists the registered operation types by category.

Options:

  -config=path   Configuration file. Defaults to opgraph.hcl.
  -check         Run every type once against generated data.
  -rows=n        Rows of generated data for -check. Defaults to 20.
  -seed=n        Seed for the generated data. Defaults to 1.
`)
}

func (c *OpsCommand) Run(args []string) int {
	var configPath string
	var check bool
	var rows int
	var seed int64
	fs := c.flagSet("ops", &configPath)
	fs.BoolVar(&check, "check", false, "")
	fs.IntVar(&rows, "rows", 20, "")
	fs.Int64Var(&seed, "seed", 1, "")
	if err := parseFlags(fs, args); err != nil {
		return c.fail(err)
	}
	if fs.NArg() != 0 {
		return c.fail(invalidInvocationf("unexpected arguments: %q", strings.Join(fs.Args(), " ")))
	}
	if rows < 1 {
		return c.fail(invalidInvocationf("-rows must be positive"))
	}

	s, err := c.open(context.Background(), configPath, check)
	if err != nil {
		return c.fail(err)
	}
	defer s.Close()

	infos := s.env.Registry.Infos()
	if !check {
		var b strings.Builder
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Category, info.Name, info.Description)
		}
		tw.Flush()
		c.Ui.Output(strings.TrimRight(b.String(), "\n"))
		return ExitSuccess
	}

	code := ExitSuccess
	for _, info := range infos {
		_, res, err := graph.Probe(s.env, info.Name, rows, seed)
		switch {
		case err != nil:
			c.Ui.Error(fmt.Sprintf("%s: %v", info.Name, err))
			code = ExitComputeFailure
		case res.Status == graph.Failed:
			c.Ui.Error(fmt.Sprintf("%s: failed: %v", info.Name, res.Err))
			code = ExitComputeFailure
		case res.Status == graph.NeedsInfo:
			c.Ui.Warn(fmt.Sprintf("%s: could not answer %s", info.Name, questionList(res.Questions)))
		default:
			c.Ui.Output(fmt.Sprintf("%s: ok", info.Name))
		}
	}
	return code
}

func questionList(qs []*graph.Question) string {
	names := make([]string, len(qs))
	for i, q := range qs {
		names[i] = q.Name()
	}
	return strings.Join(names, ", ")
}
