package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"opgraph/internal/graph"
	"opgraph/internal/store"
)

// ImportCommand adds a dataset to a problem, creating the problem when it
// does not exist yet.
type ImportCommand struct {
	Meta
}

func (c *ImportCommand) Synopsis() string { return "Add a dataset to a problem" }

func (c *ImportCommand) Help() string {
	return strings.TrimSpace(`
Usage: opgraph import [options] PROBLEM

  Reads a dataset from a CSV file or from a data frame in the engine and adds
  it to PROBLEM.

Options:

  -config=path    Configuration file. Defaults to opgraph.hcl.
  -csv=path       CSV file with a header row.
  -frame=name     Data frame to read from the engine instead.
  -library=name   Library to load before reading -frame.
  -dataset=name   Dataset name. Defaults to the file or frame name.
`)
}

func (c *ImportCommand) Run(args []string) int {
	var configPath, csvPath, frame, library, name string
	fs := c.flagSet("import", &configPath)
	fs.StringVar(&csvPath, "csv", "", "")
	fs.StringVar(&frame, "frame", "", "")
	fs.StringVar(&library, "library", "", "")
	fs.StringVar(&name, "dataset", "", "")
	if err := parseFlags(fs, args); err != nil {
		return c.fail(err)
	}
	if fs.NArg() != 1 {
		return c.fail(invalidInvocationf("expected exactly one problem name"))
	}
	if (csvPath == "") == (frame == "") {
		return c.fail(invalidInvocationf("exactly one of -csv and -frame is required"))
	}
	if library != "" && frame == "" {
		return c.fail(invalidInvocationf("-library needs -frame"))
	}
	problem := fs.Arg(0)

	s, err := c.open(context.Background(), configPath, frame != "")
	if err != nil {
		return c.fail(err)
	}
	defer s.Close()

	p, err := c.loadProblem(s, problem)
	if err != nil {
		var invErr *InvocationError
		if !errors.As(err, &invErr) {
			return c.fail(err)
		}
		p = graph.NewProblem(s.env, problem)
	}

	var ds *graph.DataSet
	if frame != "" {
		if ds, err = graph.ImportFromEngine(s.env, library, frame); err != nil {
			return c.fail(err)
		}
		if name != "" {
			if err := ds.SetName(name); err != nil {
				return c.fail(err)
			}
		}
		if err := p.AddDataSet(ds); err != nil {
			return c.fail(invalidInvocationf("%v", err))
		}
	} else {
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
		}
		f, err := os.Open(csvPath)
		if err != nil {
			return c.fail(invalidInvocationf("%v", err))
		}
		defer f.Close()
		if ds, err = p.NewDataSet(name); err != nil {
			return c.fail(invalidInvocationf("%v", err))
		}
		if err := ds.ImportCSV(f); err != nil {
			return c.fail(fmt.Errorf("%s: %w", csvPath, err))
		}
	}

	if err := store.SaveProblem(s.store, p); err != nil {
		return c.fail(err)
	}
	count, _ := ds.ColumnCount()
	length, _ := ds.ColumnLength()
	c.Ui.Info(fmt.Sprintf("imported %s into %s: %d columns, %d rows", ds.Name(), problem, count, length))
	return ExitSuccess
}
