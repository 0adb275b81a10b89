// Package command implements the opgraph subcommands.
package command

import (
	"io"
	"os"

	"github.com/mitchellh/cli"

	"opgraph/internal/logging"
)

// Version is reported by -version.
const Version = "0.1.0"

// Commands returns the factories for every subcommand sharing meta.
func Commands(meta Meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"ops":     func() (cli.Command, error) { return &OpsCommand{Meta: meta}, nil },
		"import":  func() (cli.Command, error) { return &ImportCommand{Meta: meta}, nil },
		"add":     func() (cli.Command, error) { return &AddCommand{Meta: meta}, nil },
		"tree":    func() (cli.Command, error) { return &TreeCommand{Meta: meta}, nil },
		"compute": func() (cli.Command, error) { return &ComputeCommand{Meta: meta}, nil },
		"show":    func() (cli.Command, error) { return &ShowCommand{Meta: meta}, nil },
		"console": func() (cli.Command, error) { return &ConsoleCommand{Meta: meta}, nil },
		"serve":   func() (cli.Command, error) { return &ServeCommand{Meta: meta}, nil },
	}
}

// NewUi writes output to stdout and errors to stderr, in color when stdout
// is a terminal.
func NewUi(stdin io.Reader, stdout, stderr io.Writer) cli.Ui {
	var ui cli.Ui = &cli.BasicUi{Reader: stdin, Writer: stdout, ErrorWriter: stderr}
	if logging.IsTerminal(stdout) {
		ui = &cli.ColoredUi{Ui: ui, ErrorColor: cli.UiColorRed, WarnColor: cli.UiColorYellow}
	}
	return ui
}

// Run dispatches args (without the program name) and returns the exit code.
func Run(args []string, meta Meta) int {
	if meta.Ui == nil {
		meta.Ui = NewUi(os.Stdin, os.Stdout, os.Stderr)
	}
	c := cli.NewCLI("opgraph", Version)
	c.Args = args
	c.Commands = Commands(meta)
	c.HelpWriter = os.Stderr
	code, err := c.Run()
	if err != nil {
		meta.Ui.Error(err.Error())
		return ExitInternalError
	}
	return code
}
