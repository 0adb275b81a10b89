package command

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"opgraph/internal/compute"
)

// ConsoleCommand sends statements typed by the user to the engine.
type ConsoleCommand struct {
	Meta
}

func (c *ConsoleCommand) Synopsis() string { return "Talk to the engine directly" }

func (c *ConsoleCommand) Help() string {
	return strings.TrimSpace(`
Usage: opgraph console [options]

  Starts the engine and runs each line typed as a statement. Input ends with
  an empty interrupt, end of file or :quit.

Options:

  -config=path       Configuration file. Defaults to opgraph.hcl.
  -transcript=path   Write the session's statements and output to path.
  -library=name      Load a library before reading input. Repeatable.
`)
}

// libraryFlags collects repeated -library flags.
type libraryFlags []string

func (l *libraryFlags) String() string     { return strings.Join(*l, ",") }
func (l *libraryFlags) Set(s string) error { *l = append(*l, s); return nil }

func (c *ConsoleCommand) Run(args []string) int {
	var configPath, transcript string
	var libraries libraryFlags
	fs := c.flagSet("console", &configPath)
	fs.StringVar(&transcript, "transcript", "", "")
	fs.Var(&libraries, "library", "")
	if err := parseFlags(fs, args); err != nil {
		return c.fail(err)
	}
	if fs.NArg() != 0 {
		return c.fail(invalidInvocationf("unexpected arguments: %q", strings.Join(fs.Args(), " ")))
	}

	s, err := c.open(context.Background(), configPath, true)
	if err != nil {
		return c.fail(err)
	}
	defer s.Close()

	for _, lib := range libraries {
		ok, err := s.channel.LoadLibrary(lib)
		if err != nil {
			return c.fail(err)
		}
		if !ok {
			return c.fail(invalidInvocationf("unable to load library %q", lib))
		}
	}
	if transcript != "" {
		s.channel.SetRecordMode(compute.Full)
	}

	rl, err := c.lineReader("> ")
	if err != nil {
		return c.fail(err)
	}
	defer rl.Close()

	code := ExitSuccess
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c.fail(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ":quit" {
			break
		}
		out, err := s.channel.Execute(line)
		if out = strings.TrimRight(out, "\n"); out != "" {
			c.Ui.Output(out)
		}
		if err != nil {
			c.Ui.Error(err.Error())
			code = ExitComputeFailure
			if !s.channel.Alive() {
				break
			}
		}
	}

	if transcript != "" {
		if err := os.WriteFile(transcript, []byte(s.channel.FetchInteraction()), 0o644); err != nil {
			return c.fail(err)
		}
	}
	return code
}
