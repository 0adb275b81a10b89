package command

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"opgraph/internal/compute"
	"opgraph/internal/config"
	"opgraph/internal/graph"
	"opgraph/internal/logging"
	"opgraph/internal/ops"
	"opgraph/internal/script"
	"opgraph/internal/store"
	"opgraph/internal/trace"
)

// LineReader reads console input one line at a time. Readline returns io.EOF
// when input ends and readline.ErrInterrupt on an interrupt.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Meta holds what every command shares. The zero values of the function
// fields select the real implementations.
type Meta struct {
	Ui cli.Ui
	// LogOutput receives log lines. Defaults to standard error.
	LogOutput io.Writer

	StartEngine   func(ctx context.Context, opts compute.Options) (*compute.Channel, error)
	NewLineReader func(prompt string) (LineReader, error)
}

// session is what a command has loaded before doing its work.
type session struct {
	cfg     *config.Config
	log     hclog.Logger
	store   store.Store
	library *script.Library
	env     *graph.Env
	channel *compute.Channel
}

func (s *session) Close() {
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.log.Warn("closing engine", "error", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.Warn("closing store", "error", err)
		}
	}
}

// flagSet returns a flag set that reports errors instead of printing them.
// Every command accepts -config.
func (m *Meta) flagSet(name string, configPath *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(configPath, "config", config.DefaultPath, "Configuration file.")
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return &InvocationError{ExitCode: ExitInvalidInvocation, Message: "see -help for usage"}
		}
		return invalidInvocationf("%v", err)
	}
	return nil
}

// open loads the configuration, the operation registry and the store. The
// engine is started only when withEngine is set.
func (m *Meta) open(ctx context.Context, configPath string, withEngine bool) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, configErrorf("%s: %v", configPath, err)
	}
	out := m.LogOutput
	if out == nil {
		out = os.Stderr
	}
	s := &session{
		cfg: cfg,
		log: logging.New(logging.Options{Level: cfg.LogLevel, Output: out}),
	}

	reg := graph.NewRegistry()
	ops.Register(reg)
	s.library = script.NewLibrary(s.log.Named("script"))
	if err := s.library.LoadFiles(cfg.Operations.Paths...); err != nil {
		m.Ui.Warn(err.Error())
	}
	s.library.Register(reg)

	if s.store, err = store.Open(cfg.Store.Kind, cfg.Store.Path); err != nil {
		return nil, configErrorf("opening %s store: %v", cfg.Store.Kind, err)
	}

	var engine graph.Engine
	if withEngine {
		opts, err := cfg.ChannelOptions(s.log.Named("engine"))
		if err != nil {
			s.Close()
			return nil, configErrorf("engine: %v", err)
		}
		start := m.StartEngine
		if start == nil {
			start = compute.Start
		}
		if s.channel, err = start(ctx, opts); err != nil {
			s.Close()
			return nil, configErrorf("starting engine: %v", err)
		}
		engine = s.channel
	}
	s.env = graph.NewEnv(engine, reg, s.log.Named("graph"))
	s.env.Trace = trace.LogSink{Logger: s.log.Named("trace")}
	return s, nil
}

// loadProblem reads name from the store. Problems that load with errors are
// still returned; the errors are shown as a warning.
func (m *Meta) loadProblem(s *session, name string) (*graph.Problem, error) {
	p, err := store.LoadProblem(s.store, s.env, name)
	if p == nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidInvocationf("no problem named %q", name)
		}
		return nil, err
	}
	if err != nil {
		m.Ui.Warn(err.Error())
	}
	return p, nil
}

func (m *Meta) lineReader(prompt string) (LineReader, error) {
	if m.NewLineReader != nil {
		return m.NewLineReader(prompt)
	}
	return readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
}

// fail reports err and returns its exit code.
func (m *Meta) fail(err error) int {
	m.Ui.Error(err.Error())
	return ExitCode(err)
}
