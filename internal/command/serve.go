package command

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"opgraph/internal/server"
)

// ServeCommand serves the stored problems over HTTP until interrupted.
type ServeCommand struct {
	Meta
}

func (c *ServeCommand) Synopsis() string { return "Serve problems over HTTP" }

func (c *ServeCommand) Help() string {
	return strings.TrimSpace(`
Usage: opgraph serve [options]

  Starts the engine and serves the JSON API for the configured store.

Options:

  -config=path   Configuration file. Defaults to opgraph.hcl.
  -listen=addr   Address to listen on. Overrides the configuration.
`)
}

func (c *ServeCommand) Run(args []string) int {
	var configPath, listen string
	fs := c.flagSet("serve", &configPath)
	fs.StringVar(&listen, "listen", "", "")
	if err := parseFlags(fs, args); err != nil {
		return c.fail(err)
	}
	if fs.NArg() != 0 {
		return c.fail(invalidInvocationf("unexpected arguments: %q", strings.Join(fs.Args(), " ")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := c.open(ctx, configPath, true)
	if err != nil {
		return c.fail(err)
	}
	defer s.Close()

	if listen == "" {
		listen = s.cfg.Server.Listen
	}
	srv := server.New(s.env, s.store, s.log.Named("server"))
	if err := srv.ListenAndServe(ctx, listen); err != nil {
		return c.fail(err)
	}
	return ExitSuccess
}
