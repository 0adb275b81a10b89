package compute

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/mattn/go-shellwords"
)

// Start launches the engine process described by opts and returns a channel
// connected to it. Standard error is merged into standard output.
//
// The process runs in its own process group. Cancelling ctx kills the whole
// group, which is the only way to abandon a statement that never returns.
func Start(ctx context.Context, opts Options) (*Channel, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("engine path is empty")
	}

	cmd := exec.CommandContext(ctx, opts.Path, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		killGroup(cmd)
		return nil
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = outW

	if err := cmd.Start(); err != nil {
		_ = outR.Close()
		_ = outW.Close()
		return nil, fmt.Errorf("failed to start engine %q: %w", opts.Path, err)
	}
	// The child holds its own copy of the write end.
	_ = outW.Close()

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
		_ = outR.Close()
	}()

	opts = opts.withDefaults()
	opts.Logger.Debug("engine started", "path", opts.Path, "args", opts.Args, "pid", cmd.Process.Pid)

	init := opts.Init
	opts.Init = []string{}
	c, err := Attach(stdin, outR, opts)
	if err != nil {
		killGroup(cmd)
		return nil, err
	}
	c.proc = cmd
	c.waitCh = waitCh

	for _, stmt := range init {
		if _, err := c.Execute(stmt); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("initializing engine: %w", err)
		}
	}
	return c, nil
}

// SplitCommand tokenizes a configured engine command line such as
// "R --slave --no-readline" into a path and arguments.
func SplitCommand(line string) (string, []string, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return "", nil, fmt.Errorf("parsing engine command %q: %w", line, err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("engine command is empty")
	}
	return words[0], words[1:], nil
}

func killGroup(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	// Negative pid addresses the whole process group.
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

func tempDir() string { return os.TempDir() }
