package compute

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

const (
	// DefaultInit is sent once after the engine starts.
	DefaultInit = "options(error=dump.frames, warn=-1, device=png)"
	// DefaultQuit asks the engine to exit without saving its workspace.
	DefaultQuit = "q(save='no')"

	uniquePrefix = "opgraphUnique"
)

// singleStatement matches text holding at most one statement: no interior
// newline or semicolon, with one optional terminator.
var singleStatement = regexp.MustCompile(`^[^\n;]+[\n;]?$`)

// Options configures a Channel.
type Options struct {
	// Path and Args start the engine process. Ignored by Attach.
	Path string
	Args []string
	// Env is appended to the host environment of the engine process.
	Env []string
	Dir string

	// Init statements run once, in order, after the channel is connected.
	// A nil slice means []string{DefaultInit}; an empty slice sends nothing.
	Init []string
	// ErrorPrefixes mark output lines that turn a reply into an EngineError.
	// Defaults to "Error".
	ErrorPrefixes []string
	// GraphicsDir receives plot files. Defaults to os.TempDir().
	GraphicsDir string
	// Quit is the graceful shutdown statement. Defaults to DefaultQuit.
	Quit string
	// ShutdownGrace bounds how long Close waits for the process to exit
	// before killing it. Defaults to five seconds.
	ShutdownGrace time.Duration

	// DebugMode echoes traffic to Logger at debug level.
	DebugMode RecordMode
	Logger    hclog.Logger
}

func (o Options) withDefaults() Options {
	if o.Init == nil {
		o.Init = []string{DefaultInit}
	}
	if len(o.ErrorPrefixes) == 0 {
		o.ErrorPrefixes = []string{"Error"}
	}
	if o.Quit == "" {
		o.Quit = DefaultQuit
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = hclog.NewNullLogger()
	}
	return o
}

// Channel is a synchronous statement channel to one engine process.
//
// Only one statement is ever in flight; concurrent callers are serialized by
// an internal mutex. Recording state is shared by every caller, so callers
// that change the record mode must restore it themselves.
type Channel struct {
	mu sync.Mutex

	proc   *exec.Cmd
	waitCh chan error
	stdin  io.WriteCloser
	stdout *bufio.Reader
	dead   bool

	sentinelCmd    string
	sentinelReturn string
	prefixes       []string
	graphicsDir    string
	quit           string
	grace          time.Duration

	recordMode RecordMode
	debugMode  RecordMode
	transcript strings.Builder
	counter    int

	log hclog.Logger
}

// Attach builds a channel over already-connected pipes and runs the
// configured init statements. Closing the channel closes stdin.
func Attach(stdin io.WriteCloser, stdout io.Reader, opts Options) (*Channel, error) {
	opts = opts.withDefaults()
	marker := "---OPGRAPH OUTPUT END " + uuid.NewString() + "---"
	c := &Channel{
		stdin:          stdin,
		stdout:         bufio.NewReader(stdout),
		sentinelCmd:    "print('" + marker + "')\n",
		sentinelReturn: `[1] "` + marker + `"`,
		prefixes:       append([]string(nil), opts.ErrorPrefixes...),
		graphicsDir:    opts.GraphicsDir,
		quit:           opts.Quit,
		grace:          opts.ShutdownGrace,
		debugMode:      opts.DebugMode,
		log:            opts.Logger,
	}
	for _, stmt := range opts.Init {
		if _, err := c.Execute(stmt); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("initializing engine: %w", err)
		}
	}
	return c, nil
}

// Alive reports whether the channel can still accept statements.
func (c *Channel) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.dead
}

// Execute sends exactly one statement and returns the engine's output.
func (c *Channel) Execute(stmt string) (string, error) {
	return c.execute(stmt, true)
}

// ExecuteIgnoringErrors behaves like Execute but returns error lines as
// ordinary output instead of raising an EngineError.
func (c *Channel) ExecuteIgnoringErrors(stmt string) (string, error) {
	return c.execute(stmt, false)
}

// ExecuteAll runs each statement in order and stops at the first failure.
// The outputs of the statements that ran are returned.
func (c *Channel) ExecuteAll(stmts []string) ([]string, error) {
	out := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		res, err := c.Execute(stmt)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (c *Channel) execute(stmt string, detectErrors bool) (string, error) {
	if !singleStatement.MatchString(stmt) {
		return "", protocolf("exactly one statement may be executed at a time: %q", stmt)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return "", deadf(nil, "engine process has been closed")
	}

	line := strings.TrimSpace(stmt) + "\n"
	if c.recordMode.commands() {
		c.transcript.WriteString(line)
	}
	if c.debugMode.commands() {
		c.log.Debug("> " + strings.TrimSuffix(line, "\n"))
	}

	if _, err := io.WriteString(c.stdin, line+c.sentinelCmd); err != nil {
		c.killLocked()
		return "", deadf(err, "unable to write to engine")
	}

	var sb strings.Builder
	failed := false
	for {
		raw, err := c.stdout.ReadString('\n')
		if err != nil && (raw == "" || !errors.Is(err, io.EOF)) {
			c.killLocked()
			return "", deadf(err, "unable to read from engine")
		}
		text := strings.TrimRight(raw, "\r\n")
		// Output without a trailing newline shares its line with the sentinel.
		done := strings.HasSuffix(text, c.sentinelReturn)
		if done {
			text = strings.TrimSuffix(text, c.sentinelReturn)
			if text == "" {
				break
			}
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
		if detectErrors && c.isErrorLine(text) {
			failed = true
		}
		if done {
			break
		}
		if err != nil {
			c.killLocked()
			return "", deadf(err, "engine closed its output")
		}
	}

	out := sb.String()
	if c.recordMode.output() {
		c.transcript.WriteString(out)
	}
	if c.debugMode.output() && out != "" {
		c.log.Debug(strings.TrimSuffix(out, "\n"))
	}
	if failed {
		return out, &EngineError{Statement: strings.TrimSpace(stmt), Output: out}
	}
	return out, nil
}

func (c *Channel) isErrorLine(line string) bool {
	for _, p := range c.prefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// ExecuteSave stores the result of stmt in a freshly named engine variable and
// returns that name.
func (c *Channel) ExecuteSave(stmt string) (string, error) {
	name := c.UniqueName()
	if _, err := c.Execute(name + " = " + strings.TrimSpace(stmt)); err != nil {
		return "", err
	}
	return name, nil
}

// ExecuteFloat runs stmt and parses exactly one number from its output.
func (c *Channel) ExecuteFloat(stmt string) (float64, error) {
	out, err := c.Execute(stmt)
	if err != nil {
		return 0, err
	}
	return ParseFloat(out)
}

// ExecuteFloats runs stmt and parses every number from its output.
func (c *Channel) ExecuteFloats(stmt string) ([]float64, error) {
	out, err := c.Execute(stmt)
	if err != nil {
		return nil, err
	}
	return ParseFloats(out)
}

// ExecuteString runs stmt and parses exactly one quoted string.
func (c *Channel) ExecuteString(stmt string) (string, error) {
	out, err := c.Execute(stmt)
	if err != nil {
		return "", err
	}
	return ParseString(out)
}

// ExecuteStrings runs stmt and parses every quoted string.
func (c *Channel) ExecuteStrings(stmt string) ([]string, error) {
	out, err := c.Execute(stmt)
	if err != nil {
		return nil, err
	}
	return ParseStrings(out)
}

// ExecuteBool runs stmt and parses exactly one logical value.
func (c *Channel) ExecuteBool(stmt string) (bool, error) {
	out, err := c.Execute(stmt)
	if err != nil {
		return false, err
	}
	return ParseBool(out)
}

// ExecuteBools runs stmt and parses every logical value.
func (c *Channel) ExecuteBools(stmt string) ([]bool, error) {
	out, err := c.Execute(stmt)
	if err != nil {
		return nil, err
	}
	return ParseBools(out)
}

// UniqueName returns an identifier not previously handed out by this channel.
func (c *Channel) UniqueName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter++
	if c.counter < 0 {
		c.counter = 0
	}
	return fmt.Sprintf("%s%d", uniquePrefix, c.counter)
}

// StartGraphicOutput redirects plotting to a new png file and returns its path.
func (c *Channel) StartGraphicOutput() (string, error) {
	dir := c.graphicsDir
	if dir == "" {
		dir = tempDir()
	}
	path := filepath.ToSlash(filepath.Join(dir, c.UniqueName()+".png"))
	if _, err := c.Execute("png(filename=" + quote(path) + ")"); err != nil {
		return "", err
	}
	return path, nil
}

// StopGraphicOutput closes the device opened by StartGraphicOutput.
func (c *Channel) StopGraphicOutput() error {
	_, err := c.Execute("dev.off()")
	return err
}

// SetRecordMode changes what gets recorded and returns the previous mode.
func (c *Channel) SetRecordMode(mode RecordMode) RecordMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.recordMode
	c.recordMode = mode
	return old
}

// RecordMode returns the current record mode.
func (c *Channel) RecordMode() RecordMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordMode
}

// SetDebugMode changes what is echoed to the logger and returns the previous mode.
func (c *Channel) SetDebugMode(mode RecordMode) RecordMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.debugMode
	c.debugMode = mode
	return old
}

// FetchInteraction returns the transcript recorded so far and resets it.
func (c *Channel) FetchInteraction() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.transcript.String()
	c.transcript.Reset()
	return s
}

// Close asks the engine to quit, closes the pipes and reaps the process. If
// the process does not exit within the grace period it is killed.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return nil
	}
	c.dead = true

	var result *multierror.Error
	_, werr := io.WriteString(c.stdin, c.quit+"\n")
	if werr != nil {
		result = multierror.Append(result, fmt.Errorf("unable to send quit: %w", werr))
	}
	if err := c.stdin.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("unable to close engine input: %w", err))
	}
	if c.proc == nil {
		return result.ErrorOrNil()
	}
	if werr != nil {
		// The quit statement never reached the engine.
		killGroup(c.proc)
		<-c.waitCh
		return result.ErrorOrNil()
	}

	select {
	case err := <-c.waitCh:
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			result = multierror.Append(result, err)
		}
		return result.ErrorOrNil()
	case <-time.After(c.grace):
		c.log.Warn("engine did not exit in time, killing it", "grace", c.grace)
		killGroup(c.proc)
		<-c.waitCh
		return result.ErrorOrNil()
	}
}

// killLocked tears the channel down after a transport failure so that a new
// one can be started.
func (c *Channel) killLocked() {
	c.dead = true
	_ = c.stdin.Close()
	if c.proc != nil {
		killGroup(c.proc)
	}
}
