// Package config reads the opgraph configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"opgraph/internal/compute"
)

// DefaultPath is the configuration file looked for in the working directory.
const DefaultPath = "opgraph.hcl"

type Config struct {
	LogLevel   string            `hcl:"log_level,optional"`
	Engine     *EngineConfig     `hcl:"engine,block"`
	Operations *OperationsConfig `hcl:"operations,block"`
	Store      *StoreConfig      `hcl:"store,block"`
	Server     *ServerConfig     `hcl:"server,block"`
}

type EngineConfig struct {
	Command       string   `hcl:"command,optional"`
	Init          []string `hcl:"init,optional"`
	ErrorPrefixes []string `hcl:"error_prefixes,optional"`
	Debug         string   `hcl:"debug,optional"`
	GraphicsDir   string   `hcl:"graphics_dir,optional"`
	Quit          string   `hcl:"quit,optional"`
	ShutdownGrace string   `hcl:"shutdown_grace,optional"`
}

type OperationsConfig struct {
	Paths []string `hcl:"paths,optional"`
}

type StoreConfig struct {
	Kind string `hcl:"kind,optional"`
	Path string `hcl:"path,optional"`
}

type ServerConfig struct {
	Listen string `hcl:"listen,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.fill()
	return c
}

func (c *Config) fill() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if c.Engine.Command == "" {
		c.Engine.Command = "R --slave --no-readline"
	}
	if c.Engine.Init == nil {
		c.Engine.Init = []string{compute.DefaultInit}
	}
	if c.Engine.Debug == "" {
		c.Engine.Debug = compute.Disabled.String()
	}
	if c.Engine.Quit == "" {
		c.Engine.Quit = compute.DefaultQuit
	}
	if c.Engine.ShutdownGrace == "" {
		c.Engine.ShutdownGrace = "5s"
	}
	if c.Operations == nil {
		c.Operations = &OperationsConfig{}
	}
	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if c.Store.Kind == "" {
		c.Store.Kind = "file"
	}
	if c.Store.Path == "" && c.Store.Kind != "memory" {
		c.Store.Path = ".opgraph"
		if c.Store.Kind == "bolt" {
			c.Store.Path = "opgraph.db"
		}
	}
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
}

// Load reads path. A missing file yields the defaults. Relative paths in the
// file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(src, path)
}

// Parse decodes HCL source. The variables env (the process environment) and
// config_dir are available to expressions.
func Parse(src []byte, filename string) (*Config, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}
	var c Config
	if diags := gohcl.DecodeBody(file.Body, evalContext(filename), &c); diags.HasErrors() {
		return nil, diags
	}
	c.fill()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	c.resolvePaths(filepath.Dir(filename))
	return &c, nil
}

func evalContext(filename string) *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		envVal = cty.MapVal(env)
	}
	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		dir = filepath.Dir(filename)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":        envVal,
			"config_dir": cty.StringVal(dir),
		},
	}
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, p := range c.Operations.Paths {
		c.Operations.Paths[i] = abs(p)
	}
	c.Store.Path = abs(c.Store.Path)
	c.Engine.GraphicsDir = abs(c.Engine.GraphicsDir)
}

// Validate checks values the schema cannot.
func (c *Config) Validate() error {
	var problems []string
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		problems = append(problems, fmt.Sprintf("unknown log_level %q", c.LogLevel))
	}
	if _, _, err := compute.SplitCommand(c.Engine.Command); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := compute.ParseRecordMode(c.Engine.Debug); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := time.ParseDuration(c.Engine.ShutdownGrace); err != nil {
		problems = append(problems, fmt.Sprintf("shutdown_grace: %v", err))
	}
	switch c.Store.Kind {
	case "file", "bolt", "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown store kind %q", c.Store.Kind))
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.New(strings.Join(problems, "; "))
}

// ChannelOptions turns the engine block into options for compute.Start.
func (c *Config) ChannelOptions(logger hclog.Logger) (compute.Options, error) {
	path, args, err := compute.SplitCommand(c.Engine.Command)
	if err != nil {
		return compute.Options{}, err
	}
	debug, err := compute.ParseRecordMode(c.Engine.Debug)
	if err != nil {
		return compute.Options{}, err
	}
	grace, err := time.ParseDuration(c.Engine.ShutdownGrace)
	if err != nil {
		return compute.Options{}, err
	}
	return compute.Options{
		Path:          path,
		Args:          args,
		Init:          c.Engine.Init,
		ErrorPrefixes: c.Engine.ErrorPrefixes,
		GraphicsDir:   c.Engine.GraphicsDir,
		Quit:          c.Engine.Quit,
		ShutdownGrace: grace,
		DebugMode:     debug,
		Logger:        logger,
	}, nil
}
