package script

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"opgraph/internal/graph"
)

// Library holds the definitions loaded from one or more files. A definition
// loaded later replaces an earlier one with the same name.
type Library struct {
	mu   sync.RWMutex
	defs map[string]*Definition
	log  hclog.Logger
}

func NewLibrary(logger hclog.Logger) *Library {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Library{defs: map[string]*Definition{}, log: logger}
}

// Load adds the definitions read from r. Valid definitions are kept even
// when others in the same document are broken.
func (l *Library) Load(r io.Reader, source string) error {
	defs, err := ParseDefinitions(r, source)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, d := range defs {
		if old, ok := l.defs[d.Name]; ok {
			l.log.Debug("definition replaced", "operation", d.Name, "old", old.Source, "new", source)
		}
		l.defs[d.Name] = d
	}
	l.log.Debug("loaded definitions", "source", source, "count", len(defs))
	return err
}

// LoadFiles loads every path in order. All failures are reported together.
func (l *Library) LoadFiles(paths ...string) error {
	var result *multierror.Error
	for _, p := range paths {
		if err := l.loadFile(p); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (l *Library) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening definitions: %w", err)
	}
	defer f.Close()
	return l.Load(f, path)
}

// Definition returns the named definition.
func (l *Library) Definition(name string) (*Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.defs[name]
	return d, ok
}

// Names returns the listed definition names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []string
	for name, d := range l.defs {
		if d.Listed {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Categories groups the listed definition names by category.
func (l *Library) Categories() map[string][]string {
	out := map[string][]string{}
	for _, name := range l.Names() {
		d, _ := l.Definition(name)
		out[d.Category] = append(out[d.Category], name)
	}
	return out
}

// Register makes every definition buildable through reg. Unlisted
// definitions are registered hidden.
func (l *Library) Register(reg *graph.Registry) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, d := range l.defs {
		d := d
		reg.Register(graph.OpInfo{
			Name:        d.Name,
			Category:    d.Category,
			Description: d.Description(),
			Hidden:      !d.Listed,
		}, func() graph.Computer { return d })
	}
}
