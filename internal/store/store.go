// Package store persists serialized problems.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"opgraph/internal/graph"
)

// ErrNotFound is returned when no problem is stored under a name.
var ErrNotFound = errors.New("problem not found")

// Store saves and loads problem forms by name.
type Store interface {
	Save(name string, form graph.ProblemForm) error
	Load(name string) (graph.ProblemForm, error)
	List() ([]string, error)
	Delete(name string) error
	Close() error
}

// Transcript is one operation record kept after a computation.
type Transcript struct {
	Seq  int    `yaml:"-"`
	Node int    `yaml:"node"`
	Op   string `yaml:"op"`
	Text string `yaml:"text"`
}

// TranscriptStore keeps a history of operation records per problem.
type TranscriptStore interface {
	AppendTranscript(problem string, t Transcript) (int, error)
	Transcripts(problem string) ([]Transcript, error)
}

// Open returns the store of the given kind: "file", "bolt" or "memory".
func Open(kind, path string) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(path)
	case "bolt":
		return OpenBolt(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}

// SaveProblem stores p under its name and marks it saved.
func SaveProblem(s Store, p *graph.Problem) error {
	if err := s.Save(p.Name(), p.ToForm()); err != nil {
		return err
	}
	p.MarkSaved()
	return nil
}

// LoadProblem rebuilds the named problem in env. A problem with broken nodes
// is returned together with the error.
func LoadProblem(s Store, env *graph.Env, name string) (*graph.Problem, error) {
	form, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return graph.LoadProblem(env, form)
}

// RecordTranscripts appends the record of every clean operation in p that
// has one. Stores without transcript support are skipped.
func RecordTranscripts(s Store, p *graph.Problem) error {
	ts, ok := s.(TranscriptStore)
	if !ok {
		return nil
	}
	for _, op := range p.AllOperations() {
		if op.IsDirty() || op.Record() == "" {
			continue
		}
		if _, err := ts.AppendTranscript(p.Name(), Transcript{Node: op.ID(), Op: op.Name(), Text: op.Record()}); err != nil {
			return err
		}
	}
	return nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid problem name %q", name)
	}
	return nil
}

func encode(form graph.ProblemForm) ([]byte, error) {
	return yaml.Marshal(form)
}

func decode(b []byte) (graph.ProblemForm, error) {
	var form graph.ProblemForm
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&form); err != nil {
		return graph.ProblemForm{}, fmt.Errorf("decoding problem: %w", err)
	}
	return form, nil
}
