package store

import (
	"fmt"
	"sort"
	"sync"

	"opgraph/internal/graph"
)

// MemoryStore keeps encoded problems in memory. Loads never share state with
// earlier saves.
type MemoryStore struct {
	mu          sync.Mutex
	problems    map[string][]byte
	transcripts map[string][]Transcript
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{problems: map[string][]byte{}, transcripts: map[string][]Transcript{}}
}

func (s *MemoryStore) Save(name string, form graph.ProblemForm) error {
	if err := checkName(name); err != nil {
		return err
	}
	b, err := encode(form)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[name] = b
	return nil
}

func (s *MemoryStore) Load(name string) (graph.ProblemForm, error) {
	s.mu.Lock()
	b, ok := s.problems[name]
	s.mu.Unlock()
	if !ok {
		return graph.ProblemForm{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return decode(b)
}

func (s *MemoryStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.problems))
	for name := range s.problems {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.problems[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	delete(s.problems, name)
	delete(s.transcripts, name)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) AppendTranscript(problem string, t Transcript) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Seq = len(s.transcripts[problem]) + 1
	s.transcripts[problem] = append(s.transcripts[problem], t)
	return t.Seq, nil
}

func (s *MemoryStore) Transcripts(problem string) ([]Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transcript(nil), s.transcripts[problem]...), nil
}
