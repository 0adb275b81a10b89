package graph

import (
	"github.com/google/uuid"
)

// SubProblem is one part of a problem, with the chain of nodes that solves
// it. Steps are kept so that a child follows its parent when both are steps.
type SubProblem struct {
	id         string
	statement  string
	conclusion string
	steps      []DataSource
	problem    *Problem
}

// NewSubProblem returns an empty part. An empty id is replaced by a random one.
func NewSubProblem(id, statement string) *SubProblem {
	if id == "" {
		id = uuid.NewString()
	}
	return &SubProblem{id: id, statement: statement}
}

func (s *SubProblem) ID() string         { return s.id }
func (s *SubProblem) Statement() string  { return s.statement }
func (s *SubProblem) Conclusion() string { return s.conclusion }

func (s *SubProblem) SetStatement(v string) {
	if v != s.statement {
		s.statement = v
		s.markUnsaved()
	}
}

func (s *SubProblem) SetConclusion(v string) {
	if v != s.conclusion {
		s.conclusion = v
		s.markUnsaved()
	}
}

// Steps returns the solution steps in order.
func (s *SubProblem) Steps() []DataSource {
	return append([]DataSource(nil), s.steps...)
}

func (s *SubProblem) StepIndex(ds DataSource) int {
	for i, st := range s.steps {
		if sameNode(st, ds) {
			return i
		}
	}
	return -1
}

func (s *SubProblem) HasSolution() bool { return len(s.steps) > 0 }

// AddStep adds ds to the solution, right after its parent or right before its
// child when either is already a step, and at the front otherwise.
func (s *SubProblem) AddStep(ds DataSource) {
	if s.StepIndex(ds) >= 0 {
		return
	}
	at := 0
	for i, st := range s.steps {
		if sameNode(st, ds.Parent()) {
			at = i + 1
			break
		}
		if sameNode(st.Parent(), ds) {
			at = i
			break
		}
	}
	s.steps = append(s.steps, nil)
	copy(s.steps[at+1:], s.steps[at:])
	s.steps[at] = ds
	ds.base().addSubProblem(s)
	s.markUnsaved()
}

// AddAllSubSteps adds ds and every operation below it.
func (s *SubProblem) AddAllSubSteps(ds DataSource) {
	s.AddStep(ds)
	for _, op := range ds.AllChildOperations() {
		s.AddStep(op)
	}
}

// RemoveStep removes ds from the solution. It reports whether ds was a step.
func (s *SubProblem) RemoveStep(ds DataSource) bool {
	i := s.StepIndex(ds)
	if i < 0 {
		return false
	}
	s.steps = append(s.steps[:i], s.steps[i+1:]...)
	ds.base().removeSubProblem(s)
	s.markUnsaved()
	return true
}

// RemoveAllSubSteps removes ds and every operation below it.
func (s *SubProblem) RemoveAllSubSteps(ds DataSource) {
	s.RemoveStep(ds)
	for _, op := range ds.AllChildOperations() {
		s.RemoveStep(op)
	}
}

// StartSteps are the steps whose predecessor is not their parent.
func (s *SubProblem) StartSteps() []DataSource {
	var out []DataSource
	for i, st := range s.steps {
		if i == 0 || !sameNode(st.Parent(), s.steps[i-1]) {
			out = append(out, st)
		}
	}
	return out
}

// EndSteps are the steps whose successor is not their child.
func (s *SubProblem) EndSteps() []DataSource {
	var out []DataSource
	for i, st := range s.steps {
		if i == len(s.steps)-1 || !sameNode(s.steps[i+1].Parent(), st) {
			out = append(out, st)
		}
	}
	return out
}

// SolutionChain returns the operation steps in order, skipping datasets.
func (s *SubProblem) SolutionChain() []*Operation {
	var out []*Operation
	for _, st := range s.steps {
		if op, ok := st.(*Operation); ok {
			out = append(out, op)
		}
	}
	return out
}

func (s *SubProblem) markUnsaved() {
	if s.problem != nil && !s.problem.loading {
		s.problem.MarkUnsaved()
	}
}
