package graph

import (
	"strings"
)

const maxChanges = 50

// Problem groups datasets and SubProblems and receives change notifications
// from every node below it.
type Problem struct {
	env         *Env
	name        string
	statement   string
	datasets    []*DataSet
	subProblems []*SubProblem

	unsaved bool
	loading bool
	changes []string

	// OnNameChange runs when an operation's display name changes.
	OnNameChange func(op *Operation)
	// OnChange runs before a change is applied, with a short description.
	OnChange func(msg string)
}

func NewProblem(env *Env, name string) *Problem {
	return &Problem{env: env, name: name}
}

func (p *Problem) Env() *Env         { return p.env }
func (p *Problem) Name() string      { return p.name }
func (p *Problem) Statement() string { return p.statement }

func (p *Problem) SetName(name string) {
	if name != p.name {
		p.name = name
		p.MarkUnsaved()
	}
}

func (p *Problem) SetStatement(s string) {
	if s != p.statement {
		p.statement = s
		p.MarkUnsaved()
	}
}

// IsUnsaved reports whether anything changed since the last MarkSaved.
func (p *Problem) IsUnsaved() bool { return p.unsaved }

func (p *Problem) MarkSaved() { p.unsaved = false }

func (p *Problem) MarkUnsaved() {
	if p.loading {
		return
	}
	p.unsaved = true
}

// ChangeBeginning is called before a structural or answer change.
func (p *Problem) ChangeBeginning(msg string) {
	if p.loading {
		return
	}
	p.changes = append(p.changes, msg)
	if len(p.changes) > maxChanges {
		p.changes = p.changes[len(p.changes)-maxChanges:]
	}
	if p.OnChange != nil {
		p.OnChange(msg)
	}
}

// Changes returns the most recent change descriptions, oldest first.
func (p *Problem) Changes() []string { return append([]string(nil), p.changes...) }

// NameChanged is the tree-rebuild hook for display name changes.
func (p *Problem) NameChanged(op *Operation) {
	if p.loading || p.OnNameChange == nil {
		return
	}
	p.OnNameChange(op)
}

// DataSets returns the datasets in order.
func (p *Problem) DataSets() []*DataSet { return append([]*DataSet(nil), p.datasets...) }

// DataSet returns the named dataset, matching case-insensitively.
func (p *Problem) DataSet(name string) (*DataSet, bool) {
	for _, ds := range p.datasets {
		if strings.EqualFold(ds.name, name) {
			return ds, true
		}
	}
	return nil, false
}

// NewDataSet creates and adds an empty dataset.
func (p *Problem) NewDataSet(name string) (*DataSet, error) {
	ds := p.env.NewDataSet(name)
	if err := p.AddDataSet(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// AddDataSet adds ds, which must not belong to another problem.
func (p *Problem) AddDataSet(ds *DataSet) error {
	if ds.problem == p {
		return nil
	}
	if ds.problem != nil {
		return structuralf(ErrDuplicateName, "dataset %q belongs to problem %q", ds.name, ds.problem.name)
	}
	if _, ok := p.DataSet(ds.name); ok {
		return structuralf(ErrDuplicateName, "dataset %q", ds.name)
	}
	p.ChangeBeginning("add dataset " + ds.name)
	ds.problem = p
	p.datasets = append(p.datasets, ds)
	p.MarkUnsaved()
	return nil
}

// RemoveDataSet removes ds and drops it and its operations from every
// SubProblem. It reports whether ds was present.
func (p *Problem) RemoveDataSet(ds *DataSet) bool {
	for i, d := range p.datasets {
		if d != ds {
			continue
		}
		p.ChangeBeginning("remove dataset " + ds.name)
		for _, sub := range p.subProblems {
			sub.RemoveAllSubSteps(ds)
		}
		p.datasets = append(p.datasets[:i], p.datasets[i+1:]...)
		ds.problem = nil
		p.MarkUnsaved()
		return true
	}
	return false
}

func (p *Problem) SubProblems() []*SubProblem {
	return append([]*SubProblem(nil), p.subProblems...)
}

func (p *Problem) SubProblem(id string) (*SubProblem, bool) {
	for _, s := range p.subProblems {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// AddSubProblem adds sub. Ids are unique within a problem.
func (p *Problem) AddSubProblem(sub *SubProblem) error {
	if _, ok := p.SubProblem(sub.id); ok {
		return structuralf(ErrDuplicateName, "subproblem %q", sub.id)
	}
	p.ChangeBeginning("add subproblem " + sub.id)
	sub.problem = p
	p.subProblems = append(p.subProblems, sub)
	p.MarkUnsaved()
	return nil
}

// RemoveSubProblem removes sub and clears its steps.
func (p *Problem) RemoveSubProblem(sub *SubProblem) bool {
	for i, s := range p.subProblems {
		if s != sub {
			continue
		}
		p.ChangeBeginning("remove subproblem " + sub.id)
		for _, st := range sub.Steps() {
			sub.RemoveStep(st)
		}
		p.subProblems = append(p.subProblems[:i], p.subProblems[i+1:]...)
		sub.problem = nil
		p.MarkUnsaved()
		return true
	}
	return false
}

// AllOperations returns every operation under every dataset.
func (p *Problem) AllOperations() []*Operation {
	var out []*Operation
	for _, ds := range p.datasets {
		out = append(out, ds.AllChildOperations()...)
	}
	return out
}

// Node returns the dataset or operation with the given id.
func (p *Problem) Node(id int) (DataSource, bool) {
	for _, ds := range p.datasets {
		if ds.id == id {
			return ds, true
		}
		for _, op := range ds.AllChildOperations() {
			if op.id == id {
				return op, true
			}
		}
	}
	return nil, false
}

// Operation returns the operation with the given id.
func (p *Problem) Operation(id int) (*Operation, bool) {
	n, ok := p.Node(id)
	if !ok {
		return nil, false
	}
	op, ok := n.(*Operation)
	return op, ok
}
