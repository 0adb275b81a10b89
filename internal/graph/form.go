package graph

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"opgraph/internal/data"
)

// ProblemForm is the serialized shape of a problem.
type ProblemForm struct {
	Name        string           `json:"name" yaml:"name"`
	Statement   string           `json:"statement,omitempty" yaml:"statement,omitempty"`
	DataSets    []DataSetForm    `json:"datasets,omitempty" yaml:"datasets,omitempty"`
	SubProblems []SubProblemForm `json:"subproblems,omitempty" yaml:"subproblems,omitempty"`
}

type DataSetForm struct {
	ID         int          `json:"id" yaml:"id"`
	Name       string       `json:"name" yaml:"name"`
	Hidden     bool         `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Columns    []ColumnForm `json:"columns,omitempty" yaml:"columns,omitempty"`
	Operations []NodeForm   `json:"operations,omitempty" yaml:"operations,omitempty"`
}

// ColumnForm stores values as text so that both modes share one shape.
type ColumnForm struct {
	Name   string   `json:"name" yaml:"name"`
	Mode   string   `json:"mode" yaml:"mode"`
	Values []string `json:"values" yaml:"values,flow"`
}

// NodeForm is the serialized operation. Type selects the registered
// operation; Answers are keyed by question name.
type NodeForm struct {
	Type       string            `json:"type" yaml:"type"`
	ID         int               `json:"id" yaml:"id"`
	Remark     string            `json:"remark,omitempty" yaml:"remark,omitempty"`
	Hidden     bool              `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Answers    map[string]string `json:"answers,omitempty" yaml:"answers,omitempty"`
	Clean      bool              `json:"clean,omitempty" yaml:"clean,omitempty"`
	Record     string            `json:"record,omitempty" yaml:"record,omitempty"`
	StartIndex int               `json:"start_index,omitempty" yaml:"start_index,omitempty"`
	Results    []ColumnForm      `json:"results,omitempty" yaml:"results,omitempty"`
	Plot       string            `json:"plot,omitempty" yaml:"plot,omitempty"`
	Children   []NodeForm        `json:"children,omitempty" yaml:"children,omitempty"`
}

type SubProblemForm struct {
	ID         string `json:"id" yaml:"id"`
	Statement  string `json:"statement,omitempty" yaml:"statement,omitempty"`
	Conclusion string `json:"conclusion,omitempty" yaml:"conclusion,omitempty"`
	Steps      []int  `json:"steps,omitempty" yaml:"steps,omitempty,flow"`
}

// ColumnToForm serializes one column.
func ColumnToForm(c *data.Column) ColumnForm {
	return ColumnForm{Name: c.Name(), Mode: c.Mode().String(), Values: c.Texts()}
}

// ColumnFromForm rebuilds a detached column.
func ColumnFromForm(f ColumnForm) (*data.Column, error) {
	mode, err := data.ParseMode(f.Mode)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", f.Name, err)
	}
	if mode == data.String {
		return data.NewStrings(f.Name, f.Values...), nil
	}
	vals := make([]float64, len(f.Values))
	for i, s := range f.Values {
		v, err := data.ParseNumber(s)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", f.Name, i, err)
		}
		vals[i] = v
	}
	return data.NewNumeric(f.Name, vals...), nil
}

func (p *Problem) ToForm() ProblemForm {
	f := ProblemForm{Name: p.name, Statement: p.statement}
	for _, ds := range p.datasets {
		f.DataSets = append(f.DataSets, ds.ToForm())
	}
	for _, sub := range p.subProblems {
		sf := SubProblemForm{ID: sub.id, Statement: sub.statement, Conclusion: sub.conclusion}
		for _, st := range sub.steps {
			sf.Steps = append(sf.Steps, st.ID())
		}
		f.SubProblems = append(f.SubProblems, sf)
	}
	return f
}

func (ds *DataSet) ToForm() DataSetForm {
	f := DataSetForm{ID: ds.id, Name: ds.name, Hidden: ds.hidden}
	for _, c := range ds.columns.Columns() {
		f.Columns = append(f.Columns, ColumnToForm(c))
	}
	for _, op := range ds.children {
		f.Operations = append(f.Operations, op.ToForm())
	}
	return f
}

// ToForm serializes the operation and its subtree as currently cached. It
// never recomputes.
func (o *Operation) ToForm() NodeForm {
	f := NodeForm{
		Type:       o.typeName,
		ID:         o.id,
		Remark:     o.remark,
		Hidden:     o.hidden,
		Clean:      !o.dirty,
		Record:     o.record,
		StartIndex: o.startIndex,
		Plot:       o.plotPath,
	}
	for _, q := range o.questions {
		if q.spec.Kind == FixedQuestion || q.answer == nil {
			continue
		}
		if f.Answers == nil {
			f.Answers = map[string]string{}
		}
		f.Answers[q.spec.Name] = formatAnswer(q.answer)
	}
	for _, c := range o.results.Columns() {
		f.Results = append(f.Results, ColumnToForm(c))
	}
	for _, c := range o.children {
		f.Children = append(f.Children, c.ToForm())
	}
	return f
}

// LoadProblem rebuilds a problem. Nothing is recomputed and no change
// notification is sent while loading. Node errors are collected; the problem
// is returned along with them so that the intact parts stay usable.
func LoadProblem(env *Env, f ProblemForm) (*Problem, error) {
	p := NewProblem(env, f.Name)
	p.statement = f.Statement
	p.loading = true
	defer func() { p.loading = false }()

	var result *multierror.Error
	for _, dsf := range f.DataSets {
		ds, err := LoadDataSet(env, dsf)
		if err != nil {
			result = multierror.Append(result, err)
		}
		if ds == nil {
			continue
		}
		if _, dup := p.DataSet(ds.name); dup {
			result = multierror.Append(result, structuralf(ErrDuplicateName, "dataset %q", ds.name))
			continue
		}
		ds.problem = p
		p.datasets = append(p.datasets, ds)
	}
	for _, sf := range f.SubProblems {
		sub := NewSubProblem(sf.ID, sf.Statement)
		sub.conclusion = sf.Conclusion
		sub.problem = p
		for _, id := range sf.Steps {
			node, ok := p.Node(id)
			if !ok {
				result = multierror.Append(result, structuralf(ErrNotFound, "subproblem %q step %d", sf.ID, id))
				continue
			}
			sub.steps = append(sub.steps, node)
			node.base().addSubProblem(sub)
		}
		p.subProblems = append(p.subProblems, sub)
	}
	return p, result.ErrorOrNil()
}

// LoadDataSet rebuilds a dataset and its operations.
func LoadDataSet(env *Env, f DataSetForm) (*DataSet, error) {
	id := f.ID
	if id <= 0 {
		id = env.allocateID()
	} else {
		env.reserveID(id)
	}
	ds := newDataSet(env, f.Name, id)
	ds.loading = true
	defer func() { ds.loading = false }()
	ds.hidden = f.Hidden

	var result *multierror.Error
	for _, cf := range f.Columns {
		c, err := ColumnFromForm(cf)
		if err == nil {
			err = ds.columns.AddColumn(c)
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("dataset %q: %w", f.Name, err))
		}
	}
	for _, nf := range f.Operations {
		if _, err := LoadOperation(env, nf, ds); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return ds, result.ErrorOrNil()
}

// LoadOperation rebuilds an operation under parent, which may be nil. Answers
// are restored as stored; only answers that no longer parse are dropped.
func LoadOperation(env *Env, f NodeForm, parent DataSource) (*Operation, error) {
	factory, _, ok := env.Registry.Lookup(f.Type)
	if !ok {
		return nil, structuralf(ErrUnknownOperation, "%q (#%d)", f.Type, f.ID)
	}
	id := f.ID
	if id <= 0 {
		id = env.allocateID()
	} else {
		env.reserveID(id)
	}
	op := newOperation(env, f.Type, factory(), id)
	op.loading = true
	defer func() { op.loading = false }()
	if err := op.computer.Configure(op); err != nil {
		return nil, fmt.Errorf("configuring %s (#%d): %w", f.Type, id, err)
	}
	if parent != nil {
		parent.base().insertChild(-1, op)
		op.parent = parent
	}
	op.remark = f.Remark
	op.hidden = f.Hidden

	var result *multierror.Error
	names := make([]string, 0, len(f.Answers))
	for name := range f.Answers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		q, err := op.Question(name)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		q.restore(f.Answers[name])
	}
	for _, cf := range f.Results {
		c, err := ColumnFromForm(cf)
		if err == nil {
			err = op.results.AddColumn(c)
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s (#%d): %w", f.Type, id, err))
		}
	}
	op.record = f.Record
	op.startIndex = f.StartIndex
	op.plotPath = f.Plot
	op.dirty = !f.Clean || result.ErrorOrNil() != nil
	if p, ok := parent.(*Operation); ok && p.dirty {
		op.dirty = true
	}
	op.checkDisplayName()

	for _, cf := range f.Children {
		if _, err := LoadOperation(env, cf, op); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return op, result.ErrorOrNil()
}
