package graph

import (
	"fmt"
	"sort"

	"opgraph/internal/data"
)

// DataSource is anything that exposes columns and can parent operations. It
// is implemented only by *DataSet and *Operation.
type DataSource interface {
	ID() int
	Name() string
	// Parent is nil for datasets.
	Parent() DataSource
	Root() *DataSet
	Problem() *Problem
	Hidden() bool
	SetHidden(hidden bool)

	// Column accessors present the parent's visible columns followed by the
	// node's own. On an operation they bring the cache up to date first.
	Column(i int) (*data.Column, error)
	ColumnByName(name string) (*data.Column, error)
	ColumnIndex(name string) (int, error)
	Columns() ([]*data.Column, error)
	ColumnCount() (int, error)
	ColumnNames() ([]string, error)
	ColumnLength() (int, error)

	Children() []*Operation
	AddChild(op *Operation) error
	InsertChild(i int, op *Operation) error
	RemoveChild(op *Operation) error
	AllChildOperations() []*Operation
	AllLeafOperations() []*Operation
	SubProblems() []*SubProblem

	// Commands returns the statements that produce this node's columns.
	// When chain is set, the ancestors' statements come first.
	Commands(chain bool) (string, error)
	MarkDirty()

	base() *family
	peekVisible(name string) bool
	isLoading() bool
	markUnsaved()
}

var (
	_ DataSource = (*DataSet)(nil)
	_ DataSource = (*Operation)(nil)
)

// family holds what both node kinds share: identity, children and the
// SubProblems the node is a step of.
type family struct {
	id          int
	hidden      bool
	children    []*Operation
	subProblems []*SubProblem
}

func (f *family) base() *family { return f }

func (f *family) ID() int { return f.id }

func (f *family) Hidden() bool { return f.hidden }

// Children returns the direct child operations. The slice is a copy.
func (f *family) Children() []*Operation {
	return append([]*Operation(nil), f.children...)
}

// AllChildOperations returns every descendant, depth first in child order.
func (f *family) AllChildOperations() []*Operation {
	var out []*Operation
	for _, c := range f.children {
		out = append(out, c)
		out = append(out, c.AllChildOperations()...)
	}
	return out
}

// AllLeafOperations returns the descendants that have no children.
func (f *family) AllLeafOperations() []*Operation {
	var out []*Operation
	for _, c := range f.children {
		if len(c.children) == 0 {
			out = append(out, c)
			continue
		}
		out = append(out, c.AllLeafOperations()...)
	}
	return out
}

// SubProblems returns the SubProblems this node is a step of, ordered by id.
func (f *family) SubProblems() []*SubProblem {
	return append([]*SubProblem(nil), f.subProblems...)
}

func (f *family) indexOf(op *Operation) int {
	for i, c := range f.children {
		if c == op {
			return i
		}
	}
	return -1
}

func (f *family) insertChild(i int, op *Operation) {
	if i < 0 || i > len(f.children) {
		i = len(f.children)
	}
	f.children = append(f.children, nil)
	copy(f.children[i+1:], f.children[i:])
	f.children[i] = op
}

func (f *family) removeChild(op *Operation) bool {
	i := f.indexOf(op)
	if i < 0 {
		return false
	}
	f.children = append(f.children[:i], f.children[i+1:]...)
	return true
}

func (f *family) hasSubProblem(sub *SubProblem) bool {
	for _, s := range f.subProblems {
		if s == sub {
			return true
		}
	}
	return false
}

func (f *family) addSubProblem(sub *SubProblem) {
	if f.hasSubProblem(sub) {
		return
	}
	f.subProblems = append(f.subProblems, sub)
	sort.SliceStable(f.subProblems, func(i, j int) bool {
		return f.subProblems[i].ID() < f.subProblems[j].ID()
	})
}

func (f *family) removeSubProblem(sub *SubProblem) {
	for i, s := range f.subProblems {
		if s == sub {
			f.subProblems = append(f.subProblems[:i], f.subProblems[i+1:]...)
			return
		}
	}
}

func sameNode(a, b DataSource) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.base() == b.base()
}

func longest(cols []*data.Column) int {
	n := 0
	for _, c := range cols {
		if c.Len() > n {
			n = c.Len()
		}
	}
	return n
}

func missingColumn(format string, args ...any) error {
	return &data.ColumnError{Kind: data.ErrNoColumn, Msg: fmt.Sprintf(format, args...)}
}
