package graph

import (
	"github.com/hashicorp/go-hclog"

	"opgraph/internal/data"
)

// Computer is the behaviour behind an operation type. Configure declares the
// operation's questions once, right after creation. Compute fills the
// operation's results from its parent's columns.
type Computer interface {
	Configure(op *Operation) error
	Compute(c *Computation) error
}

// Namer builds display names from the current answers. Without one, the type
// name is used.
type Namer interface {
	DisplayName(op *Operation) (long, short string, err error)
}

// Describer supplies a description for the operation type.
type Describer interface {
	Description() string
}

// Hasher identifies the computer's definition, so that two operations of the
// same type from different definitions never compare equal.
type Hasher interface {
	DefinitionHash() string
}

// Computation is handed to Compute. Results added through it land in the
// operation's own column set, after the inherited columns.
type Computation struct {
	Op     *Operation
	Engine Engine
	Log    hclog.Logger
}

// Parent returns the operation's parent.
func (c *Computation) Parent() DataSource { return c.Op.parent }

// ParentColumns returns every column visible on the parent.
func (c *Computation) ParentColumns() ([]*data.Column, error) {
	return c.Op.parent.Columns()
}

// ParentColumn returns the named parent column.
func (c *Computation) ParentColumn(name string) (*data.Column, error) {
	return c.Op.parent.ColumnByName(name)
}

// Question returns one of the operation's questions.
func (c *Computation) Question(name string) (*Question, error) {
	return c.Op.Question(name)
}

// Answer returns the current answer for the named question.
func (c *Computation) Answer(name string) (any, error) {
	q, err := c.Op.Question(name)
	if err != nil {
		return nil, err
	}
	return q.Answer(), nil
}

// NewResult adds an empty numeric result column.
func (c *Computation) NewResult(name string) (*data.Column, error) {
	return c.Op.results.Add(name)
}

// AddResult adds a built column to the results.
func (c *Computation) AddResult(col *data.Column) error {
	return c.Op.results.AddColumn(col)
}

// Result returns one of the columns added during this computation.
func (c *Computation) Result(name string) (*data.Column, error) {
	return c.Op.results.Lookup(name)
}

// HasPlot reports whether a plot was already produced by this computation.
func (c *Computation) HasPlot() bool { return c.Op.plotPath != "" }

// SetPlot records the image produced by this computation. An operation holds
// at most one plot.
func (c *Computation) SetPlot(path string) error {
	if c.Op.plotPath != "" {
		return structuralf(ErrDuplicateName, "operation already has a plot")
	}
	c.Op.plotPath = path
	return nil
}
