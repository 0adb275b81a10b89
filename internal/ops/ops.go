// Package ops holds the operations implemented directly in Go rather than
// loaded from script definitions.
package ops

import (
	"fmt"

	"opgraph/internal/data"
	"opgraph/internal/graph"
)

// Category groups the built-in operations in listings.
const Category = "Basic"

// inputVar is the engine variable a statistic reads its column from.
const inputVar = "opgraphInput"

// Register adds every built-in operation to reg.
func Register(reg *graph.Registry) {
	reg.Register(graph.OpInfo{Name: "NOP", Category: Category, Description: nop{}.Description()},
		func() graph.Computer { return nop{} })
	for _, s := range statistics {
		reg.Register(graph.OpInfo{Name: s.name, Category: Category, Description: s.Description()},
			func() graph.Computer { return s })
	}
}

// nop passes its parent's columns through unchanged.
type nop struct{}

func (nop) Configure(*graph.Operation) error { return nil }
func (nop) Compute(*graph.Computation) error { return nil }
func (nop) Description() string              { return "Passes the parent columns through unchanged." }

func (nop) DisplayName(*graph.Operation) (string, string, error) {
	return "No operation", "NOP", nil
}

var numericMode = data.Numeric

// statistic reduces one numeric parent column to a single value with an
// engine function.
type statistic struct {
	name  string
	fn    string
	short string
	desc  string
}

var statistics = []statistic{
	{name: "Mean", fn: "mean", short: "Mean", desc: "Arithmetic mean of a numeric column."},
	{name: "Standard Deviation", fn: "sd", short: "SD", desc: "Sample standard deviation of a numeric column."},
	{name: "Summation", fn: "sum", short: "Sum", desc: "Sum of a numeric column."},
	{name: "Variance", fn: "var", short: "Var", desc: "Sample variance of a numeric column."},
}

func (s statistic) Configure(op *graph.Operation) error {
	_, err := op.Ask(graph.QuestionSpec{
		Name:       "column",
		Prompt:     "Column to summarize",
		Kind:       graph.ColumnQuestion,
		ColumnMode: &numericMode,
	})
	return err
}

func (s statistic) Compute(c *graph.Computation) error {
	name, err := c.Answer("column")
	if err != nil {
		return err
	}
	col, err := c.ParentColumn(name.(string))
	if err != nil {
		return err
	}
	if err := c.Engine.SetVariable(inputVar, col.Floats()); err != nil {
		return err
	}
	v, err := c.Engine.ExecuteFloat(s.fn + "(" + inputVar + ")")
	if err != nil {
		return fmt.Errorf("%s of %q: %w", s.name, col.Name(), err)
	}
	res, err := c.NewResult(fmt.Sprintf("%s(%s)", s.fn, col.Name()))
	if err != nil {
		return err
	}
	res.AppendFloats(v)
	return nil
}

func (s statistic) Description() string { return s.desc }

func (s statistic) DisplayName(op *graph.Operation) (string, string, error) {
	q, err := op.Question("column")
	if err != nil {
		return "", "", err
	}
	col := q.CurrentText()
	if col == "" {
		return s.name, s.short, nil
	}
	return s.name + " of " + col, s.short + " " + data.Shorten(col, 5), nil
}
