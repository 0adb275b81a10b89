package graph

import (
	"fmt"
	"testing"

	"github.com/hashicorp/go-hclog"

	"opgraph/internal/compute"
	"opgraph/internal/compute/computetest"
	"opgraph/internal/data"
	"opgraph/internal/trace"
)

var numeric = data.Numeric

// scaleOp multiplies one numeric parent column by a factor in the engine.
type scaleOp struct{}

func (scaleOp) Configure(op *Operation) error {
	if _, err := op.Ask(QuestionSpec{Name: "column", Prompt: "Column to scale", Kind: ColumnQuestion, ColumnMode: &numeric}); err != nil {
		return err
	}
	_, err := op.Ask(QuestionSpec{Name: "factor", Kind: NumericQuestion})
	return err
}

func (scaleOp) Compute(c *Computation) error {
	name, _ := c.Answer("column")
	factor, _ := c.Answer("factor")
	col, err := c.ParentColumn(name.(string))
	if err != nil {
		return err
	}
	if err := c.Engine.SetVariable("x", col.Floats()); err != nil {
		return err
	}
	f := data.FormatNumber(factor.(float64))
	vals, err := c.Engine.ExecuteFloats("x * " + f)
	if err != nil {
		return err
	}
	res, err := c.NewResult(fmt.Sprintf("%s x%s", col.Name(), f))
	if err != nil {
		return err
	}
	res.AppendFloats(vals...)
	return nil
}

func (scaleOp) DisplayName(op *Operation) (string, string, error) {
	q, _ := op.Question("column")
	col := formatAnswer(q.Current())
	if col == "" {
		col = "?"
	}
	return "Scale " + col, "S " + data.Shorten(col, 5), nil
}

// countOp adds a column 1..3 named after its own id.
type countOp struct{}

func (countOp) Configure(*Operation) error { return nil }

func (countOp) Compute(c *Computation) error {
	vals, err := c.Engine.ExecuteFloats("1:3")
	if err != nil {
		return err
	}
	res, err := c.NewResult(fmt.Sprintf("count%d", c.Op.ID()))
	if err != nil {
		return err
	}
	res.AppendFloats(vals...)
	return nil
}

// rangeOp only has questions that answer themselves.
type rangeOp struct{}

func (rangeOp) Configure(op *Operation) error {
	half := 0.5
	specs := []QuestionSpec{
		{Name: "level", Kind: NumericQuestion, Min: &half, Max: &half},
		{Name: "tail", Kind: ComboQuestion, Options: []string{"two-sided"}},
		{Name: "method", Kind: FixedQuestion, Value: "exact"},
		{Name: "label", Kind: StringQuestion, Pattern: `[a-z]+`},
		{Name: "paired", Kind: CheckboxQuestion, Value: false},
		{Name: "side", Kind: ComboQuestion, Options: []string{"left", "right"}},
	}
	for _, s := range specs {
		if _, err := op.Ask(s); err != nil {
			return err
		}
	}
	return nil
}

func (rangeOp) Compute(*Computation) error { return nil }

// failOp always makes the engine report an error.
type failOp struct{}

func (failOp) Configure(*Operation) error { return nil }

func (failOp) Compute(c *Computation) error {
	_, err := c.Engine.Execute("stop('boom')")
	return err
}

type fixture struct {
	env     *Env
	engine  *computetest.Engine
	rec     *trace.Recorder
	problem *Problem
	data    *DataSet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	eng := computetest.New()
	ch := eng.Channel(t, compute.Options{})

	reg := NewRegistry()
	reg.Register(OpInfo{Name: "Scale", Category: "Test"}, func() Computer { return scaleOp{} })
	reg.Register(OpInfo{Name: "Count", Category: "Test"}, func() Computer { return countOp{} })
	reg.Register(OpInfo{Name: "Range", Category: "Test"}, func() Computer { return rangeOp{} })
	reg.Register(OpInfo{Name: "Fail"}, func() Computer { return failOp{} })

	env := NewEnv(ch, reg, hclog.NewNullLogger())
	rec := trace.NewRecorder()
	env.Trace = rec

	p := NewProblem(env, "p")
	ds, err := p.NewDataSet("data")
	if err != nil {
		t.Fatalf("NewDataSet: %v", err)
	}
	a, err := ds.AddColumn("a")
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	a.AppendFloats(1, 2, 3)
	label, err := ds.AddColumn("label")
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	label.AppendTexts("x", "y", "z")
	p.MarkSaved()
	rec.Reset()

	return &fixture{env: env, engine: eng, rec: rec, problem: p, data: ds}
}

// attach creates an operation of type name under parent.
func (f *fixture) attach(t *testing.T, name string, parent DataSource) *Operation {
	t.Helper()
	op, err := f.env.NewOperation(name)
	if err != nil {
		t.Fatalf("NewOperation(%q): %v", name, err)
	}
	if err := op.SetParent(parent, -1); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	return op
}

func mustReady(t *testing.T, op *Operation) {
	t.Helper()
	if res := op.CheckCache(); res.Status != Ready {
		t.Fatalf("CheckCache(%s #%d): got %v (%v) want ready", op.Type(), op.ID(), res.Status, res.Error())
	}
}
