package ops

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"

	"opgraph/internal/compute"
	"opgraph/internal/compute/computetest"
	"opgraph/internal/graph"
)

func newProblem(t *testing.T) (*graph.Env, *graph.DataSet) {
	t.Helper()
	eng := computetest.New()
	reg := graph.NewRegistry()
	Register(reg)
	env := graph.NewEnv(eng.Channel(t, compute.Options{}), reg, hclog.NewNullLogger())
	p := graph.NewProblem(env, "ops")
	ds, err := p.NewDataSet("d")
	if err != nil {
		t.Fatalf("NewDataSet: %v", err)
	}
	x, _ := ds.AddColumn("x")
	x.AppendFloats(2, 4, 6)
	s, _ := ds.AddColumn("who")
	s.AppendTexts("a", "b", "c")
	return env, ds
}

func TestRegister_NamesAndCategory(t *testing.T) {
	reg := graph.NewRegistry()
	Register(reg)
	want := []string{"Mean", "NOP", "Standard Deviation", "Summation", "Variance"}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	for _, info := range reg.Infos() {
		if info.Category != Category || info.Description == "" {
			t.Fatalf("info %+v", info)
		}
	}
}

func TestStatistics_ComputeOneValue(t *testing.T) {
	cases := map[string]struct {
		result string
		want   float64
	}{
		"Mean":               {"mean(x)", 4},
		"Summation":          {"sum(x)", 12},
		"Variance":           {"var(x)", 4},
		"Standard Deviation": {"sd(x)", 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			env, ds := newProblem(t)
			op, err := env.NewOperation(name)
			if err != nil {
				t.Fatalf("NewOperation: %v", err)
			}
			if err := op.SetParent(ds, -1); err != nil {
				t.Fatalf("SetParent: %v", err)
			}
			// x is the only numeric column, so the question answers itself.
			if res := op.CheckCache(); res.Status != graph.Ready {
				t.Fatalf("CheckCache: %v (%v)", res.Status, res.Error())
			}
			col, err := op.ColumnByName(tc.result)
			if err != nil {
				t.Fatalf("ColumnByName: %v", err)
			}
			if got := col.Floats(); len(got) != 1 || got[0] != tc.want {
				t.Fatalf("%s: got %v want %v", tc.result, got, tc.want)
			}
			if n, _ := op.ColumnCount(); n != 3 {
				t.Fatalf("column count: got %d want 3", n)
			}
			if !strings.Contains(op.Record(), tc.result[:strings.Index(tc.result, "(")]+"(") {
				t.Fatalf("record %q lacks the statistic call", op.Record())
			}
			if !strings.HasSuffix(op.Name(), " of x") {
				t.Fatalf("name: got %q", op.Name())
			}
		})
	}
}

func TestStatistics_ChainOnResult(t *testing.T) {
	env, ds := newProblem(t)
	mean, _ := env.NewOperation("Mean")
	_ = mean.SetParent(ds, -1)
	sum, _ := env.NewOperation("Summation")
	_ = sum.SetParent(mean, -1)
	if err := sum.SetAnswer("column", "mean(x)"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	col, err := sum.ColumnByName("sum(mean(x))")
	if err != nil {
		t.Fatalf("ColumnByName: %v", err)
	}
	if got := col.Floats(); len(got) != 1 || got[0] != 4 {
		t.Fatalf("got %v want [4]", got)
	}
}

func TestNOP_PassesColumnsThrough(t *testing.T) {
	env, ds := newProblem(t)
	op, _ := env.NewOperation("NOP")
	if err := op.SetParent(ds, -1); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	names, err := op.ColumnNames()
	if err != nil {
		t.Fatalf("ColumnNames: %v", err)
	}
	if diff := cmp.Diff([]string{"x", "who"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if op.ShortName() != "NOP" {
		t.Fatalf("short name: got %q", op.ShortName())
	}
}
