package graph

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"
)

func TestLoadProblem_RoundTripsWithoutRecompute(t *testing.T) {
	f := newFixture(t)
	scale := f.attach(t, "Scale", f.data)
	_ = scale.SetAnswer("factor", 2)
	scale.SetRemark("doubled")
	count := f.attach(t, "Count", scale)
	mustReady(t, count)
	pending := f.attach(t, "Scale", f.data) // factor left unanswered
	rng := f.attach(t, "Range", f.data)
	_ = rng.SetAnswer("side", "right")

	sub := NewSubProblem("a", "scale it")
	_ = f.problem.AddSubProblem(sub)
	sub.AddStep(scale)
	sub.AddStep(count)

	var buf bytes.Buffer
	if err := yaml.NewEncoder(&buf).Encode(f.problem.ToForm()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var form ProblemForm
	if err := yaml.NewDecoder(&buf).Decode(&form); err != nil {
		t.Fatalf("decode: %v", err)
	}

	before := f.engine.Count()
	loaded, err := LoadProblem(f.env, form)
	if err != nil {
		t.Fatalf("LoadProblem: %v", err)
	}
	if got := f.engine.Count(); got != before {
		t.Fatalf("loading sent %d statements to the engine", got-before)
	}
	if loaded.IsUnsaved() {
		t.Fatalf("freshly loaded problem is unsaved")
	}

	opts := cmpopts.EquateEmpty()
	if diff := cmp.Diff(f.problem.ToForm(), loaded.ToForm(), opts); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}

	scale2, ok := loaded.Operation(scale.ID())
	if !ok {
		t.Fatalf("operation #%d not restored", scale.ID())
	}
	if !scale.Equal(scale2) {
		t.Fatalf("restored operation not equal to the original")
	}
	if scale2.IsDirty() || len(scale2.Children()) != 1 || scale2.Name() != "Scale a" {
		t.Fatalf("restored: dirty=%v children=%d name=%q", scale2.IsDirty(), len(scale2.Children()), scale2.Name())
	}
	want, _ := scale.Results()
	got, err := scale2.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(got) != len(want) || !got[0].Equal(want[0]) {
		t.Fatalf("results: got %v want %v", got, want)
	}
	count2, _ := loaded.Operation(count.ID())
	if _, err := count2.Columns(); err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if got := f.engine.Count(); got != before {
		t.Fatalf("reading clean restored columns recomputed")
	}

	pending2, _ := loaded.Operation(pending.ID())
	if !pending2.IsDirty() || !pending2.InfoUnanswered() {
		t.Fatalf("unanswered operation restored as dirty=%v unanswered=%v", pending2.IsDirty(), pending2.InfoUnanswered())
	}
	rng2, _ := loaded.Operation(rng.ID())
	if q, _ := rng2.Question("side"); q.Answer() != "right" {
		t.Fatalf("side: got %v", q.Answer())
	}

	sub2, _ := loaded.SubProblem("a")
	if diff := cmp.Diff([]int{scale.ID(), count.ID()}, stepIDs(sub2.Steps())); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	// New nodes never reuse a restored id.
	fresh, _ := f.env.NewOperation("Count")
	for _, op := range loaded.AllOperations() {
		if op.ID() == fresh.ID() {
			t.Fatalf("id %d handed out twice", fresh.ID())
		}
	}
}

func TestLoadProblem_CollectsNodeErrors(t *testing.T) {
	f := newFixture(t)
	form := ProblemForm{
		Name: "broken",
		DataSets: []DataSetForm{{
			ID:   10,
			Name: "d",
			Columns: []ColumnForm{
				{Name: "a", Mode: "numeric", Values: []string{"1", "2"}},
				{Name: "b", Mode: "numeric", Values: []string{"x"}},
			},
			Operations: []NodeForm{
				{Type: "Nope", ID: 11},
				{Type: "Count", ID: 12, Answers: map[string]string{"ghost": "1"}},
			},
		}},
	}
	p, err := LoadProblem(f.env, form)
	if err == nil {
		t.Fatalf("expected errors")
	}
	if !errors.Is(err, ErrUnknownOperation) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("errors: %v", err)
	}
	ds, ok := p.DataSet("d")
	if !ok {
		t.Fatalf("dataset not restored")
	}
	if names, _ := ds.ColumnNames(); len(names) != 1 {
		t.Fatalf("columns: %v", names)
	}
	if op, ok := p.Operation(12); !ok || !op.IsDirty() {
		t.Fatalf("operation with a bad answer should be restored dirty")
	}
}

func TestLoadProblem_DirtyParentDirtiesCleanChildren(t *testing.T) {
	f := newFixture(t)
	scale := f.attach(t, "Scale", f.data)
	_ = scale.SetAnswer("factor", 2)
	count := f.attach(t, "Count", scale)
	mustReady(t, count)

	form := f.problem.ToForm()
	nodes := form.DataSets[0].Operations
	var found bool
	for i := range nodes {
		if nodes[i].ID != scale.ID() {
			continue
		}
		found = true
		if len(nodes[i].Children) != 1 || !nodes[i].Children[0].Clean {
			t.Fatalf("child form: %+v", nodes[i].Children)
		}
		nodes[i].Answers = map[string]string{"renamed": "2"}
	}
	if !found {
		t.Fatalf("operation #%d missing from form", scale.ID())
	}

	loaded, err := LoadProblem(f.env, form)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadProblem: got %v want ErrNotFound", err)
	}
	scale2, _ := loaded.Operation(scale.ID())
	count2, ok := loaded.Operation(count.ID())
	if !ok {
		t.Fatalf("operation #%d not restored", count.ID())
	}
	if !scale2.IsDirty() || !count2.IsDirty() {
		t.Fatalf("dirty: parent=%v child=%v want both dirty", scale2.IsDirty(), count2.IsDirty())
	}
}

func TestDataSet_CSVAndFrames(t *testing.T) {
	f := newFixture(t)
	child := f.attach(t, "Count", f.data)
	mustReady(t, child)
	f.problem.MarkSaved()

	if err := f.data.ImportCSV(strings.NewReader("h,w\n1,2\n3,4\n")); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if !child.IsDirty() || !f.problem.IsUnsaved() {
		t.Fatalf("import: child dirty=%v unsaved=%v", child.IsDirty(), f.problem.IsUnsaved())
	}
	var out bytes.Buffer
	if err := f.data.ExportCSV(&out); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if got, want := out.String(), "h,w\n1,2\n3,4\n"; got != want {
		t.Fatalf("csv: got %q want %q", got, want)
	}

	frame, err := f.data.ToFrame(f.env.Engine)
	if err != nil {
		t.Fatalf("ToFrame: %v", err)
	}
	back, err := FromFrame(f.env, "copy", frame)
	if err != nil {
		t.Fatalf("FromFrame: %v", err)
	}
	if !back.Data().Equal(f.data.Data()) {
		t.Fatalf("frame round trip: got %v", back.Data().Columns())
	}

	words, _ := f.data.AddColumn("who")
	words.AppendTexts("ann", "bob")
	frame, _ = f.data.ToFrame(f.env.Engine)
	back, err = FromFrame(f.env, "copy", frame)
	if err != nil {
		t.Fatalf("FromFrame: %v", err)
	}
	if !back.Data().Equal(f.data.Data()) {
		t.Fatalf("frame round trip with strings: got %v", back.Data().Columns())
	}
}

func TestImportFromEngine_LoadsLibraryFirst(t *testing.T) {
	f := newFixture(t)
	f.engine.Publish("datasets")
	if _, err := f.env.Engine.Execute("cars = data.frame(speed = c(4, 7), dist = c(2, 10))"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	ds, err := ImportFromEngine(f.env, "datasets", "cars")
	if err != nil {
		t.Fatalf("ImportFromEngine: %v", err)
	}
	if !f.engine.Loaded("datasets") {
		t.Fatalf("library not loaded")
	}
	names, _ := ds.ColumnNames()
	if diff := cmp.Diff([]string{"speed", "dist"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if _, err := ImportFromEngine(f.env, "missing", "cars"); err == nil {
		t.Fatalf("expected an error for an unavailable library")
	}
}
