package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"opgraph/internal/compute"
	"opgraph/internal/trace"
)

func TestCheckCache_SecondCallDoesNotRecompute(t *testing.T) {
	f := newFixture(t)
	op := f.attach(t, "Scale", f.data)
	if err := op.SetAnswer("factor", 2); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	before := f.engine.Count()
	mustReady(t, op)
	after := f.engine.Count()
	if after == before {
		t.Fatalf("first CheckCache sent nothing to the engine")
	}
	mustReady(t, op)
	if got := f.engine.Count(); got != after {
		t.Fatalf("second CheckCache sent %d statements", got-after)
	}

	res, err := op.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(res) != 1 || res[0].Name() != "a x2" {
		t.Fatalf("results: got %v", res)
	}
	if diff := cmp.Diff([]float64{2, 4, 6}, res[0].Floats()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(op.Record(), "x * 2") {
		t.Fatalf("record: got %q", op.Record())
	}
}

func TestMarkDirty_OnlyTravelsDown(t *testing.T) {
	f := newFixture(t)
	a := f.attach(t, "Count", f.data)
	b := f.attach(t, "Count", a)
	c := f.attach(t, "Count", b)
	mustReady(t, c)
	for _, op := range []*Operation{a, b, c} {
		if op.IsDirty() {
			t.Fatalf("#%d dirty after computing the leaf", op.ID())
		}
	}

	b.MarkDirty()
	if a.IsDirty() {
		t.Fatalf("ancestor marked dirty")
	}
	if !b.IsDirty() || !c.IsDirty() {
		t.Fatalf("dirty flags: b=%v c=%v", b.IsDirty(), c.IsDirty())
	}

	f.rec.Reset()
	mustReady(t, b)
	if !c.IsDirty() {
		t.Fatalf("recomputing b left its child clean")
	}
	if a.IsDirty() {
		t.Fatalf("recomputing b dirtied its parent")
	}
	var computed []string
	for _, ev := range f.rec.Snapshot() {
		if ev.Kind == trace.NodeComputed {
			computed = append(computed, ev.Node)
		}
	}
	if diff := cmp.Diff([]string{nodeKey(b.ID())}, computed); diff != "" {
		t.Fatalf("computed nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestColumnIndex_PartitionsParentAndOwnColumns(t *testing.T) {
	f := newFixture(t)
	op := f.attach(t, "Scale", f.data)
	if err := op.SetAnswer("factor", 3); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	n, err := op.ColumnCount()
	if err != nil {
		t.Fatalf("ColumnCount: %v", err)
	}
	parentCount, _ := f.data.ColumnCount()
	own, _ := op.Results()
	if n != parentCount+len(own) || n != 3 {
		t.Fatalf("ColumnCount: got %d want %d+%d", n, parentCount, len(own))
	}
	for i := 0; i < parentCount; i++ {
		got, err := op.Column(i)
		if err != nil {
			t.Fatalf("Column(%d): %v", i, err)
		}
		want, _ := f.data.Column(i)
		if got != want {
			t.Fatalf("Column(%d): got %s want parent column %s", i, got.Name(), want.Name())
		}
	}
	got, err := op.Column(parentCount)
	if err != nil || got != own[0] {
		t.Fatalf("Column(%d): got %v, %v want own column", parentCount, got, err)
	}
	if _, err := op.Column(n); err == nil {
		t.Fatalf("Column(%d): expected error", n)
	}
	if i, err := op.ColumnIndex("A X3"); err != nil || i != 2 {
		t.Fatalf("ColumnIndex: got %d, %v", i, err)
	}
	names, _ := op.ColumnNames()
	if diff := cmp.Diff([]string{"a", "label", "a x3"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoAnswer_SingleOptionsAndFixedRanges(t *testing.T) {
	f := newFixture(t)

	scale := f.attach(t, "Scale", f.data)
	q, _ := scale.Question("column")
	if got := q.Answer(); got != "a" {
		t.Fatalf("column answer: got %v want a", got)
	}
	if got := scale.Name(); got != "Scale a" {
		t.Fatalf("display name: got %q", got)
	}

	rng := f.attach(t, "Range", f.data)
	want := map[string]any{"level": 0.5, "tail": "two-sided", "method": "exact", "paired": false}
	for name, w := range want {
		q, err := rng.Question(name)
		if err != nil {
			t.Fatalf("Question(%q): %v", name, err)
		}
		if got := q.Answer(); got != w {
			t.Fatalf("%s: got %v want %v", name, got, w)
		}
	}
	var missing []string
	for _, q := range rng.Unanswered() {
		missing = append(missing, q.Name())
	}
	if diff := cmp.Diff([]string{"label", "side"}, missing); diff != "" {
		t.Fatalf("unanswered mismatch (-want +got):\n%s", diff)
	}
}

func TestQuestion_Validation(t *testing.T) {
	f := newFixture(t)
	rng := f.attach(t, "Range", f.data)
	scale := f.attach(t, "Scale", f.data)

	tests := []struct {
		op     *Operation
		q      string
		answer any
		ok     bool
	}{
		{rng, "side", "left", true},
		{rng, "side", "up", false},
		{rng, "label", "abc", true},
		{rng, "label", "abc1", false},
		{rng, "paired", "true", true},
		{rng, "paired", "maybe", false},
		{rng, "level", 0.5, true},
		{rng, "level", 0.6, false},
		{rng, "level", "half", false},
		{rng, "method", "exact", true},
		{rng, "method", "other", false},
		{scale, "column", "label", false},
		{scale, "column", "nope", false},
		{scale, "column", "A", true},
	}
	for _, tt := range tests {
		err := tt.op.SetAnswer(tt.q, tt.answer)
		if (err == nil) != tt.ok {
			t.Fatalf("SetAnswer(%s, %v): got %v ok=%v", tt.q, tt.answer, err, tt.ok)
		}
	}

	q, _ := scale.Question("column")
	if got := q.Answer(); got != "a" {
		t.Fatalf("column answer normalized: got %v want a", got)
	}
	fixed, _ := rng.Question("method")
	if err := fixed.Clear(); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("Clear fixed: got %v want ErrInvalidAnswer", err)
	}
	if !IsInfoRequired(rng.SetAnswer("side", "up")) {
		t.Fatalf("invalid combo answer is not an InfoRequiredError")
	}
}

func TestColumnAnswer_DroppedWhenColumnDisappears(t *testing.T) {
	f := newFixture(t)
	b, _ := f.data.AddColumn("b")
	b.AppendFloats(4, 5, 6)

	op := f.attach(t, "Scale", f.data)
	if err := op.SetAnswer("column", "b"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := op.SetAnswer("factor", 1); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	mustReady(t, op)

	if _, err := f.data.RemoveColumn("b"); err != nil {
		t.Fatalf("RemoveColumn: %v", err)
	}
	if !op.IsDirty() {
		t.Fatalf("removing a parent column left the operation clean")
	}
	q, _ := op.Question("column")
	if got := q.Answer(); got != "a" {
		t.Fatalf("answer after removal: got %v want a (the only numeric column left)", got)
	}
}

func TestCheckCache_NeedsInfo(t *testing.T) {
	f := newFixture(t)
	op := f.attach(t, "Scale", f.data)
	before := f.engine.Count()

	res := op.CheckCache()
	if res.Status != NeedsInfo || res.Node != op {
		t.Fatalf("status: got %v node %v", res.Status, res.Node)
	}
	if diff := cmp.Diff([]string{"factor"}, questionNames(res.Questions)); diff != "" {
		t.Fatalf("questions mismatch (-want +got):\n%s", diff)
	}
	var ie *InfoRequiredError
	if !errors.As(res.Error(), &ie) || ie.Op != op {
		t.Fatalf("Error(): got %v", res.Error())
	}
	if _, err := op.Columns(); !IsInfoRequired(err) {
		t.Fatalf("Columns: got %v want InfoRequiredError", err)
	}
	if got := f.engine.Count(); got != before {
		t.Fatalf("engine used while information was missing")
	}

	child := f.attach(t, "Count", op)
	if res := child.CheckCache(); res.Status != NeedsInfo || res.Node != op {
		t.Fatalf("child: got %v from %v", res.Status, res.Node)
	}
}

func TestCheckCache_Failures(t *testing.T) {
	f := newFixture(t)

	detached, err := f.env.NewOperation("Count")
	if err != nil {
		t.Fatalf("NewOperation: %v", err)
	}
	if res := detached.CheckCache(); res.Status != Failed || !errors.Is(res.Err, ErrNoParent) {
		t.Fatalf("detached: got %v %v", res.Status, res.Err)
	}

	op := f.attach(t, "Fail", f.data)
	child := f.attach(t, "Count", op)
	res := child.CheckCache()
	if res.Status != Failed || res.Node != op {
		t.Fatalf("child of failing op: got %v from %v", res.Status, res.Node)
	}
	if !compute.IsEngineError(res.Err) || !strings.Contains(res.Err.Error(), "boom") {
		t.Fatalf("error: got %v", res.Err)
	}
	if !op.IsDirty() || op.Record() != "" {
		t.Fatalf("failed op: dirty=%v record=%q", op.IsDirty(), op.Record())
	}
	if mode := f.env.Engine.SetRecordMode(compute.Disabled); mode != compute.Disabled {
		t.Fatalf("record mode leaked: %v", mode)
	}

	var kinds []trace.EventKind
	for _, ev := range f.rec.Snapshot() {
		if ev.Kind == trace.NodeFailed {
			kinds = append(kinds, ev.Kind)
		}
	}
	if len(kinds) != 2 {
		t.Fatalf("failure events: got %d want 2 (op and child)", len(kinds))
	}

	// The channel is still usable after the engine error.
	if v, err := f.env.Engine.ExecuteFloat("1+1"); err != nil || v != 2 {
		t.Fatalf("after failure: got %v, %v", v, err)
	}
}

func TestSetParent_CyclesAndSelf(t *testing.T) {
	f := newFixture(t)
	a := f.attach(t, "Count", f.data)
	b := f.attach(t, "Count", a)

	if err := a.SetParent(a, -1); err != nil {
		t.Fatalf("self: %v", err)
	}
	if a.Parent() != DataSource(f.data) {
		t.Fatalf("self parenting moved the operation")
	}
	if err := a.SetParent(b, -1); !errors.Is(err, ErrCycle) {
		t.Fatalf("cycle: got %v want ErrCycle", err)
	}

	c := f.attach(t, "Count", f.data)
	if err := c.SetParent(f.data, 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if kids := f.data.Children(); kids[0] != c || kids[1] != a {
		t.Fatalf("children order: got #%d #%d", kids[0].ID(), kids[1].ID())
	}
	if !f.problem.IsUnsaved() {
		t.Fatalf("problem not marked unsaved")
	}
}

func TestSetParent_LeavesSubProblems(t *testing.T) {
	f := newFixture(t)
	sub := NewSubProblem("a", "find the mean")
	if err := f.problem.AddSubProblem(sub); err != nil {
		t.Fatalf("AddSubProblem: %v", err)
	}
	sub.AddStep(f.data)

	op := f.attach(t, "Count", f.data)
	if subs := op.SubProblems(); len(subs) != 0 {
		t.Fatalf("subproblems inherited from parent: %v", subs)
	}
	child := f.attach(t, "Count", op)
	sub.AddStep(op)
	sub.AddStep(child)
	if diff := cmp.Diff([]int{f.data.ID(), op.ID(), child.ID()}, stepIDs(sub.Steps())); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{f.data.ID()}, stepIDs(sub.StartSteps())); diff != "" {
		t.Fatalf("start steps mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{child.ID()}, stepIDs(sub.EndSteps())); diff != "" {
		t.Fatalf("end steps mismatch (-want +got):\n%s", diff)
	}

	other, _ := f.problem.NewDataSet("other")
	if err := op.SetParent(other, -1); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	if diff := cmp.Diff([]int{f.data.ID(), child.ID()}, stepIDs(sub.Steps())); diff != "" {
		t.Fatalf("steps after move mismatch (-want +got):\n%s", diff)
	}
	if len(op.SubProblems()) != 0 {
		t.Fatalf("moved operation still in subproblem")
	}
	if chain := sub.SolutionChain(); len(chain) != 1 || chain[0] != child {
		t.Fatalf("solution chain: %v", chain)
	}
}

func TestSetParent_SubProblemsSurviveRoundTrip(t *testing.T) {
	f := newFixture(t)
	sub := NewSubProblem("a", "count it")
	if err := f.problem.AddSubProblem(sub); err != nil {
		t.Fatalf("AddSubProblem: %v", err)
	}
	sub.AddStep(f.data)
	op := f.attach(t, "Count", f.data)
	child := f.attach(t, "Count", f.data)
	if err := child.SetParent(op, -1); err != nil {
		t.Fatalf("SetParent: %v", err)
	}

	loaded, err := LoadProblem(f.env, f.problem.ToForm())
	if err != nil {
		t.Fatalf("LoadProblem: %v", err)
	}
	for _, want := range []*Operation{op, child} {
		got, ok := loaded.Operation(want.ID())
		if !ok {
			t.Fatalf("operation #%d not restored", want.ID())
		}
		if len(got.SubProblems()) != len(want.SubProblems()) {
			t.Fatalf("#%d subproblems: got %d want %d", want.ID(), len(got.SubProblems()), len(want.SubProblems()))
		}
	}
}

func stepIDs(steps []DataSource) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.ID()
	}
	return out
}

func TestEqualAndClone(t *testing.T) {
	f := newFixture(t)
	a := f.attach(t, "Scale", f.data)
	b := f.attach(t, "Scale", f.data)
	_ = a.SetAnswer("factor", 2)
	_ = b.SetAnswer("factor", 2)
	a.SetRemark("note")
	b.SetRemark("note")

	if !a.Equal(a) {
		t.Fatalf("operation not equal to itself")
	}
	if a.Equal(b) {
		t.Fatalf("siblings compared equal")
	}

	cp, err := a.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if cp.ID() == a.ID() || cp.Parent() != nil {
		t.Fatalf("clone id %d parent %v", cp.ID(), cp.Parent())
	}
	if !cp.Equal(a) || !a.Equal(cp) {
		t.Fatalf("clone not equal to its detached source")
	}
	cp2, _ := a.Clone()
	if cp.Equal(cp2) {
		t.Fatalf("two detached clones compared equal")
	}
	_ = cp.SetAnswer("factor", 5)
	if cp.Equal(a) {
		t.Fatalf("different answers compared equal")
	}
}

func TestCommands_ChainsAncestors(t *testing.T) {
	f := newFixture(t)
	op := f.attach(t, "Scale", f.data)
	_ = op.SetAnswer("factor", 2)

	own, err := op.Commands(false)
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	chain, err := op.Commands(true)
	if err != nil {
		t.Fatalf("Commands(chain): %v", err)
	}
	if !strings.HasSuffix(chain, own) || !strings.Contains(chain, "data.frame(a, label)") {
		t.Fatalf("chain:\n%s", chain)
	}
	if strings.Contains(own, "data.frame") {
		t.Fatalf("own commands include the dataset:\n%s", own)
	}
}

func TestPendingOperations_DepthThenID(t *testing.T) {
	f := newFixture(t)
	a := f.attach(t, "Count", f.data)
	b := f.attach(t, "Count", f.data)
	c := f.attach(t, "Count", a)
	d := f.attach(t, "Count", c)
	mustReady(t, b)

	got := stepIDsOps(f.problem.PendingOperations())
	if diff := cmp.Diff([]int{a.ID(), c.ID(), d.ID()}, got); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}

	results := f.problem.ComputePending()
	for _, r := range results {
		if r.Result.Status != Ready {
			t.Fatalf("#%d: %v", r.Op.ID(), r.Result.Status)
		}
	}
	if n := len(f.problem.PendingOperations()); n != 0 {
		t.Fatalf("pending after ComputePending: %d", n)
	}
}

func stepIDsOps(ops []*Operation) []int {
	out := make([]int, len(ops))
	for i, op := range ops {
		out[i] = op.ID()
	}
	return out
}

func TestProbe_RunsWithSampleAnswers(t *testing.T) {
	f := newFixture(t)
	op, res, err := Probe(f.env, "Scale", 4, 7)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Status != Ready {
		t.Fatalf("status: got %v (%v)", res.Status, res.Error())
	}
	n, _ := op.ColumnLength()
	if n != 4 {
		t.Fatalf("ColumnLength: got %d want 4", n)
	}
}

func TestRenderTree(t *testing.T) {
	f := newFixture(t)
	a := f.attach(t, "Count", f.data)
	f.attach(t, "Count", a)
	mustReady(t, a)

	out := RenderTree(f.problem)
	for _, want := range []string{"p", "[1] data", "clean", "dirty", "Count"} {
		if !strings.Contains(out, want) {
			t.Fatalf("tree missing %q:\n%s", want, out)
		}
	}
}
