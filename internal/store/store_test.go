package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hashicorp/go-hclog"

	"opgraph/internal/compute"
	"opgraph/internal/compute/computetest"
	"opgraph/internal/graph"
	"opgraph/internal/ops"
)

func sampleForm() graph.ProblemForm {
	return graph.ProblemForm{
		Name:      "heights",
		Statement: "Are the plants taller?",
		DataSets: []graph.DataSetForm{{
			ID:   1,
			Name: "plants",
			Columns: []graph.ColumnForm{
				{Name: "h", Mode: "numeric", Values: []string{"1.5", "2", "3"}},
				{Name: "kind", Mode: "string", Values: []string{"a", "b", "a"}},
			},
			Operations: []graph.NodeForm{{
				Type:    "Mean",
				ID:      2,
				Answers: map[string]string{"column": "h"},
				Clean:   true,
				Record:  "opgraphInput = c(1.5, 2, 3)\nmean(opgraphInput)\n",
				Results: []graph.ColumnForm{{Name: "mean(h)", Mode: "numeric", Values: []string{"2.1666667"}}},
			}},
		}},
		SubProblems: []graph.SubProblemForm{{ID: "s1", Statement: "mean", Steps: []int{2}}},
	}
}

// testStore checks the behaviour every Store shares.
func testStore(t *testing.T, s Store) {
	t.Helper()
	want := sampleForm()
	if err := s.Save("heights", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load("heights")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}

	// Loads are independent copies.
	got.DataSets[0].Name = "changed"
	again, _ := s.Load("heights")
	if again.DataSets[0].Name != "plants" {
		t.Fatalf("load shares state with an earlier load")
	}

	want.Statement = "replaced"
	if err := s.Save("heights", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save("other", sampleForm()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	names, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"heights", "other"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if got, _ := s.Load("heights"); got.Statement != "replaced" {
		t.Fatalf("overwrite: got statement %q", got.Statement)
	}

	if err := s.Delete("other"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load("other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after delete: got %v want ErrNotFound", err)
	}
	if err := s.Delete("other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete twice: got %v want ErrNotFound", err)
	}
	if err := s.Save("../escape", want); err == nil {
		t.Fatalf("expected an invalid name error")
	}
}

func TestFileStore(t *testing.T) {
	s, err := Open("file", t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestBoltStore(t *testing.T) {
	s, err := Open("bolt", filepath.Join(t.TempDir(), "opgraph.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestMemoryStore(t *testing.T) {
	s, err := Open("memory", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testStore(t, s)
}

func TestOpen_UnknownKind(t *testing.T) {
	if _, err := Open("cloud", ""); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	for i := 0; i < 3; i++ {
		if err := s.Save("p", sampleForm()); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "p.yaml" {
		t.Fatalf("directory holds %v", entries)
	}
}

func TestFileStore_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: x\nsurprise: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := s.Load("bad"); err == nil {
		t.Fatalf("expected a decode error")
	}
}

func TestTranscripts_AppendInOrder(t *testing.T) {
	bs, err := OpenBolt(filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer bs.Close()
	for _, s := range []interface {
		Store
		TranscriptStore
	}{bs, NewMemoryStore()} {
		if err := s.Save("p", sampleForm()); err != nil {
			t.Fatalf("Save: %v", err)
		}
		for _, text := range []string{"first\n", "second\n"} {
			if _, err := s.AppendTranscript("p", Transcript{Node: 2, Op: "Mean of h", Text: text}); err != nil {
				t.Fatalf("AppendTranscript: %v", err)
			}
		}
		got, err := s.Transcripts("p")
		if err != nil {
			t.Fatalf("Transcripts: %v", err)
		}
		want := []Transcript{
			{Seq: 1, Node: 2, Op: "Mean of h", Text: "first\n"},
			{Seq: 2, Node: 2, Op: "Mean of h", Text: "second\n"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("transcripts mismatch (-want +got):\n%s", diff)
		}
		if err := s.Delete("p"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if got, _ := s.Transcripts("p"); len(got) != 0 {
			t.Fatalf("transcripts survived delete: %v", got)
		}
	}
}

func TestSaveAndLoadProblem_RecordsTranscripts(t *testing.T) {
	eng := computetest.New()
	reg := graph.NewRegistry()
	ops.Register(reg)
	env := graph.NewEnv(eng.Channel(t, compute.Options{}), reg, hclog.NewNullLogger())

	p := graph.NewProblem(env, "heights")
	ds, _ := p.NewDataSet("plants")
	h, _ := ds.AddColumn("h")
	h.AppendFloats(2, 4)
	mean, _ := env.NewOperation("Mean")
	if err := mean.SetParent(ds, -1); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	if res := mean.CheckCache(); res.Status != graph.Ready {
		t.Fatalf("CheckCache: %v", res.Error())
	}

	s := NewMemoryStore()
	if err := SaveProblem(s, p); err != nil {
		t.Fatalf("SaveProblem: %v", err)
	}
	if p.IsUnsaved() {
		t.Fatalf("problem still unsaved")
	}
	if err := RecordTranscripts(s, p); err != nil {
		t.Fatalf("RecordTranscripts: %v", err)
	}
	ts, _ := s.Transcripts("heights")
	if len(ts) != 1 || ts[0].Node != mean.ID() || ts[0].Text != mean.Record() {
		t.Fatalf("transcripts: %+v", ts)
	}

	before := eng.Count()
	loaded, err := LoadProblem(s, env, "heights")
	if err != nil {
		t.Fatalf("LoadProblem: %v", err)
	}
	op, ok := loaded.Operation(mean.ID())
	if !ok || op.IsDirty() {
		t.Fatalf("restored operation missing or dirty")
	}
	col, err := op.ColumnByName("mean(h)")
	if err != nil || col.Float(0) != 3 {
		t.Fatalf("restored result: %v %v", col, err)
	}
	if eng.Count() != before {
		t.Fatalf("loading recomputed")
	}
}
