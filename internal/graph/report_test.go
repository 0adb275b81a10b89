package graph

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReport_DescribesEachOutcome(t *testing.T) {
	f := newFixture(t)
	scale := f.attach(t, "Scale", f.data)
	count := f.attach(t, "Count", scale)
	fail := f.attach(t, "Fail", f.data)
	ok := f.attach(t, "Count", f.data)

	reports := map[int]NodeReport{}
	for _, r := range Report(f.problem.ComputePending()) {
		reports[r.ID] = r
	}
	if len(reports) != 4 {
		t.Fatalf("reports: %v", reports)
	}

	want := NodeReport{
		ID:     scale.ID(),
		Name:   "Scale a",
		Status: "needs-info",
		Questions: []QuestionReport{{
			Name:   "factor",
			Prompt: "factor",
			Kind:   "numeric",
		}},
	}
	if diff := cmp.Diff(want, reports[scale.ID()]); diff != "" {
		t.Fatalf("scale report mismatch (-want +got):\n%s", diff)
	}
	if r := reports[count.ID()]; r.Status != "needs-info" || r.Cause != scale.ID() {
		t.Fatalf("count report: %+v", r)
	}
	if r := reports[fail.ID()]; r.Status != "failed" || !strings.Contains(r.Error, "boom") {
		t.Fatalf("fail report: %+v", r)
	}
	if r := reports[ok.ID()]; r.Status != "ready" || r.Error != "" || r.Cause != 0 {
		t.Fatalf("ready report: %+v", r)
	}
}

func TestApplyAnswers_ReportsEveryFailure(t *testing.T) {
	f := newFixture(t)
	scale := f.attach(t, "Scale", f.data)
	err := ApplyAnswers(scale, map[string]string{"factor": "3", "column": "label", "ghost": "1"})
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, frag := range []string{"column", "ghost"} {
		if !strings.Contains(err.Error(), frag) {
			t.Fatalf("error %q lacks %q", err, frag)
		}
	}
	if q, _ := scale.Question("factor"); q.Answer() != 3.0 {
		t.Fatalf("valid answer not applied: %v", q.Answer())
	}
}
