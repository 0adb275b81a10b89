package compute_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"opgraph/internal/compute"
)

func TestParseFloats(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []float64
	}{
		{name: "single", out: "[1] 2\n", want: []float64{2}},
		{name: "vector", out: "[1] 1.5 -2 3e+02\n", want: []float64{1.5, -2, 300}},
		{name: "wrapped", out: " [1] 1 2 3\n [4] 4 5\n", want: []float64{1, 2, 3, 4, 5}},
		{name: "special", out: "[1] NA Inf -Inf\n", want: []float64{math.NaN(), math.Inf(1), math.Inf(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compute.ParseFloats(tt.out)
			if err != nil {
				t.Fatalf("ParseFloats: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateNaNs()); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFloat_RequiresExactlyOne(t *testing.T) {
	if _, err := compute.ParseFloat("[1] 1 2\n"); !compute.IsParseError(err) {
		t.Fatalf("two values: got %v want ParseError", err)
	}
	if _, err := compute.ParseFloat("NULL\n"); !compute.IsParseError(err) {
		t.Fatalf("no values: got %v want ParseError", err)
	}
	v, err := compute.ParseFloat("[1] 0.25\n")
	if err != nil || v != 0.25 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestParseStrings_UndoesEscapes(t *testing.T) {
	got, err := compute.ParseStrings(`[1] "plain" "with \"quotes\"" "back\\slash" "semi\073colon"` + "\n")
	if err != nil {
		t.Fatalf("ParseStrings: %v", err)
	}
	want := []string{"plain", `with "quotes"`, `back\slash`, "semi;colon"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := compute.ParseString(`[1] "a" "b"`); !compute.IsParseError(err) {
		t.Fatalf("two strings: got %v want ParseError", err)
	}
}

func TestParseBools(t *testing.T) {
	got, err := compute.ParseBools("[1]  TRUE FALSE  TRUE\n")
	if err != nil {
		t.Fatalf("ParseBools: %v", err)
	}
	if diff := cmp.Diff([]bool{true, false, true}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := compute.ParseBool("[1] 1\n"); !compute.IsParseError(err) {
		t.Fatalf("numeric output: got %v want ParseError", err)
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: 3.0, want: "3"},
		{in: math.Inf(-1), want: "-Inf"},
		{in: true, want: "TRUE"},
		{in: "a;b", want: `"a\073b"`},
		{in: []float64{1, 2.5}, want: "c(1, 2.5)"},
		{in: []string{`"x"`}, want: `c("\"x\"")`},
		{in: []bool{false}, want: "c(FALSE)"},
	}
	for _, tt := range tests {
		got, err := compute.Literal(tt.in)
		if err != nil {
			t.Fatalf("Literal(%#v): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Literal(%#v): got %s want %s", tt.in, got, tt.want)
		}
	}
}

func TestRecordMode_ParseRoundTrip(t *testing.T) {
	for _, m := range []compute.RecordMode{compute.Disabled, compute.CommandsOnly, compute.OutputOnly, compute.Full} {
		got, err := compute.ParseRecordMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseRecordMode(%q): got %v, %v", m.String(), got, err)
		}
	}
	if _, err := compute.ParseRecordMode("loud"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
