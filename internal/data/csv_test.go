package data

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadCSV_HeaderAndQuotes(t *testing.T) {
	in := "\"name\"; 'score' ,group\n" +
		"ann, 1.5, a\n" +
		"bob;2;\n" +
		"\"cy\" , 3 , b\n"
	s, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if diff := cmp.Diff([]string{"name", "score", "group"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	name, _ := s.Lookup("name")
	if name.Mode() != String {
		t.Fatalf("name mode: got %v want %v", name.Mode(), String)
	}
	if diff := cmp.Diff([]string{"ann", "bob", "cy"}, name.Texts()); diff != "" {
		t.Fatalf("name values mismatch (-want +got):\n%s", diff)
	}

	score, _ := s.Lookup("score")
	if score.Mode() != Numeric {
		t.Fatalf("score mode: got %v want %v", score.Mode(), Numeric)
	}
	if diff := cmp.Diff([]float64{1.5, 2, 3}, score.Floats()); diff != "" {
		t.Fatalf("score values mismatch (-want +got):\n%s", diff)
	}

	// The empty cell on the second row is skipped.
	group, _ := s.Lookup("group")
	if diff := cmp.Diff([]string{"a", "b"}, group.Texts()); diff != "" {
		t.Fatalf("group values mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_NumericFirstLineMeansNoHeader(t *testing.T) {
	s, err := ReadCSV(strings.NewReader("1,2\n3,4\n"))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if diff := cmp.Diff([]string{"Column 1", "Column 2"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	c, _ := s.Column(1)
	if diff := cmp.Diff([]float64{2, 4}, c.Floats()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_Malformed(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("\n\n")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("empty: got %v want ErrMalformed", err)
	}
	if _, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("wide row: got %v want ErrMalformed", err)
	}
	if _, err := ReadCSV(strings.NewReader("a,A\n1,2\n")); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("duplicate header: got %v want ErrDuplicateName", err)
	}
}

func TestWriteCSV_ReadBack(t *testing.T) {
	s := NewSet()
	x, _ := s.Add("x")
	x.AppendFloats(1, 2, 3)
	y, _ := s.Add("y")
	y.AppendTexts("p", "q")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, s); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if got, want := buf.String(), "x,y\n1,p\n2,q\n3,\n"; got != want {
		t.Fatalf("csv: got %q want %q", got, want)
	}

	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !s.Equal(back) {
		t.Fatalf("round trip mismatch: got %v / %v", back.Names(), back.Columns())
	}
}

func TestShorten(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdefgh", 5, "ab…gh"},
		{"abcdefgh", 6, "abc…gh"},
		{"abcdefgh", 4, "ab…h"},
		{"abcdefgh", 3, "abh"},
		{"abcdefgh", 2, "ah"},
		{"abcdefgh", 1, "a"},
		{"Standard Deviation", 5, "St…on"},
	}
	for _, tt := range tests {
		if got := Shorten(tt.in, tt.max); got != tt.want {
			t.Fatalf("Shorten(%q, %d): got %q want %q", tt.in, tt.max, got, tt.want)
		}
		if n := len([]rune(Shorten(tt.in, tt.max))); n > tt.max {
			t.Fatalf("Shorten(%q, %d): %d runes", tt.in, tt.max, n)
		}
	}
}
