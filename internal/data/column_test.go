package data

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestColumn_SetModeRecastsValues(t *testing.T) {
	c := NewNumeric("x", 1, 2.5)
	old, err := c.SetMode(String)
	if err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if old != Numeric {
		t.Fatalf("old mode: got %v want %v", old, Numeric)
	}
	if diff := cmp.Diff([]string{"1", "2.5"}, c.Texts()); diff != "" {
		t.Fatalf("texts mismatch (-want +got):\n%s", diff)
	}
	if _, ok := c.Value(0).(string); !ok {
		t.Fatalf("value not recast: %T", c.Value(0))
	}

	if _, err := c.SetMode(Numeric); err != nil {
		t.Fatalf("SetMode back: %v", err)
	}
	if diff := cmp.Diff([]float64{1, 2.5}, c.Floats()); diff != "" {
		t.Fatalf("floats mismatch (-want +got):\n%s", diff)
	}
}

func TestColumn_SetModeRejectsUnrepresentable(t *testing.T) {
	c := NewStrings("s", "1", "two")
	if _, err := c.SetMode(Numeric); !errors.Is(err, ErrMode) {
		t.Fatalf("got %v want ErrMode", err)
	}
	if c.Mode() != String {
		t.Fatalf("mode changed on failure: %v", c.Mode())
	}
}

func TestColumn_AppendSwitchesToStringWhenNeeded(t *testing.T) {
	c := NewNumeric("x", 1)
	c.Append("abc")
	if c.Mode() != String {
		t.Fatalf("mode: got %v want %v", c.Mode(), String)
	}
	if diff := cmp.Diff([]string{"1", "abc"}, c.Texts()); diff != "" {
		t.Fatalf("texts mismatch (-want +got):\n%s", diff)
	}
}

func TestColumn_AutodetectMode(t *testing.T) {
	c := NewStrings("x", "1", " 2 ", "NA")
	if got := c.AutodetectMode(); got != Numeric {
		t.Fatalf("mode: got %v want %v", got, Numeric)
	}
	if v := c.Floats(); v[1] != 2 || !math.IsNaN(v[2]) {
		t.Fatalf("values: got %v", v)
	}
	if got := NewStrings("y", "a", "1").AutodetectMode(); got != String {
		t.Fatalf("mixed: got %v want %v", got, String)
	}
	if got := NewStrings("e").AutodetectMode(); got != Numeric {
		t.Fatalf("empty: got %v want %v", got, Numeric)
	}
}

func TestColumn_EditingNotifiesSet(t *testing.T) {
	s := NewSet()
	var changes int
	s.Watch(func(*Column) { changes++ })
	c, err := s.Add("x")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	changes = 0

	c.AppendFloats(1, 2, 3)
	c.Set(0, 1.0)
	c.Set(1, 5.0)
	c.Insert(0, 0.5)
	c.Remove(3)
	if changes != 4 {
		t.Fatalf("changes: got %d want 4", changes)
	}
	if diff := cmp.Diff([]float64{0.5, 1, 5}, c.Floats()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestColumn_EqualTreatsNaNAsEqual(t *testing.T) {
	a := NewNumeric("x", 1, math.NaN())
	b := NewNumeric("x", 1, math.NaN())
	if !a.Equal(b) {
		t.Fatalf("expected equal")
	}
	if a.Equal(NewNumeric("y", 1, math.NaN())) {
		t.Fatalf("different names compared equal")
	}
	if a.Equal(NewStrings("x", "1", "NaN")) {
		t.Fatalf("different modes compared equal")
	}
}

func TestSet_NamesUniqueCaseInsensitively(t *testing.T) {
	s := NewSet()
	if _, err := s.Add("Height"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add("height"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("got %v want ErrDuplicateName", err)
	}
	w, err := s.Add("Weight")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.SetName("HEIGHT"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("rename: got %v want ErrDuplicateName", err)
	}
	if c, err := s.Lookup("weight"); err != nil || c != w {
		t.Fatalf("Lookup: got %v, %v", c, err)
	}
}

func TestSet_ReserveBlocksOutsideNames(t *testing.T) {
	s := NewSet()
	s.Reserve(func(name string) bool { return name == "parent" })
	if _, err := s.Add("parent"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("got %v want ErrDuplicateName", err)
	}
}

func TestSet_CopyRemoveAndLongest(t *testing.T) {
	s := NewSet()
	a, _ := s.Add("a")
	a.AppendFloats(1, 2, 3)
	b, _ := s.Add("b")
	b.AppendFloats(1)

	cp, err := s.Copy("a", "a2")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	cp.AppendFloats(4)
	if a.Len() != 3 {
		t.Fatalf("copy shares storage with source")
	}
	if got := s.Longest(); got != 4 {
		t.Fatalf("Longest: got %d want 4", got)
	}
	if _, err := s.Remove("b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "a2"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if _, err := s.Remove("b"); !errors.Is(err, ErrNoColumn) {
		t.Fatalf("second Remove: got %v want ErrNoColumn", err)
	}
	// A removed column can join another set.
	other := NewSet()
	if err := other.AddColumn(b); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
}

func TestSet_CloneIsDetached(t *testing.T) {
	s := NewSet()
	a, _ := s.Add("a")
	a.AppendFloats(1, 2)
	cl := s.Clone()
	if !s.Equal(cl) {
		t.Fatalf("clone not equal")
	}
	a.AppendFloats(3)
	if s.Equal(cl) {
		t.Fatalf("clone shares storage")
	}
}
