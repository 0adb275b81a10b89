package data

import (
	"math"
	"strings"
)

// Column is one named, typed, ordered sequence of values.
//
// Numeric columns hold float64 values and String columns hold string values.
// A column belongs to at most one Set, which is told about every change.
type Column struct {
	name   string
	mode   Mode
	values []any
	set    *Set
}

// NewColumn returns an empty numeric column that belongs to no set.
func NewColumn(name string) *Column {
	return &Column{name: name, mode: Numeric}
}

// NewNumeric returns a numeric column holding vals.
func NewNumeric(name string, vals ...float64) *Column {
	c := NewColumn(name)
	for _, v := range vals {
		c.values = append(c.values, v)
	}
	return c
}

// NewStrings returns a string column holding vals.
func NewStrings(name string, vals ...string) *Column {
	c := &Column{name: name, mode: String}
	for _, v := range vals {
		c.values = append(c.values, v)
	}
	return c
}

func (c *Column) Name() string { return c.name }

// SetName renames the column. The name must stay unique within its set.
func (c *Column) SetName(name string) error {
	if name == c.name {
		return nil
	}
	if c.set != nil && !c.set.available(name, c) {
		return duplicatef("column %q already exists", name)
	}
	c.name = name
	c.changed()
	return nil
}

func (c *Column) Mode() Mode { return c.mode }

func (c *Column) Len() int { return len(c.values) }

// SetMode recasts every value to mode and returns the previous mode. If any
// value cannot be represented the column is left untouched.
func (c *Column) SetMode(mode Mode) (Mode, error) {
	old := c.mode
	if mode == old {
		return old, nil
	}
	recast := make([]any, len(c.values))
	for i, v := range c.values {
		nv, err := cast(v, mode)
		if err != nil {
			return old, err
		}
		recast[i] = nv
	}
	c.mode = mode
	c.values = recast
	c.changed()
	return old, nil
}

// AutodetectMode switches to Numeric when every value parses as a number and
// to String otherwise. Empty columns become Numeric.
func (c *Column) AutodetectMode() Mode {
	target := Numeric
	for _, v := range c.values {
		if _, err := cast(v, Numeric); err != nil {
			target = String
			break
		}
	}
	// Converting to String never fails, and Numeric was just checked.
	_, _ = c.SetMode(target)
	return c.mode
}

// Value returns element i in the column's representation.
func (c *Column) Value(i int) any { return c.values[i] }

// Float returns element i as a number. String values that do not parse
// yield NaN.
func (c *Column) Float(i int) float64 {
	switch v := c.values[i].(type) {
	case float64:
		return v
	case string:
		f, err := ParseNumber(v)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

// Text returns element i as text.
func (c *Column) Text(i int) string {
	s, _ := cast(c.values[i], String)
	return s.(string)
}

// Floats returns a copy of every value as a number.
func (c *Column) Floats() []float64 {
	out := make([]float64, len(c.values))
	for i := range c.values {
		out[i] = c.Float(i)
	}
	return out
}

// Texts returns a copy of every value as text.
func (c *Column) Texts() []string {
	out := make([]string, len(c.values))
	for i := range c.values {
		out[i] = c.Text(i)
	}
	return out
}

// Values returns the values in the engine-friendly form: []float64 for
// numeric columns and []string for string columns.
func (c *Column) Values() any {
	if c.mode == Numeric {
		return c.Floats()
	}
	return c.Texts()
}

// Append adds values to the end of the column. A value that does not fit a
// numeric column switches the column to String.
func (c *Column) Append(vals ...any) {
	for _, v := range vals {
		c.values = append(c.values, c.fit(v))
	}
	c.changed()
}

// AppendFloats adds numbers to the end of the column.
func (c *Column) AppendFloats(vals ...float64) {
	for _, v := range vals {
		c.values = append(c.values, c.fit(v))
	}
	c.changed()
}

// AppendTexts adds text values to the end of the column.
func (c *Column) AppendTexts(vals ...string) {
	for _, v := range vals {
		c.values = append(c.values, c.fit(v))
	}
	c.changed()
}

// Set replaces element i and returns the old value.
func (c *Column) Set(i int, v any) any {
	old := c.values[i]
	nv := c.fit(v)
	c.values[i] = nv
	if old != nv {
		c.changed()
	}
	return old
}

// Insert places v before element i, shifting later values up.
func (c *Column) Insert(i int, v any) {
	nv := c.fit(v)
	c.values = append(c.values, nil)
	copy(c.values[i+1:], c.values[i:])
	c.values[i] = nv
	c.changed()
}

// Remove deletes element i and returns it.
func (c *Column) Remove(i int) any {
	old := c.values[i]
	c.values = append(c.values[:i], c.values[i+1:]...)
	c.changed()
	return old
}

// Clear removes every value; the mode is kept.
func (c *Column) Clear() {
	if len(c.values) == 0 {
		return
	}
	c.values = nil
	c.changed()
}

// fit casts v to the current mode, switching to String when v is not numeric.
func (c *Column) fit(v any) any {
	nv, err := cast(v, c.mode)
	if err == nil {
		return nv
	}
	// String conversion cannot fail.
	_, _ = c.setModeQuiet(String)
	nv, _ = cast(v, String)
	return nv
}

func (c *Column) setModeQuiet(mode Mode) (Mode, error) {
	set := c.set
	c.set = nil
	defer func() { c.set = set }()
	return c.SetMode(mode)
}

// Equal reports whether both columns share name, mode and values. NaN values
// compare equal to each other.
func (c *Column) Equal(o *Column) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil {
		return false
	}
	if c.name != o.name || c.mode != o.mode || len(c.values) != len(o.values) {
		return false
	}
	for i := range c.values {
		a, b := c.values[i], o.values[i]
		if af, ok := a.(float64); ok {
			bf, ok := b.(float64)
			if !ok {
				return false
			}
			if af != bf && !(math.IsNaN(af) && math.IsNaN(bf)) {
				return false
			}
			continue
		}
		if a != b {
			return false
		}
	}
	return true
}

// Copy returns a detached copy of the column under name.
func (c *Column) Copy(name string) *Column {
	return &Column{
		name:   name,
		mode:   c.mode,
		values: append([]any(nil), c.values...),
	}
}

// String renders the values as a comma separated list, quoting text.
func (c *Column) String() string {
	parts := make([]string, len(c.values))
	for i := range c.values {
		if c.mode == String {
			parts[i] = `"` + c.Text(i) + `"`
		} else {
			parts[i] = c.Text(i)
		}
	}
	return strings.Join(parts, ", ")
}

func (c *Column) changed() {
	if c.set != nil {
		c.set.columnChanged(c)
	}
}
