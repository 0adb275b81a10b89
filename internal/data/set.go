package data

import "strings"

// Set is an ordered collection of columns with names unique
// case-insensitively. It owns its columns exclusively.
type Set struct {
	cols     []*Column
	onChange func(*Column)
	taken    func(name string) bool
}

// NewSet returns an empty set.
func NewSet() *Set { return &Set{} }

// Watch registers fn to be called after any owned column changes, and after
// columns are added or removed (with a nil column).
func (s *Set) Watch(fn func(*Column)) { s.onChange = fn }

// Reserve registers a check for names that are taken outside the set, such as
// the columns an operation inherits from its parent.
func (s *Set) Reserve(taken func(name string) bool) { s.taken = taken }

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cols)
}

// Column returns the column at index i.
func (s *Set) Column(i int) (*Column, error) {
	if i < 0 || i >= len(s.cols) {
		return nil, notFoundf("index %d out of range [0,%d)", i, len(s.cols))
	}
	return s.cols[i], nil
}

// Columns returns the columns in order. The slice is a copy.
func (s *Set) Columns() []*Column { return append([]*Column(nil), s.cols...) }

// Index returns the position of the named column, or -1.
func (s *Set) Index(name string) int {
	for i, c := range s.cols {
		if strings.EqualFold(c.name, name) {
			return i
		}
	}
	return -1
}

// Lookup returns the named column.
func (s *Set) Lookup(name string) (*Column, error) {
	i := s.Index(name)
	if i < 0 {
		return nil, notFoundf("%q", name)
	}
	return s.cols[i], nil
}

// Names returns the column names in order.
func (s *Set) Names() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.name
	}
	return out
}

// Longest returns the length of the longest column.
func (s *Set) Longest() int {
	n := 0
	for _, c := range s.cols {
		if c.Len() > n {
			n = c.Len()
		}
	}
	return n
}

// Add appends a new empty numeric column.
func (s *Set) Add(name string) (*Column, error) {
	return s.Insert(len(s.cols), name)
}

// Insert places a new empty numeric column at index i.
func (s *Set) Insert(i int, name string) (*Column, error) {
	c := NewColumn(name)
	if err := s.InsertColumn(i, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddColumn appends c, which must not belong to another set.
func (s *Set) AddColumn(c *Column) error {
	return s.InsertColumn(len(s.cols), c)
}

// InsertColumn places c at index i. c must not belong to another set.
func (s *Set) InsertColumn(i int, c *Column) error {
	if c.set != nil && c.set != s {
		return duplicatef("column %q already belongs to another set", c.name)
	}
	if i < 0 || i > len(s.cols) {
		return notFoundf("index %d out of range [0,%d]", i, len(s.cols))
	}
	if strings.TrimSpace(c.name) == "" {
		return malformedf("column name is empty")
	}
	if !s.available(c.name, nil) {
		return duplicatef("column %q already exists", c.name)
	}
	s.cols = append(s.cols, nil)
	copy(s.cols[i+1:], s.cols[i:])
	s.cols[i] = c
	c.set = s
	s.columnChanged(nil)
	return nil
}

// Copy duplicates the named column under newName and appends it.
func (s *Set) Copy(name, newName string) (*Column, error) {
	src, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	c := src.Copy(newName)
	if err := s.AddColumn(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Remove detaches the named column and returns it.
func (s *Set) Remove(name string) (*Column, error) {
	i := s.Index(name)
	if i < 0 {
		return nil, notFoundf("%q", name)
	}
	return s.RemoveAt(i)
}

// RemoveAt detaches the column at index i and returns it.
func (s *Set) RemoveAt(i int) (*Column, error) {
	c, err := s.Column(i)
	if err != nil {
		return nil, err
	}
	s.cols = append(s.cols[:i], s.cols[i+1:]...)
	c.set = nil
	s.columnChanged(nil)
	return c, nil
}

// Clear detaches every column.
func (s *Set) Clear() {
	if len(s.cols) == 0 {
		return
	}
	for _, c := range s.cols {
		c.set = nil
	}
	s.cols = nil
	s.columnChanged(nil)
}

// Clone returns a detached deep copy without hooks.
func (s *Set) Clone() *Set {
	out := NewSet()
	for _, c := range s.cols {
		cp := c.Copy(c.name)
		cp.set = out
		out.cols = append(out.cols, cp)
	}
	return out
}

// Equal reports whether both sets hold equal columns in the same order.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	if s.Len() == 0 {
		return true
	}
	for i := range s.cols {
		if !s.cols[i].Equal(o.cols[i]) {
			return false
		}
	}
	return true
}

func (s *Set) available(name string, except *Column) bool {
	for _, c := range s.cols {
		if c != except && strings.EqualFold(c.name, name) {
			return false
		}
	}
	if s.taken != nil && s.taken(name) {
		return false
	}
	return true
}

func (s *Set) columnChanged(c *Column) {
	if s.onChange != nil {
		s.onChange(c)
	}
}
