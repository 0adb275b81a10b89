package graph

import (
	"fmt"
	"io"
	"strings"

	"opgraph/internal/compute"
	"opgraph/internal/data"
)

// DataSet is a root node that owns its columns directly.
type DataSet struct {
	family

	env     *Env
	name    string
	columns *data.Set
	problem *Problem
	loading bool
}

func newDataSet(env *Env, name string, id int) *DataSet {
	ds := &DataSet{
		family:  family{id: id},
		env:     env,
		name:    name,
		columns: data.NewSet(),
	}
	ds.columns.Watch(func(*data.Column) { ds.columnsChanged() })
	return ds
}

func (ds *DataSet) Name() string { return ds.name }

// SetName renames the dataset. Names are unique within a problem.
func (ds *DataSet) SetName(name string) error {
	if name == ds.name {
		return nil
	}
	if ds.problem != nil {
		if other, ok := ds.problem.DataSet(name); ok && other != ds {
			return structuralf(ErrDuplicateName, "dataset %q", name)
		}
	}
	ds.changeBeginning("rename dataset " + ds.name)
	ds.name = name
	ds.markUnsaved()
	return nil
}

func (ds *DataSet) Parent() DataSource { return nil }
func (ds *DataSet) Root() *DataSet     { return ds }
func (ds *DataSet) Problem() *Problem  { return ds.problem }

func (ds *DataSet) SetHidden(hidden bool) {
	if hidden == ds.hidden {
		return
	}
	ds.hidden = hidden
	ds.markUnsaved()
}

// Data exposes the owned columns for editing. Edits invalidate every child.
func (ds *DataSet) Data() *data.Set { return ds.columns }

func (ds *DataSet) AddColumn(name string) (*data.Column, error) {
	return ds.columns.Add(name)
}

func (ds *DataSet) InsertColumn(i int, name string) (*data.Column, error) {
	return ds.columns.Insert(i, name)
}

// AttachColumn appends an already built column.
func (ds *DataSet) AttachColumn(c *data.Column) error {
	return ds.columns.AddColumn(c)
}

func (ds *DataSet) CopyColumn(name, newName string) (*data.Column, error) {
	return ds.columns.Copy(name, newName)
}

func (ds *DataSet) RemoveColumn(name string) (*data.Column, error) {
	return ds.columns.Remove(name)
}

func (ds *DataSet) Column(i int) (*data.Column, error) { return ds.columns.Column(i) }

func (ds *DataSet) ColumnByName(name string) (*data.Column, error) {
	return ds.columns.Lookup(name)
}

func (ds *DataSet) ColumnIndex(name string) (int, error) {
	if i := ds.columns.Index(name); i >= 0 {
		return i, nil
	}
	return -1, missingColumn("%q", name)
}

func (ds *DataSet) Columns() ([]*data.Column, error) { return ds.columns.Columns(), nil }
func (ds *DataSet) ColumnCount() (int, error)        { return ds.columns.Len(), nil }
func (ds *DataSet) ColumnNames() ([]string, error)   { return ds.columns.Names(), nil }
func (ds *DataSet) ColumnLength() (int, error)       { return ds.columns.Longest(), nil }

func (ds *DataSet) AddChild(op *Operation) error { return op.SetParent(ds, -1) }

func (ds *DataSet) InsertChild(i int, op *Operation) error { return op.SetParent(ds, i) }

func (ds *DataSet) RemoveChild(op *Operation) error {
	if op.parent == nil || op.parent.base() != &ds.family {
		return structuralf(ErrNotFound, "%s (#%d) is not a child of %s", op.typeName, op.id, ds.name)
	}
	op.Detach()
	return nil
}

// MarkDirty invalidates every operation below the dataset.
func (ds *DataSet) MarkDirty() {
	for _, c := range ds.children {
		c.markDirty("DataChanged")
	}
}

// ImportCSV replaces the columns with the parsed contents of r.
func (ds *DataSet) ImportCSV(r io.Reader) error {
	set, err := data.ReadCSV(r)
	if err != nil {
		return err
	}
	ds.changeBeginning("import into " + ds.name)
	ds.replaceColumns(set)
	return nil
}

// ExportCSV writes the columns as CSV.
func (ds *DataSet) ExportCSV(w io.Writer) error {
	return data.WriteCSV(w, ds.columns)
}

func (ds *DataSet) replaceColumns(set *data.Set) {
	ds.columns.Clear()
	for _, c := range set.Columns() {
		cp := c.Copy(c.Name())
		// Names were unique in set, so this cannot fail.
		_ = ds.columns.AddColumn(cp)
	}
}

// ToFrame assigns every column to an engine variable and builds a data frame
// from them. It returns the name of the variable holding the frame.
func (ds *DataSet) ToFrame(e Engine) (string, error) {
	vars := make([]string, 0, ds.columns.Len())
	for _, c := range ds.columns.Columns() {
		lit, err := compute.Literal(c.Name())
		if err != nil {
			return "", err
		}
		v, err := e.ExecuteString("make.names(" + lit + ")")
		if err != nil {
			return "", fmt.Errorf("naming column %q: %w", c.Name(), err)
		}
		if err := e.SetVariable(v, c.Values()); err != nil {
			return "", fmt.Errorf("column %q: %w", c.Name(), err)
		}
		vars = append(vars, v)
	}
	return e.ExecuteSave("data.frame(" + strings.Join(vars, ", ") + ")")
}

// Commands returns the statements that rebuild the dataset in the engine.
// Datasets have no ancestors, so chain has no effect.
func (ds *DataSet) Commands(bool) (string, error) {
	e := ds.env.Engine
	if e == nil {
		return "", structuralf(ErrNoEngine, "dataset %q", ds.name)
	}
	old := e.SetRecordMode(compute.CommandsOnly)
	_, err := ds.ToFrame(e)
	e.SetRecordMode(old)
	out := e.FetchInteraction()
	if err != nil {
		return "", err
	}
	return out, nil
}

// FromFrame builds a dataset named name from the engine data frame held in
// variable. Columns that do not parse as numbers are read as strings.
func FromFrame(env *Env, name, variable string) (*DataSet, error) {
	e := env.Engine
	if e == nil {
		return nil, structuralf(ErrNoEngine, "reading %s", variable)
	}
	names, err := e.ExecuteStrings("colnames(" + variable + ")")
	if err != nil {
		return nil, fmt.Errorf("reading column names of %s: %w", variable, err)
	}
	ds := env.NewDataSet(name)
	ds.loading = true
	defer func() { ds.loading = false }()
	for _, col := range names {
		ref := variable + "$" + col
		var c *data.Column
		if nums, err := e.ExecuteFloats(ref); err == nil {
			c = data.NewNumeric(col, nums...)
		} else if compute.IsParseError(err) {
			strs, err := e.ExecuteStrings(ref)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", ref, err)
			}
			c = data.NewStrings(col, strs...)
		} else {
			return nil, fmt.Errorf("reading %s: %w", ref, err)
		}
		if err := ds.columns.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// ImportFromEngine loads library, when given, and reads the data frame named
// frame into a new dataset of the same name.
func ImportFromEngine(env *Env, library, frame string) (*DataSet, error) {
	if library != "" {
		if env.Engine == nil {
			return nil, structuralf(ErrNoEngine, "loading %s", library)
		}
		ok, err := env.Engine.LoadLibrary(library)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("unable to load library %q", library)
		}
	}
	return FromFrame(env, frame, frame)
}

func (ds *DataSet) columnsChanged() {
	if ds.isLoading() {
		return
	}
	ds.markUnsaved()
	ds.MarkDirty()
}

func (ds *DataSet) peekVisible(name string) bool { return ds.columns.Index(name) >= 0 }

func (ds *DataSet) isLoading() bool {
	return ds.loading || (ds.problem != nil && ds.problem.loading)
}

func (ds *DataSet) markUnsaved() {
	if ds.isLoading() || ds.problem == nil {
		return
	}
	ds.problem.MarkUnsaved()
}

func (ds *DataSet) changeBeginning(msg string) {
	if ds.isLoading() || ds.problem == nil {
		return
	}
	ds.problem.ChangeBeginning(msg)
}
