package script

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"opgraph/internal/compute"
	"opgraph/internal/data"
	"opgraph/internal/graph"
)

// Compute runs the <computation> sequence. Scaffolding statements are not
// recorded: recording is switched back to the mode the graph asked for only
// around the statements a definition explicitly shows (cmd, set, save and
// loop variables).
func (d *Definition) Compute(c *graph.Computation) error {
	r := &run{c: c, e: c.Engine}
	r.intended = r.e.SetRecordMode(compute.Disabled)
	defer r.e.SetRecordMode(r.intended)

	if err := r.sequence(d.computation); err != nil {
		return attribute(err, c.Op.Name())
	}
	return nil
}

type run struct {
	c        *graph.Computation
	e        graph.Engine
	intended compute.RecordMode
}

// recorded runs fn with recording switched on.
func (r *run) recorded(fn func() error) error {
	r.e.SetRecordMode(r.intended)
	defer r.e.SetRecordMode(compute.Disabled)
	return fn()
}

func (r *run) sequence(parent *xmlquery.Node) error {
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		var err error
		switch n.Data {
		case "cmd":
			err = r.cmd(n)
		case "set":
			err = r.set(n)
		case "save":
			err = r.save(n)
		case "loop":
			err = r.loop(n)
		case "if":
			err = r.cond(n)
		case "plot":
			err = r.plot(n)
		case "error":
			err = r.fail(n)
		case "load":
			err = r.load(n)
		default:
			err = &Error{Msg: fmt.Sprintf("unrecognized command element <%s>", n.Data)}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *run) cmd(n *xmlquery.Node) error {
	stmt := strings.TrimSpace(n.InnerText())
	if stmt == "" {
		return &Error{Msg: "empty <cmd>"}
	}
	return r.recorded(func() error {
		if _, err := r.e.Execute(stmt); err != nil {
			return errorf(err, "command given in definition appears to be invalid")
		}
		return nil
	})
}

func (r *run) set(n *xmlquery.Node) error {
	name, err := requireAttr(n, "name")
	if err != nil {
		return err
	}
	rvar, err := requireAttr(n, "rvar")
	if err != nil {
		return err
	}
	q, err := r.c.Question(name)
	if err != nil {
		return errorf(err, fmt.Sprintf("<set> uses query %q, which is not declared", name))
	}
	ans := q.Answer()
	if ans == nil {
		return &graph.InfoRequiredError{Op: r.c.Op, Questions: []*graph.Question{q}, Msg: "query " + name + " is unanswered"}
	}

	value := ans
	if q.Kind() == graph.ColumnQuestion {
		switch use := n.SelectAttr("use"); use {
		case "", "values":
			col, err := r.c.ParentColumn(ans.(string))
			if err != nil {
				return err
			}
			value = col.Values()
		case "name":
		default:
			return &Error{Msg: fmt.Sprintf("invalid setting %q for use attribute", use)}
		}
	}
	return r.recorded(func() error { return r.e.SetVariable(rvar, value) })
}

func (r *run) save(n *xmlquery.Node) error {
	stmt := strings.TrimSpace(n.InnerText())
	if stmt == "" {
		return &Error{Msg: "empty <save>"}
	}
	asType := n.SelectAttr("type")
	switch asType {
	case "":
		asType = "numeric"
	case "auto", "numeric", "string":
	default:
		return &Error{Msg: fmt.Sprintf("save type %q is unrecognized", asType)}
	}

	name := n.SelectAttr("column")
	if name == "" {
		dyn := n.SelectAttr("r_column")
		if dyn == "" {
			return &Error{Msg: "no column name supplied for save"}
		}
		var err error
		if name, err = r.e.ExecuteString(dyn); err != nil {
			return errorf(err, "computing the column name for save")
		}
	}
	col, err := r.c.Result(name)
	if err != nil {
		if col, err = r.c.NewResult(name); err != nil {
			return err
		}
	}

	var out string
	err = r.recorded(func() error {
		var err error
		out, err = r.e.Execute(stmt)
		return err
	})
	if err != nil {
		return err
	}

	if asType != "string" {
		nums, err := compute.ParseFloats(out)
		if err == nil {
			if _, err := col.SetMode(data.Numeric); err != nil {
				return errorf(err, fmt.Sprintf("saving numbers into %q", name))
			}
			col.AppendFloats(nums...)
			return nil
		}
		if asType == "numeric" {
			return err
		}
	}
	strs, err := compute.ParseStrings(out)
	if err != nil {
		return err
	}
	// Every mode converts to String.
	_, _ = col.SetMode(data.String)
	col.AppendTexts(strs...)
	return nil
}

func (r *run) loop(n *xmlquery.Node) error {
	indexVar := n.SelectAttr("index_var")
	keyVar := n.SelectAttr("key_var")
	valueVar := n.SelectAttr("value_var")

	bind := func(index int, key, value any) error {
		return r.recorded(func() error {
			if keyVar != "" {
				if err := r.e.SetVariable(keyVar, key); err != nil {
					return err
				}
			}
			if indexVar != "" {
				if err := r.e.SetVariable(indexVar, index); err != nil {
					return err
				}
			}
			if valueVar != "" {
				return r.e.SetVariable(valueVar, value)
			}
			return nil
		})
	}

	switch kind := n.SelectAttr("type"); kind {
	case "parent":
		cols, err := r.c.ParentColumns()
		if err != nil {
			return err
		}
		for i, col := range cols {
			if err := bind(i+1, col.Name(), col.Values()); err != nil {
				return err
			}
			if err := r.sequence(n); err != nil {
				return err
			}
		}
	case "", "numeric":
		src, err := requireAttr(n, "loop_var")
		if err != nil {
			return err
		}
		vals, err := r.e.ExecuteFloats(src)
		if err != nil {
			return err
		}
		for i, v := range vals {
			if err := bind(i+1, i+1, v); err != nil {
				return err
			}
			if err := r.sequence(n); err != nil {
				return err
			}
		}
	case "string":
		src, err := requireAttr(n, "loop_var")
		if err != nil {
			return err
		}
		vals, err := r.e.ExecuteStrings(src)
		if err != nil {
			return err
		}
		for i, v := range vals {
			if err := bind(i+1, i+1, v); err != nil {
				return err
			}
			if err := r.sequence(n); err != nil {
				return err
			}
		}
	default:
		return &Error{Msg: fmt.Sprintf("loop type %q not recognized", kind)}
	}
	return nil
}

func (r *run) cond(n *xmlquery.Node) error {
	var ok bool
	switch {
	case n.SelectAttr("expr") != "":
		b, err := r.e.ExecuteBool(n.SelectAttr("expr"))
		if err != nil {
			if compute.IsParseError(err) {
				return errorf(err, "if expression did not return a single logical value")
			}
			return err
		}
		ok = b
	case n.SelectAttr("vartype") != "":
		rvar, err := requireAttr(n, "rvar")
		if err != nil {
			return err
		}
		out, err := r.e.Execute("str(" + rvar + ")")
		if err != nil {
			return err
		}
		got := strings.TrimSpace(out)
		switch want := n.SelectAttr("vartype"); want {
		case "numeric":
			ok = strings.HasPrefix(got, "num")
		case "string":
			ok = strings.HasPrefix(got, "chr")
		default:
			return &Error{Msg: fmt.Sprintf("invalid vartype %q", want)}
		}
	case n.SelectAttr("colexists") != "":
		// The operation is mid-recompute, so this sees the results saved so far.
		_, err := r.c.Op.ColumnIndex(n.SelectAttr("colexists"))
		ok = err == nil
	default:
		return &Error{Msg: "if type not recognized"}
	}

	branch := "else"
	if ok {
		branch = "then"
	}
	if b := xmlquery.FindOne(n, branch); b != nil {
		return r.sequence(b)
	}
	return nil
}

func (r *run) plot(n *xmlquery.Node) error {
	if r.c.HasPlot() {
		return &Error{Msg: "an operation may only have one plot in it"}
	}
	path, err := r.e.StartGraphicOutput()
	if err != nil {
		return err
	}
	if err := r.c.SetPlot(path); err != nil {
		return err
	}
	if err := r.sequence(n); err != nil {
		_ = r.e.StopGraphicOutput()
		return err
	}
	return r.e.StopGraphicOutput()
}

func (r *run) fail(n *xmlquery.Node) error {
	msg := n.SelectAttr("msg")
	if msg == "" {
		msg = "no message supplied for error"
	}
	return &Error{Msg: msg}
}

func (r *run) load(n *xmlquery.Node) error {
	lib := n.SelectAttr("library")
	if lib == "" {
		dyn := n.SelectAttr("r_library")
		if dyn == "" {
			return &Error{Msg: "no library specified for load"}
		}
		var err error
		if lib, err = r.e.ExecuteString(dyn); err != nil {
			return err
		}
	}
	ok, err := r.e.LoadLibrary(lib)
	if err != nil {
		return errorf(err, fmt.Sprintf("loading library %q", lib))
	}
	if !ok {
		return &Error{Msg: fmt.Sprintf("unable to load and/or install library %q", lib)}
	}
	return nil
}

func requireAttr(n *xmlquery.Node, name string) (string, error) {
	v := n.SelectAttr(name)
	if v == "" {
		return "", &Error{Msg: fmt.Sprintf("<%s> requires a %s attribute", n.Data, name)}
	}
	return v, nil
}
