package graph

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/xlab/treeprint"

	"opgraph/internal/data"
)

// RenderTree draws the datasets and operations of p. Operations carry their
// cache state as metadata. Nothing is recomputed.
func RenderTree(p *Problem) string {
	tree := treeprint.New()
	tree.SetValue(p.name)
	for _, ds := range p.datasets {
		branch := tree.AddMetaBranch(fmt.Sprintf("%d cols", ds.columns.Len()), fmt.Sprintf("[%d] %s", ds.id, ds.name))
		addOperations(branch, ds.children)
	}
	for _, sub := range p.subProblems {
		ids := make([]string, len(sub.steps))
		for i, st := range sub.steps {
			ids[i] = fmt.Sprint(st.ID())
		}
		tree.AddMetaNode("subproblem "+sub.id, "steps "+strings.Join(ids, " -> "))
	}
	return tree.String()
}

func addOperations(branch treeprint.Tree, ops []*Operation) {
	for _, op := range ops {
		label := fmt.Sprintf("[%d] %s", op.id, op.longName)
		if len(op.children) == 0 {
			branch.AddMetaNode(op.state(), label)
			continue
		}
		addOperations(branch.AddMetaBranch(op.state(), label), op.children)
	}
}

func (o *Operation) state() string {
	switch {
	case o.dirty:
		return "dirty"
	case o.plotPath != "":
		return "clean, plot"
	default:
		return "clean"
	}
}

// WriteColumns prints the visible columns of src as an aligned table, one
// row per value.
func WriteColumns(w io.Writer, src DataSource) error {
	cols, err := src.Columns()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = data.Shorten(c.Name(), 20)
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	for r := 0; r < longest(cols); r++ {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if r < c.Len() {
				cells[i] = c.Text(r)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
