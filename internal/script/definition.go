// Package script loads operations described in XML and runs their
// computations against the engine.
//
// A definitions file looks like:
//
//	<operations>
//	  <operation name="Scale" category="Transform">
//	    <description>Multiplies a column by a factor.</description>
//	    <query name="col" type="column" column_type="numeric" prompt="Column"/>
//	    <query name="by" type="numeric" min="0"/>
//	    <displayname>Scale <response name="col" default="column"/></displayname>
//	    <computation>
//	      <set name="col" rvar="x"/>
//	      <set name="by" rvar="f"/>
//	      <save column="scaled">x * f</save>
//	    </computation>
//	  </operation>
//	</operations>
package script

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/hashicorp/go-multierror"

	"opgraph/internal/data"
	"opgraph/internal/graph"
)

// Definition is one operation type read from a definitions file. It is
// immutable after parsing and doubles as the graph.Computer for every
// operation built from it.
type Definition struct {
	Name     string
	Category string
	// Doc is the <description> text.
	Doc string
	// Listed is false for types that may be built by name but should not be
	// offered to users.
	Listed bool
	// Plot declares that the computation draws a plot.
	Plot    bool
	Queries []graph.QuestionSpec
	// Source is the file the definition came from.
	Source string

	displayName *xmlquery.Node
	computation *xmlquery.Node
	hash        string
}

// ParseDefinitions reads every <operation> under the <operations> root of r.
// Broken definitions are reported together; the valid ones are still
// returned.
func ParseDefinitions(r io.Reader, source string) ([]*Definition, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	root := xmlquery.FindOne(doc, "/operations")
	if root == nil {
		return nil, &Error{Msg: fmt.Sprintf("%s: root element must be <operations>", source)}
	}

	var defs []*Definition
	var result *multierror.Error
	for _, n := range xmlquery.Find(root, "operation") {
		d, err := parseDefinition(n)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", source, err))
			continue
		}
		d.Source = source
		defs = append(defs, d)
	}
	return defs, result.ErrorOrNil()
}

func parseDefinition(n *xmlquery.Node) (*Definition, error) {
	d := &Definition{
		Name:     strings.TrimSpace(n.SelectAttr("name")),
		Category: strings.TrimSpace(n.SelectAttr("category")),
	}
	if d.Name == "" {
		return nil, &Error{Msg: "operation without a name"}
	}
	if d.Category == "" {
		d.Category = "Uncategorized"
	}
	var err error
	if d.Listed, err = boolAttr(n, "list", true); err != nil {
		return nil, &Error{Op: d.Name, Msg: err.Error()}
	}
	if d.Plot, err = boolAttr(n, "plot", false); err != nil {
		return nil, &Error{Op: d.Name, Msg: err.Error()}
	}
	if desc := xmlquery.FindOne(n, "description"); desc != nil {
		d.Doc = strings.TrimSpace(desc.InnerText())
	}

	seen := map[string]bool{}
	for _, q := range xmlquery.Find(n, "query") {
		spec, err := parseQuery(q)
		if err != nil {
			return nil, &Error{Op: d.Name, Msg: err.Error()}
		}
		key := strings.ToLower(spec.Name)
		if seen[key] {
			return nil, &Error{Op: d.Name, Msg: fmt.Sprintf("query %q declared twice", spec.Name)}
		}
		seen[key] = true
		d.Queries = append(d.Queries, spec)
	}

	d.displayName = xmlquery.FindOne(n, "displayname")
	if d.displayName != nil {
		for _, r := range xmlquery.Find(d.displayName, "*") {
			if r.Data != "response" {
				return nil, &Error{Op: d.Name, Msg: fmt.Sprintf("invalid element <%s> in display name", r.Data)}
			}
			if !seen[strings.ToLower(r.SelectAttr("name"))] {
				return nil, &Error{Op: d.Name, Msg: fmt.Sprintf("display name refers to unknown query %q", r.SelectAttr("name"))}
			}
		}
	}
	d.computation = xmlquery.FindOne(n, "computation")
	if d.computation == nil {
		return nil, &Error{Op: d.Name, Msg: "computation element not specified"}
	}
	d.hash = d.computeHash()
	return d, nil
}

func parseQuery(n *xmlquery.Node) (graph.QuestionSpec, error) {
	spec := graph.QuestionSpec{
		Name:    strings.TrimSpace(n.SelectAttr("name")),
		Prompt:  n.SelectAttr("prompt"),
		Pattern: n.SelectAttr("pattern"),
	}
	if spec.Name == "" {
		return spec, fmt.Errorf("query without a name")
	}
	if spec.Prompt == "" {
		spec.Prompt = spec.Name
	}
	kind, err := graph.ParseQuestionKind(n.SelectAttr("type"))
	if err != nil {
		return spec, fmt.Errorf("query %q: %w", spec.Name, err)
	}
	spec.Kind = kind

	switch kind {
	case graph.ColumnQuestion:
		switch ct := n.SelectAttr("column_type"); ct {
		case "", "all":
		case "numeric":
			m := data.Numeric
			spec.ColumnMode = &m
		case "string":
			m := data.String
			spec.ColumnMode = &m
		default:
			return spec, fmt.Errorf("query %q: invalid column_type %q", spec.Name, ct)
		}
	case graph.ComboQuestion:
		for _, o := range xmlquery.Find(n, "option") {
			spec.Options = append(spec.Options, strings.TrimSpace(o.InnerText()))
		}
		if len(spec.Options) == 0 {
			return spec, fmt.Errorf("query %q: combo without options", spec.Name)
		}
	case graph.NumericQuestion:
		if spec.Min, err = floatAttr(n, "min"); err != nil {
			return spec, fmt.Errorf("query %q: %w", spec.Name, err)
		}
		if spec.Max, err = floatAttr(n, "max"); err != nil {
			return spec, fmt.Errorf("query %q: %w", spec.Name, err)
		}
	case graph.FixedQuestion:
		if n.SelectAttr("value") == "" {
			return spec, fmt.Errorf("query %q: fixed query without a value", spec.Name)
		}
	}
	if v := n.SelectAttr("value"); v != "" {
		spec.Value = v
	}
	return spec, nil
}

func boolAttr(n *xmlquery.Node, name string, def bool) (bool, error) {
	s := n.SelectAttr(name)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def, fmt.Errorf("invalid value %q for %s attribute", s, name)
	}
	return b, nil
}

func floatAttr(n *xmlquery.Node, name string) (*float64, error) {
	s := n.SelectAttr(name)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return &f, nil
}

// Configure asks the definition's queries on op.
func (d *Definition) Configure(op *graph.Operation) error {
	for _, spec := range d.Queries {
		spec.Options = append([]string(nil), spec.Options...)
		if _, err := op.Ask(spec); err != nil {
			return &Error{Op: d.Name, Msg: "declaring queries", Err: err}
		}
	}
	return nil
}

// Description returns the definition's description, or its name when it has
// none.
func (d *Definition) Description() string {
	if d.Doc != "" {
		return d.Doc
	}
	return d.Name
}

// DefinitionHash identifies the definition's content.
func (d *Definition) DefinitionHash() string { return d.hash }

var _ interface {
	graph.Computer
	graph.Namer
	graph.Describer
	graph.Hasher
} = (*Definition)(nil)
