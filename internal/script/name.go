package script

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"opgraph/internal/data"
	"opgraph/internal/graph"
)

// DisplayName renders the <displayname> template. Text is copied verbatim;
// each <response> is replaced by the named query's answer, or by its default
// while the query is unanswered. Only responses are shortened in the short
// form.
func (d *Definition) DisplayName(op *graph.Operation) (string, string, error) {
	if d.displayName == nil {
		return d.Name, data.Shorten(d.Name, 5), nil
	}
	var long, short strings.Builder
	for n := d.displayName.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			long.WriteString(n.Data)
			short.WriteString(n.Data)
		case xmlquery.ElementNode:
			q, err := op.Question(n.SelectAttr("name"))
			if err != nil {
				return "", "", &Error{Op: d.Name, Msg: "display name", Err: err}
			}
			val := q.CurrentText()
			if val == "" {
				val = n.SelectAttr("default")
			}
			long.WriteString(val)
			short.WriteString(data.Shorten(val, 5))
		}
	}
	return collapse(long.String()), collapse(short.String()), nil
}

// collapse folds the whitespace that indentation leaves in templates.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
