package computetest

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokKind int

const (
	tEOF tokKind = iota
	tNum
	tStr
	tIdent
	tOp
)

type token struct {
	kind tokKind
	text string
	num  float64
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == ';':
			i++
		case ch >= '0' && ch <= '9' || (ch == '.' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9'):
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
				k := j + 1
				if k < len(src) && (src[k] == '+' || src[k] == '-') {
					k++
				}
				if k < len(src) && src[k] >= '0' && src[k] <= '9' {
					for k < len(src) && src[k] >= '0' && src[k] <= '9' {
						k++
					}
					j = k
				}
			}
			f, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("unexpected numeric constant %q", src[i:j])
			}
			toks = append(toks, token{kind: tNum, text: src[i:j], num: f})
			i = j
		case ch == '"' || ch == '\'':
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tStr, text: s})
			i += n
		case ch == '.' || ch == '_' || unicode.IsLetter(rune(ch)):
			j := i
			for j < len(src) && (src[j] == '.' || src[j] == '_' || unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j]))) {
				j++
			}
			toks = append(toks, token{kind: tIdent, text: src[i:j]})
			i = j
		default:
			two := ""
			if i+1 < len(src) {
				two = src[i : i+2]
			}
			switch two {
			case "==", "!=", "<=", ">=", "<-":
				toks = append(toks, token{kind: tOp, text: two})
				i += 2
				continue
			}
			if strings.ContainsRune("=+-*/:(),$<>!^[]", rune(ch)) {
				toks = append(toks, token{kind: tOp, text: string(ch)})
				i++
				continue
			}
			return nil, fmt.Errorf("unexpected input %q", string(ch))
		}
	}
	return append(toks, token{kind: tEOF}), nil
}

func lexString(src string) (string, int, error) {
	q := src[0]
	var sb strings.Builder
	for i := 1; i < len(src); i++ {
		ch := src[i]
		if ch == q {
			return sb.String(), i + 1, nil
		}
		if ch != '\\' || i+1 == len(src) {
			sb.WriteByte(ch)
			continue
		}
		i++
		switch src[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0', '1', '2', '3':
			if i+2 < len(src) {
				if v, err := strconv.ParseUint(src[i:i+3], 8, 8); err == nil {
					sb.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			sb.WriteByte(src[i])
		default:
			sb.WriteByte(src[i])
		}
	}
	return "", 0, fmt.Errorf("unexpected INCOMPLETE_STRING")
}

type node interface{}

type (
	numLit   struct{ v float64 }
	strLit   struct{ v string }
	identRef struct{ name string }
	callExpr struct {
		name string
		args []argExpr
	}
	argExpr struct {
		name string
		x    node
	}
	binExpr struct {
		op   string
		l, r node
	}
	unaryExpr struct {
		op string
		x  node
	}
	dollarExpr struct {
		x     node
		field string
	}
	assignStmt struct {
		name string
		x    node
	}
)

type parser struct {
	toks []token
	pos  int
}

func parseStatement(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tEOF {
		return nil, nil
	}
	var n node
	if p.peek().kind == tIdent && (p.peekAt(1).text == "=" || p.peekAt(1).text == "<-") && p.peekAt(1).kind == tOp {
		name := p.next().text
		p.next()
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		n = assignStmt{name: name, x: x}
	} else {
		n, err = p.expr()
		if err != nil {
			return nil, err
		}
	}
	if t := p.peek(); t.kind != tEOF {
		return nil, fmt.Errorf("unexpected %q", t.text)
	}
	return n, nil
}

func (p *parser) peek() token { return p.peekAt(0) }

func (p *parser) peekAt(off int) token {
	if p.pos+off >= len(p.toks) {
		return token{kind: tEOF}
	}
	return p.toks[p.pos+off]
}

func (p *parser) next() token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tOp && t.text == text
}

func (p *parser) expect(text string) error {
	if !p.isOp(text) {
		return fmt.Errorf("unexpected %q, expected %q", p.peek().text, text)
	}
	p.next()
	return nil
}

func (p *parser) expr() (node, error) {
	l, err := p.additive()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.isOp(op) {
			p.next()
			r, err := p.additive()
			if err != nil {
				return nil, err
			}
			return binExpr{op: op, l: l, r: r}, nil
		}
	}
	return l, nil
}

func (p *parser) additive() (node, error) {
	l, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next().text
		r, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		l = binExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) multiplicative() (node, error) {
	l, err := p.rangeExpr()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") {
		op := p.next().text
		r, err := p.rangeExpr()
		if err != nil {
			return nil, err
		}
		l = binExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) rangeExpr() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	if p.isOp(":") {
		p.next()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		return binExpr{op: ":", l: l, r: r}, nil
	}
	return l, nil
}

func (p *parser) unary() (node, error) {
	if p.isOp("-") || p.isOp("!") {
		op := p.next().text
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{op: op, x: x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (node, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.isOp("$") {
		p.next()
		t := p.next()
		if t.kind != tIdent && t.kind != tStr {
			return nil, fmt.Errorf("unexpected %q after $", t.text)
		}
		x = dollarExpr{x: x, field: t.text}
	}
	return x, nil
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tNum:
		return numLit{v: t.num}, nil
	case tStr:
		return strLit{v: t.text}, nil
	case tIdent:
		if !p.isOp("(") {
			return identRef{name: t.text}, nil
		}
		p.next()
		args, err := p.args()
		if err != nil {
			return nil, err
		}
		return callExpr{name: t.text, args: args}, nil
	case tOp:
		if t.text == "(" {
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	}
	if t.kind == tEOF {
		return nil, fmt.Errorf("unexpected end of input")
	}
	return nil, fmt.Errorf("unexpected %q", t.text)
}

func (p *parser) args() ([]argExpr, error) {
	var args []argExpr
	if p.isOp(")") {
		p.next()
		return args, nil
	}
	for {
		var a argExpr
		if p.peek().kind == tIdent && p.peekAt(1).kind == tOp && p.peekAt(1).text == "=" {
			a.name = p.next().text
			p.next()
		}
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		a.x = x
		args = append(args, a)
		if p.isOp(",") {
			p.next()
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return args, nil
	}
}
