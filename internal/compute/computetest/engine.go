// Package computetest provides an in-memory engine that speaks the compute
// line protocol. It understands a small subset of the statistical language:
// numeric, character and logical vectors, c(), ranges, arithmetic and
// comparisons, assignment, print(), str(), data frames, library management,
// graphics devices and stop(). It is meant for tests only.
package computetest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	"opgraph/internal/compute"
)

// Func is a user-defined builtin. Args are already evaluated. It runs while
// the engine is locked, so it must not call Engine methods.
type Func func(e *Engine, args []Arg) (Value, error)

// Arg is an evaluated call argument.
type Arg struct {
	Name  string
	Value Value
	// Expr is the source identifier when the argument was a bare name.
	Expr string
}

var errQuit = errors.New("quit")

type evalError struct {
	call string
	msg  string
}

func (e *evalError) Error() string {
	if e.call == "" {
		return "Error: " + e.msg
	}
	return "Error in " + e.call + " : " + e.msg
}

// Engine is the fake interpreter. The zero value is not usable; call New.
type Engine struct {
	mu         sync.Mutex
	vars       map[string]Value
	funcs      map[string]Func
	statements []string
	installed  map[string]bool
	available  map[string]bool
	loaded     map[string]bool
	plots      []string
	device     string
	options    []string
}

// New returns an engine with an empty workspace.
func New() *Engine {
	return &Engine{
		vars:      map[string]Value{},
		funcs:     map[string]Func{},
		installed: map[string]bool{"stats": true, "graphics": true},
		available: map[string]bool{},
		loaded:    map[string]bool{},
	}
}

// Define registers fn as a builtin named name.
func (e *Engine) Define(name string, fn Func) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs[name] = fn
}

// Install marks a library as installed.
func (e *Engine) Install(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.installed[name] = true
}

// Publish makes a library installable through install.packages.
func (e *Engine) Publish(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.available[name] = true
}

// Loaded reports whether library() succeeded for name.
func (e *Engine) Loaded(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded[name]
}

// Set assigns a workspace variable directly.
func (e *Engine) Set(name string, v Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = v
}

// Get returns a workspace variable.
func (e *Engine) Get(name string) (Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[name]
	return v, ok
}

// Plots returns every file a png device was opened on.
func (e *Engine) Plots() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.plots...)
}

// Statements returns every statement received, excluding protocol sentinels.
func (e *Engine) Statements() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.statements...)
}

// Count returns len(Statements()).
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.statements)
}

// Serve reads statements line by line from in and writes replies to out until
// in is exhausted or q() is evaluated.
func (e *Engine) Serve(in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	w := bufio.NewWriter(out)
	for sc.Scan() {
		reply, err := e.Eval(sc.Text())
		if errors.Is(err, errQuit) {
			return w.Flush()
		}
		if err != nil {
			reply += err.Error() + "\n"
		}
		if _, werr := w.WriteString(reply); werr != nil {
			return werr
		}
		if werr := w.Flush(); werr != nil {
			return werr
		}
	}
	return sc.Err()
}

// Eval evaluates one statement and returns the text it prints. Engine errors
// are returned as an error whose text is the engine's error line.
func (e *Engine) Eval(stmt string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stmt = strings.TrimSpace(stmt)
	if !strings.Contains(stmt, "---OPGRAPH OUTPUT END") {
		e.statements = append(e.statements, stmt)
	}
	ast, err := parseStatement(stmt)
	if err != nil {
		return "", &evalError{msg: err.Error()}
	}
	if ast == nil {
		return "", nil
	}
	if a, ok := ast.(assignStmt); ok {
		v, _, err := e.eval(a.x)
		if err != nil {
			return "", err
		}
		e.vars[a.name] = v
		return "", nil
	}
	var out strings.Builder
	v, visible, err := e.evalPrinting(ast, &out)
	if err != nil {
		return out.String(), err
	}
	if visible {
		out.WriteString(v.print())
	}
	return out.String(), nil
}

func (e *Engine) eval(n node) (Value, bool, error) {
	return e.evalPrinting(n, nil)
}

func (e *Engine) evalPrinting(n node, out *strings.Builder) (Value, bool, error) {
	switch x := n.(type) {
	case numLit:
		return Num(x.v), true, nil
	case strLit:
		return Str(x.v), true, nil
	case identRef:
		return e.lookup(x.name)
	case unaryExpr:
		v, _, err := e.eval(x.x)
		if err != nil {
			return Value{}, false, err
		}
		if x.op == "!" {
			b, err := v.asBool()
			if err != nil {
				return Value{}, false, &evalError{call: "!", msg: "invalid argument type"}
			}
			return Bool(!b), true, nil
		}
		nums, err := v.asNums()
		if err != nil {
			return Value{}, false, &evalError{call: "-", msg: "invalid argument to unary operator"}
		}
		neg := make([]float64, len(nums))
		for i, f := range nums {
			neg[i] = -f
		}
		return Num(neg...), true, nil
	case binExpr:
		return e.binary(x)
	case dollarExpr:
		v, _, err := e.eval(x.x)
		if err != nil {
			return Value{}, false, err
		}
		if v.Kind != Frame {
			return Value{}, false, &evalError{call: "$", msg: "$ operator is invalid for atomic vectors"}
		}
		for i, name := range v.Names {
			if name == x.field {
				return v.Cols[i], true, nil
			}
		}
		return Value{Kind: Null}, true, nil
	case callExpr:
		return e.call(x, out)
	}
	return Value{}, false, &evalError{msg: fmt.Sprintf("cannot evaluate %T", n)}
}

func (e *Engine) lookup(name string) (Value, bool, error) {
	switch name {
	case "TRUE", "T":
		return Bool(true), true, nil
	case "FALSE", "F":
		return Bool(false), true, nil
	case "NaN", "NA":
		return Num(math.NaN()), true, nil
	case "Inf":
		return Num(math.Inf(1)), true, nil
	case "NULL":
		return Value{Kind: Null}, true, nil
	case "pi":
		return Num(math.Pi), true, nil
	}
	if v, ok := e.vars[name]; ok {
		return v, true, nil
	}
	return Value{}, false, &evalError{msg: fmt.Sprintf("object '%s' not found", name)}
}

func (e *Engine) binary(x binExpr) (Value, bool, error) {
	l, _, err := e.eval(x.l)
	if err != nil {
		return Value{}, false, err
	}
	r, _, err := e.eval(x.r)
	if err != nil {
		return Value{}, false, err
	}

	switch x.op {
	case "==", "!=":
		if l.Kind == Character || r.Kind == Character {
			ls, rs := l.asStrs(), r.asStrs()
			n := maxLen(len(ls), len(rs))
			out := make([]bool, n)
			for i := 0; i < n; i++ {
				eq := ls[i%len(ls)] == rs[i%len(rs)]
				out[i] = eq == (x.op == "==")
			}
			return Bool(out...), true, nil
		}
	}

	ln, err := l.asNums()
	if err != nil {
		return Value{}, false, &evalError{call: x.op, msg: "non-numeric argument to binary operator"}
	}
	rn, err := r.asNums()
	if err != nil {
		return Value{}, false, &evalError{call: x.op, msg: "non-numeric argument to binary operator"}
	}
	if x.op == ":" {
		if len(ln) == 0 || len(rn) == 0 {
			return Value{}, false, &evalError{call: ":", msg: "argument of length 0"}
		}
		from, to := ln[0], rn[0]
		var seq []float64
		if from <= to {
			for v := from; v <= to; v++ {
				seq = append(seq, v)
			}
		} else {
			for v := from; v >= to; v-- {
				seq = append(seq, v)
			}
		}
		return Num(seq...), true, nil
	}
	if len(ln) == 0 || len(rn) == 0 {
		return Num(), true, nil
	}

	n := maxLen(len(ln), len(rn))
	switch x.op {
	case "+", "-", "*", "/":
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			a, b := ln[i%len(ln)], rn[i%len(rn)]
			switch x.op {
			case "+":
				out[i] = a + b
			case "-":
				out[i] = a - b
			case "*":
				out[i] = a * b
			case "/":
				out[i] = a / b
			}
		}
		return Num(out...), true, nil
	default:
		out := make([]bool, n)
		for i := 0; i < n; i++ {
			a, b := ln[i%len(ln)], rn[i%len(rn)]
			switch x.op {
			case "==":
				out[i] = a == b
			case "!=":
				out[i] = a != b
			case "<":
				out[i] = a < b
			case ">":
				out[i] = a > b
			case "<=":
				out[i] = a <= b
			case ">=":
				out[i] = a >= b
			}
		}
		return Bool(out...), true, nil
	}
}

func maxLen(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (e *Engine) call(x callExpr, out *strings.Builder) (Value, bool, error) {
	// options() takes handler names that are not bound in the workspace.
	if x.name == "options" {
		for _, a := range x.args {
			e.options = append(e.options, a.name)
		}
		return Value{Kind: Null}, false, nil
	}
	args := make([]Arg, 0, len(x.args))
	for _, a := range x.args {
		v, _, err := e.eval(a.x)
		if err != nil {
			return Value{}, false, err
		}
		arg := Arg{Name: a.name, Value: v}
		if id, ok := a.x.(identRef); ok {
			arg.Expr = id.name
		}
		args = append(args, arg)
	}
	callText := x.name + "(" + ")"

	if fn, ok := e.funcs[x.name]; ok {
		v, err := fn(e, args)
		if err != nil {
			var ee *evalError
			if errors.As(err, &ee) {
				return Value{}, false, err
			}
			return Value{}, false, &evalError{call: callText, msg: err.Error()}
		}
		return v, true, nil
	}

	b, ok := builtins[x.name]
	if !ok {
		return Value{}, false, &evalError{call: x.name + "()", msg: fmt.Sprintf("could not find function %q", x.name)}
	}
	v, visible, err := b(e, args, out)
	if err != nil {
		var ee *evalError
		if errors.As(err, &ee) || errors.Is(err, errQuit) {
			return Value{}, false, err
		}
		return Value{}, false, &evalError{call: callText, msg: err.Error()}
	}
	return v, visible, nil
}

type builtin func(e *Engine, args []Arg, out *strings.Builder) (Value, bool, error)

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"c":                bConcat,
		"print":            bPrint,
		"length":           bLength,
		"sum":              numericReduce(func(v []float64) float64 { return sum(v) }),
		"mean":             numericReduce(func(v []float64) float64 { return sum(v) / float64(len(v)) }),
		"var":              numericReduce(variance),
		"sd":               numericReduce(func(v []float64) float64 { return math.Sqrt(variance(v)) }),
		"min":              numericReduce(minOf),
		"max":              numericReduce(maxOf),
		"sqrt":             numericMap(math.Sqrt),
		"abs":              numericMap(math.Abs),
		"str":              bStr,
		"paste":            bPaste(" "),
		"paste0":           bPaste(""),
		"library":          bLibrary,
		"require":          bLibrary,
		"install.packages": bInstall,
		"png":              bPng,
		"dev.off":          bDevOff,
		"invisible":        bInvisible,
		"q":                bQuit,
		"quit":             bQuit,
		"data.frame":       bDataFrame,
		"colnames":         bNames,
		"names":            bNames,
		"make.names":       bMakeNames,
		"stop":             bStop,
		"is.numeric":       bIs(Numeric),
		"is.character":     bIs(Character),
		"as.numeric":       bAsNumeric,
		"as.character":     bAsCharacter,
		"rev":              bRev,
		"sort":             bSort,
	}
}

func firstArg(args []Arg, fn string) (Value, error) {
	if len(args) == 0 {
		return Value{}, fmt.Errorf("argument missing to %s", fn)
	}
	return args[0].Value, nil
}

func namedArg(args []Arg, name string) (Value, bool) {
	for _, a := range args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

func positional(args []Arg) []Arg {
	var out []Arg
	for _, a := range args {
		if a.Name == "" {
			out = append(out, a)
		}
	}
	return out
}

func bConcat(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	hasChar, hasNum, hasLogical := false, false, false
	for _, a := range args {
		switch a.Value.Kind {
		case Character:
			hasChar = true
		case Numeric:
			hasNum = true
		case Logical:
			hasLogical = true
		}
	}
	switch {
	case hasChar:
		var out []string
		for _, a := range args {
			out = append(out, a.Value.asStrs()...)
		}
		return Str(out...), true, nil
	case hasNum:
		var out []float64
		for _, a := range args {
			nums, err := a.Value.asNums()
			if err != nil {
				return Value{}, false, err
			}
			out = append(out, nums...)
		}
		return Num(out...), true, nil
	case hasLogical:
		var out []bool
		for _, a := range args {
			out = append(out, a.Value.Bools...)
		}
		return Bool(out...), true, nil
	}
	return Value{Kind: Null}, true, nil
}

func bPrint(_ *Engine, args []Arg, out *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "print")
	if err != nil {
		return Value{}, false, err
	}
	if out != nil {
		out.WriteString(v.print())
	}
	return v, false, nil
}

func bLength(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "length")
	if err != nil {
		return Value{}, false, err
	}
	return Num(float64(v.Len())), true, nil
}

func sum(v []float64) float64 {
	s := 0.0
	for _, f := range v {
		s += f
	}
	return s
}

func variance(v []float64) float64 {
	if len(v) < 2 {
		return math.NaN()
	}
	m := sum(v) / float64(len(v))
	ss := 0.0
	for _, f := range v {
		ss += (f - m) * (f - m)
	}
	return ss / float64(len(v)-1)
}

func minOf(v []float64) float64 {
	if len(v) == 0 {
		return math.Inf(1)
	}
	m := v[0]
	for _, f := range v[1:] {
		m = math.Min(m, f)
	}
	return m
}

func maxOf(v []float64) float64 {
	if len(v) == 0 {
		return math.Inf(-1)
	}
	m := v[0]
	for _, f := range v[1:] {
		m = math.Max(m, f)
	}
	return m
}

func numericReduce(fn func([]float64) float64) builtin {
	return func(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
		var all []float64
		for _, a := range positional(args) {
			nums, err := a.Value.asNums()
			if err != nil {
				return Value{}, false, fmt.Errorf("invalid 'type' (character) of argument")
			}
			all = append(all, nums...)
		}
		return Num(fn(all)), true, nil
	}
}

func numericMap(fn func(float64) float64) builtin {
	return func(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
		v, err := firstArg(args, "math")
		if err != nil {
			return Value{}, false, err
		}
		nums, err := v.asNums()
		if err != nil {
			return Value{}, false, err
		}
		out := make([]float64, len(nums))
		for i, f := range nums {
			out[i] = fn(f)
		}
		return Num(out...), true, nil
	}
}

func bStr(_ *Engine, args []Arg, out *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "str")
	if err != nil {
		return Value{}, false, err
	}
	if out != nil {
		out.WriteString(v.structure())
	}
	return Value{Kind: Null}, false, nil
}

func bPaste(defaultSep string) builtin {
	return func(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
		sep := defaultSep
		if v, ok := namedArg(args, "sep"); ok && len(v.asStrs()) > 0 {
			sep = v.asStrs()[0]
		}
		pos := positional(args)
		n := 0
		for _, a := range pos {
			n = maxLen(n, a.Value.Len())
		}
		out := make([]string, n)
		for i := 0; i < n; i++ {
			parts := make([]string, 0, len(pos))
			for _, a := range pos {
				s := a.Value.asStrs()
				if len(s) > 0 {
					parts = append(parts, s[i%len(s)])
				}
			}
			out[i] = strings.Join(parts, sep)
		}
		return Str(out...), true, nil
	}
}

func bLibrary(e *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "library")
	if err != nil {
		return Value{}, false, err
	}
	name := ""
	if len(args) > 0 && args[0].Expr != "" && v.Kind != Character {
		name = args[0].Expr
	} else if s := v.asStrs(); len(s) > 0 {
		name = s[0]
	}
	logical := false
	if lv, ok := namedArg(args, "logical.return"); ok {
		logical, _ = lv.asBool()
	}
	if !e.installed[name] {
		return Value{}, false, &evalError{call: "library(" + quoteStr(name) + ")", msg: fmt.Sprintf("there is no package called '%s'", name)}
	}
	e.loaded[name] = true
	if logical {
		return Bool(true), true, nil
	}
	return Value{Kind: Null}, false, nil
}

func bInstall(e *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "install.packages")
	if err != nil {
		return Value{}, false, err
	}
	for _, name := range v.asStrs() {
		if e.available[name] {
			e.installed[name] = true
		}
	}
	return Value{Kind: Null}, false, nil
}

func bPng(e *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, ok := namedArg(args, "filename")
	if !ok {
		pos := positional(args)
		if len(pos) == 0 {
			return Value{}, false, fmt.Errorf("argument \"filename\" is missing")
		}
		v = pos[0].Value
	}
	s := v.asStrs()
	if len(s) == 0 {
		return Value{}, false, fmt.Errorf("invalid 'filename' argument")
	}
	e.device = s[0]
	e.plots = append(e.plots, s[0])
	return Value{Kind: Null}, false, nil
}

func bDevOff(e *Engine, _ []Arg, out *strings.Builder) (Value, bool, error) {
	if e.device == "" {
		return Value{}, false, fmt.Errorf("cannot shut down device 1 (the null device)")
	}
	e.device = ""
	if out != nil {
		out.WriteString("null device \n          1 \n")
	}
	return Value{Kind: Null}, false, nil
}

func bInvisible(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	if len(args) == 0 {
		return Value{Kind: Null}, false, nil
	}
	return args[0].Value, false, nil
}

func bQuit(*Engine, []Arg, *strings.Builder) (Value, bool, error) {
	return Value{}, false, errQuit
}

func bDataFrame(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	f := Value{Kind: Frame}
	for i, a := range args {
		name := a.Name
		if name == "" {
			name = a.Expr
		}
		if name == "" {
			name = fmt.Sprintf("V%d", i+1)
		}
		f.Names = append(f.Names, name)
		f.Cols = append(f.Cols, a.Value)
	}
	return f, true, nil
}

func bNames(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "names")
	if err != nil {
		return Value{}, false, err
	}
	if v.Kind != Frame {
		return Value{Kind: Null}, true, nil
	}
	return Str(v.Names...), true, nil
}

func bMakeNames(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "make.names")
	if err != nil {
		return Value{}, false, err
	}
	in := v.asStrs()
	out := make([]string, len(in))
	for i, s := range in {
		var sb strings.Builder
		for _, r := range s {
			if r == '.' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				sb.WriteRune(r)
			} else {
				sb.WriteByte('.')
			}
		}
		name := sb.String()
		if name == "" || (name[0] >= '0' && name[0] <= '9') || name[0] == '_' {
			name = "X" + name
		}
		out[i] = name
	}
	return Str(out...), true, nil
}

func bStop(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	msg := ""
	for _, a := range positional(args) {
		msg += strings.Join(a.Value.asStrs(), "")
	}
	return Value{}, false, &evalError{msg: msg}
}

func bIs(kind Kind) builtin {
	return func(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
		v, err := firstArg(args, "is")
		if err != nil {
			return Value{}, false, err
		}
		return Bool(v.Kind == kind), true, nil
	}
}

func bAsNumeric(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "as.numeric")
	if err != nil {
		return Value{}, false, err
	}
	if v.Kind != Character {
		nums, err := v.asNums()
		return Num(nums...), true, err
	}
	out := make([]float64, len(v.Strs))
	for i, s := range v.Strs {
		toks, err := lex(s)
		if err != nil || len(toks) != 2 || toks[0].kind != tNum {
			out[i] = math.NaN()
			continue
		}
		out[i] = toks[0].num
	}
	return Num(out...), true, nil
}

func bAsCharacter(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "as.character")
	if err != nil {
		return Value{}, false, err
	}
	return Str(v.asStrs()...), true, nil
}

func bRev(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "rev")
	if err != nil {
		return Value{}, false, err
	}
	switch v.Kind {
	case Numeric:
		out := make([]float64, len(v.Nums))
		for i, f := range v.Nums {
			out[len(out)-1-i] = f
		}
		return Num(out...), true, nil
	case Character:
		out := make([]string, len(v.Strs))
		for i, s := range v.Strs {
			out[len(out)-1-i] = s
		}
		return Str(out...), true, nil
	}
	return v, true, nil
}

func bSort(_ *Engine, args []Arg, _ *strings.Builder) (Value, bool, error) {
	v, err := firstArg(args, "sort")
	if err != nil {
		return Value{}, false, err
	}
	switch v.Kind {
	case Numeric:
		out := append([]float64(nil), v.Nums...)
		sort.Float64s(out)
		return Num(out...), true, nil
	case Character:
		out := append([]string(nil), v.Strs...)
		sort.Strings(out)
		return Str(out...), true, nil
	}
	return v, true, nil
}

// Channel connects a compute.Channel to e over in-memory pipes. The channel is
// closed when the test ends.
func (e *Engine) Channel(tb testing.TB, opts compute.Options) *compute.Channel {
	tb.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	go func() {
		err := e.Serve(inR, outW)
		_ = inR.Close()
		_ = outW.CloseWithError(err)
	}()
	ch, err := compute.Attach(inW, outR, opts)
	if err != nil {
		tb.Fatalf("attaching to fake engine: %v", err)
	}
	tb.Cleanup(func() { _ = ch.Close() })
	return ch
}
