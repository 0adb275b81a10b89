package graph

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"opgraph/internal/compute"
	"opgraph/internal/data"
	"opgraph/internal/trace"
)

// Operation derives columns from its parent by running a Computer. Its own
// result columns are cached and recomputed lazily when the operation is dirty
// and something reads its columns.
type Operation struct {
	family

	env      *Env
	typeName string
	computer Computer

	parent    DataSource
	results   *data.Set
	questions []*Question

	record     string
	startIndex int
	plotPath   string

	dirty       bool
	loading     bool
	inRecompute bool
	naming      bool

	remark    string
	longName  string
	shortName string
}

func newOperation(env *Env, typeName string, c Computer, id int) *Operation {
	o := &Operation{
		family:   family{id: id},
		env:      env,
		typeName: typeName,
		computer: c,
		results:  data.NewSet(),
		dirty:    true,
	}
	o.results.Reserve(func(name string) bool {
		return o.parent != nil && o.parent.peekVisible(name)
	})
	o.longName = typeName
	o.shortName = data.Shorten(typeName, 5)
	return o
}

// Type returns the registered type name.
func (o *Operation) Type() string { return o.typeName }

// Computer returns the behaviour behind the operation.
func (o *Operation) Computer() Computer { return o.computer }

// Name returns the display name built from the current answers.
func (o *Operation) Name() string { return o.longName }

// ShortName is the abbreviated display name.
func (o *Operation) ShortName() string { return o.shortName }

func (o *Operation) Parent() DataSource { return o.parent }

func (o *Operation) Root() *DataSet {
	for p := o.parent; p != nil; p = p.Parent() {
		if ds, ok := p.(*DataSet); ok {
			return ds
		}
	}
	return nil
}

func (o *Operation) Problem() *Problem {
	if root := o.Root(); root != nil {
		return root.problem
	}
	return nil
}

func (o *Operation) Remark() string { return o.remark }

func (o *Operation) SetRemark(remark string) {
	if remark == o.remark {
		return
	}
	o.changeBeginning("remark on " + o.typeName)
	o.remark = remark
	o.markUnsaved()
}

func (o *Operation) SetHidden(hidden bool) {
	if hidden == o.hidden {
		return
	}
	o.hidden = hidden
	o.markUnsaved()
}

// Description comes from the computer when it has one.
func (o *Operation) Description() string {
	if d, ok := o.computer.(Describer); ok {
		return d.Description()
	}
	return ""
}

// Ask declares a question. Computers call it from Configure.
func (o *Operation) Ask(spec QuestionSpec) (*Question, error) {
	for _, q := range o.questions {
		if strings.EqualFold(q.spec.Name, spec.Name) {
			return nil, structuralf(ErrDuplicateName, "question %q already declared", spec.Name)
		}
	}
	q, err := newQuestion(o, spec)
	if err != nil {
		return nil, err
	}
	o.questions = append(o.questions, q)
	return q, nil
}

// Questions returns every question in declaration order.
func (o *Operation) Questions() []*Question {
	return append([]*Question(nil), o.questions...)
}

// Question returns the named question.
func (o *Operation) Question(name string) (*Question, error) {
	for _, q := range o.questions {
		if strings.EqualFold(q.spec.Name, name) {
			return q, nil
		}
	}
	return nil, structuralf(ErrNotFound, "question %q on %s", name, o.typeName)
}

// SetAnswer answers the named question.
func (o *Operation) SetAnswer(name string, v any) error {
	q, err := o.Question(name)
	if err != nil {
		return err
	}
	return q.SetAnswer(v)
}

// Unanswered returns the questions that still lack a valid answer.
func (o *Operation) Unanswered() []*Question {
	var out []*Question
	for _, q := range o.questions {
		if q.Answer() == nil {
			out = append(out, q)
		}
	}
	return out
}

// InfoUnanswered reports whether any question lacks a valid answer.
func (o *Operation) InfoUnanswered() bool { return len(o.Unanswered()) > 0 }

// IsDirty reports whether the cached results are stale.
func (o *Operation) IsDirty() bool { return o.dirty }

// CheckCache recomputes the operation if it is dirty. Calls made while the
// operation is computing see the partial results without recursing.
func (o *Operation) CheckCache() CacheResult {
	if !o.dirty || o.inRecompute {
		return ready()
	}
	return o.refreshCache()
}

func (o *Operation) refreshCache() CacheResult {
	key := nodeKey(o.id)
	if o.parent == nil {
		return failed(o, structuralf(ErrNoParent, "%s (#%d)", o.typeName, o.id))
	}
	if o.isLoading() {
		o.env.record(trace.Event{Kind: trace.NodeDeferred, Node: key, Op: o.typeName, Reason: "Loading"})
		return CacheResult{Status: Deferred, Node: o}
	}
	if p, ok := o.parent.(*Operation); ok {
		if res := p.CheckCache(); res.Status != Ready {
			if res.Status == Failed {
				o.env.record(trace.Event{Kind: trace.NodeFailed, Node: key, Op: o.typeName, Reason: "ParentFailed", Cause: nodeKey(p.id)})
			}
			return res
		}
	}
	if missing := o.Unanswered(); len(missing) > 0 {
		o.env.record(trace.Event{Kind: trace.NodeNeedsInfo, Node: key, Op: o.typeName, Questions: questionNames(missing)})
		return CacheResult{Status: NeedsInfo, Node: o, Questions: missing}
	}
	engine := o.env.Engine
	if engine == nil {
		return failed(o, structuralf(ErrNoEngine, "%s (#%d)", o.typeName, o.id))
	}

	parentCount, err := o.parent.ColumnCount()
	if err != nil {
		return failed(o, err)
	}
	o.results.Clear()
	o.startIndex = parentCount
	o.plotPath = ""

	start := time.Now()
	err = o.compute(engine)
	transcript := engine.FetchInteraction()

	if err != nil {
		o.results.Clear()
		o.record = ""
		var ie *InfoRequiredError
		if errors.As(err, &ie) {
			if ie.Op == nil {
				ie.Op = o
			}
			o.env.record(trace.Event{Kind: trace.NodeNeedsInfo, Node: key, Op: o.typeName, Questions: questionNames(ie.Questions)})
			return CacheResult{Status: NeedsInfo, Node: o, Questions: ie.Questions}
		}
		o.env.Logger.Warn("operation failed", "id", o.id, "type", o.typeName, "error", err)
		o.env.record(trace.Event{Kind: trace.NodeFailed, Node: key, Op: o.typeName, Reason: "ComputeFailed"})
		return failed(o, fmt.Errorf("%s (#%d): %w", o.typeName, o.id, err))
	}

	o.record = transcript
	o.dirty = false
	for _, c := range o.children {
		c.markDirty("ParentRecomputed")
	}
	o.env.record(trace.Event{Kind: trace.NodeComputed, Node: key, Op: o.typeName})
	o.env.Logger.Debug("operation computed", "id", o.id, "type", o.typeName, "duration", time.Since(start))
	return ready()
}

func (o *Operation) compute(engine Engine) error {
	old := engine.SetRecordMode(compute.CommandsOnly)
	o.inRecompute = true
	defer func() {
		o.inRecompute = false
		engine.SetRecordMode(old)
	}()
	return o.computer.Compute(&Computation{
		Op:     o,
		Engine: engine,
		Log:    o.env.Logger.Named(o.typeName),
	})
}

func questionNames(qs []*Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Name()
	}
	return out
}

// MarkDirty invalidates the operation and every descendant.
func (o *Operation) MarkDirty() { o.markDirty("Explicit") }

func (o *Operation) markDirty(reason string) {
	if !o.dirty {
		o.env.record(trace.Event{Kind: trace.NodeInvalidated, Node: nodeKey(o.id), Op: o.typeName, Reason: reason})
	}
	o.dirty = true
	for _, c := range o.children {
		c.markDirty("ParentChanged")
	}
}

func (o *Operation) ensure() error {
	return o.CheckCache().Error()
}

func (o *Operation) Column(i int) (*data.Column, error) {
	if err := o.ensure(); err != nil {
		return nil, err
	}
	if i < o.startIndex {
		return o.parent.Column(i)
	}
	return o.results.Column(i - o.startIndex)
}

func (o *Operation) ColumnByName(name string) (*data.Column, error) {
	if err := o.ensure(); err != nil {
		return nil, err
	}
	c, err := o.parent.ColumnByName(name)
	if err == nil || !errors.Is(err, data.ErrNoColumn) {
		return c, err
	}
	return o.results.Lookup(name)
}

func (o *Operation) ColumnIndex(name string) (int, error) {
	if err := o.ensure(); err != nil {
		return -1, err
	}
	i, err := o.parent.ColumnIndex(name)
	if err == nil || !errors.Is(err, data.ErrNoColumn) {
		return i, err
	}
	if j := o.results.Index(name); j >= 0 {
		return o.startIndex + j, nil
	}
	return -1, missingColumn("%q", name)
}

func (o *Operation) Columns() ([]*data.Column, error) {
	if err := o.ensure(); err != nil {
		return nil, err
	}
	cols, err := o.parent.Columns()
	if err != nil {
		return nil, err
	}
	return append(cols, o.results.Columns()...), nil
}

func (o *Operation) ColumnCount() (int, error) {
	if err := o.ensure(); err != nil {
		return 0, err
	}
	return o.startIndex + o.results.Len(), nil
}

func (o *Operation) ColumnNames() ([]string, error) {
	cols, err := o.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name()
	}
	return out, nil
}

func (o *Operation) ColumnLength() (int, error) {
	cols, err := o.Columns()
	if err != nil {
		return 0, err
	}
	return longest(cols), nil
}

// Results returns only the operation's own columns.
func (o *Operation) Results() ([]*data.Column, error) {
	if err := o.ensure(); err != nil {
		return nil, err
	}
	return o.results.Columns(), nil
}

// StartIndex is the parent's column count at the last recompute.
func (o *Operation) StartIndex() int { return o.startIndex }

// Record returns the transcript of the last successful computation.
func (o *Operation) Record() string { return o.record }

// HasPlot reports whether the last computation produced an image.
func (o *Operation) HasPlot() bool { return o.plotPath != "" }

// Plot brings the cache up to date and returns the image path, if any.
func (o *Operation) Plot() (string, error) {
	if err := o.ensure(); err != nil {
		return "", err
	}
	return o.plotPath, nil
}

// Commands returns the statements recorded by the last computation. When
// chain is set, the ancestors' statements come first.
func (o *Operation) Commands(chain bool) (string, error) {
	if err := o.ensure(); err != nil {
		return "", err
	}
	if !chain || o.parent == nil {
		return o.record, nil
	}
	prefix, err := o.parent.Commands(true)
	if err != nil {
		return "", err
	}
	return prefix + o.record, nil
}

func (o *Operation) AddChild(op *Operation) error { return op.SetParent(o, -1) }

func (o *Operation) InsertChild(i int, op *Operation) error { return op.SetParent(o, i) }

func (o *Operation) RemoveChild(op *Operation) error {
	if op.parent == nil || op.parent.base() != &o.family {
		return structuralf(ErrNotFound, "%s (#%d) is not a child of %s (#%d)", op.typeName, op.id, o.typeName, o.id)
	}
	op.Detach()
	return nil
}

// SetParent moves the operation under parent at child index i. A negative or
// out of range index appends. The operation leaves its old parent and every
// SubProblem it was a step of. Membership in the new parent's SubProblems is
// not inherited.
func (o *Operation) SetParent(parent DataSource, i int) error {
	if parent == nil {
		o.Detach()
		return nil
	}
	if parent.base() == &o.family {
		return nil
	}
	if sameNode(o.parent, parent) && (i < 0 || o.parent.base().indexOf(o) == i) {
		return nil
	}
	for p := parent; p != nil; p = p.Parent() {
		if p.base() == &o.family {
			return cycleError([]string{nodeKey(o.id), nodeKey(parent.ID())})
		}
	}

	o.changeBeginning("parent of " + o.typeName)
	o.leave()
	parent.base().insertChild(i, o)
	o.parent = parent

	if !o.isLoading() {
		for _, q := range o.questions {
			q.Answer()
		}
	}
	o.checkDisplayName()
	o.markDirty("ParentChanged")
	o.markUnsaved()
	return nil
}

// Detach removes the operation from its parent and from every SubProblem.
func (o *Operation) Detach() {
	if o.parent == nil && len(o.subProblems) == 0 {
		return
	}
	o.changeBeginning("detach " + o.typeName)
	problem := o.Problem()
	o.leave()
	o.markDirty("ParentChanged")
	if problem != nil && !o.loading {
		problem.MarkUnsaved()
	}
}

func (o *Operation) leave() {
	if o.parent != nil {
		o.parent.base().removeChild(o)
		o.parent = nil
	}
	for _, sub := range o.SubProblems() {
		sub.RemoveStep(o)
		o.removeSubProblem(sub)
	}
}

// Clone returns an unattached operation of the same type with the same remark
// and answers.
func (o *Operation) Clone() (*Operation, error) {
	cp, err := o.env.NewOperation(o.typeName)
	if err != nil {
		return nil, err
	}
	cp.remark = o.remark
	for i, q := range o.questions {
		if i >= len(cp.questions) || q.spec.Kind == FixedQuestion {
			continue
		}
		cp.questions[i].answer = q.answer
	}
	cp.checkDisplayName()
	return cp, nil
}

// Equal reports structural equality: same type and definition, same remark,
// same answers, and different parents. Two siblings never compare equal, and
// neither do two detached operations.
func (o *Operation) Equal(other *Operation) bool {
	if o == other {
		return true
	}
	if other == nil || o.typeName != other.typeName {
		return false
	}
	if definitionHash(o.computer) != definitionHash(other.computer) {
		return false
	}
	if o.remark != other.remark || len(o.questions) != len(other.questions) {
		return false
	}
	for i, q := range o.questions {
		oq := other.questions[i]
		if !strings.EqualFold(q.spec.Name, oq.spec.Name) || !answersEqual(q.answer, oq.answer) {
			return false
		}
	}
	if o.parent == nil && other.parent == nil {
		return false
	}
	return !sameNode(o.parent, other.parent)
}

func definitionHash(c Computer) string {
	if h, ok := c.(Hasher); ok {
		return h.DefinitionHash()
	}
	return ""
}

func (o *Operation) peekVisible(name string) bool {
	if o.parent != nil && o.parent.peekVisible(name) {
		return true
	}
	return o.results.Index(name) >= 0
}

func (o *Operation) isLoading() bool {
	return o.loading || (o.parent != nil && o.parent.isLoading())
}

func (o *Operation) markUnsaved() {
	if o.isLoading() {
		return
	}
	if p := o.Problem(); p != nil {
		p.MarkUnsaved()
	}
}

func (o *Operation) changeBeginning(msg string) {
	if o.isLoading() {
		return
	}
	if p := o.Problem(); p != nil {
		p.ChangeBeginning(msg)
	}
}

func (o *Operation) answerChanged() {
	o.checkDisplayName()
	o.markDirty("AnswerChanged")
	o.markUnsaved()
}

func (o *Operation) checkDisplayName() {
	if o.naming {
		return
	}
	o.naming = true
	defer func() { o.naming = false }()

	long, short := o.typeName, ""
	if n, ok := o.computer.(Namer); ok {
		if l, s, err := n.DisplayName(o); err == nil && l != "" {
			long, short = l, s
		}
	}
	if short == "" {
		short = data.Shorten(long, 5)
	}
	if long == o.longName && short == o.shortName {
		return
	}
	o.longName, o.shortName = long, short
	if o.isLoading() {
		return
	}
	if p := o.Problem(); p != nil {
		p.NameChanged(o)
	}
}
