package graph

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"opgraph/internal/data"
)

// QuestionKind selects how an answer is validated.
type QuestionKind int

const (
	// ColumnQuestion answers are the name of a column visible on the parent.
	ColumnQuestion QuestionKind = iota
	// ComboQuestion answers are one of a fixed list of options.
	ComboQuestion
	// StringQuestion answers are free text, optionally matching a pattern.
	StringQuestion
	// NumericQuestion answers are numbers, optionally bounded.
	NumericQuestion
	// CheckboxQuestion answers are booleans.
	CheckboxQuestion
	// FixedQuestion has a constant answer set at definition time.
	FixedQuestion
)

var questionKindNames = map[QuestionKind]string{
	ColumnQuestion:   "column",
	ComboQuestion:    "combo",
	StringQuestion:   "string",
	NumericQuestion:  "numeric",
	CheckboxQuestion: "checkbox",
	FixedQuestion:    "fixed",
}

func (k QuestionKind) String() string {
	if s, ok := questionKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("QuestionKind(%d)", int(k))
}

// ParseQuestionKind accepts the names printed by String.
func ParseQuestionKind(s string) (QuestionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range questionKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown question type %q", s)
}

// QuestionSpec declares a question. Only the fields relevant to Kind are used.
type QuestionSpec struct {
	Name   string
	Prompt string
	Kind   QuestionKind

	// ColumnMode restricts column answers to one mode. Nil accepts any.
	ColumnMode *data.Mode
	// Options lists the combo choices.
	Options []string
	// Min and Max bound numeric answers, inclusive.
	Min, Max *float64
	// Pattern must match a string answer in full.
	Pattern string
	// Value is the fixed answer, or the initial answer for other kinds.
	Value any
}

// Question is one input an operation needs before it can compute.
type Question struct {
	op      *Operation
	spec    QuestionSpec
	pattern *regexp.Regexp
	answer  any
}

func newQuestion(op *Operation, spec QuestionSpec) (*Question, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("question name is empty")
	}
	if spec.Prompt == "" {
		spec.Prompt = spec.Name
	}
	q := &Question{op: op, spec: spec}
	if spec.Pattern != "" {
		re, err := regexp.Compile(`^(?:` + spec.Pattern + `)$`)
		if err != nil {
			return nil, fmt.Errorf("question %q: pattern: %w", spec.Name, err)
		}
		q.pattern = re
	}
	if spec.Min != nil && spec.Max != nil && *spec.Min > *spec.Max {
		return nil, fmt.Errorf("question %q: min %v is above max %v", spec.Name, *spec.Min, *spec.Max)
	}
	switch spec.Kind {
	case FixedQuestion:
		if spec.Value == nil {
			return nil, fmt.Errorf("question %q: fixed question without a value", spec.Name)
		}
		q.answer = spec.Value
	case ComboQuestion:
		if len(spec.Options) == 0 {
			return nil, fmt.Errorf("question %q: combo question without options", spec.Name)
		}
		fallthrough
	default:
		if spec.Value != nil {
			v, err := q.convert(spec.Value)
			if err != nil {
				return nil, fmt.Errorf("question %q: initial value: %w", spec.Name, err)
			}
			q.answer = v
		}
	}
	return q, nil
}

func (q *Question) Name() string       { return q.spec.Name }
func (q *Question) Prompt() string     { return q.spec.Prompt }
func (q *Question) Kind() QuestionKind { return q.spec.Kind }

// Spec returns a copy of the declaration.
func (q *Question) Spec() QuestionSpec {
	s := q.spec
	s.Options = append([]string(nil), q.spec.Options...)
	return s
}

// Options lists the acceptable answers for column and combo questions. Column
// options are the parent's columns of the required mode.
func (q *Question) Options() []string {
	switch q.spec.Kind {
	case ColumnQuestion:
		return q.columnOptions()
	case ComboQuestion:
		return append([]string(nil), q.spec.Options...)
	}
	return nil
}

func (q *Question) columnOptions() []string {
	if q.op == nil || q.op.parent == nil {
		return nil
	}
	cols, err := q.op.parent.Columns()
	if err != nil {
		return nil
	}
	var out []string
	for _, c := range cols {
		if q.spec.ColumnMode == nil || c.Mode() == *q.spec.ColumnMode {
			out = append(out, c.Name())
		}
	}
	return out
}

// Answer returns the current answer or nil. Column answers that no longer
// name a suitable parent column are dropped. An unanswered question with a
// single possible answer is answered automatically.
func (q *Question) Answer() any {
	if q.op != nil && q.op.isLoading() {
		return q.answer
	}
	if q.spec.Kind == ColumnQuestion && q.answer != nil {
		if q.op == nil || q.op.parent == nil {
			return nil
		}
		if q.columnGone(q.answer.(string)) {
			q.setSilently(nil)
		}
	}
	if q.answer == nil {
		q.autoAnswer()
	}
	return q.answer
}

// Current returns the stored answer without validating or auto-answering it.
func (q *Question) Current() any { return q.answer }

// Answered reports whether Answer would return a value.
func (q *Question) Answered() bool { return q.Answer() != nil }

// Text returns the answer in the form used for persistence and display.
func (q *Question) Text() string {
	return formatAnswer(q.Answer())
}

// CurrentText is Current formatted as text, without resolving anything.
func (q *Question) CurrentText() string { return formatAnswer(q.answer) }

// SetAnswer validates v and stores it. A nil v clears the answer. Strings are
// converted to the question's kind.
func (q *Question) SetAnswer(v any) error {
	if v == nil {
		return q.Clear()
	}
	norm, err := q.convert(v)
	if err != nil {
		return err
	}
	if norm, err = q.validate(norm); err != nil {
		return err
	}
	if answersEqual(q.answer, norm) {
		return nil
	}
	q.change(norm)
	return nil
}

// Clear removes the answer. Fixed questions cannot be cleared.
func (q *Question) Clear() error {
	if q.spec.Kind == FixedQuestion {
		return structuralf(ErrInvalidAnswer, "question %q is fixed", q.spec.Name)
	}
	if q.answer == nil {
		return nil
	}
	q.change(nil)
	return nil
}

func (q *Question) change(v any) {
	if q.op == nil {
		q.answer = v
		return
	}
	q.op.changeBeginning(fmt.Sprintf("answer %q on %s", q.spec.Name, q.op.Type()))
	q.answer = v
	q.op.answerChanged()
}

func (q *Question) setSilently(v any) {
	q.answer = v
	if q.op != nil {
		q.op.checkDisplayName()
		q.op.markDirty("AnswerChanged")
	}
}

func (q *Question) autoAnswer() {
	var v any
	switch q.spec.Kind {
	case FixedQuestion:
		v = q.spec.Value
	case ColumnQuestion:
		if opts := q.columnOptions(); len(opts) == 1 {
			v = opts[0]
		}
	case ComboQuestion:
		if len(q.spec.Options) == 1 {
			v = q.spec.Options[0]
		}
	case NumericQuestion:
		if q.spec.Min != nil && q.spec.Max != nil && *q.spec.Min == *q.spec.Max {
			v = *q.spec.Min
		}
	}
	if v != nil {
		q.setSilently(v)
	}
}

// convert turns v into the Go type stored for the kind.
func (q *Question) convert(v any) (any, error) {
	switch q.spec.Kind {
	case NumericQuestion:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil, invalidAnswer(q, "%q is not a number", n)
			}
			return f, nil
		}
	case CheckboxQuestion:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			p, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, invalidAnswer(q, "%q is not true or false", b)
			}
			return p, nil
		}
	case FixedQuestion:
		return v, nil
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
	return nil, invalidAnswer(q, "unsupported answer type %T", v)
}

// validate checks v and returns it in canonical form. Column answers take
// the column's own spelling.
func (q *Question) validate(v any) (any, error) {
	switch q.spec.Kind {
	case FixedQuestion:
		if !answersEqual(v, q.spec.Value) {
			return nil, structuralf(ErrInvalidAnswer, "question %q is fixed", q.spec.Name)
		}
	case ColumnQuestion:
		if q.op == nil || q.op.parent == nil || q.op.isLoading() {
			return v, nil
		}
		col, err := q.checkColumn(v.(string))
		if err != nil {
			return nil, err
		}
		return col.Name(), nil
	case ComboQuestion:
		s := v.(string)
		for _, o := range q.spec.Options {
			if o == s {
				return v, nil
			}
		}
		return nil, invalidAnswer(q, "%q is not one of %s", s, strings.Join(q.spec.Options, ", "))
	case StringQuestion:
		if q.pattern != nil && !q.pattern.MatchString(v.(string)) {
			return nil, invalidAnswer(q, "%q does not match %s", v, q.spec.Pattern)
		}
	case NumericQuestion:
		f := v.(float64)
		if math.IsNaN(f) {
			return nil, invalidAnswer(q, "answer is not a number")
		}
		if q.spec.Min != nil && f < *q.spec.Min {
			return nil, invalidAnswer(q, "%v is below the minimum %v", f, *q.spec.Min)
		}
		if q.spec.Max != nil && f > *q.spec.Max {
			return nil, invalidAnswer(q, "%v is above the maximum %v", f, *q.spec.Max)
		}
	}
	return v, nil
}

func (q *Question) checkColumn(name string) (*data.Column, error) {
	col, err := q.op.parent.ColumnByName(name)
	if err != nil {
		if IsInfoRequired(err) {
			return nil, err
		}
		return nil, invalidAnswer(q, "no column %q on the parent", name)
	}
	if q.spec.ColumnMode != nil && col.Mode() != *q.spec.ColumnMode {
		return nil, invalidAnswer(q, "column %q is %s, want %s", name, col.Mode(), *q.spec.ColumnMode)
	}
	return col, nil
}

// columnGone reports whether name no longer names a suitable column. A
// parent that cannot currently list its columns keeps the answer.
func (q *Question) columnGone(name string) bool {
	col, err := q.op.parent.ColumnByName(name)
	if errors.Is(err, data.ErrNoColumn) {
		return true
	}
	if err != nil {
		return false
	}
	return q.spec.ColumnMode != nil && col.Mode() != *q.spec.ColumnMode
}

// restore sets an answer read from storage. Nothing is validated against the
// graph; answers that do not even parse are dropped.
func (q *Question) restore(text string) {
	if q.spec.Kind == FixedQuestion {
		return
	}
	if text == "" {
		q.answer = nil
		return
	}
	v, err := q.convert(text)
	if err != nil {
		q.answer = nil
		return
	}
	q.answer = v
}

func formatAnswer(v any) string {
	switch a := v.(type) {
	case nil:
		return ""
	case string:
		return a
	case float64:
		return data.FormatNumber(a)
	case bool:
		return strconv.FormatBool(a)
	default:
		return fmt.Sprint(a)
	}
}

func answersEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return formatAnswer(a) == formatAnswer(b)
}
