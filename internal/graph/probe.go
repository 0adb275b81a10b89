package graph

import (
	"fmt"
	"math"
	"math/rand"
)

// FillSampleAnswers answers every unanswered question with a plausible
// value: the first option, the lower bound, true, or a short sample string.
func (o *Operation) FillSampleAnswers() error {
	for _, q := range o.Unanswered() {
		var v any
		switch q.Kind() {
		case ColumnQuestion, ComboQuestion:
			opts := q.Options()
			if len(opts) == 0 {
				return invalidAnswer(q, "no options available")
			}
			v = opts[0]
		case NumericQuestion:
			v = sampleNumber(q.spec.Min, q.spec.Max)
		case CheckboxQuestion:
			v = true
		case StringQuestion:
			v = "sample"
			if q.pattern != nil && !q.pattern.MatchString("sample") {
				return invalidAnswer(q, "no sample value matches %s", q.spec.Pattern)
			}
		default:
			continue
		}
		if err := q.SetAnswer(v); err != nil {
			return err
		}
	}
	return nil
}

func sampleNumber(min, max *float64) float64 {
	switch {
	case min != nil && !math.IsInf(*min, 0):
		return *min
	case max != nil && !math.IsInf(*max, 0):
		return math.Min(*max, 1)
	default:
		return 1
	}
}

// ProbeData builds a dataset of rows random values in two numeric columns
// and one string column.
func ProbeData(env *Env, rows int, seed int64) (*DataSet, error) {
	rng := rand.New(rand.NewSource(seed))
	ds := env.NewDataSet("probe")
	for i := 1; i <= 2; i++ {
		c, err := ds.AddColumn(fmt.Sprintf("Numeric %d", i))
		if err != nil {
			return nil, err
		}
		vals := make([]float64, rows)
		for r := range vals {
			vals[r] = math.Round(rng.Float64()*1000) / 10
		}
		c.AppendFloats(vals...)
	}
	c, err := ds.AddColumn("String 1")
	if err != nil {
		return nil, err
	}
	vals := make([]string, rows)
	for r := range vals {
		vals[r] = fmt.Sprintf("s%d", rng.Intn(10))
	}
	c.AppendTexts(vals...)
	return ds, nil
}

// Probe runs a fresh operation of type name against generated data with
// sample answers. It reports how the computation went; the error is only for
// failures to set the probe up.
func Probe(env *Env, name string, rows int, seed int64) (*Operation, CacheResult, error) {
	ds, err := ProbeData(env, rows, seed)
	if err != nil {
		return nil, CacheResult{}, err
	}
	op, err := env.NewOperation(name)
	if err != nil {
		return nil, CacheResult{}, err
	}
	if err := op.SetParent(ds, -1); err != nil {
		return nil, CacheResult{}, err
	}
	if err := op.FillSampleAnswers(); err != nil {
		return op, CacheResult{Status: NeedsInfo, Node: op, Questions: op.Unanswered()}, nil
	}
	return op, op.CheckCache(), nil
}
