package data

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mode is the value type every element of a column shares.
type Mode int

const (
	Numeric Mode = iota
	String
)

func (m Mode) String() string {
	switch m {
	case Numeric:
		return "numeric"
	case String:
		return "string"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names produced by String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "numeric", "num":
		return Numeric, nil
	case "string", "chr", "character":
		return String, nil
	default:
		return Numeric, fmt.Errorf("unknown column mode %q", s)
	}
}

// ParseNumber parses one numeric cell. Engine spellings of the special values
// (NA, NaN, Inf, -Inf) are accepted.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "NA", "NaN":
		return math.NaN(), nil
	case "Inf":
		return math.Inf(1), nil
	case "-Inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatNumber renders f the way columns print numbers.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// cast converts v to the Go type that represents mode: float64 for Numeric,
// string for String.
func cast(v any, mode Mode) (any, error) {
	if mode == String {
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return FormatNumber(x), nil
		case float32:
			return FormatNumber(float64(x)), nil
		case int:
			return strconv.Itoa(x), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case bool:
			return strconv.FormatBool(x), nil
		}
		return fmt.Sprint(v), nil
	}

	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := ParseNumber(x)
		if err != nil {
			return nil, modef("%q is not numeric", x)
		}
		return f, nil
	}
	return nil, modef("%T is not numeric", v)
}
