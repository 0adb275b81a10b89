package compute

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberToken = regexp.MustCompile(`^(-?[0-9]+(\.[0-9]+)?(e[+-][0-9]+)?|-?Inf|NaN|NA)$`)
	quotedToken = regexp.MustCompile(`"((?:[^"\\\n]|\\.)*)"`)
	logicalWord = regexp.MustCompile(`^(TRUE|FALSE)$`)
)

// ParseFloats extracts every whitespace-delimited number from engine output.
// Index markers such as "[1]" are skipped. NA is returned as NaN.
func ParseFloats(out string) ([]float64, error) {
	var vals []float64
	for _, tok := range strings.Fields(out) {
		if !numberToken.MatchString(tok) {
			continue
		}
		vals = append(vals, parseNumber(tok))
	}
	if len(vals) == 0 {
		return nil, &ParseError{Want: "numeric values", Output: out}
	}
	return vals, nil
}

// ParseFloat is ParseFloats restricted to exactly one value.
func ParseFloat(out string) (float64, error) {
	vals, err := ParseFloats(out)
	if err != nil {
		return 0, &ParseError{Want: "a single numeric value", Output: out}
	}
	if len(vals) != 1 {
		return 0, &ParseError{Want: "a single numeric value", Output: out}
	}
	return vals[0], nil
}

func parseNumber(tok string) float64 {
	switch tok {
	case "NA", "NaN":
		return math.NaN()
	case "Inf":
		return math.Inf(1)
	case "-Inf":
		return math.Inf(-1)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseStrings extracts every double-quoted string from engine output,
// undoing the engine's backslash escapes.
func ParseStrings(out string) ([]string, error) {
	matches := quotedToken.FindAllStringSubmatch(out, -1)
	if len(matches) == 0 {
		return nil, &ParseError{Want: "string values", Output: out}
	}
	vals := make([]string, 0, len(matches))
	for _, m := range matches {
		vals = append(vals, unescape(m[1]))
	}
	return vals, nil
}

// ParseString is ParseStrings restricted to exactly one value.
func ParseString(out string) (string, error) {
	vals, err := ParseStrings(out)
	if err != nil || len(vals) != 1 {
		return "", &ParseError{Want: "a single string value", Output: out}
	}
	return vals[0], nil
}

// ParseBools extracts every TRUE/FALSE word from engine output.
func ParseBools(out string) ([]bool, error) {
	var vals []bool
	for _, tok := range strings.Fields(out) {
		if logicalWord.MatchString(tok) {
			vals = append(vals, tok == "TRUE")
		}
	}
	if len(vals) == 0 {
		return nil, &ParseError{Want: "logical values", Output: out}
	}
	return vals, nil
}

// ParseBool is ParseBools restricted to exactly one value.
func ParseBool(out string) (bool, error) {
	vals, err := ParseBools(out)
	if err != nil || len(vals) != 1 {
		return false, &ParseError{Want: "a single logical value", Output: out}
	}
	return vals[0], nil
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 == len(s) {
			sb.WriteByte(ch)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '0', '1', '2', '3':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i:i+3], 8, 8); err == nil {
					sb.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			sb.WriteByte(s[i])
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
