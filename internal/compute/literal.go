package compute

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SetVariable assigns value to the engine variable name. Supported values are
// numbers, strings, booleans and slices of those.
func (c *Channel) SetVariable(name string, value any) error {
	lit, err := Literal(value)
	if err != nil {
		return fmt.Errorf("setting %q: %w", name, err)
	}
	_, err = c.Execute(name + " = " + lit)
	return err
}

// Literal renders value in the engine's literal syntax.
func Literal(value any) (string, error) {
	switch v := value.(type) {
	case float64:
		return formatNumber(v), nil
	case float32:
		return formatNumber(float64(v)), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case string:
		return quote(v), nil
	case bool:
		return formatBool(v), nil
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = formatNumber(f)
		}
		return vector(parts), nil
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return vector(parts), nil
	case []string:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = quote(s)
		}
		return vector(parts), nil
	case []bool:
		parts := make([]string, len(v))
		for i, b := range v {
			parts[i] = formatBool(b)
		}
		return vector(parts), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

func vector(parts []string) string {
	return "c(" + strings.Join(parts, ", ") + ")"
}

func formatNumber(f float64) string {
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

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// quote renders s as a double-quoted engine string. Newlines and semicolons
// are escaped so the literal never breaks the single-statement rule.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case ';':
			sb.WriteString(`\073`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
