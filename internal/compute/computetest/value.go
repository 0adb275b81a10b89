package computetest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the type tag of a Value.
type Kind int

const (
	Null Kind = iota
	Numeric
	Character
	Logical
	Frame
)

// Value is a vector (or data frame) held by the fake engine.
type Value struct {
	Kind  Kind
	Nums  []float64
	Strs  []string
	Bools []bool

	// Frame columns, in order.
	Names []string
	Cols  []Value
}

// Num builds a numeric vector.
func Num(v ...float64) Value { return Value{Kind: Numeric, Nums: append([]float64{}, v...)} }

// Str builds a character vector.
func Str(v ...string) Value { return Value{Kind: Character, Strs: append([]string{}, v...)} }

// Bool builds a logical vector.
func Bool(v ...bool) Value { return Value{Kind: Logical, Bools: append([]bool{}, v...)} }

// Len returns the vector length, or the number of columns for a frame.
func (v Value) Len() int {
	switch v.Kind {
	case Numeric:
		return len(v.Nums)
	case Character:
		return len(v.Strs)
	case Logical:
		return len(v.Bools)
	case Frame:
		return len(v.Cols)
	default:
		return 0
	}
}

func (v Value) asNums() ([]float64, error) {
	switch v.Kind {
	case Numeric:
		return v.Nums, nil
	case Logical:
		out := make([]float64, len(v.Bools))
		for i, b := range v.Bools {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	case Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("non-numeric argument to mathematical function")
	}
}

func (v Value) asStrs() []string {
	switch v.Kind {
	case Character:
		return v.Strs
	case Numeric:
		out := make([]string, len(v.Nums))
		for i, f := range v.Nums {
			out[i] = formatNum(f)
		}
		return out
	case Logical:
		out := make([]string, len(v.Bools))
		for i, b := range v.Bools {
			out[i] = formatBool(b)
		}
		return out
	default:
		return nil
	}
}

func (v Value) asBool() (bool, error) {
	switch v.Kind {
	case Logical:
		if len(v.Bools) > 0 {
			return v.Bools[0], nil
		}
	case Numeric:
		if len(v.Nums) > 0 {
			return v.Nums[0] != 0, nil
		}
	case Character:
		if len(v.Strs) > 0 {
			switch v.Strs[0] {
			case "TRUE", "T", "true":
				return true, nil
			case "FALSE", "F", "false":
				return false, nil
			}
		}
	}
	return false, fmt.Errorf("argument is not interpretable as logical")
}

func formatNum(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'g', 7, 64)
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func quoteStr(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// print renders v the way the interpreter auto-prints it.
func (v Value) print() string {
	switch v.Kind {
	case Null:
		return "NULL\n"
	case Numeric:
		if len(v.Nums) == 0 {
			return "numeric(0)\n"
		}
		parts := make([]string, len(v.Nums))
		for i, f := range v.Nums {
			parts[i] = formatNum(f)
		}
		return "[1] " + strings.Join(parts, " ") + "\n"
	case Character:
		if len(v.Strs) == 0 {
			return "character(0)\n"
		}
		parts := make([]string, len(v.Strs))
		for i, s := range v.Strs {
			parts[i] = quoteStr(s)
		}
		return "[1] " + strings.Join(parts, " ") + "\n"
	case Logical:
		if len(v.Bools) == 0 {
			return "logical(0)\n"
		}
		parts := make([]string, len(v.Bools))
		for i, b := range v.Bools {
			parts[i] = formatBool(b)
		}
		return "[1] " + strings.Join(parts, " ") + "\n"
	case Frame:
		var sb strings.Builder
		sb.WriteString("  " + strings.Join(v.Names, " ") + "\n")
		rows := 0
		for _, c := range v.Cols {
			if c.Len() > rows {
				rows = c.Len()
			}
		}
		for r := 0; r < rows; r++ {
			cells := []string{strconv.Itoa(r + 1)}
			for _, c := range v.Cols {
				s := c.asStrs()
				if r < len(s) {
					cells = append(cells, s[r])
				} else {
					cells = append(cells, "NA")
				}
			}
			sb.WriteString(strings.Join(cells, " ") + "\n")
		}
		return sb.String()
	}
	return "\n"
}

// structure renders v the way str() does.
func (v Value) structure() string {
	body := func(tag string, parts []string) string {
		if len(parts) == 1 {
			return " " + tag + " " + parts[0] + "\n"
		}
		return fmt.Sprintf(" %s [1:%d] %s\n", tag, len(parts), strings.Join(parts, " "))
	}
	switch v.Kind {
	case Numeric:
		return body("num", v.asStrs())
	case Character:
		parts := make([]string, len(v.Strs))
		for i, s := range v.Strs {
			parts[i] = quoteStr(s)
		}
		return body("chr", parts)
	case Logical:
		return body("logi", v.asStrs())
	case Frame:
		rows := 0
		if len(v.Cols) > 0 {
			rows = v.Cols[0].Len()
		}
		return fmt.Sprintf("'data.frame':\t%d obs. of  %d variables:\n", rows, len(v.Cols))
	}
	return " NULL\n"
}
