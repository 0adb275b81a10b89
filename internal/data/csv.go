package data

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var cellSeparator = regexp.MustCompile(`,|;`)

// ReadCSV parses comma or semicolon separated text into a new set.
//
// The first line is a header unless its first cell parses as a number, in
// which case columns are named "Column 1", "Column 2" and so on and the first
// line is data. Surrounding quotes are trimmed, empty cells are skipped and
// each column's mode is autodetected.
func ReadCSV(r io.Reader) (*Set, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var lines [][]string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, splitCells(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(lines) == 0 {
		return nil, malformedf("file is empty")
	}

	set := NewSet()
	first := lines[0]
	rows := lines
	if _, err := ParseNumber(first[0]); err != nil {
		for _, name := range first {
			if _, err := set.Add(name); err != nil {
				return nil, err
			}
		}
		rows = lines[1:]
	} else {
		for i := range first {
			if _, err := set.Add(fmt.Sprintf("Column %d", i+1)); err != nil {
				return nil, err
			}
		}
	}

	for n, row := range rows {
		if len(row) > set.Len() {
			return nil, malformedf("line %d has %d cells, expected at most %d", n+1, len(row), set.Len())
		}
		for i, cell := range row {
			if cell == "" {
				continue
			}
			set.cols[i].values = append(set.cols[i].values, cell)
		}
	}
	for _, c := range set.cols {
		// Raw cells are strings until the mode is decided.
		c.mode = String
		c.AutodetectMode()
	}
	return set, nil
}

func splitCells(line string) []string {
	raw := cellSeparator.Split(line, -1)
	out := make([]string, len(raw))
	for i, cell := range raw {
		out[i] = trimCell(cell)
	}
	return out
}

func trimCell(cell string) string {
	c := strings.TrimSpace(cell)
	if len(c) >= 2 && (c[0] == '"' || c[0] == '\'') && c[len(c)-1] == c[0] {
		c = c[1 : len(c)-1]
	}
	return strings.TrimSpace(c)
}

// WriteCSV writes a header line of names followed by one line per row. Short
// columns leave their trailing cells empty.
func WriteCSV(w io.Writer, s *Set) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Names()); err != nil {
		return err
	}
	rows := s.Longest()
	for r := 0; r < rows; r++ {
		rec := make([]string, s.Len())
		for i, c := range s.cols {
			if r < c.Len() {
				rec[i] = c.Text(r)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
