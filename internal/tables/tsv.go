// Package tables loads the four reference lookup tables described in
// spec.md §3 (font, instruments, tag-to-positions, rules) plus the
// MIDI-notes table from spec.md §6: tab-separated text files with a
// header row of declared column names. No third-party TSV/table library
// appears anywhere in the retrieved corpus (see DESIGN.md), so this
// reader is built on stdlib encoding/csv with Comma set to tab.
package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Row is one data row keyed by the header's declared column names.
type Row map[string]string

// ReadTSV reads a tab-separated file with a header row and returns one
// Row per subsequent record. Blank lines are skipped. A record whose
// field count does not match the header is an error — tables are
// generated data, not hand-edited prose, so a short/long row signals a
// corrupt table rather than something to shrug off and continue past.
func ReadTSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table %s: %w", path, err)
	}
	defer f.Close()
	return ReadTSVReader(f, path)
}

// ReadTSVReader is the io.Reader-based core of ReadTSV, split out for tests.
func ReadTSVReader(r io.Reader, name string) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var header []string
	var rows []Row
	lineNum := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, lineNum+1, err)
		}
		lineNum++

		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		if header == nil {
			header = make([]string, len(record))
			for i, h := range record {
				header[i] = strings.TrimSpace(h)
			}
			continue
		}

		if len(record) != len(header) {
			return nil, fmt.Errorf("%s:%d: expected %d columns, got %d", name, lineNum, len(header), len(record))
		}

		row := make(Row, len(header))
		for i, col := range header {
			row[col] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r Row) Int(col string) (int, error) {
	v, ok := r[col]
	if !ok || v == "" {
		return 0, fmt.Errorf("missing column %q", col)
	}
	return strconv.Atoi(v)
}

func (r Row) IntDefault(col string, def int) int {
	v, ok := r[col]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (r Row) Bool(col string) bool {
	v := strings.ToLower(strings.TrimSpace(r[col]))
	return v == "1" || v == "true" || v == "yes"
}

// Fields splits a pipe-or-comma separated list column into trimmed parts.
func (r Row) Fields(col string) []string {
	raw := r[col]
	if raw == "" {
		return nil
	}
	sep := ","
	if strings.Contains(raw, "|") {
		sep = "|"
	}
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
