package tables

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/baligamelan/gamelan-midi/internal/model"
)

// FontEntry is one row of the font table: the unicode code point and
// what it means — either a sounding symbol (pitch/octave/stroke with its
// audible-duration and trailing-rest fractions) or a combining modifier.
type FontEntry struct {
	Char        rune
	IsModifier  bool
	Pitch       model.Pitch
	Octave      int
	Stroke      model.Stroke
	Duration    model.Fraction
	RestAfter   model.Fraction
	ModKind     model.ModifierKind
}

// FontTable indexes font entries by code point.
type FontTable struct {
	Version string
	Entries map[rune]FontEntry
}

func (t *FontTable) Lookup(r rune) (FontEntry, bool) {
	e, ok := t.Entries[r]
	return e, ok
}

// ReverseLookup finds a non-modifier symbol whose pitch/octave/stroke
// match exactly, used by the corrected-notation renderer (SPEC_FULL.md
// §4's save_corrected_to_file) to turn an autocorrected note back into a
// font character. Duration/rest_after are not matched: a kempyung
// autocorrection only ever changes pitch/octave, never timing, so the
// first symbol sharing the sounding identity is the right one to emit.
func (t *FontTable) ReverseLookup(pitch model.Pitch, octave int, stroke model.Stroke) (rune, bool) {
	for r, e := range t.Entries {
		if e.IsModifier {
			continue
		}
		if e.Pitch == pitch && e.Octave == octave && e.Stroke == stroke {
			return r, true
		}
	}
	return 0, false
}

// ParseFontTable builds a FontTable from TSV rows with columns:
// char, is_modifier, pitch, mod_kind, octave, stroke, duration_num,
// duration_den, rest_num, rest_den.
func ParseFontTable(version string, rows []Row) (*FontTable, error) {
	t := &FontTable{Version: version, Entries: make(map[rune]FontEntry, len(rows))}
	for i, row := range rows {
		r, err := parseCodePoint(row["char"])
		if err != nil {
			return nil, fmt.Errorf("font table row %d: %w", i+1, err)
		}
		e := FontEntry{
			Char:       r,
			IsModifier: row.Bool("is_modifier"),
		}
		if e.IsModifier {
			e.ModKind = model.ModifierKind(strings.ToUpper(row["mod_kind"]))
		} else {
			e.Pitch = model.Pitch(strings.ToUpper(row["pitch"]))
			e.Octave = row.IntDefault("octave", 0)
			if s := strings.ToUpper(row["stroke"]); s != "" {
				e.Stroke = model.Stroke(s)
			} else {
				e.Stroke = model.StrokeOpen
			}
			dn := row.IntDefault("duration_num", 1)
			dd := row.IntDefault("duration_den", 1)
			rn := row.IntDefault("rest_num", 0)
			rd := row.IntDefault("rest_den", 1)
			e.Duration = model.NewFraction(dn, dd)
			e.RestAfter = model.NewFraction(rn, rd)
		}
		t.Entries[r] = e
	}
	return t, nil
}

// parseCodePoint accepts either a single literal rune in the column, or
// a "U+XXXX" hex escape (notation fonts commonly live outside the BMP,
// past what a TSV editor can type directly).
func parseCodePoint(s string) (rune, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty char column")
	}
	if strings.HasPrefix(strings.ToUpper(s), "U+") {
		n, err := strconv.ParseInt(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid code point %q: %w", s, err)
		}
		return rune(n), nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("char column must be one rune or U+XXXX, got %q", s)
	}
	return runes[0], nil
}
