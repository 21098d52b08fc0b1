package tables

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/baligamelan/gamelan-midi/internal/model"
)

// InstrumentEntry is one (instrument-group, position) row: its instrument
// type, nominal pitch range, and an extended range used for fallbacks.
type InstrumentEntry struct {
	Group          string
	Position       model.Position
	InstrumentType string
	Range          []model.PitchOctave // ordered low to high
	ExtendedRange  []model.PitchOctave
}

func (e InstrumentEntry) InRange(po model.PitchOctave) bool {
	return contains(e.Range, po)
}

func (e InstrumentEntry) InExtendedRange(po model.PitchOctave) bool {
	return contains(e.ExtendedRange, po)
}

func contains(set []model.PitchOctave, po model.PitchOctave) bool {
	for _, x := range set {
		if x == po {
			return true
		}
	}
	return false
}

// InstrumentsTable indexes entries by position.
type InstrumentsTable struct {
	byPosition map[model.Position]InstrumentEntry
}

func (t *InstrumentsTable) Lookup(pos model.Position) (InstrumentEntry, bool) {
	e, ok := t.byPosition[pos]
	return e, ok
}

// Positions returns every position belonging to the given instrument
// group, used by score completion to fill in positions that had no
// stave line at all in a gongan (spec.md §4.4 "Empty measures").
func (t *InstrumentsTable) Positions(group string) []model.Position {
	var out []model.Position
	for pos, e := range t.byPosition {
		if e.Group == group {
			out = append(out, pos)
		}
	}
	return out
}

// AllPositions returns every position the table knows about, regardless
// of group, used by validation's kempyung-pair discovery.
func (t *InstrumentsTable) AllPositions() []model.Position {
	out := make([]model.Position, 0, len(t.byPosition))
	for pos := range t.byPosition {
		out = append(out, pos)
	}
	return out
}

// ParseInstrumentsTable builds an InstrumentsTable from TSV rows with
// columns: group, position, instrument_type, range (comma-separated
// PITCH:OCTAVE pairs low to high), extended_range.
func ParseInstrumentsTable(rows []Row) (*InstrumentsTable, error) {
	t := &InstrumentsTable{byPosition: make(map[model.Position]InstrumentEntry, len(rows))}
	for i, row := range rows {
		rng, err := parsePitchOctaveList(row["range"])
		if err != nil {
			return nil, fmt.Errorf("instruments table row %d range: %w", i+1, err)
		}
		ext, err := parsePitchOctaveList(row["extended_range"])
		if err != nil {
			return nil, fmt.Errorf("instruments table row %d extended_range: %w", i+1, err)
		}
		if len(ext) == 0 {
			ext = rng
		}
		entry := InstrumentEntry{
			Group:          row["group"],
			Position:       model.Position(row["position"]),
			InstrumentType: row["instrument_type"],
			Range:          rng,
			ExtendedRange:  ext,
		}
		t.byPosition[entry.Position] = entry
	}
	return t, nil
}

func parsePitchOctaveList(s string) ([]model.PitchOctave, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]model.PitchOctave, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		po, err := parsePitchOctave(p)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, nil
}

func parsePitchOctave(s string) (model.PitchOctave, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return model.PitchOctave{}, fmt.Errorf("expected PITCH:OCTAVE, got %q", s)
	}
	oct, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return model.PitchOctave{}, fmt.Errorf("invalid octave in %q: %w", s, err)
	}
	return model.PitchOctave{Pitch: model.Pitch(strings.ToUpper(strings.TrimSpace(parts[0]))), Octave: oct}, nil
}
