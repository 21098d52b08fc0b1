package tables

import (
	"fmt"

	"github.com/baligamelan/gamelan-midi/internal/model"
)

// SharedTransform names one step of the shared-notation rules engine
// (spec.md §4.2): applied in order, first success wins.
type SharedTransform string

const (
	TransformSamePitch             SharedTransform = "SAME_PITCH"
	TransformSamePitchExtendedRange SharedTransform = "SAME_PITCH_EXTENDED_RANGE"
	TransformKempyung              SharedTransform = "KEMPYUNG"
)

// RulesEntry is one instrument-group's kempyung pairing and ordered
// shared-notation transform list.
type RulesEntry struct {
	Group      string
	Kempyung   map[model.PitchOctave]model.PitchOctave
	Transforms []SharedTransform
}

// RulesTable indexes rule entries by instrument group.
type RulesTable struct {
	byGroup map[string]RulesEntry
}

func (t *RulesTable) Lookup(group string) (RulesEntry, bool) {
	e, ok := t.byGroup[group]
	return e, ok
}

// ParseRulesTable builds a RulesTable from two row sets: kempyung rows
// (columns: group, from_pitch, from_octave, to_pitch, to_octave) and
// transform rows (columns: group, order, transform).
func ParseRulesTable(kempyungRows, transformRows []Row) (*RulesTable, error) {
	t := &RulesTable{byGroup: make(map[string]RulesEntry)}

	for i, row := range kempyungRows {
		group := row["group"]
		fromOct, err := row.Int("from_octave")
		if err != nil {
			return nil, fmt.Errorf("rules table kempyung row %d: %w", i+1, err)
		}
		toOct, err := row.Int("to_octave")
		if err != nil {
			return nil, fmt.Errorf("rules table kempyung row %d: %w", i+1, err)
		}
		from := model.PitchOctave{Pitch: model.Pitch(row["from_pitch"]), Octave: fromOct}
		to := model.PitchOctave{Pitch: model.Pitch(row["to_pitch"]), Octave: toOct}

		entry := t.byGroup[group]
		entry.Group = group
		if entry.Kempyung == nil {
			entry.Kempyung = make(map[model.PitchOctave]model.PitchOctave)
		}
		entry.Kempyung[from] = to
		t.byGroup[group] = entry
	}

	for _, row := range transformRows {
		group := row["group"]
		entry := t.byGroup[group]
		entry.Group = group
		entry.Transforms = append(entry.Transforms, SharedTransform(row["transform"]))
		t.byGroup[group] = entry
	}

	// Default transform order for any group that declared a kempyung map
	// but no explicit order: the canonical order from spec.md §4.2.
	for group, entry := range t.byGroup {
		if len(entry.Transforms) == 0 {
			entry.Transforms = []SharedTransform{
				TransformSamePitch,
				TransformSamePitchExtendedRange,
				TransformKempyung,
			}
			t.byGroup[group] = entry
		}
	}

	return t, nil
}

// KempyungOf returns the kempyung equivalent of po for the given group.
func (r RulesEntry) KempyungOf(po model.PitchOctave) (model.PitchOctave, bool) {
	to, ok := r.Kempyung[po]
	return to, ok
}
