package score

import (
	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// Bind resolves every measure's stave tag to one or more concrete
// positions (spec.md §4.2) and, for a tag that names a shared-notation
// group rather than a single position, applies the group's ordered
// transform list to derive what each bound position actually plays.
//
// A tag that the tag-positions table does not know is an UnknownTag
// error. A position the instruments table does not know (reachable only
// through a malformed tables bundle, not user notation) is UnknownPosition.
func Bind(s *model.Score, tagPositions *tables.TagPositionsTable, instruments *tables.InstrumentsTable, rules *tables.RulesTable, col *perr.Collector) *model.Score {
	out := *s
	out.Gongans = make([]model.Gongan, len(s.Gongans))

	for gi, g := range s.Gongans {
		ng := g
		ng.Beats = make([]model.Beat, len(g.Beats))
		for bi, beat := range g.Beats {
			ng.Beats[bi] = bindBeat(beat, tagPositions, instruments, rules, gi, bi, col)
		}
		out.Gongans[gi] = ng
	}

	return &out
}

func bindBeat(beat model.Beat, tagPositions *tables.TagPositionsTable, instruments *tables.InstrumentsTable, rules *tables.RulesTable, gi, bi int, col *perr.Collector) model.Beat {
	nb := model.NewBeat()

	for tag, measure := range beat.Measures {
		positions, ok := tagPositions.Lookup(string(tag))
		if !ok {
			// The tag may already be a bare, valid position name (some
			// notation writes the position directly rather than through a
			// shared-notation group tag).
			if _, known := instruments.Lookup(tag); known {
				positions = []model.Position{tag}
			} else {
				col.Add(perr.New(perr.UnknownTag, perr.Location{Gongan: gi + 1, Beat: bi + 1}, "unknown stave tag %q", tag))
				continue
			}
		}

		for _, pos := range positions {
			entry, ok := instruments.Lookup(pos)
			if !ok {
				col.Add(perr.New(perr.UnknownPosition, perr.Location{Gongan: gi + 1, Beat: bi + 1, Position: string(pos)}, "position %q has no instruments-table entry", pos))
				continue
			}
			resolved := resolveForPosition(*measure, pos, entry, rules, gi, bi, col)
			nb.Measures[pos] = resolved
		}
	}

	return nb
}

// resolveForPosition reduces a measure written against a shared-notation
// tag down to the pitches the given position actually plays, walking the
// group's transform list in order and stopping at the first transform
// that produces an in-range pitch (spec.md §4.2).
func resolveForPosition(measure model.Measure, pos model.Position, entry tables.InstrumentEntry, rules *tables.RulesTable, gi, bi int, col *perr.Collector) *model.Measure {
	rule, hasRule := rules.Lookup(entry.Group)
	resolved := measure
	resolved.Position = pos
	if !hasRule {
		return &resolved
	}

	notes := make([]model.Note, len(measure.Notes))
	for i, n := range measure.Notes {
		rn, ok := resolveNote(n, entry, rule, gi, bi, pos, col)
		if !ok {
			resolved.Notes = []model.Note{model.Rest(measure.TotalDuration())}
			return &resolved
		}
		notes[i] = rn
	}
	resolved.Notes = notes
	return &resolved
}

func resolveNote(n model.Note, entry tables.InstrumentEntry, rule tables.RulesEntry, gi, bi int, pos model.Position, col *perr.Collector) (model.Note, bool) {
	if n.IsRest() {
		return n, true
	}
	po := n.PitchOctave()

	for _, t := range rule.Transforms {
		switch t {
		case tables.TransformSamePitch:
			if entry.InRange(po) {
				return n, true
			}
			if shifted, ok := octaveShifted(po, entry, entry.InRange); ok {
				out := n
				out.Octave = shifted.Octave
				return out, true
			}
		case tables.TransformSamePitchExtendedRange:
			if entry.InExtendedRange(po) {
				return n, true
			}
			if shifted, ok := octaveShifted(po, entry, entry.InExtendedRange); ok {
				out := n
				out.Octave = shifted.Octave
				return out, true
			}
		case tables.TransformKempyung:
			if kp, ok := rule.KempyungOf(po); ok && entry.InRange(kp) {
				out := n
				out.Pitch = kp.Pitch
				out.Octave = kp.Octave
				return out, true
			}
		}
	}

	col.Add(perr.New(perr.UnmappableSharedNotation, perr.Location{Gongan: gi + 1, Beat: bi + 1, Position: string(pos)}, "no transform maps %s octave %d onto position %s", n.Pitch, n.Octave, pos))
	return n, false
}

// octaveShifted tries po shifted up or down one octave against the given
// range predicate, the "(pitch, octave±1) lies in range" fallback
// spec.md §4.2's SAME_PITCH / SAME_PITCH_EXTENDED_RANGE transforms both
// specify before they fail.
func octaveShifted(po model.PitchOctave, entry tables.InstrumentEntry, inRange func(model.PitchOctave) bool) (model.PitchOctave, bool) {
	for _, delta := range [2]int{1, -1} {
		cand := model.PitchOctave{Pitch: po.Pitch, Octave: po.Octave + delta}
		if inRange(cand) {
			return cand, true
		}
	}
	return model.PitchOctave{}, false
}
