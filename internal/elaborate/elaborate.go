// Package elaborate implements stage 5 of the pipeline (spec.md §4.3):
// tremolo, accelerating tremolo, norot-class ornaments, and shorthand
// rest/extension padding, all driven off a bound Score.
package elaborate

import (
	"fmt"

	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// Elaborate walks every measure of a bound score and expands pattern
// modifiers (tremolo, accelerating tremolo, ornament-table entries) into
// concrete note sequences, then pads shorthand positions' beats out to
// the nominal beat length. The result is a new Score; s is left intact.
func Elaborate(s *model.Score, ornaments *tables.OrnamentTable, col *perr.Collector) *model.Score {
	out := *s
	out.Gongans = make([]model.Gongan, len(s.Gongans))

	nominal := model.NewFraction(s.Settings.BaseNotesPerBeat, 1)
	if s.Settings.BaseNotesPerBeat == 0 {
		nominal = model.One
	}

	for gi, g := range s.Gongans {
		ng := g
		ng.Beats = make([]model.Beat, len(g.Beats))
		for bi, beat := range g.Beats {
			nb := model.NewBeat()
			for pos, measure := range beat.Measures {
				m := *measure
				m.Notes = elaborateNotes(measure.Notes, s.Settings, ornaments, gi, bi, pos, col)
				if s.Settings.ShorthandPositions[pos] {
					padShorthand(&m, nominal)
				}
				nb.Measures[pos] = &m
			}
			ng.Beats[bi] = nb
		}
		out.Gongans[gi] = ng
	}

	return &out
}

// elaborateNotes expands one measure's notes in place, handling
// multi-note patterns (the two-note accelerating tremolo form) via
// lookahead so the second note of a pair is not re-visited.
func elaborateNotes(notes []model.Note, settings model.ScoreSettings, ornaments *tables.OrnamentTable, gi, bi int, pos model.Position, col *perr.Collector) []model.Note {
	var out []model.Note
	for i := 0; i < len(notes); i++ {
		n := notes[i]
		switch {
		case n.HasModifier(model.ModTremolo):
			out = append(out, expandTremolo(n, settings)...)

		case n.HasModifier(model.ModAcceleratingTremolo):
			var next *model.Note
			if i+1 < len(notes) && notes[i+1].HasModifier(model.ModAcceleratingTremolo) {
				next = &notes[i+1]
			}
			expanded, err := expandAcceleratingTremolo(n, next, settings)
			if err != nil {
				col.Add(perr.New(perr.MalformedDirective, perr.Location{Gongan: gi + 1, Beat: bi + 1, Position: string(pos)}, "%v", err))
				out = append(out, n)
				continue
			}
			out = append(out, expanded...)
			if next != nil {
				i++
			}

		default:
			if entry, steps, ok := ornamentFor(n, ornaments); ok {
				out = append(out, expandOrnament(n, entry, steps)...)
			} else {
				out = append(out, n)
			}
		}
	}
	return out
}

// expandTremolo implements the fixed-frequency tremolo contract: evenly
// spaced repetitions of the base pitch summing to the note's duration,
// count given by notes_per_quarternote * base_notes_per_beat * duration
// (spec.md §4.3 "Tremolo (fixed frequency)").
func expandTremolo(n model.Note, settings model.ScoreSettings) []model.Note {
	density := settings.NotesPerQuarterNote * settings.BaseNotesPerBeat
	if density <= 0 {
		density = 1
	}
	repsFrac := n.Duration.MulInt(density)
	reps := repsFrac.Num / repsFrac.Den
	if repsFrac.Num%repsFrac.Den != 0 {
		reps++
	}
	if reps < 1 {
		reps = 1
	}

	each := n.Duration.Mul(model.NewFraction(1, reps))
	notes := make([]model.Note, reps)
	for i := range notes {
		notes[i] = n
		notes[i].Duration = each
		notes[i].RestAfter = model.Zero
		notes[i].Modifiers = nil
		notes[i].Velocity = nil
	}
	notes[reps-1].RestAfter = n.RestAfter
	return notes
}

// expandAcceleratingTremolo consumes the tremolo tables: one base note
// alternates with itself (or, for a consecutive pair, with the second
// note) across every entry of accelerating_pattern, each entry's share of
// the total expansion duration proportional to its weight, carrying its
// own velocity from accelerating_velocity (spec.md §4.3).
func expandAcceleratingTremolo(n1 model.Note, n2 *model.Note, settings model.ScoreSettings) ([]model.Note, error) {
	pattern := settings.AcceleratingPattern
	vel := settings.AcceleratingVelocity
	if len(pattern) == 0 {
		return nil, fmt.Errorf("accelerating tremolo modifier present but accelerating_pattern table is empty")
	}
	if len(pattern) != len(vel) {
		return nil, fmt.Errorf("accelerating_pattern and accelerating_velocity tables must be equal length (%d vs %d)", len(pattern), len(vel))
	}
	if len(pattern)%2 != 0 {
		return nil, fmt.Errorf("accelerating_pattern must have even length, got %d", len(pattern))
	}

	sum := 0
	for _, p := range pattern {
		sum += p
	}
	if sum == 0 {
		return nil, fmt.Errorf("accelerating_pattern sums to zero")
	}

	total := n1.Duration
	if n2 != nil {
		total = total.Add(n2.Duration)
	}

	notes := make([]model.Note, len(pattern))
	for i, weight := range pattern {
		base := n1
		if n2 != nil && i%2 == 1 {
			base = *n2
		}
		base.Duration = total.Mul(model.NewFraction(weight, sum))
		base.RestAfter = model.Zero
		base.Modifiers = nil
		v := vel[i]
		base.Velocity = &v
		notes[i] = base
	}

	if n2 != nil {
		notes[len(notes)-1].RestAfter = n2.RestAfter
	} else {
		notes[len(notes)-1].RestAfter = n1.RestAfter
	}
	return notes, nil
}

// ornamentFor finds the ornament-table entry triggered by any modifier n
// carries, returning the entry and the degree offset already folded into
// the triggering note's own first step (steps is kept for symmetry with
// expandOrnament's signature; currently always 0 since the table encodes
// every step's own offset).
func ornamentFor(n model.Note, ornaments *tables.OrnamentTable) (tables.OrnamentEntry, int, bool) {
	if ornaments == nil {
		return tables.OrnamentEntry{}, 0, false
	}
	for _, m := range n.Modifiers {
		if entry, ok := ornaments.Lookup(m.Kind); ok {
			return entry, 0, true
		}
	}
	return tables.OrnamentEntry{}, 0, false
}

// expandOrnament realizes a data-driven ornament rule (spec.md §4.3
// "Norot and similar ornaments"): each table step contributes one note at
// a scale-degree offset from the trigger, spanning its declared fraction
// of the trigger's Duration; the trigger's RestAfter is moved onto the
// last step.
func expandOrnament(n model.Note, entry tables.OrnamentEntry, _ int) []model.Note {
	if len(entry.Steps) == 0 {
		return []model.Note{n}
	}
	po := n.PitchOctave()
	notes := make([]model.Note, len(entry.Steps))
	for i, step := range entry.Steps {
		stepped := model.StepPitch(po, step.PitchSteps)
		notes[i] = model.Note{
			Pitch:     stepped.Pitch,
			Octave:    stepped.Octave,
			Stroke:    n.Stroke,
			Duration:  step.Duration.Mul(n.Duration),
			RestAfter: model.Zero,
		}
	}
	notes[len(notes)-1].RestAfter = n.RestAfter
	return notes
}

// padShorthand pads a measure to the nominal beat length by appending a
// rest (if the last audible note had no natural sustain, i.e. its
// font-declared RestAfter was zero) or an extension of the last note
// otherwise (spec.md §4.3 "Shorthand expansion").
func padShorthand(m *model.Measure, nominal model.Fraction) {
	total := m.TotalDuration()
	if !total.Less(nominal) {
		return
	}
	remainder := nominal.Sub(total)

	if len(m.Notes) == 0 {
		m.Notes = append(m.Notes, model.Rest(remainder))
		return
	}
	last := &m.Notes[len(m.Notes)-1]
	if last.IsRest() {
		last.RestAfter = last.RestAfter.Add(remainder)
		return
	}
	if last.RestAfter.IsZero() {
		m.Notes = append(m.Notes, model.Rest(remainder))
		return
	}
	m.Notes = append(m.Notes, model.Note{Pitch: model.PitchExtension, Duration: remainder, RestAfter: model.Zero})
}
