// Package validate implements stage 7 of the pipeline (spec.md §4.5):
// beat-length equality, stave length, instrument range, and kempyung
// correctness, each suppressible per-gongan or per-score via VALIDATION
// ignore=[...] directives.
package validate

import (
	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// Validate runs the four checks of spec.md §4.5 over a complete score.
// When autocorrectKempyung is set, a sangsih/polos mismatch is silently
// replaced by the rule-derived kempyung equivalent and reported as a
// warning rather than an error (§7 "Autocorrections ... produce
// warnings, not errors"). Validate returns the (possibly autocorrected)
// score; col carries every error and warning found.
func Validate(s *model.Score, instruments *tables.InstrumentsTable, rules *tables.RulesTable, col *perr.Collector) *model.Score {
	out := *s
	out.Gongans = make([]model.Gongan, len(s.Gongans))

	scoreIgnore := scoreWideIgnores(s)

	for gi, g := range s.Gongans {
		ng := g
		ignore := gonganIgnores(g, scoreIgnore)

		if g.Type == model.GonganRegular {
			checkStaveLength(g, ignore, gi, col)
			checkBeatLength(g, ignore, gi, col)
		}
		checkInstrumentRange(g, instruments, ignore, gi, col)
		ng.Beats = checkAndAutocorrectKempyung(g, rules, instruments, ignore, s.Settings.AutocorrectKempyung, gi, col)

		out.Gongans[gi] = ng
	}

	return &out
}

type ignoreSet map[model.ValidationCheck]bool

// scoreWideIgnores collects every VALIDATION directive with scope=SCORE
// across the whole score; these apply to every gongan from the point
// they are declared as well as before it, since a SCORE-scoped
// suppression is a property of the run, not of execution order (unlike
// KEMPLI's on/off state, which genuinely depends on where in the
// timeline a beat sits).
func scoreWideIgnores(s *model.Score) ignoreSet {
	ignore := make(ignoreSet)
	for _, g := range s.Gongans {
		for _, d := range g.Directives {
			if d.Keyword != "VALIDATION" {
				continue
			}
			if d.String("scope") != "SCORE" {
				continue
			}
			for _, c := range d.StringList("ignore") {
				ignore[model.ValidationCheck(c)] = true
			}
		}
	}
	return ignore
}

func gonganIgnores(g model.Gongan, scoreWide ignoreSet) ignoreSet {
	ignore := make(ignoreSet, len(scoreWide))
	for k := range scoreWide {
		ignore[k] = true
	}
	for _, d := range g.Directives {
		if d.Keyword != "VALIDATION" {
			continue
		}
		scope := d.String("scope")
		if scope != "" && scope != "GONGAN" {
			continue
		}
		for _, c := range d.StringList("ignore") {
			ignore[model.ValidationCheck(c)] = true
		}
	}
	return ignore
}

// checkStaveLength verifies every position has the same number of beats
// within a gongan. Since score construction already derives every
// gongan's width from its widest stave and completion fills every
// position into every beat, a real stave-length mismatch can only come
// from an empty gongan (no beats at all).
func checkStaveLength(g model.Gongan, ignore ignoreSet, gi int, col *perr.Collector) {
	if ignore[model.CheckStaveLength] {
		return
	}
	if len(g.Beats) == 0 {
		col.Add(perr.New(perr.StaveLengthMismatch, perr.Location{Gongan: gi + 1}, "gongan has no beats"))
	}
}

// checkBeatLength verifies I1: within a beat, every bound position's
// measure has the same total duration.
func checkBeatLength(g model.Gongan, ignore ignoreSet, gi int, col *perr.Collector) {
	if ignore[model.CheckBeatDuration] {
		return
	}
	for bi, beat := range g.Beats {
		if len(beat.Measures) == 0 {
			col.Add(perr.New(perr.BeatLengthMismatch, perr.Location{Gongan: gi + 1, Beat: bi + 1}, "beat has no measures"))
			continue
		}
		var expected model.Fraction
		var expectedPos model.Position
		first := true
		for pos, m := range beat.Measures {
			total := m.TotalDuration()
			if first {
				expected = total
				expectedPos = pos
				first = false
				continue
			}
			if !total.Equal(expected) {
				col.Add(perr.New(perr.BeatLengthMismatch, perr.Location{Gongan: gi + 1, Beat: bi + 1, Position: string(pos)},
					"duration %s != %s (position %s)", total, expected, expectedPos))
			}
		}
	}
}

// checkInstrumentRange verifies I2: every note lies in its position's
// extended range.
func checkInstrumentRange(g model.Gongan, instruments *tables.InstrumentsTable, ignore ignoreSet, gi int, col *perr.Collector) {
	if ignore[model.CheckInstrumentRange] {
		return
	}
	for bi, beat := range g.Beats {
		for pos, m := range beat.Measures {
			entry, ok := instruments.Lookup(pos)
			if !ok {
				continue
			}
			for _, n := range m.Notes {
				if n.IsRest() || n.Pitch == model.PitchExtension {
					continue
				}
				if !entry.InExtendedRange(n.PitchOctave()) {
					col.Add(perr.New(perr.NoteOutOfRange, perr.Location{Gongan: gi + 1, Beat: bi + 1, Position: string(pos)},
						"note %s octave %d out of extended range for %s", n.Pitch, n.Octave, pos))
				}
			}
		}
	}
}

// checkAndAutocorrectKempyung verifies that for every declared
// polos/sangsih pair, the sangsih measure's notes are the kempyung
// equivalent of the polos measure's notes at the same index. With
// autocorrection on, mismatches are silently replaced and reported as
// warnings; otherwise each mismatch is a KempyungMismatch error.
// Autocorrection is resolved per sangsih position from
// Gongan.AutokempyungPositions (set by an in-notation AUTOKEMPYUNG
// directive, spec.md §6), falling back to the score-wide
// defaultAutocorrect when that position was never toggled.
func checkAndAutocorrectKempyung(g model.Gongan, rules *tables.RulesTable, instruments *tables.InstrumentsTable, ignore ignoreSet, defaultAutocorrect bool, gi int, col *perr.Collector) []model.Beat {
	beats := g.Beats
	if ignore[model.CheckKempyung] {
		return beats
	}

	pairs := kempyungPairs(instruments)
	if len(pairs) == 0 {
		return beats
	}

	out := make([]model.Beat, len(beats))
	copy(out, beats)

	for bi, beat := range beats {
		nb := beat
		cloned := false
		for _, pair := range pairs {
			polos, okP := beat.Measures[pair.polos]
			sangsih, okS := beat.Measures[pair.sangsih]
			if !okP || !okS {
				continue
			}
			rule, ok := rules.Lookup(pair.group)
			if !ok {
				continue
			}
			autocorrect := defaultAutocorrect
			if v, ok := g.AutokempyungPositions[pair.sangsih]; ok {
				autocorrect = v
			}
			corrected, changed := reconcileKempyung(*polos, *sangsih, rule, pair, gi, bi, autocorrect, col)
			if changed {
				if !cloned {
					nb.Measures = cloneMeasureMap(beat.Measures)
					cloned = true
				}
				nb.Measures[pair.sangsih] = &corrected
			}
		}
		out[bi] = nb
	}
	return out
}

func cloneMeasureMap(m map[model.Position]*model.Measure) map[model.Position]*model.Measure {
	cp := make(map[model.Position]*model.Measure, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

type kempyungPair struct {
	group          string
	polos, sangsih model.Position
}

// kempyungPairs derives polos/sangsih pairs from the instruments table's
// naming convention: any two positions in the same group whose names
// share a prefix and differ by "_polos"/"_sangsih" suffixes.
func kempyungPairs(instruments *tables.InstrumentsTable) []kempyungPair {
	var pairs []kempyungPair
	seen := map[model.Position]bool{}
	for group, positions := range allGroups(instruments) {
		byBase := map[string]struct{ polos, sangsih model.Position }{}
		for _, pos := range positions {
			name := string(pos)
			switch {
			case hasSuffix(name, "_polos"):
				base := name[:len(name)-len("_polos")]
				e := byBase[base]
				e.polos = pos
				byBase[base] = e
			case hasSuffix(name, "_sangsih"):
				base := name[:len(name)-len("_sangsih")]
				e := byBase[base]
				e.sangsih = pos
				byBase[base] = e
			}
		}
		for _, e := range byBase {
			if e.polos == "" || e.sangsih == "" || seen[e.sangsih] {
				continue
			}
			seen[e.sangsih] = true
			pairs = append(pairs, kempyungPair{group: group, polos: e.polos, sangsih: e.sangsih})
		}
	}
	return pairs
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// allGroups enumerates every (group -> positions) the instruments table
// knows about, by looking up the group of every position that
// AllPositions lists.
func allGroups(instruments *tables.InstrumentsTable) map[string][]model.Position {
	groups := map[string][]model.Position{}
	for _, pos := range instruments.AllPositions() {
		entry, ok := instruments.Lookup(pos)
		if !ok {
			continue
		}
		groups[entry.Group] = append(groups[entry.Group], pos)
	}
	return groups
}

func reconcileKempyung(polos, sangsih model.Measure, rule tables.RulesEntry, pair kempyungPair, gi, bi int, autocorrect bool, col *perr.Collector) (model.Measure, bool) {
	n := len(polos.Notes)
	if len(sangsih.Notes) < n {
		n = len(sangsih.Notes)
	}
	corrected := sangsih
	notes := make([]model.Note, len(sangsih.Notes))
	copy(notes, sangsih.Notes)
	changed := false

	for i := 0; i < n; i++ {
		p := polos.Notes[i]
		s := sangsih.Notes[i]
		if p.IsRest() || s.IsRest() {
			continue
		}
		want, ok := rule.KempyungOf(p.PitchOctave())
		if !ok {
			continue
		}
		if s.Pitch == want.Pitch && s.Octave == want.Octave {
			continue
		}
		if autocorrect {
			notes[i].Pitch = want.Pitch
			notes[i].Octave = want.Octave
			changed = true
			col.Warn(perr.Warning{
				Location: perr.Location{Gongan: gi + 1, Beat: bi + 1, Position: string(pair.sangsih)},
				Message:  "kempyung autocorrected: " + string(s.Pitch) + " -> " + string(want.Pitch),
			})
		} else {
			col.Add(perr.New(perr.KempyungMismatch, perr.Location{Gongan: gi + 1, Beat: bi + 1, Position: string(pair.sangsih)},
				"sangsih %s octave %d is not the kempyung of polos %s octave %d (want %s octave %d)",
				s.Pitch, s.Octave, p.Pitch, p.Octave, want.Pitch, want.Octave))
		}
	}

	corrected.Notes = notes
	return corrected, changed
}
