// Package complete implements stage 6 of the pipeline (spec.md §4.4):
// filling in positions a gongan never mentioned, rewriting beat_at_end
// gongans, and materializing the OCTAVATE, SUPPRESS, KEMPLI, AUTOKEMPYUNG
// and PART directives onto the score. WAIT and VALIDATION are left on the
// Gongan's Directives for stages 8 and 7 respectively to read directly.
package complete

import (
	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// Complete fills in every beat of every gongan with a measure for every
// position of the score's instrument group, then applies the
// gongan-scoped and score-scoped directives that depend on that full
// picture (spec.md §4.4).
func Complete(s *model.Score, instruments *tables.InstrumentsTable, col *perr.Collector) *model.Score {
	out := *s
	out.Gongans = make([]model.Gongan, len(s.Gongans))

	roster := instruments.Positions(s.InstrumentGroup)
	nominal := model.NewFraction(s.Settings.BaseNotesPerBeat, 1)
	if s.Settings.BaseNotesPerBeat == 0 {
		nominal = model.One
	}

	kempliOn := true
	octaveDelta := map[model.Position]int{}
	autokempyungRunning := map[model.Position]bool{}

	for gi, g := range s.Gongans {
		ng := cloneGongan(g)
		fillEmptyMeasures(&ng, roster, nominal)
		inheritAutokempyung(&ng, autokempyungRunning)

		for _, d := range g.Directives {
			switch d.Keyword {
			case "OCTAVATE":
				applyOctavate(&ng, d, octaveDelta, instruments, gi, col)
			case "SUPPRESS":
				applySuppress(&ng, d)
			case "KEMPLI":
				kempliOn = applyKempli(&ng, d, kempliOn)
			case "AUTOKEMPYUNG":
				applyAutokempyung(&ng, d, autokempyungRunning, roster)
			case "PART":
				applyPart(&ng, d)
			}
		}
		if ng.KempliBeats == nil {
			ng.KempliBeats = make(map[int]bool, len(ng.Beats))
			for bi := range ng.Beats {
				ng.KempliBeats[bi] = kempliOn
			}
		}

		out.Gongans[gi] = ng
	}

	applyBeatAtEnd(out.Gongans, nominal)
	applyPersistentOctavate(out.Gongans, octaveDelta, instruments, col)

	return &out
}

func cloneGongan(g model.Gongan) model.Gongan {
	ng := g
	ng.Beats = make([]model.Beat, len(g.Beats))
	for bi, beat := range g.Beats {
		nb := model.NewBeat()
		for pos, m := range beat.Measures {
			cp := *m
			nb.Measures[pos] = &cp
		}
		nb.Markers = append([]string(nil), beat.Markers...)
		ng.Beats[bi] = nb
	}
	return ng
}

// fillEmptyMeasures gives every roster position a rest-measure in every
// beat where it had no stave line at all (spec.md §4.4 "Empty measures").
func fillEmptyMeasures(g *model.Gongan, roster []model.Position, nominal model.Fraction) {
	for bi := range g.Beats {
		for _, pos := range roster {
			if _, ok := g.Beats[bi].Measures[pos]; ok {
				continue
			}
			g.Beats[bi].Measures[pos] = &model.Measure{
				Position: pos,
				Notes:    []model.Note{model.Rest(nominal)},
				Pass:     model.AllPasses,
			}
		}
	}
}

// applyOctavate shifts every note of the named instrument by the given
// signed octave delta within the current gongan's beats. SCORE scope
// additionally updates the running delta so later gongans' measures for
// that position are shifted too (applyPersistentOctavate does that second
// pass once the whole score's gongan slice exists).
func applyOctavate(g *model.Gongan, d model.Directive, running map[model.Position]int, instruments *tables.InstrumentsTable, gi int, col *perr.Collector) {
	pos := model.Position(d.String("instrument"))
	delta := d.Int("octaves", 0)
	scope := d.String("scope")

	shiftGonganPosition(g, pos, delta, instruments, gi, col)

	if scope == "SCORE" {
		running[pos] += delta
	}
}

// applyPersistentOctavate carries each SCORE-scoped OCTAVATE's delta
// forward onto every later gongan. A gongan's own OCTAVATE directives are
// applied directly by applyOctavate during the first pass in Complete;
// this second pass only applies the carry-in accumulated from EARLIER
// gongans, so a gongan that layers its own SCORE-scoped OCTAVATE on top
// of an inherited one ends up shifted by the sum of both instead of just
// its own delta.
func applyPersistentOctavate(gongans []model.Gongan, running map[model.Position]int, instruments *tables.InstrumentsTable, col *perr.Collector) {
	if len(running) == 0 {
		return
	}
	carry := map[model.Position]int{}
	for gi := range gongans {
		g := &gongans[gi]
		for pos, delta := range carry {
			if delta == 0 {
				continue
			}
			shiftGonganPosition(g, pos, delta, instruments, gi, col)
		}
		for _, d := range g.Directives {
			if d.Keyword != "OCTAVATE" || d.String("scope") != "SCORE" {
				continue
			}
			pos := model.Position(d.String("instrument"))
			carry[pos] += d.Int("octaves", 0)
		}
	}
}

func shiftGonganPosition(g *model.Gongan, pos model.Position, delta int, instruments *tables.InstrumentsTable, gi int, col *perr.Collector) {
	if delta == 0 {
		return
	}
	entry, ok := instruments.Lookup(pos)
	if !ok {
		return
	}
	for bi := range g.Beats {
		m, ok := g.Beats[bi].Measures[pos]
		if !ok {
			continue
		}
		cp := *m
		notes := make([]model.Note, len(cp.Notes))
		copy(notes, cp.Notes)
		for i, n := range notes {
			if n.IsRest() {
				continue
			}
			shifted := model.PitchOctave{Pitch: n.Pitch, Octave: n.Octave + delta}
			if !entry.InExtendedRange(shifted) {
				col.Add(perr.New(perr.OctavateOutOfRange, perr.Location{Gongan: gi + 1, Beat: bi + 1, Position: string(pos)},
					"octavate %+d moves %s octave %d out of range for %s", delta, n.Pitch, n.Octave, pos))
				continue
			}
			notes[i].Octave = shifted.Octave
		}
		cp.Notes = notes
		g.Beats[bi].Measures[pos] = &cp
	}
}

// applySuppress marks matching measures silent for the specified beats
// and passes (spec.md §4.4 "SUPPRESS (positions form)").
func applySuppress(g *model.Gongan, d model.Directive) {
	positions := d.StringList("positions")
	beats := beatSet(d.StringList("beats"), len(g.Beats))
	passes := d.StringList("passes")

	for bi := range g.Beats {
		if !beats[bi] {
			continue
		}
		for _, posStr := range positions {
			pos := model.Position(posStr)
			m, ok := g.Beats[bi].Measures[pos]
			if !ok {
				continue
			}
			if len(passes) > 0 && !passMatches(m.Pass, passes) {
				continue
			}
			cp := *m
			cp.Suppress = true
			g.Beats[bi].Measures[pos] = &cp
		}
	}
}

// applyKempli resolves the running kempli on/off default for this
// gongan's beats, returning the new running default for subsequent
// gongans (spec.md §4.4 "KEMPLI").
func applyKempli(g *model.Gongan, d model.Directive, running bool) bool {
	status := d.Bool("status")
	scope := d.String("scope")
	if scope == "" {
		scope = "GONGAN"
	}
	beats := beatSet(d.StringList("beats"), len(g.Beats))

	if g.KempliBeats == nil {
		g.KempliBeats = make(map[int]bool, len(g.Beats))
	}
	for bi := range g.Beats {
		if _, already := g.KempliBeats[bi]; !already {
			g.KempliBeats[bi] = running
		}
	}
	for bi := range g.Beats {
		if beats[bi] {
			g.KempliBeats[bi] = status
		}
	}

	if scope == "SCORE" {
		return status
	}
	return running
}

// inheritAutokempyung seeds a gongan's resolved autokempyung state from the
// running SCORE-scoped defaults carried forward from earlier gongans,
// before this gongan's own AUTOKEMPYUNG directives (if any) are applied
// on top (spec.md §6 "AUTOKEMPYUNG").
func inheritAutokempyung(g *model.Gongan, running map[model.Position]bool) {
	if len(running) == 0 {
		return
	}
	g.AutokempyungPositions = make(map[model.Position]bool, len(running))
	for pos, v := range running {
		g.AutokempyungPositions[pos] = v
	}
}

// applyAutokempyung toggles kempyung autocorrection for the named
// positions (or every position in the instrument group when positions is
// omitted), scoped to this gongan only or persisted as the new running
// default for every later gongan (spec.md §6 "AUTOKEMPYUNG"). Validation
// (stage 7) reads the resolved per-position state off
// Gongan.AutokempyungPositions, falling back to
// ScoreSettings.AutocorrectKempyung where a position was never touched.
func applyAutokempyung(g *model.Gongan, d model.Directive, running map[model.Position]bool, roster []model.Position) {
	status := d.Bool("status")
	scope := d.String("scope")
	if scope == "" {
		scope = "GONGAN"
	}

	targets := d.StringList("positions")
	if g.AutokempyungPositions == nil {
		g.AutokempyungPositions = make(map[model.Position]bool, len(roster))
	}
	if len(targets) == 0 {
		for _, pos := range roster {
			g.AutokempyungPositions[pos] = status
			if scope == "SCORE" {
				running[pos] = status
			}
		}
		return
	}
	for _, posStr := range targets {
		pos := model.Position(posStr)
		g.AutokempyungPositions[pos] = status
		if scope == "SCORE" {
			running[pos] = status
		}
	}
}

// applyPart attaches a marker name to the first beat of its gongan
// (spec.md §4.4 "PART").
func applyPart(g *model.Gongan, d model.Directive) {
	name := d.String("name")
	if name == "" || len(g.Beats) == 0 {
		return
	}
	g.Beats[0].Markers = append(g.Beats[0].Markers, name)
}

// beatSet expands a "beats=[...]" parameter (1-based beat numbers, or
// empty/"all" for every beat) into a 0-based membership set.
func beatSet(raw []string, count int) map[int]bool {
	set := make(map[int]bool, count)
	if len(raw) == 0 {
		for i := 0; i < count; i++ {
			set[i] = true
		}
		return set
	}
	for _, s := range raw {
		if s == "all" {
			for i := 0; i < count; i++ {
				set[i] = true
			}
			continue
		}
		n := atoiSafe(s)
		if n >= 1 && n <= count {
			set[n-1] = true
		}
	}
	return set
}

func atoiSafe(s string) int {
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}

// passMatches reports whether a measure's pass qualifier overlaps any of
// the requested pass numbers.
func passMatches(spec model.PassSpec, passes []string) bool {
	for _, p := range passes {
		n := atoiSafe(p)
		if n < 0 {
			continue
		}
		if spec.Matches(n) {
			return true
		}
	}
	return false
}

// applyBeatAtEnd rotates the measures of every gongan flagged
// beat_at_end one beat to the right, carrying the displaced final beat
// into the first beat of the next gongan so the gong lands on that
// gongan's downbeat instead of its own last beat (spec.md §4.4
// "Beat-at-end rewriting"). A carry with nowhere to go (the last gongan
// in the score is beat_at_end) is dropped: there is no following gongan
// to receive it.
func applyBeatAtEnd(gongans []model.Gongan, nominal model.Fraction) {
	var carry map[model.Position]*model.Measure

	for gi := range gongans {
		g := &gongans[gi]
		flagged := isBeatAtEnd(g.Directives)

		if !flagged {
			carry = nil
			continue
		}
		if len(g.Beats) == 0 {
			continue
		}

		last := g.Beats[len(g.Beats)-1].Measures
		newCarry := make(map[model.Position]*model.Measure, len(last))
		for pos, m := range last {
			cp := *m
			newCarry[pos] = &cp
		}

		for bi := len(g.Beats) - 1; bi > 0; bi-- {
			g.Beats[bi].Measures = g.Beats[bi-1].Measures
		}

		nb := model.NewBeat()
		if carry != nil {
			for pos, m := range carry {
				nb.Measures[pos] = m
			}
		} else {
			for pos := range g.Beats[0].Measures {
				nb.Measures[pos] = &model.Measure{Position: pos, Notes: []model.Note{model.Rest(nominal)}, Pass: model.AllPasses}
			}
		}
		g.Beats[0] = nb

		carry = newCarry
	}
}

func isBeatAtEnd(directives []model.Directive) bool {
	for _, d := range directives {
		if d.Keyword == "GONGAN" && d.Bool("beat_at_end") {
			return true
		}
	}
	return false
}
