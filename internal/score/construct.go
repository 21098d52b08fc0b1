// Package score implements stage 3 (score construction) and stage 4
// (position binding and shared-notation resolution) of the pipeline.
// Construction turns a notation.RawNotation into a model.Score of typed
// Gongans/Beats/Measures; binding resolves each stave's tag to concrete
// positions and reduces shared-notation stand-ins to the pitches each
// bound position actually plays.
package score

import (
	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/notation"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// Construct builds a Score skeleton from parsed notation: one Gongan per
// notation.RawGongan, one Beat per beat-group column, directives
// materialized from raw key=value params, and labels indexed for later
// GOTO/SEQUENCE resolution. It does not yet know which concrete
// positions a tag maps to; that is stage 4's job (Bind).
func Construct(raw *notation.RawNotation, font *tables.FontTable, settings model.ScoreSettings, col *perr.Collector) *model.Score {
	s := &model.Score{
		Settings: settings,
		Labels:   make(map[string]model.Label),
	}

	for _, d := range unboundLabels(raw.Unbound) {
		if _, dup := s.Labels[d.name]; dup {
			col.Add(perr.New(perr.DuplicateLabel, perr.Location{Line: d.line}, "label %q already declared", d.name))
			continue
		}
		s.Labels[d.name] = model.Label{InUnbound: true}
	}

	for _, l := range raw.Unbound {
		if l.Kind != notation.RawLineMetadata {
			continue
		}
		for _, d := range l.Directives {
			if d.Keyword == "LABEL" {
				continue
			}
			s.UnboundDirectives = append(s.UnboundDirectives, materializeDirective(d))
		}
	}

	for gi, rg := range raw.Gongans {
		g := constructGongan(rg, font, col)
		s.Gongans = append(s.Gongans, g)

		for _, d := range g.Directives {
			if d.Keyword != "LABEL" {
				continue
			}
			name := d.String("name")
			if name == "" {
				continue
			}
			bi := d.Int("beat", 1) - 1
			if bi < 0 {
				bi = 0
			}
			if bi >= len(g.Beats) {
				bi = len(g.Beats) - 1
			}
			if _, dup := s.Labels[name]; dup {
				col.Add(perr.New(perr.DuplicateLabel, perr.Location{Gongan: gi + 1}, "label %q already declared", name))
				continue
			}
			s.Labels[name] = model.Label{GonganIndex: gi, BeatIndex: bi}
		}
	}

	return s
}

type unboundLabel struct {
	name string
	line int
}

// unboundLabels collects LABEL directives declared before the first
// gongan. A GOTO that targets one of these is a GotoTargetInUnbound
// error at resolution time (spec.md §4.6): there is no beat to jump to.
func unboundLabels(lines []notation.RawLine) []unboundLabel {
	var out []unboundLabel
	for _, l := range lines {
		if l.Kind != notation.RawLineMetadata {
			continue
		}
		for _, d := range l.Directives {
			if d.Keyword != "LABEL" {
				continue
			}
			name := d.Params["name"]
			if name == "" {
				continue
			}
			out = append(out, unboundLabel{name: name, line: l.Line})
		}
	}
	return out
}

// constructGongan materializes one gongan's directives and beats. A
// gongan's beat count is the width of its widest stave; a narrower stave
// has no measure entry in the beats it does not reach, and stage 6
// (completion) fills those in.
func constructGongan(rg notation.RawGongan, font *tables.FontTable, col *perr.Collector) model.Gongan {
	g := model.Gongan{SourceLine: rg.SourceLine, Type: model.GonganRegular}

	width := 0
	var staves []*notation.RawStave
	for _, l := range rg.Lines {
		switch l.Kind {
		case notation.RawLineMetadata:
			for _, d := range l.Directives {
				md := materializeDirective(d)
				g.Directives = append(g.Directives, md)
				if d.Keyword == "GONGAN" {
					if t, ok := d.Params["type"]; ok {
						g.Type = model.GonganType(t)
					}
				}
				if d.Keyword == "LABEL" && md.Int("beat", 1) == 1 {
					if n, ok := d.Params["name"]; ok {
						g.Label = n
					}
				}
			}
		case notation.RawLineStave:
			staves = append(staves, l.Stave)
			if len(l.Stave.BeatGroups) > width {
				width = len(l.Stave.BeatGroups)
			}
		}
	}

	g.Beats = make([]model.Beat, width)
	for i := range g.Beats {
		g.Beats[i] = model.NewBeat()
	}

	for _, stave := range staves {
		from, to, err := notation.ParsePassSpec(stave.PassRaw)
		if err != nil {
			col.Add(perr.New(perr.MalformedDirective, perr.Location{Line: stave.Line}, "%v", err))
			from, to = -1, -1
		}
		pass := model.PassSpec{From: from, To: to}

		for bi, group := range stave.BeatGroups {
			if bi >= len(g.Beats) {
				continue
			}
			measure := reduceBeatGroup(stave.Tag, pass, group, font, stave.Line, col)
			g.Beats[bi].Measures[model.Position(stave.Tag)] = measure
		}
	}

	return g
}

// materializeDirective copies a raw directive's params into the typed
// Directive shape, parsing list-valued parameters ("[a, b]") into slices.
func materializeDirective(d notation.RawDirective) model.Directive {
	params := make(map[string]any, len(d.Params))
	for k, v := range d.Params {
		if len(v) > 0 && v[0] == '[' {
			params[k] = notation.ParseListParam(v)
		} else {
			params[k] = v
		}
	}
	return model.Directive{Keyword: d.Keyword, Params: params, Line: d.Line}
}

// reduceBeatGroup turns decoded symbols into a Measure of Notes, before
// the tag has been bound to a concrete position (stage 4 does that, and
// may still rewrite Notes via shared-notation transforms).
func reduceBeatGroup(tag string, pass model.PassSpec, symbols []notation.RawSymbol, font *tables.FontTable, line int, col *perr.Collector) *model.Measure {
	m := &model.Measure{Position: model.Position(tag), Pass: pass}
	for _, sym := range symbols {
		entry, ok := font.Lookup(sym.Base)
		if !ok {
			continue // already reported as UnknownSymbolError in stage 2
		}
		if entry.IsModifier {
			continue // stray modifier with no base already reported in stage 2
		}
		note := model.Note{
			Pitch:     entry.Pitch,
			Octave:    entry.Octave,
			Stroke:    entry.Stroke,
			Duration:  entry.Duration,
			RestAfter: entry.RestAfter,
		}
		for _, mc := range sym.Modifiers {
			modEntry, ok := font.Lookup(mc)
			if !ok || !modEntry.IsModifier {
				continue
			}
			applyModifier(&note, modEntry.ModKind, mc)
		}
		m.Notes = append(m.Notes, note)
	}
	return m
}

func applyModifier(n *model.Note, kind model.ModifierKind, char rune) {
	n.Modifiers = append(n.Modifiers, model.Modifier{Kind: kind, Char: char})
	switch kind {
	case model.ModOctaveUp:
		n.Octave++
	case model.ModOctaveDown:
		n.Octave--
	case model.ModMute:
		n.Stroke = model.StrokeMuted
	case model.ModAbbreviate:
		n.Stroke = model.StrokeAbbreviated
	case model.ModHalfDuration:
		half := n.Duration.Mul(model.NewFraction(1, 2))
		n.RestAfter = n.RestAfter.Add(n.Duration.Sub(half))
		n.Duration = half
	}
}
