// Package exec implements stage 8 of the pipeline (spec.md §4.6):
// walking the score in notational order, interpreting LABEL/GOTO/REPEAT/
// SEQUENCE, and propagating TEMPO/DYNAMICS curves across the resulting
// linear sequence of (gongan, beat, pass) steps.
package exec

import (
	"math"

	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/perr"
)

const maxSteps = 200_000 // defensive bound against a pathological non-terminating walk

// Linearize produces the Execution for a complete, validated score.
func Linearize(s *model.Score, col *perr.Collector) *model.Execution {
	order, ok := resolveOrder(s, col)
	if !ok {
		return &model.Execution{}
	}
	if len(order) == 0 {
		return &model.Execution{}
	}

	roster := positionRoster(s)
	defaultVelocity := s.Settings.Dynamics["mf"]
	if defaultVelocity == 0 {
		defaultVelocity = 64
	}
	velocity := make(map[model.Position]uint8, len(roster))
	for _, p := range roster {
		velocity[p] = defaultVelocity
	}
	tempo := 60

	exec := &model.Execution{Loops: s.Settings.Loops}
	passCount := map[[2]int]int{} // (gongan, beat) -> visits so far
	orderIdx := 0
	repeatCount := 0
	var lastTriple [3]int
	haveLast := false

	steps := 0
	for {
		if steps >= maxSteps {
			if !s.Settings.Loops {
				col.Add(perr.New(perr.DivergentFlow, perr.Location{}, "execution did not terminate within %d steps", maxSteps))
			}
			return exec
		}

		gi := order[orderIdx]
		g := &s.Gongans[gi]
		if len(g.Beats) == 0 {
			orderIdx = advance(order, orderIdx)
			if orderIdx < 0 {
				return exec
			}
			repeatCount = 0
			continue
		}

		pass := passCount[[2]int{gi, 0}] + 1
		tempoFn := buildTempoFn(g, pass, tempo)
		velocityFns := buildVelocityFns(g, pass, roster, velocity, s.Settings.Dynamics)

		jumpedOrderIdx := -1 // set by a firing GOTO; -1 means "no jump this visit"
		bi := 0
		for bi < len(g.Beats) {
			key := [2]int{gi, bi}
			passCount[key]++
			thisPass := passCount[key]

			triple := [3]int{gi, bi, thisPass}
			if !s.Settings.Loops && haveLast && triple == lastTriple {
				col.Add(perr.New(perr.DivergentFlow, perr.Location{Gongan: gi + 1, Beat: bi + 1}, "beat re-emitted with the same pass and no progress"))
				return exec
			}
			lastTriple = triple
			haveLast = true
			steps++

			step := model.Step{
				GonganIndex: gi,
				BeatIndex:   bi,
				Pass:        thisPass,
				TempoBPM:    tempoFn(bi + 1),
				Velocity:    evalVelocity(velocityFns, roster, bi+1),
				Markers:     append([]string(nil), g.Beats[bi].Markers...),
			}
			applyWait(g, thisPass, bi, len(g.Beats), &step, gi, col)
			exec.Steps = append(exec.Steps, step)

			tempo = step.TempoBPM
			for _, p := range roster {
				velocity[p] = step.Velocity[p]
			}

			if steps >= maxSteps {
				if !s.Settings.Loops {
					col.Add(perr.New(perr.DivergentFlow, perr.Location{Gongan: gi + 1, Beat: bi + 1}, "execution did not terminate within %d steps", maxSteps))
				}
				return exec
			}

			if target, jump := matchGoto(g, bi, thisPass, s.Labels, gi, col); jump {
				if target == nil {
					return exec // GotoTargetInUnbound/UndefinedLabelReference already recorded
				}
				jumpedOrderIdx = findOrderIdx(order, target.GonganIndex, orderIdx)
				break
			}

			if bi == len(g.Beats)-1 {
				if k, ok := repeatCountOf(g); ok {
					if k < 1 {
						col.Add(perr.New(perr.RepeatCountInvalid, perr.Location{Gongan: gi + 1}, "REPEAT count must be >= 1, got %d", k))
					} else {
						repeatCount++
						if repeatCount < k {
							bi = 0
							continue
						}
					}
				}
			}
			bi++
		}

		if jumpedOrderIdx >= 0 {
			orderIdx = jumpedOrderIdx
			repeatCount = 0
			continue
		}

		orderIdx = advance(order, orderIdx)
		repeatCount = 0
		if orderIdx < 0 {
			return exec
		}
	}
}

// resolveOrder determines the gongan visiting order: the default forward
// walk, or the ordering a SEQUENCE directive in the unbound block
// declares (spec.md §4.6).
func resolveOrder(s *model.Score, col *perr.Collector) ([]int, bool) {
	var seq *model.Directive
	for i := range s.UnboundDirectives {
		if s.UnboundDirectives[i].Keyword == "SEQUENCE" {
			seq = &s.UnboundDirectives[i]
		}
	}
	if seq == nil {
		order := make([]int, len(s.Gongans))
		for i := range order {
			order[i] = i
		}
		return order, true
	}

	var order []int
	for _, name := range seq.StringList("value") {
		label, ok := s.Labels[name]
		if !ok || label.InUnbound {
			col.Add(perr.New(perr.UndefinedLabelReference, perr.Location{}, "SEQUENCE references unknown label %q", name))
			continue
		}
		order = append(order, label.GonganIndex)
	}
	return order, true
}

func advance(order []int, idx int) int {
	if idx+1 >= len(order) {
		return -1
	}
	return idx + 1
}

func findOrderIdx(order []int, gonganIdx, from int) int {
	for i := from; i < len(order); i++ {
		if order[i] == gonganIdx {
			return i
		}
	}
	for i := 0; i < len(order); i++ {
		if order[i] == gonganIdx {
			return i
		}
	}
	return from
}

// matchGoto checks every GOTO directive on gongan g for one that fires
// at the beat just emitted and the pass just completed, per spec.md §4.6.
func matchGoto(g *model.Gongan, bi, pass int, labels map[string]model.Label, gi int, col *perr.Collector) (*model.Label, bool) {
	for _, d := range g.Directives {
		if d.Keyword != "GOTO" {
			continue
		}
		fromBeat := d.Int("from_beat", len(g.Beats))
		if fromBeat-1 != bi {
			continue
		}
		passes := d.StringList("passes")
		if !passListMatches(passes, pass) {
			continue
		}
		label, ok := labels[d.String("label")]
		if !ok {
			col.Add(perr.New(perr.UndefinedLabelReference, perr.Location{Gongan: gi + 1, Beat: bi + 1}, "GOTO references unknown label %q", d.String("label")))
			return nil, true
		}
		if label.InUnbound {
			col.Add(perr.New(perr.GotoTargetInUnbound, perr.Location{Gongan: gi + 1, Beat: bi + 1}, "GOTO target %q is declared in the unbound block", d.String("label")))
			return nil, true
		}
		l := label
		return &l, true
	}
	return nil, false
}

func passListMatches(passes []string, pass int) bool {
	if len(passes) == 0 {
		return true
	}
	for _, p := range passes {
		if atoi(p) == pass {
			return true
		}
	}
	return false
}

func repeatCountOf(g *model.Gongan) (int, bool) {
	for _, d := range g.Directives {
		if d.Keyword == "REPEAT" {
			return d.Int("count", 1), true
		}
	}
	return 0, false
}

func atoi(s string) int {
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

// applyWait folds a matching WAIT directive's silence onto the step
// emitted for the gongan's last beat, as SilenceAfterSeconds (spec.md §4.4 "WAIT").
// Per spec.md §9 open question (c), the after=false variant is documented
// but marked non-operational and must produce UnsupportedDirective.
func applyWait(g *model.Gongan, pass, bi, beatCount int, step *model.Step, gi int, col *perr.Collector) {
	for _, d := range g.Directives {
		if d.Keyword != "WAIT" {
			continue
		}
		passes := d.StringList("passes")
		if !passListMatches(passes, pass) {
			continue
		}
		after := true
		if _, ok := d.Params["after"]; ok {
			after = d.Bool("after")
		}
		if !after {
			if bi == 0 {
				col.Add(perr.New(perr.UnsupportedDirective, perr.Location{Gongan: gi + 1, Beat: bi + 1}, "WAIT after=false is not implemented"))
			}
			continue
		}
		seconds := d.Float("seconds", 0)
		seconds = math.Round(seconds/0.25) * 0.25
		if bi == beatCount-1 {
			step.SilenceAfterSeconds += seconds
		}
	}
}

func positionRoster(s *model.Score) []model.Position {
	seen := map[model.Position]bool{}
	var out []model.Position
	for _, g := range s.Gongans {
		for _, beat := range g.Beats {
			for pos := range beat.Measures {
				if !seen[pos] {
					seen[pos] = true
					out = append(out, pos)
				}
			}
		}
	}
	return out
}
