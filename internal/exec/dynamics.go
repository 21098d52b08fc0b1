package exec

import "github.com/baligamelan/gamelan-midi/internal/model"

// buildTempoFn returns a function mapping a 1-based beat index within
// this gongan-visit to its effective tempo, applying every TEMPO
// directive that matches pass in declaration order (spec.md §4.6
// "Tempo and dynamics propagation": "the most recently seen ... wins").
// baseline is the tempo in effect just before this visit began.
func buildTempoFn(g *model.Gongan, pass, baseline int) func(beat int) int {
	values := make([]int, len(g.Beats)+1) // 1-based; index 0 unused
	for i := range values {
		values[i] = baseline
	}

	for _, d := range g.Directives {
		if d.Keyword != "TEMPO" {
			continue
		}
		if !passListMatches(d.StringList("passes"), pass) {
			continue
		}
		applyCurve(values, d.Int("first_beat", 1), d.Int("beat_count", 0), d.Int("value", baseline))
	}

	return func(beat int) int {
		if beat < 1 {
			beat = 1
		}
		if beat >= len(values) {
			beat = len(values) - 1
		}
		return values[beat]
	}
}

// applyCurve mutates values (1-based) per spec.md §4.6: a flat
// assignment from firstBeat onward when beatCount is 0, or a linear
// ramp from the previous value at firstBeat to target across beatCount
// beats, holding the endpoints outside that span.
func applyCurve(values []int, firstBeat, beatCount, target int) {
	n := len(values) - 1
	if firstBeat < 1 {
		firstBeat = 1
	}
	if firstBeat > n {
		return
	}

	if beatCount <= 0 {
		for b := firstBeat; b <= n; b++ {
			values[b] = target
		}
		return
	}

	start := values[firstBeat]
	lastRampBeat := firstBeat + beatCount - 1
	for b := firstBeat; b <= n; b++ {
		switch {
		case b > lastRampBeat:
			values[b] = target
		case beatCount == 1:
			values[b] = target
		default:
			frac := float64(b-firstBeat) / float64(beatCount-1)
			values[b] = start + int(float64(target-start)*frac+0.5)
		}
	}
}

// velocityCurve is one position's per-beat effective velocity across a
// gongan visit, built the same way tempo's curve is.
type velocityCurve struct {
	values []uint8
}

// buildVelocityFns returns, for each roster position, the velocity
// curve produced by every DYNAMICS directive on g matching pass,
// defaulting to baseline[pos] where no directive touches that position.
// dynamicsMap resolves a directive's named level (pp..ff) to a MIDI
// velocity (spec.md §6, ScoreSettings.Dynamics).
func buildVelocityFns(g *model.Gongan, pass int, roster []model.Position, baseline map[model.Position]uint8, dynamicsMap map[string]uint8) map[model.Position]velocityCurve {
	n := len(g.Beats)
	curves := make(map[model.Position]velocityCurve, len(roster))
	for _, pos := range roster {
		values := make([]uint8, n+1)
		base := baseline[pos]
		for i := range values {
			values[i] = base
		}
		curves[pos] = velocityCurve{values: values}
	}

	for _, d := range g.Directives {
		if d.Keyword != "DYNAMICS" {
			continue
		}
		if !passListMatches(d.StringList("passes"), pass) {
			continue
		}
		target, ok := dynamicsMap[d.String("value")]
		if !ok {
			continue
		}
		positions := d.StringList("positions")
		if len(positions) == 0 {
			for _, pos := range roster {
				applyVelocityCurve(curves[pos].values, d.Int("first_beat", 1), d.Int("beat_count", 0), target)
			}
			continue
		}
		for _, ps := range positions {
			pos := model.Position(ps)
			curve, ok := curves[pos]
			if !ok {
				values := make([]uint8, n+1)
				curve = velocityCurve{values: values}
				curves[pos] = curve
			}
			applyVelocityCurve(curve.values, d.Int("first_beat", 1), d.Int("beat_count", 0), target)
		}
	}

	return curves
}

func applyVelocityCurve(values []uint8, firstBeat, beatCount int, target uint8) {
	n := len(values) - 1
	if firstBeat < 1 {
		firstBeat = 1
	}
	if firstBeat > n {
		return
	}
	if beatCount <= 0 {
		for b := firstBeat; b <= n; b++ {
			values[b] = target
		}
		return
	}
	start := int(values[firstBeat])
	lastRampBeat := firstBeat + beatCount - 1
	for b := firstBeat; b <= n; b++ {
		switch {
		case b > lastRampBeat:
			values[b] = target
		case beatCount == 1:
			values[b] = target
		default:
			frac := float64(b-firstBeat) / float64(beatCount-1)
			values[b] = uint8(float64(start) + float64(int(target)-start)*frac + 0.5)
		}
	}
}

// evalVelocity reads every curve at the given 1-based beat index.
func evalVelocity(curves map[model.Position]velocityCurve, roster []model.Position, beat int) map[model.Position]uint8 {
	out := make(map[model.Position]uint8, len(roster))
	for _, pos := range roster {
		c := curves[pos]
		if beat < 1 {
			beat = 1
		}
		idx := beat
		if idx >= len(c.values) {
			idx = len(c.values) - 1
		}
		if idx < 0 || len(c.values) == 0 {
			continue
		}
		out[pos] = c.values[idx]
	}
	return out
}
