package exec

import (
	"testing"

	"github.com/baligamelan/gamelan-midi/internal/model"
)

func TestBuildTempoFnFlatAssignment(t *testing.T) {
	g := &model.Gongan{
		Beats: []model.Beat{{}, {}, {}},
		Directives: []model.Directive{
			{Keyword: "TEMPO", Params: map[string]any{"first_beat": "2", "value": "120"}},
		},
	}
	fn := buildTempoFn(g, 1, 60)
	if got := fn(1); got != 60 {
		t.Errorf("beat 1: expected baseline 60, got %d", got)
	}
	if got := fn(2); got != 120 {
		t.Errorf("beat 2: expected 120, got %d", got)
	}
	if got := fn(3); got != 120 {
		t.Errorf("beat 3: expected 120 to hold, got %d", got)
	}
}

func TestBuildTempoFnLinearRamp(t *testing.T) {
	g := &model.Gongan{
		Beats: []model.Beat{{}, {}, {}, {}},
		Directives: []model.Directive{
			{Keyword: "TEMPO", Params: map[string]any{"first_beat": "1", "beat_count": "4", "value": "100"}},
		},
	}
	fn := buildTempoFn(g, 1, 60)
	if got := fn(1); got != 60 {
		t.Errorf("beat 1: expected ramp start 60, got %d", got)
	}
	if got := fn(4); got != 100 {
		t.Errorf("beat 4: expected ramp end 100, got %d", got)
	}
	if got := fn(2); got <= 60 || got >= 100 {
		t.Errorf("beat 2: expected an intermediate value, got %d", got)
	}
}

func TestBuildTempoFnRespectsPass(t *testing.T) {
	g := &model.Gongan{
		Beats: []model.Beat{{}},
		Directives: []model.Directive{
			{Keyword: "TEMPO", Params: map[string]any{"passes": "2", "value": "200"}},
		},
	}
	if got := buildTempoFn(g, 1, 60)(1); got != 60 {
		t.Errorf("pass 1 should be unaffected, got %d", got)
	}
	if got := buildTempoFn(g, 2, 60)(1); got != 200 {
		t.Errorf("pass 2 should apply TEMPO, got %d", got)
	}
}

func TestBuildVelocityFnsResolvesDynamicsName(t *testing.T) {
	g := &model.Gongan{
		Beats: []model.Beat{{}, {}},
		Directives: []model.Directive{
			{Keyword: "DYNAMICS", Params: map[string]any{"value": "ff", "positions": "pokok"}},
		},
	}
	roster := []model.Position{"pokok"}
	baseline := map[model.Position]uint8{"pokok": 64}
	dynamicsMap := map[string]uint8{"ff": 112}

	curves := buildVelocityFns(g, 1, roster, baseline, dynamicsMap)
	got := evalVelocity(curves, roster, 1)
	if got["pokok"] != 112 {
		t.Errorf("expected velocity 112 for ff, got %d", got["pokok"])
	}
}

func TestBuildVelocityFnsIgnoresUnknownDynamicsName(t *testing.T) {
	g := &model.Gongan{
		Beats: []model.Beat{{}},
		Directives: []model.Directive{
			{Keyword: "DYNAMICS", Params: map[string]any{"value": "nonexistent"}},
		},
	}
	roster := []model.Position{"pokok"}
	baseline := map[model.Position]uint8{"pokok": 64}
	curves := buildVelocityFns(g, 1, roster, baseline, map[string]uint8{"ff": 112})
	got := evalVelocity(curves, roster, 1)
	if got["pokok"] != 64 {
		t.Errorf("expected baseline velocity to survive an unresolvable name, got %d", got["pokok"])
	}
}
