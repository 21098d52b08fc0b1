package elaborate

import (
	"testing"

	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

func scoreWithNote(n model.Note, settings model.ScoreSettings) *model.Score {
	b := model.NewBeat()
	b.Measures["pokok"] = &model.Measure{Position: "pokok", Notes: []model.Note{n}}
	return &model.Score{
		Settings: settings,
		Gongans:  []model.Gongan{{Type: model.GonganRegular, Beats: []model.Beat{b}}},
	}
}

func TestElaborateExpandsTremolo(t *testing.T) {
	n := model.Note{
		Pitch: model.PitchDing, Octave: 0, Stroke: model.StrokeOpen,
		Duration:  model.One,
		Modifiers: []model.Modifier{{Kind: model.ModTremolo}},
	}
	settings := model.ScoreSettings{NotesPerQuarterNote: 4, BaseNotesPerBeat: 1}
	s := scoreWithNote(n, settings)

	out := Elaborate(s, &tables.OrnamentTable{}, perr.NewCollector(false))
	notes := out.Gongans[0].Beats[0].Measures["pokok"].Notes
	if len(notes) != 4 {
		t.Fatalf("expected 4 tremolo repetitions, got %d", len(notes))
	}
	total := model.Zero
	for _, rn := range notes {
		total = total.Add(rn.Duration)
	}
	if !total.Equal(model.One) {
		t.Errorf("expected total duration to equal the original note, got %s", total)
	}
}

func TestElaborateExpandsAcceleratingTremolo(t *testing.T) {
	n := model.Note{
		Pitch: model.PitchDing, Octave: 0, Stroke: model.StrokeOpen,
		Duration:  model.One,
		Modifiers: []model.Modifier{{Kind: model.ModAcceleratingTremolo}},
	}
	settings := model.ScoreSettings{
		AcceleratingPattern:  []int{1, 1, 2, 2},
		AcceleratingVelocity: []uint8{40, 40, 80, 80},
	}
	s := scoreWithNote(n, settings)

	col := perr.NewCollector(false)
	out := Elaborate(s, &tables.OrnamentTable{}, col)
	if col.Failed() {
		t.Fatalf("unexpected errors: %v", col.Err())
	}
	notes := out.Gongans[0].Beats[0].Measures["pokok"].Notes
	if len(notes) != 4 {
		t.Fatalf("expected 4 accelerating steps, got %d", len(notes))
	}
	if notes[0].Velocity == nil || *notes[0].Velocity != 40 {
		t.Errorf("expected first step velocity 40, got %v", notes[0].Velocity)
	}
	if notes[3].Velocity == nil || *notes[3].Velocity != 80 {
		t.Errorf("expected last step velocity 80, got %v", notes[3].Velocity)
	}
}

func TestElaborateReportsMissingAcceleratingTables(t *testing.T) {
	n := model.Note{
		Pitch: model.PitchDing, Octave: 0, Stroke: model.StrokeOpen,
		Duration:  model.One,
		Modifiers: []model.Modifier{{Kind: model.ModAcceleratingTremolo}},
	}
	s := scoreWithNote(n, model.ScoreSettings{})

	col := perr.NewCollector(false)
	Elaborate(s, &tables.OrnamentTable{}, col)
	if !col.Failed() {
		t.Fatal("expected a MalformedDirective error when accelerating_pattern is empty")
	}
}

func TestElaborateExpandsOrnamentWithoutInflatingDuration(t *testing.T) {
	n := model.Note{
		Pitch: model.PitchDing, Octave: 0, Stroke: model.StrokeOpen,
		Duration:  model.NewFraction(3, 4),
		RestAfter: model.NewFraction(1, 4),
		Modifiers: []model.Modifier{{Kind: model.ModNorot}},
	}
	s := scoreWithNote(n, model.ScoreSettings{})
	ornaments, err := tables.ParseOrnamentTable([]tables.Row{
		{"mod_kind": "NOROT", "order": "0", "pitch_steps": "1", "duration_num": "1", "duration_den": "2"},
		{"mod_kind": "NOROT", "order": "1", "pitch_steps": "-1", "duration_num": "1", "duration_den": "2"},
	})
	if err != nil {
		t.Fatal(err)
	}

	out := Elaborate(s, ornaments, perr.NewCollector(false))
	notes := out.Gongans[0].Beats[0].Measures["pokok"].Notes
	if len(notes) != 2 {
		t.Fatalf("expected 2 expanded steps, got %d", len(notes))
	}
	total := model.Zero
	for _, rn := range notes {
		total = total.Add(rn.Duration).Add(rn.RestAfter)
	}
	if !total.Equal(model.One) {
		t.Errorf("expected expanded ornament to preserve the trigger note's total duration (1), got %s", total)
	}
}

func TestElaboratePadsShorthandPositions(t *testing.T) {
	n := model.Note{Pitch: model.PitchDing, Octave: 0, Stroke: model.StrokeOpen, Duration: model.NewFraction(1, 2), RestAfter: model.Zero}
	settings := model.ScoreSettings{
		BaseNotesPerBeat:   1,
		ShorthandPositions: map[model.Position]bool{"pokok": true},
	}
	s := scoreWithNote(n, settings)

	out := Elaborate(s, &tables.OrnamentTable{}, perr.NewCollector(false))
	total := out.Gongans[0].Beats[0].Measures["pokok"].TotalDuration()
	if !total.Equal(model.One) {
		t.Errorf("expected padded measure to reach the nominal beat length, got %s", total)
	}
}
