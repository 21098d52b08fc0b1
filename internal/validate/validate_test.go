package validate

import (
	"testing"

	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

func testInstruments() *tables.InstrumentsTable {
	rows := []tables.Row{
		{"group": "gong_kebyar", "position": "pemade_polos", "instrument_type": "pemade", "range": "DING:0,DONG:0", "extended_range": ""},
		{"group": "gong_kebyar", "position": "pemade_sangsih", "instrument_type": "pemade", "range": "DING:0,DONG:0", "extended_range": ""},
	}
	tbl, err := tables.ParseInstrumentsTable(rows)
	if err != nil {
		panic(err)
	}
	return tbl
}

func testRules() *tables.RulesTable {
	kempyung := []tables.Row{
		{"group": "gong_kebyar", "from_pitch": "DING", "from_octave": "0", "to_pitch": "DONG", "to_octave": "0"},
	}
	tbl, err := tables.ParseRulesTable(kempyung, nil)
	if err != nil {
		panic(err)
	}
	return tbl
}

func noteMeasure(pos model.Position, pitch model.Pitch) *model.Measure {
	return &model.Measure{
		Position: pos,
		Notes: []model.Note{
			{Pitch: pitch, Octave: 0, Stroke: model.StrokeOpen, Duration: model.One, RestAfter: model.Zero},
		},
	}
}

func oneBeatGongan(measures map[model.Position]*model.Measure) model.Score {
	beat := model.NewBeat()
	beat.Measures = measures
	return model.Score{
		InstrumentGroup: "gong_kebyar",
		Gongans: []model.Gongan{
			{Type: model.GonganRegular, Beats: []model.Beat{beat}},
		},
	}
}

func TestValidateFlagsOutOfRangeNote(t *testing.T) {
	s := oneBeatGongan(map[model.Position]*model.Measure{
		"pemade_polos":   noteMeasure("pemade_polos", model.PitchDing),
		"pemade_sangsih": noteMeasure("pemade_sangsih", model.PitchDong),
	})
	// widen the sangsih measure with an out-of-range note
	s.Gongans[0].Beats[0].Measures["pemade_sangsih"].Notes[0].Octave = 5

	col := perr.NewCollector(false)
	Validate(&s, testInstruments(), testRules(), col)

	found := false
	for _, e := range col.Errors {
		if e.Kind == perr.NoteOutOfRange {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a NoteOutOfRange error, got %v", col.Errors)
	}
}

func TestValidateAutocorrectsKempyungMismatch(t *testing.T) {
	s := oneBeatGongan(map[model.Position]*model.Measure{
		"pemade_polos":   noteMeasure("pemade_polos", model.PitchDing),
		"pemade_sangsih": noteMeasure("pemade_sangsih", model.PitchDing), // should be DONG
	})
	s.Settings.AutocorrectKempyung = true

	col := perr.NewCollector(false)
	out := Validate(&s, testInstruments(), testRules(), col)

	if col.Failed() {
		t.Fatalf("autocorrection should not fail validation: %v", col.Err())
	}
	if len(col.Warnings) == 0 {
		t.Error("expected an autocorrection warning")
	}
	corrected := out.Gongans[0].Beats[0].Measures["pemade_sangsih"].Notes[0]
	if corrected.Pitch != model.PitchDong {
		t.Errorf("expected sangsih corrected to DONG, got %s", corrected.Pitch)
	}
}

func TestValidateHonorsPerGonganAutokempyungOverride(t *testing.T) {
	s := oneBeatGongan(map[model.Position]*model.Measure{
		"pemade_polos":   noteMeasure("pemade_polos", model.PitchDing),
		"pemade_sangsih": noteMeasure("pemade_sangsih", model.PitchDing), // should be DONG
	})
	// Score-wide default is off, but this gongan's AUTOKEMPYUNG directive
	// (materialized by score completion onto AutokempyungPositions) turns
	// it on for pemade_sangsih specifically.
	s.Settings.AutocorrectKempyung = false
	s.Gongans[0].AutokempyungPositions = map[model.Position]bool{"pemade_sangsih": true}

	col := perr.NewCollector(false)
	out := Validate(&s, testInstruments(), testRules(), col)

	if col.Failed() {
		t.Fatalf("autocorrection should not fail validation: %v", col.Err())
	}
	corrected := out.Gongans[0].Beats[0].Measures["pemade_sangsih"].Notes[0]
	if corrected.Pitch != model.PitchDong {
		t.Errorf("expected sangsih corrected to DONG via per-gongan override, got %s", corrected.Pitch)
	}
}

func TestValidateRejectsKempyungMismatchWithoutAutocorrect(t *testing.T) {
	s := oneBeatGongan(map[model.Position]*model.Measure{
		"pemade_polos":   noteMeasure("pemade_polos", model.PitchDing),
		"pemade_sangsih": noteMeasure("pemade_sangsih", model.PitchDing),
	})

	col := perr.NewCollector(false)
	Validate(&s, testInstruments(), testRules(), col)

	if !col.Failed() {
		t.Fatal("expected a KempyungMismatch error")
	}
}
