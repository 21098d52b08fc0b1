package score

import (
	"testing"

	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/notation"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

func testFont() *tables.FontTable {
	rows := []tables.Row{
		{"char": "i", "is_modifier": "false", "pitch": "DING", "mod_kind": "", "octave": "0", "stroke": "OPEN", "duration_num": "1", "duration_den": "1", "rest_num": "0", "rest_den": "1"},
		{"char": "o", "is_modifier": "false", "pitch": "DONG", "mod_kind": "", "octave": "0", "stroke": "OPEN", "duration_num": "1", "duration_den": "1", "rest_num": "0", "rest_den": "1"},
		{"char": "'", "is_modifier": "true", "pitch": "", "mod_kind": "MUTE", "octave": "0", "stroke": "OPEN", "duration_num": "0", "duration_den": "1", "rest_num": "0", "rest_den": "1"},
	}
	ft, err := tables.ParseFontTable("test", rows)
	if err != nil {
		panic(err)
	}
	return ft
}

func testSettings() model.ScoreSettings {
	return model.ScoreSettings{PPQ: 480, BaseNoteTicks: 24, NotesPerQuarterNote: 4}
}

const twoBeatGongan = "pokok\tio\tio\n"

func TestConstructBuildsBeatsFromWidestStave(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	raw := notation.Parse("test.not", twoBeatGongan, font, col)
	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}

	s := Construct(raw, font, testSettings(), col)
	if col.Failed() {
		t.Fatalf("unexpected construct errors: %v", col.Err())
	}
	if len(s.Gongans) != 1 {
		t.Fatalf("expected 1 gongan, got %d", len(s.Gongans))
	}
	if s.Gongans[0].BeatCount() != 2 {
		t.Fatalf("expected 2 beats, got %d", s.Gongans[0].BeatCount())
	}
	measure := s.Gongans[0].Beats[0].Measures["pokok"]
	if measure == nil {
		t.Fatal("expected a measure under tag 'pokok'")
	}
	if len(measure.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(measure.Notes))
	}
	if measure.Notes[0].Pitch != model.PitchDing {
		t.Errorf("expected first note DING, got %s", measure.Notes[0].Pitch)
	}
}

func TestConstructDuplicateLabel(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	text := "metadata\t{\nLABEL name=A\n}\npokok\tio\n\nmetadata\t{\nLABEL name=A\n}\npokok\tio\n"
	raw := notation.Parse("test.not", text, font, col)
	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}

	Construct(raw, font, testSettings(), col)
	if !col.Failed() {
		t.Fatal("expected a DuplicateLabel error")
	}
	found := false
	for _, e := range col.Errors {
		if e.Kind == perr.DuplicateLabel {
			found = true
		}
	}
	if !found {
		t.Errorf("expected DuplicateLabel error, got %v", col.Errors)
	}
}

func TestConstructAppliesMuteModifier(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	raw := notation.Parse("test.not", "pokok\ti'o\n", font, col)
	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}

	s := Construct(raw, font, testSettings(), col)
	measure := s.Gongans[0].Beats[0].Measures["pokok"]
	if measure.Notes[0].Stroke != model.StrokeMuted {
		t.Errorf("expected first note muted, got stroke %s", measure.Notes[0].Stroke)
	}
}
