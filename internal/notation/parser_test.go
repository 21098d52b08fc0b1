package notation

import (
	"testing"

	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

func testFont() *tables.FontTable {
	rows := []tables.Row{
		{"char": "i", "is_modifier": "false", "pitch": "DING", "mod_kind": "", "octave": "0", "stroke": "OPEN", "duration_num": "1", "duration_den": "1", "rest_num": "0", "rest_den": "1"},
		{"char": "o", "is_modifier": "false", "pitch": "DONG", "mod_kind": "", "octave": "0", "stroke": "OPEN", "duration_num": "1", "duration_den": "1", "rest_num": "0", "rest_den": "1"},
		{"char": "-", "is_modifier": "false", "pitch": "EXTENSION", "mod_kind": "", "octave": "0", "stroke": "OPEN", "duration_num": "1", "duration_den": "1", "rest_num": "0", "rest_den": "1"},
		{"char": "'", "is_modifier": "true", "pitch": "", "mod_kind": "MUTE", "octave": "0", "stroke": "OPEN", "duration_num": "0", "duration_den": "1", "rest_num": "0", "rest_den": "1"},
	}
	ft, err := tables.ParseFontTable("test", rows)
	if err != nil {
		panic(err)
	}
	return ft
}

const simpleGongan = "pokok\tio\tio\n"

const gonganWithMetadata = "metadata\t{\nTEMPO value=120\n}\npokok\tio\tio\n"

const gonganWithComment = "comment\topening phrase\npokok\tio\tio\n"

func TestParseSimpleStave(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	result := Parse("test.not", simpleGongan, font, col)

	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}
	if len(result.Gongans) != 1 {
		t.Fatalf("expected 1 gongan, got %d", len(result.Gongans))
	}
	lines := result.Gongans[0].Lines
	if len(lines) != 1 || lines[0].Kind != RawLineStave {
		t.Fatalf("expected single stave line, got %+v", lines)
	}
	if lines[0].Stave.Tag != "pokok" {
		t.Errorf("expected tag 'pokok', got %q", lines[0].Stave.Tag)
	}
	if len(lines[0].Stave.BeatGroups) != 2 {
		t.Errorf("expected 2 beat groups, got %d", len(lines[0].Stave.BeatGroups))
	}
}

func TestParseMetadataDirective(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	result := Parse("test.not", gonganWithMetadata, font, col)

	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}
	if len(result.Gongans) != 1 {
		t.Fatalf("expected 1 gongan, got %d", len(result.Gongans))
	}
	lines := result.Gongans[0].Lines
	if len(lines) != 2 {
		t.Fatalf("expected metadata line + stave line, got %d lines", len(lines))
	}
	if lines[0].Kind != RawLineMetadata {
		t.Fatalf("expected first line to be metadata, got kind %v", lines[0].Kind)
	}
	d := lines[0].Directives[0]
	if d.Keyword != "TEMPO" {
		t.Errorf("expected TEMPO keyword, got %q", d.Keyword)
	}
	if d.Params["value"] != "120" {
		t.Errorf("expected value=120, got %q", d.Params["value"])
	}
}

func TestParseCommentLine(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	result := Parse("test.not", gonganWithComment, font, col)

	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}
	lines := result.Gongans[0].Lines
	if lines[0].Kind != RawLineComment {
		t.Fatalf("expected comment line, got kind %v", lines[0].Kind)
	}
	if lines[0].Comment != "opening phrase" {
		t.Errorf("expected comment text 'opening phrase', got %q", lines[0].Comment)
	}
}

func TestUnknownSymbolRecordsErrorAndContinues(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	result := Parse("test.not", "pokok\tiXo\n", font, col)

	if !col.Failed() {
		t.Fatal("expected an UnknownSymbolError to be recorded")
	}
	found := false
	for _, e := range col.Errors {
		if e.Kind == perr.UnknownSymbolError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an UnknownSymbolError, got %v", col.Errors)
	}

	stave := result.Gongans[0].Lines[0].Stave
	if len(stave.BeatGroups[0]) != 2 {
		t.Errorf("expected the two known symbols to still decode, got %d", len(stave.BeatGroups[0]))
	}
}

func TestUnterminatedMetadataBlock(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	Parse("test.not", "metadata\t{\nTEMPO value=120\n", font, col)

	if !col.Failed() {
		t.Fatal("expected an UnterminatedMetadata error")
	}
	if col.Errors[0].Kind != perr.UnterminatedMetadata {
		t.Errorf("expected UnterminatedMetadata, got %v", col.Errors[0].Kind)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	parsed := Parse("test.not", simpleGongan, font, col)
	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}

	rendered := Render(parsed, font)
	col2 := perr.NewCollector(false)
	reparsed := Parse("test.not", rendered, font, col2)
	if col2.Failed() {
		t.Fatalf("unexpected errors reparsing rendered output: %v", col2.Err())
	}

	if len(reparsed.Gongans) != len(parsed.Gongans) {
		t.Fatalf("round trip changed gongan count: %d vs %d", len(reparsed.Gongans), len(parsed.Gongans))
	}
	if reparsed.Gongans[0].Lines[0].Stave.Tag != parsed.Gongans[0].Lines[0].Stave.Tag {
		t.Errorf("round trip changed stave tag")
	}
}

func TestParsePassSpec(t *testing.T) {
	cases := []struct {
		raw      string
		from, to int
		wantErr  bool
	}{
		{"", -1, -1, false},
		{"1", 1, 1, false},
		{"1-3", 1, 3, false},
		{"1-", 0, 0, true},
		{"x", 0, 0, true},
	}
	for _, c := range cases {
		from, to, err := ParsePassSpec(c.raw)
		if (err != nil) != c.wantErr {
			t.Errorf("ParsePassSpec(%q): unexpected error state, err=%v", c.raw, err)
			continue
		}
		if err == nil && (from != c.from || to != c.to) {
			t.Errorf("ParsePassSpec(%q) = %d,%d, want %d,%d", c.raw, from, to, c.from, c.to)
		}
	}
}
