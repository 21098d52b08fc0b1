package score

import (
	"testing"

	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/notation"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

func testInstruments(t *testing.T) *tables.InstrumentsTable {
	rows := []tables.Row{
		{"group": "gangsa", "position": "gangsa_polos", "instrument_type": "pemade", "range": "DING:0,DONG:0", "extended_range": ""},
		{"group": "gangsa", "position": "gangsa_sangsih", "instrument_type": "pemade", "range": "DONG:0,DENG:0", "extended_range": ""},
	}
	it, err := tables.ParseInstrumentsTable(rows)
	if err != nil {
		t.Fatalf("failed to build instruments table: %v", err)
	}
	return it
}

func testTagPositions(t *testing.T) *tables.TagPositionsTable {
	rows := []tables.Row{
		{"tag": "gangsa", "positions": "gangsa_polos,gangsa_sangsih"},
	}
	tp, err := tables.ParseTagPositionsTable(rows)
	if err != nil {
		t.Fatalf("failed to build tag-positions table: %v", err)
	}
	return tp
}

func testRules(t *testing.T) *tables.RulesTable {
	kempyung := []tables.Row{
		{"group": "gangsa", "from_pitch": "DING", "from_octave": "0", "to_pitch": "DENG", "to_octave": "0"},
	}
	rt, err := tables.ParseRulesTable(kempyung, nil)
	if err != nil {
		t.Fatalf("failed to build rules table: %v", err)
	}
	return rt
}

func TestBindExpandsSharedTagToBothPositions(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	raw := notation.Parse("test.not", "gangsa\tio\n", font, col)
	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}
	s := Construct(raw, font, testSettings(), col)
	if col.Failed() {
		t.Fatalf("unexpected construct errors: %v", col.Err())
	}

	bound := Bind(s, testTagPositions(t), testInstruments(t), testRules(t), col)
	if col.Failed() {
		t.Fatalf("unexpected bind errors: %v", col.Err())
	}

	beat := bound.Gongans[0].Beats[0]
	if len(beat.Measures) != 2 {
		t.Fatalf("expected 2 bound positions, got %d", len(beat.Measures))
	}

	polos := beat.Measures[model.Position("gangsa_polos")]
	if polos == nil || polos.Notes[0].Pitch != model.PitchDing {
		t.Errorf("expected polos to keep DING via SAME_PITCH, got %+v", polos)
	}

	sangsih := beat.Measures[model.Position("gangsa_sangsih")]
	if sangsih == nil {
		t.Fatal("expected a sangsih measure")
	}
	// sangsih's range is DONG/DENG only; its first note DING is out of
	// range and out of extended range too, so KEMPYUNG maps it to DENG.
	if sangsih.Notes[0].Pitch != model.PitchDeng {
		t.Errorf("expected sangsih's DING resolved to DENG via kempyung, got %s", sangsih.Notes[0].Pitch)
	}
}

func TestBindUnmappableSharedNotationBindsRest(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	raw := notation.Parse("test.not", "gangsa\ti\n", font, col)
	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}
	s := Construct(raw, font, testSettings(), col)
	if col.Failed() {
		t.Fatalf("unexpected construct errors: %v", col.Err())
	}

	rows := []tables.Row{
		{"group": "gangsa", "position": "gangsa_polos", "instrument_type": "pemade", "range": "DING:0,DONG:0", "extended_range": ""},
		{"group": "gangsa", "position": "gangsa_sangsih", "instrument_type": "pemade", "range": "DENG:0", "extended_range": "DENG:0"},
	}
	instruments, err := tables.ParseInstrumentsTable(rows)
	if err != nil {
		t.Fatalf("failed to build instruments table: %v", err)
	}
	// No kempyung mapping for DING is declared, so all three transforms
	// fail for gangsa_sangsih: SAME_PITCH/SAME_PITCH_EXTENDED_RANGE (DING
	// and DING octave +-1 are not in {DENG:0}) and KEMPYUNG (no rule).
	rules, err := tables.ParseRulesTable(nil, []tables.Row{
		{"group": "gangsa", "order": "0", "transform": "SAME_PITCH"},
		{"group": "gangsa", "order": "1", "transform": "SAME_PITCH_EXTENDED_RANGE"},
		{"group": "gangsa", "order": "2", "transform": "KEMPYUNG"},
	})
	if err != nil {
		t.Fatalf("failed to build rules table: %v", err)
	}

	col = perr.NewCollector(false)
	bound := Bind(s, testTagPositions(t), instruments, rules, col)
	if !col.Failed() {
		t.Fatal("expected an UnmappableSharedNotation error")
	}
	found := false
	for _, e := range col.Errors {
		if e.Kind == perr.UnmappableSharedNotation {
			found = true
		}
	}
	if !found {
		t.Errorf("expected UnmappableSharedNotation error, got %v", col.Errors)
	}

	sangsih := bound.Gongans[0].Beats[0].Measures[model.Position("gangsa_sangsih")]
	if sangsih == nil {
		t.Fatal("expected a sangsih measure")
	}
	if !sangsih.Notes[0].IsRest() {
		t.Errorf("expected unmappable note to be bound as a rest, got %+v", sangsih.Notes[0])
	}
}

func TestBindUnknownTagRecordsError(t *testing.T) {
	font := testFont()
	col := perr.NewCollector(false)
	raw := notation.Parse("test.not", "nosuchtag\tio\n", font, col)
	if col.Failed() {
		t.Fatalf("unexpected parse errors: %v", col.Err())
	}
	s := Construct(raw, font, testSettings(), col)

	Bind(s, testTagPositions(t), testInstruments(t), testRules(t), col)
	if !col.Failed() {
		t.Fatal("expected an UnknownTag error")
	}
	found := false
	for _, e := range col.Errors {
		if e.Kind == perr.UnknownTag {
			found = true
		}
	}
	if !found {
		t.Errorf("expected UnknownTag error, got %v", col.Errors)
	}
}
