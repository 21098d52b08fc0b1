package tables

import (
	"os"
	"path/filepath"

	"github.com/baligamelan/gamelan-midi/internal/model"
)

// Bundle groups the reference tables the pipeline needs. Stage 1
// (settings validation) loads one of these from the paths named in
// RunConfig before stage 2 runs.
type Bundle struct {
	Font         *FontTable
	Instruments  *InstrumentsTable
	TagPositions *TagPositionsTable
	Rules        *RulesTable
	MidiNotes    *MidiNotesTable
	Ornaments    *OrnamentTable
}

// LoadBundle reads all five tables from a directory using the
// conventional file names. Any one missing/malformed table fails the
// whole load — the tables are foundational inputs, not optional data a
// later stage can route around.
func LoadBundle(dir, fontVersion string) (*Bundle, error) {
	fontRows, err := ReadTSV(filepath.Join(dir, "font_"+fontVersion+".tsv"))
	if err != nil {
		return nil, err
	}
	font, err := ParseFontTable(fontVersion, fontRows)
	if err != nil {
		return nil, err
	}

	instRows, err := ReadTSV(filepath.Join(dir, "instruments.tsv"))
	if err != nil {
		return nil, err
	}
	instruments, err := ParseInstrumentsTable(instRows)
	if err != nil {
		return nil, err
	}

	tagRows, err := ReadTSV(filepath.Join(dir, "tags.tsv"))
	if err != nil {
		return nil, err
	}
	tags, err := ParseTagPositionsTable(tagRows)
	if err != nil {
		return nil, err
	}

	kempyungRows, err := ReadTSV(filepath.Join(dir, "kempyung.tsv"))
	if err != nil {
		return nil, err
	}
	transformRows, err := ReadTSV(filepath.Join(dir, "shared_notation_rules.tsv"))
	if err != nil {
		return nil, err
	}
	rules, err := ParseRulesTable(kempyungRows, transformRows)
	if err != nil {
		return nil, err
	}

	noteRows, err := ReadTSV(filepath.Join(dir, "midi_notes.tsv"))
	if err != nil {
		return nil, err
	}
	presetRows, err := ReadTSV(filepath.Join(dir, "midi_presets.tsv"))
	if err != nil {
		return nil, err
	}
	midiNotes, err := ParseMidiNotesTable(noteRows, presetRows)
	if err != nil {
		return nil, err
	}

	// Ornament rules (norot and whatever is added after it) are optional:
	// a font version that only uses tremolo/accelerating-tremolo, both
	// governed directly by ScoreSettings rather than this table, needs
	// no ornaments.tsv at all.
	var ornaments *OrnamentTable
	ornamentRows, err := ReadTSV(filepath.Join(dir, "ornaments.tsv"))
	switch {
	case err == nil:
		ornaments, err = ParseOrnamentTable(ornamentRows)
		if err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		ornaments = &OrnamentTable{byKind: map[model.ModifierKind]OrnamentEntry{}}
	default:
		return nil, err
	}

	return &Bundle{
		Font:         font,
		Instruments:  instruments,
		TagPositions: tags,
		Rules:        rules,
		MidiNotes:    midiNotes,
		Ornaments:    ornaments,
	}, nil
}
