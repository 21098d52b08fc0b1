package tables

import (
	"fmt"
	"strings"

	"github.com/baligamelan/gamelan-midi/internal/model"
)

// Preset is the bank/program pair the MIDI-notes table attaches to each
// instrument type (spec.md §3, §4.7 preamble PROGRAM_CHANGE).
type Preset struct {
	BankMSB uint8
	Program uint8
}

// noteEntry is one row of the MIDI-notes table: an optional position
// filter (empty means "any position of this instrument type"), the
// (pitch, octave, stroke) it matches, and the MIDI note number it maps to.
type noteEntry struct {
	Group          string
	InstrumentType string
	Positions      []model.Position // empty = unrestricted
	Pitch          model.Pitch
	Octave         int
	Stroke         model.Stroke
	MidiNote       uint8
}

// MidiNotesTable resolves (group, instrument type, position, pitch,
// octave, stroke) to a MIDI note number, and looks up each instrument
// type's preset.
type MidiNotesTable struct {
	entries []noteEntry
	presets map[string]Preset
}

// ParseMidiNotesTable builds the table from note rows (columns: group,
// instrument_type, positions, pitch, octave, stroke, midi_note) and
// preset rows (columns: instrument_type, bank, program).
func ParseMidiNotesTable(noteRows, presetRows []Row) (*MidiNotesTable, error) {
	t := &MidiNotesTable{presets: make(map[string]Preset, len(presetRows))}

	for i, row := range noteRows {
		note, err := row.Int("midi_note")
		if err != nil {
			return nil, fmt.Errorf("midi notes table row %d: %w", i+1, err)
		}
		if note < 0 || note > 127 {
			return nil, fmt.Errorf("midi notes table row %d: note %d out of MIDI range", i+1, note)
		}
		octave := row.IntDefault("octave", 0)
		stroke := model.Stroke(strings.ToUpper(row["stroke"]))
		if stroke == "" {
			stroke = model.StrokeOpen
		}
		var positions []model.Position
		for _, p := range row.Fields("positions") {
			positions = append(positions, model.Position(p))
		}
		t.entries = append(t.entries, noteEntry{
			Group:          row["group"],
			InstrumentType: row["instrument_type"],
			Positions:      positions,
			Pitch:          model.Pitch(strings.ToUpper(row["pitch"])),
			Octave:         octave,
			Stroke:         stroke,
			MidiNote:       uint8(note),
		})
	}

	for _, row := range presetRows {
		bank := row.IntDefault("bank", 0)
		program := row.IntDefault("program", 0)
		t.presets[row["instrument_type"]] = Preset{BankMSB: uint8(bank), Program: uint8(program)}
	}

	return t, nil
}

// Lookup finds the MIDI note for a sounding note at the given position.
// Entries scoped to this exact position are preferred over entries with
// no position restriction, matching the table's documented specificity.
func (t *MidiNotesTable) Lookup(group, instrumentType string, position model.Position, po model.PitchOctave, stroke model.Stroke) (uint8, bool) {
	var fallback *noteEntry
	for i := range t.entries {
		e := &t.entries[i]
		if e.Group != group || e.InstrumentType != instrumentType {
			continue
		}
		if e.Pitch != po.Pitch || e.Octave != po.Octave || e.Stroke != stroke {
			continue
		}
		if len(e.Positions) == 0 {
			fallback = e
			continue
		}
		for _, p := range e.Positions {
			if p == position {
				return e.MidiNote, true
			}
		}
	}
	if fallback != nil {
		return fallback.MidiNote, true
	}
	return 0, false
}

// Preset returns the bank/program pair for an instrument type.
func (t *MidiNotesTable) Preset(instrumentType string) (Preset, bool) {
	p, ok := t.presets[instrumentType]
	return p, ok
}
