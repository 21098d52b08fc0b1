package tables

import (
	"sort"

	"github.com/baligamelan/gamelan-midi/internal/model"
)

// OrnamentStep is one note of an ornament's expansion: a pitch offset (in
// scale steps) relative to the triggering note, and the fraction of the
// base note's duration that step occupies.
type OrnamentStep struct {
	PitchSteps int
	Duration   model.Fraction
}

// OrnamentEntry is the expansion rule for one non-tremolo modifier kind,
// e.g. norot. Tremolo and accelerating tremolo have their own contracts
// (spec.md §4.3) and are not driven by this table.
type OrnamentEntry struct {
	Kind  model.ModifierKind
	Steps []OrnamentStep
}

// OrnamentTable indexes ornament rules by modifier kind, so new ornaments
// are added as data rather than elaborator code changes.
type OrnamentTable struct {
	byKind map[model.ModifierKind]OrnamentEntry
}

func (t *OrnamentTable) Lookup(kind model.ModifierKind) (OrnamentEntry, bool) {
	e, ok := t.byKind[kind]
	return e, ok
}

// ParseOrnamentTable builds the table from TSV rows with columns:
// mod_kind, order, pitch_steps, duration_num, duration_den.
func ParseOrnamentTable(rows []Row) (*OrnamentTable, error) {
	type indexedRow struct {
		order int
		row   Row
	}
	byKind := make(map[string][]indexedRow)
	for _, row := range rows {
		order := row.IntDefault("order", 0)
		byKind[row["mod_kind"]] = append(byKind[row["mod_kind"]], indexedRow{order: order, row: row})
	}

	t := &OrnamentTable{byKind: make(map[model.ModifierKind]OrnamentEntry, len(byKind))}
	for kind, rows := range byKind {
		sort.Slice(rows, func(i, j int) bool { return rows[i].order < rows[j].order })
		entry := OrnamentEntry{Kind: model.ModifierKind(kind)}
		for _, ir := range rows {
			dn := ir.row.IntDefault("duration_num", 1)
			dd := ir.row.IntDefault("duration_den", 1)
			entry.Steps = append(entry.Steps, OrnamentStep{
				PitchSteps: ir.row.IntDefault("pitch_steps", 0),
				Duration:   model.NewFraction(dn, dd),
			})
		}
		t.byKind[model.ModifierKind(kind)] = entry
	}
	return t, nil
}
