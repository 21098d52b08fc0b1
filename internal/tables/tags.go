package tables

import "github.com/baligamelan/gamelan-midi/internal/model"

// TagPositionsTable maps a notation-line tag (e.g. "gangsa4") to the one
// or more concrete positions it binds to.
type TagPositionsTable struct {
	byTag map[string][]model.Position
}

func (t *TagPositionsTable) Lookup(tag string) ([]model.Position, bool) {
	p, ok := t.byTag[tag]
	return p, ok
}

// ParseTagPositionsTable builds the table from TSV rows with columns:
// tag, positions (comma or pipe separated).
func ParseTagPositionsTable(rows []Row) (*TagPositionsTable, error) {
	t := &TagPositionsTable{byTag: make(map[string][]model.Position, len(rows))}
	for _, row := range rows {
		tag := row["tag"]
		if tag == "" {
			continue
		}
		var positions []model.Position
		for _, p := range row.Fields("positions") {
			positions = append(positions, model.Position(p))
		}
		t.byTag[tag] = positions
	}
	return t, nil
}
