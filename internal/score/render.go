package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// Render serializes a Score back to tab-separated notation text, the
// component SPEC_FULL.md §4 names as the missing half of round-trip law
// R1 and the one save_corrected_to_file writes out when autocorrection
// changes a note. It is best-effort: shared-notation binding and pattern
// elaboration are not inverted, so the output reflects the bound,
// elaborated score, not necessarily the operator's original shorthand.
func Render(s *model.Score, font *tables.FontTable) string {
	var sb strings.Builder
	for _, d := range s.UnboundDirectives {
		sb.WriteString(renderDirective(d))
		sb.WriteByte('\n')
	}
	for gi, g := range s.Gongans {
		if gi > 0 || len(s.UnboundDirectives) > 0 {
			sb.WriteByte('\n')
		}
		renderGongan(&sb, g, font)
	}
	return sb.String()
}

func renderGongan(sb *strings.Builder, g model.Gongan, font *tables.FontTable) {
	for _, d := range g.Directives {
		sb.WriteString(renderDirective(d))
		sb.WriteByte('\n')
	}

	var positions []model.Position
	seen := map[model.Position]bool{}
	for _, beat := range g.Beats {
		for pos := range beat.Measures {
			if !seen[pos] {
				seen[pos] = true
				positions = append(positions, pos)
			}
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	for _, pos := range positions {
		fields := make([]string, 0, len(g.Beats)+1)
		fields = append(fields, string(pos))
		for _, beat := range g.Beats {
			m := beat.Measures[pos]
			fields = append(fields, renderMeasure(m, font))
		}
		sb.WriteString(strings.Join(fields, "\t"))
		sb.WriteByte('\n')
	}
}

func renderMeasure(m *model.Measure, font *tables.FontTable) string {
	if m == nil {
		return ""
	}
	var sb strings.Builder
	for _, n := range m.Notes {
		if n.IsRest() {
			sb.WriteByte('-')
			continue
		}
		r, ok := font.ReverseLookup(n.Pitch, n.Octave, n.Stroke)
		if !ok {
			sb.WriteByte('?')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func renderDirective(d model.Directive) string {
	var parts []string
	for k, v := range d.Params {
		parts = append(parts, fmt.Sprintf("%s=%s", k, renderParamValue(v)))
	}
	sort.Strings(parts)
	if len(parts) == 0 {
		return fmt.Sprintf("{%s}", d.Keyword)
	}
	return fmt.Sprintf("{%s %s}", d.Keyword, strings.Join(parts, ", "))
}

func renderParamValue(v any) string {
	switch val := v.(type) {
	case []string:
		return "[" + strings.Join(val, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
