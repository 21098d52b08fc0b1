package notation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// Render turns a RawNotation back into TAB-separated text. It exists to
// support the round-trip law (spec.md §8 R1): parsing rendered output
// must reproduce the same RawNotation modulo whitespace.
func Render(n *RawNotation, font *tables.FontTable) string {
	var sb strings.Builder
	renderLines(&sb, n.Unbound, font)
	for i, g := range n.Gongans {
		if i > 0 || len(n.Unbound) > 0 {
			sb.WriteByte('\n')
		}
		renderLines(&sb, g.Lines, font)
	}
	return sb.String()
}

func renderLines(sb *strings.Builder, lines []RawLine, font *tables.FontTable) {
	for _, l := range lines {
		switch l.Kind {
		case RawLineComment:
			sb.WriteString("comment\t")
			sb.WriteString(l.Comment)
			sb.WriteByte('\n')
		case RawLineMetadata:
			renderMetadata(sb, l.Directives)
		case RawLineStave:
			renderStave(sb, l.Stave, font)
		}
	}
}

func renderMetadata(sb *strings.Builder, directives []RawDirective) {
	sb.WriteString("metadata\t{\n")
	for _, d := range directives {
		sb.WriteByte('\t')
		sb.WriteString(renderDirective(d))
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n")
}

func renderDirective(d RawDirective) string {
	if len(d.Params) == 0 {
		return d.Keyword
	}
	keys := d.Order
	if len(keys) == 0 {
		keys = make([]string, 0, len(d.Params))
		for k := range d.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	parts := make([]string, 0, len(keys))
	defaultName := defaultParamName[d.Keyword]
	for i, k := range keys {
		v, ok := d.Params[k]
		if !ok {
			continue
		}
		if i == 0 && k == defaultName {
			parts = append(parts, v)
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return d.Keyword + " " + strings.Join(parts, ", ")
}

func renderStave(sb *strings.Builder, s *RawStave, font *tables.FontTable) {
	tag := s.Tag
	if s.PassRaw != "" {
		tag += ":" + s.PassRaw
	}
	sb.WriteString(tag)
	for _, group := range s.BeatGroups {
		sb.WriteByte('\t')
		sb.WriteString(renderBeatGroup(group, font))
	}
	sb.WriteByte('\n')
}

func renderBeatGroup(symbols []RawSymbol, font *tables.FontTable) string {
	var sb strings.Builder
	for _, sym := range symbols {
		sb.WriteRune(sym.Base)
		for _, m := range sym.Modifiers {
			sb.WriteRune(m)
		}
	}
	return sb.String()
}
