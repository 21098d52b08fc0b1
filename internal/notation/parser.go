package notation

import (
	"strings"

	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// physicalLine is one line of input with its 1-based source line number
// and CRLF already trimmed.
type physicalLine struct {
	Text string
	Line int
}

// Parse turns notation text into a RawNotation tree (spec.md §4.1). It
// accumulates every parse error it finds in col before returning; the
// caller checks col.Failed() at the stage boundary rather than aborting
// on the first bad line, the same discipline the chart-file grammar this
// one is modeled on uses in parseSectionLine.
func Parse(file, text string, font *tables.FontTable, col *perr.Collector) *RawNotation {
	lines := splitLines(text)
	groups := groupByBlankLines(lines)

	result := &RawNotation{}
	if len(groups) == 0 {
		return result
	}

	startIdx := 0
	firstGroupLines := parseGroup(file, groups[0], font, col)
	if !hasStave(firstGroupLines) {
		result.Unbound = firstGroupLines
		startIdx = 1
	} else {
		result.Gongans = append(result.Gongans, RawGongan{Lines: firstGroupLines, SourceLine: groups[0][0].Line})
	}

	for i := startIdx; i < len(groups); i++ {
		if i == 0 {
			continue // already handled above when startIdx==0
		}
		lns := parseGroup(file, groups[i], font, col)
		result.Gongans = append(result.Gongans, RawGongan{Lines: lns, SourceLine: groups[i][0].Line})
	}

	return result
}

func hasStave(lines []RawLine) bool {
	for _, l := range lines {
		if l.Kind == RawLineStave {
			return true
		}
	}
	return false
}

// splitLines splits raw text on LF, trimming a trailing CR from each
// line, and records 1-based line numbers.
func splitLines(text string) []physicalLine {
	raw := strings.Split(text, "\n")
	out := make([]physicalLine, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		out = append(out, physicalLine{Text: l, Line: i + 1})
	}
	return out
}

// groupByBlankLines splits the file into maximal runs of non-blank lines.
func groupByBlankLines(lines []physicalLine) [][]physicalLine {
	var groups [][]physicalLine
	var current []physicalLine
	for _, l := range lines {
		if strings.TrimSpace(l.Text) == "" {
			if len(current) > 0 {
				groups = append(groups, current)
				current = nil
			}
			continue
		}
		current = append(current, l)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// parseGroup parses the physical lines of one gongan (or the unbound
// block) into RawLines, folding multi-line metadata directives.
func parseGroup(file string, lines []physicalLine, font *tables.FontTable, col *perr.Collector) []RawLine {
	var out []RawLine
	i := 0
	for i < len(lines) {
		l := lines[i]
		text := l.Text

		switch {
		case isCommentLine(text):
			out = append(out, RawLine{Kind: RawLineComment, Comment: commentText(text), Line: l.Line})
			i++

		case looksLikeMetadataStart(text):
			body, consumed, err := collectMetadataBlock(lines[i:])
			if err != nil {
				col.Add(perr.New(perr.UnterminatedMetadata, perr.Location{File: file, Line: l.Line}, "%v", err))
				i++
				continue
			}
			directives, perr2 := parseDirectiveBody(body, l.Line)
			for _, e := range perr2 {
				col.Add(perr.New(perr.MalformedDirective, perr.Location{File: file, Line: l.Line}, "%s", e))
			}
			out = append(out, RawLine{Kind: RawLineMetadata, Directives: directives, Line: l.Line})
			i += consumed

		default:
			stave, err := parseStaveLine(text, l.Line, font, file, col)
			if err != nil {
				col.Add(perr.New(perr.LineParseError, perr.Location{File: file, Line: l.Line}, "%v", err))
				i++
				continue
			}
			out = append(out, RawLine{Kind: RawLineStave, Stave: stave, Line: l.Line})
			i++
		}
	}
	return out
}

func isCommentLine(text string) bool {
	if strings.HasPrefix(text, "comment\t") {
		return true
	}
	return strings.HasPrefix(text, "\t#")
}

func commentText(text string) string {
	if strings.HasPrefix(text, "comment\t") {
		return strings.TrimPrefix(text, "comment\t")
	}
	return strings.TrimPrefix(strings.TrimPrefix(text, "\t"), "#")
}

func looksLikeMetadataStart(text string) bool {
	trimmed := text
	if strings.HasPrefix(trimmed, "metadata\t") {
		trimmed = strings.TrimPrefix(trimmed, "metadata\t")
	}
	trimmed = strings.TrimLeft(trimmed, " \t")
	return strings.HasPrefix(trimmed, "{")
}

// collectMetadataBlock gathers physical lines until one contains the
// closing brace, returning the joined body (without the braces) and how
// many physical lines were consumed.
func collectMetadataBlock(lines []physicalLine) (string, int, error) {
	var sb strings.Builder
	for i, l := range lines {
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
		if strings.Contains(l.Text, "}") {
			body := sb.String()
			body = strings.TrimPrefix(body, "metadata\t")
			open := strings.Index(body, "{")
			closeIdx := strings.LastIndex(body, "}")
			if open < 0 || closeIdx < open {
				return "", i + 1, errUnterminated
			}
			return body[open+1 : closeIdx], i + 1, nil
		}
	}
	return "", len(lines), errUnterminated
}

var errUnterminated = unterminatedErr{}

type unterminatedErr struct{}

func (unterminatedErr) Error() string { return "unterminated metadata block: no closing '}'" }
