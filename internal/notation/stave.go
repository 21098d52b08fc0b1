package notation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// parseStaveLine parses one stave line: position-tag (optionally
// "tag:pass"), TAB, then one or more TAB-separated beat groups of
// notation symbols (spec.md §4.1).
func parseStaveLine(text string, lineNo int, font *tables.FontTable, file string, col *perr.Collector) (*RawStave, error) {
	fields := strings.Split(text, "\t")
	if len(fields) < 2 {
		return nil, fmt.Errorf("stave line has no beat groups")
	}

	tagField := fields[0]
	tag := tagField
	passRaw := ""
	if idx := strings.Index(tagField, ":"); idx >= 0 {
		tag = tagField[:idx]
		passRaw = tagField[idx+1:]
	}
	if tag == "" {
		return nil, fmt.Errorf("empty position tag")
	}

	stave := &RawStave{Tag: tag, PassRaw: passRaw, Line: lineNo}
	col_ := 1 + len(tagField) + 1
	for _, field := range fields[1:] {
		if field == "" {
			stave.BeatGroups = append(stave.BeatGroups, nil)
			col_ += 1
			continue
		}
		symbols := decodeBeatGroup(field, lineNo, col_, font, file, col)
		stave.BeatGroups = append(stave.BeatGroups, symbols)
		col_ += len([]rune(field)) + 1
	}
	return stave, nil
}

// ParsePassSpec interprets the ":N" / ":N-M" pass-qualifier grammar.
// Per spec.md §9 open question (b), an unbounded range like ":1-" is
// rejected with MalformedDirective; some sources accept it but this
// implementation takes the conservative reading explicitly.
func ParsePassSpec(raw string) (from, to int, err error) {
	if raw == "" {
		return -1, -1, nil
	}
	if strings.HasSuffix(raw, "-") {
		return 0, 0, fmt.Errorf("unbounded pass range %q is not supported", raw)
	}
	if idx := strings.Index(raw, "-"); idx >= 0 {
		fromStr, toStr := raw[:idx], raw[idx+1:]
		f, err1 := strconv.Atoi(strings.TrimSpace(fromStr))
		t, err2 := strconv.Atoi(strings.TrimSpace(toStr))
		if err1 != nil || err2 != nil {
			return 0, 0, fmt.Errorf("invalid pass range %q", raw)
		}
		return f, t, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid pass specifier %q", raw)
	}
	return n, n, nil
}
