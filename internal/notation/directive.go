package notation

import (
	"fmt"
	"strings"
)

// defaultParamName is the name each keyword's first positional argument
// takes when written without "name=" (spec.md §4.1, §6 catalog).
var defaultParamName = map[string]string{
	"GONGAN":       "type",
	"DYNAMICS":     "value",
	"GOTO":         "label",
	"KEMPLI":       "status",
	"AUTOKEMPYUNG": "status",
	"LABEL":        "name",
	"OCTAVATE":     "instrument",
	"PART":         "name",
	"REPEAT":       "count",
	"SEQUENCE":     "value",
	"SUPPRESS":     "positions",
	"TEMPO":        "value",
	"VALIDATION":   "ignore",
	"WAIT":         "seconds",
}

// knownKeywords is the full catalog from spec.md §6.
var knownKeywords = map[string]bool{}

func init() {
	for k := range defaultParamName {
		knownKeywords[k] = true
	}
}

// parseDirectiveBody parses the body of one metadata block (the text
// between "{" and "}") into one RawDirective per non-empty line, since a
// single metadata block may carry several directives (spec.md §4.1).
func parseDirectiveBody(body string, baseLine int) ([]RawDirective, []string) {
	var directives []RawDirective
	var errs []string

	lineOffset := 0
	for _, raw := range strings.Split(body, "\n") {
		lineOffset++
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		d, err := parseOneDirective(line, baseLine+lineOffset-1)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		directives = append(directives, d)
	}
	return directives, errs
}

// parseOneDirective parses "<KEYWORD> [k=v [, k=v]*]", binding an
// unlabeled first argument to that keyword's default parameter name.
func parseOneDirective(line string, lineNo int) (RawDirective, error) {
	fields := strings.SplitN(line, " ", 2)
	keyword := strings.ToUpper(strings.TrimSpace(fields[0]))
	if !knownKeywords[keyword] {
		return RawDirective{}, fmt.Errorf("unknown directive keyword %q", keyword)
	}

	d := RawDirective{Keyword: keyword, Params: make(map[string]string), Line: lineNo}
	if len(fields) < 2 {
		return d, nil
	}

	rest := strings.TrimSpace(fields[1])
	parts := splitTopLevelCommas(rest)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if eq := strings.Index(part, "="); eq >= 0 {
			key := strings.TrimSpace(part[:eq])
			val := strings.TrimSpace(part[eq+1:])
			d.Params[key] = val
			d.Order = append(d.Order, key)
		} else if i == 0 {
			name := defaultParamName[keyword]
			d.Params[name] = part
			d.Order = append(d.Order, name)
		} else {
			return d, fmt.Errorf("parameter %q of %s directive must be key=value", part, keyword)
		}
	}
	return d, nil
}

// splitTopLevelCommas splits on commas that are not inside a [...] list,
// since SUPPRESS/OCTAVATE/VALIDATION/SEQUENCE parameters may themselves
// be bracketed lists of comma-separated values.
func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// ParseListParam parses a "[a, b, c]" or bare "a" parameter value into
// its element strings.
func ParseListParam(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
