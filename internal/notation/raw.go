// Package notation implements stage 2 of the pipeline (spec.md §4.1): a
// grammar-driven parser that turns notation text into a RawNotation
// syntactic tree, plus a renderer that turns a tree back into text for
// the round-trip law (spec.md §8 R1).
package notation

// RawSymbol is one decoded notation atom: a base character plus the
// combining modifiers that followed it, before it is reduced to a
// concrete model.Note (that reduction happens in stage 3).
type RawSymbol struct {
	Base      rune
	Modifiers []rune
	Line, Col int
}

// RawStave is one stave line: a position tag (optionally qualified by a
// pass specifier), followed by one beat group per TAB-separated field.
type RawStave struct {
	Tag        string
	PassRaw    string // raw text after ':', empty if unqualified
	BeatGroups [][]RawSymbol
	Line       int
}

// RawDirective is one metadata directive before typed materialization:
// keyword plus raw key=value parameter strings (spec.md §4.1 grammar).
type RawDirective struct {
	Keyword string
	Params  map[string]string
	Order   []string // preserves parameter order for the renderer
	Line    int
}

// RawLineKind distinguishes the three raw-line forms spec.md §4.1 grammar
// allows inside a gongan.
type RawLineKind int

const (
	RawLineMetadata RawLineKind = iota
	RawLineComment
	RawLineStave
)

// RawLine is one parsed line, tagged by kind.
type RawLine struct {
	Kind       RawLineKind
	Directives []RawDirective // a metadata block holds one directive per body line
	Comment    string
	Stave      *RawStave
	Line       int
}

// RawGongan is a maximal run of non-empty lines (spec.md §4.1).
type RawGongan struct {
	Lines      []RawLine
	SourceLine int
}

// RawNotation is the full parsed tree: an optional leading unbound block
// of metadata/comment lines, followed by the gongans.
type RawNotation struct {
	Unbound []RawLine
	Gongans []RawGongan
}
