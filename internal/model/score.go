package model

import (
	"strconv"
	"strings"
)

// Position identifies a distinct musical voice: a player position
// (reyong_1..4) or a role within an instrument pair (polos/sangsih).
type Position string

// PassSpec qualifies which pass(es) of the containing gongan a measure
// applies to. -1 means "all passes" (the default). A PassSpec with
// From==To is a single pass; From < To is an inclusive range.
type PassSpec struct {
	From, To int
}

// AllPasses is the default pass qualifier: the measure applies regardless
// of which pass is currently executing.
var AllPasses = PassSpec{From: -1, To: -1}

// Matches reports whether the given 1-based pass number satisfies this spec.
func (p PassSpec) Matches(pass int) bool {
	if p == AllPasses {
		return true
	}
	return pass >= p.From && pass <= p.To
}

// Measure is the ordered sequence of notes assigned to one (position,
// beat) cell of a gongan.
type Measure struct {
	Position Position
	Notes    []Note
	Pass     PassSpec
	Suppress bool // SUPPRESS directive: emit as silence during MIDI
	Ignore   map[ValidationCheck]bool
}

// TotalDuration sums the full time footprint of every note in the measure.
func (m Measure) TotalDuration() Fraction {
	total := Zero
	for _, n := range m.Notes {
		total = total.Add(n.TotalDuration())
	}
	return total
}

// ValidationCheck names one of the four checks stage 7 runs (spec.md §4.5).
type ValidationCheck string

const (
	CheckBeatDuration     ValidationCheck = "beat-duration"
	CheckStaveLength      ValidationCheck = "stave-length"
	CheckInstrumentRange  ValidationCheck = "instrument-range"
	CheckKempyung         ValidationCheck = "kempyung"
)

// Beat is a coordinate within a Gongan: a map from position to the measure
// played by that position during this beat. After stage 6 (completion)
// every position of the instrument group has an entry.
type Beat struct {
	Measures map[Position]*Measure
	// Markers holds PART directive names attached to this beat (always
	// beat 0 of a gongan at completion time, spec.md §4.4).
	Markers []string
}

// NewBeat returns an empty beat ready to receive measures.
func NewBeat() Beat {
	return Beat{Measures: make(map[Position]*Measure)}
}

// TotalBeatTicks returns the tick footprint of the first non-empty
// measure in the beat (by I1 every bound position agrees), used by MIDI
// emission to advance the cursor through beats with no sounding notes.
func (b Beat) TotalBeatTicks(baseNoteTicks int) int {
	for _, m := range b.Measures {
		if m == nil {
			continue
		}
		return m.TotalDuration().Ticks(baseNoteTicks)
	}
	return 0
}

// GonganType distinguishes the three structural shapes a gongan can take.
type GonganType string

const (
	GonganRegular GonganType = "regular"
	GonganKebyar  GonganType = "kebyar"
	GonganGineman GonganType = "gineman"
)

// Directive is one materialized metadata directive attached to a gongan.
// Keyword-specific parameters are carried in Params using the keys named
// in spec.md §6; ScoreConstruction and ScoreCompletion interpret them.
type Directive struct {
	Keyword string
	Params  map[string]any
	Line    int // source line, for diagnostics
}

// String returns a directive parameter as a plain string, or "" if
// absent (list-valued params are not plain strings; use StringList).
func (d Directive) String(key string) string {
	v, ok := d.Params[key].(string)
	if !ok {
		return ""
	}
	return v
}

// Int parses a directive parameter as an integer, returning def if the
// parameter is absent or not a valid integer.
func (d Directive) Int(key string, def int) int {
	s, ok := d.Params[key].(string)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// Float parses a directive parameter as a float64, returning def if
// absent or invalid (used by WAIT's seconds param).
func (d Directive) Float(key string, def float64) float64 {
	s, ok := d.Params[key].(string)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

// Bool reports whether a status-valued parameter reads "on"/"true".
func (d Directive) Bool(key string) bool {
	s, ok := d.Params[key].(string)
	if !ok {
		return false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "on" || s == "true" || s == "1" || s == "yes"
}

// StringList returns a list-valued directive parameter. A parameter
// materialized as []string (the "[a, b]" bracket form) is returned as
// is; a plain scalar string is returned as a single-element list so
// callers need not special-case "one value written without brackets".
func (d Directive) StringList(key string) []string {
	switch v := d.Params[key].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Gongan is an ordered list of beats plus its type and attached directives.
type Gongan struct {
	Beats      []Beat
	Type       GonganType
	Directives []Directive
	Label      string // set if a LABEL directive targets beat 1 of this gongan (convenience index)
	SourceLine int
	// KempliBeats is the fully-resolved on/off state of the implicit
	// kempli track per beat index, computed by score completion from
	// KEMPLI directives and their GONGAN/SCORE scope (spec.md §4.4).
	KempliBeats map[int]bool
	// AutokempyungPositions is the fully-resolved kempyung-autocorrect
	// on/off state per position for this gongan, computed by score
	// completion from AUTOKEMPYUNG directives and their GONGAN/SCORE
	// scope (spec.md §6). A position absent from this map falls back to
	// ScoreSettings.AutocorrectKempyung.
	AutokempyungPositions map[Position]bool
}

// BeatCount returns the number of beats in the gongan.
func (g Gongan) BeatCount() int {
	return len(g.Beats)
}

// Score is the top-level immutable artifact threaded through stages 3-7.
type Score struct {
	Gongans         []Gongan
	InstrumentGroup string
	FontVersion     string
	Labels          map[string]Label
	Settings        ScoreSettings
	// UnboundDirectives holds the metadata directives declared before the
	// first gongan other than LABEL (which feeds Labels directly). The
	// only one execution linearization looks for here is SEQUENCE,
	// spec.md §4.1/§4.6's one directive restricted to this position.
	UnboundDirectives []Directive
}

// Label names a (gongan, beat) coordinate for GOTO/SEQUENCE targeting.
type Label struct {
	GonganIndex int
	BeatIndex   int
	InUnbound   bool // true if declared before the first gongan (GotoTargetInUnbound source)
}

// ScoreSettings carries the process-level values every stage after
// construction needs: tick resolution, dynamics vocabulary, tremolo
// tables, and which instruments use shorthand elaboration.
type ScoreSettings struct {
	PPQ                int
	BaseNoteTicks       int // ticks per base note, typically 24
	NotesPerQuarterNote int // tremolo repetition density
	BaseNotesPerBeat    int // base notes per nominal beat, feeds tremolo repetition count
	Dynamics            map[string]uint8 // pp..ff -> MIDI velocity
	AcceleratingPattern []int            // relative tick durations
	AcceleratingVelocity []uint8
	ShorthandPositions  map[Position]bool
	AutocorrectKempyung bool
	// MIDI emission timing (spec.md §4.7 preamble/finalize), seconds of
	// silence around the piece plus the natural-release tail length
	// applied to the last sounding note of each position when the piece
	// does not loop.
	SilenceSecondsBeforeStart float64
	SilenceSecondsAfterEnd    float64
	NaturalReleaseSeconds     float64
	Loops                     bool
}
