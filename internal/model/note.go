package model

// Pitch is one of the six pelog/slendro tone names used in the notation,
// plus the two pseudo-pitches REST and EXTENSION that the shorthand
// elaborator and beat completion emit.
type Pitch string

const (
	PitchDing       Pitch = "DING"
	PitchDong       Pitch = "DONG"
	PitchDeng       Pitch = "DENG"
	PitchDeung      Pitch = "DEUNG"
	PitchDung       Pitch = "DUNG"
	PitchDang       Pitch = "DANG"
	PitchRest       Pitch = "REST"
	PitchExtension  Pitch = "EXTENSION"
	PitchModifier   Pitch = "MODIFIER"   // combining-diacritic atoms before reduction
	PitchGong       Pitch = "GONG"       // punctuating stroke, scored like a note
)

// Stroke is the articulation class of a note; it selects the MIDI note
// and any release hint in the MIDI-notes table (spec.md §3, §4.7).
type Stroke string

const (
	StrokeOpen        Stroke = "OPEN"
	StrokeMuted       Stroke = "MUTED"
	StrokeAbbreviated Stroke = "ABBREVIATED"
)

// PitchOctave identifies a tone regardless of stroke; used as the key into
// instrument ranges and the kempyung table.
type PitchOctave struct {
	Pitch  Pitch
	Octave int
}

// Modifier is a combining-diacritic atom attached to a base symbol: an
// octave shift, a duration multiplier, a stroke change, or an ornament
// trigger (tremolo, accelerating tremolo, norot, ...). The font table
// says which kind each code point is.
type ModifierKind string

const (
	ModOctaveUp             ModifierKind = "OCTAVE_UP"
	ModOctaveDown           ModifierKind = "OCTAVE_DOWN"
	ModMute                 ModifierKind = "MUTE"
	ModAbbreviate           ModifierKind = "ABBREVIATE"
	ModHalfDuration         ModifierKind = "HALF_DURATION"
	ModTremolo              ModifierKind = "TREMOLO"
	ModAcceleratingTremolo  ModifierKind = "ACCELERATING_TREMOLO"
	ModNorot                ModifierKind = "NOROT"
)

type Modifier struct {
	Kind ModifierKind
	Char rune
}

// Note is the atomic sounding (or silent) event. Duration and RestAfter
// are fractions of one base note; for an unmodified note
// Duration+RestAfter <= 1. A rest has Pitch = PitchRest, Duration = 0,
// RestAfter = 1.
type Note struct {
	Pitch     Pitch
	Octave    int
	Stroke    Stroke
	Duration  Fraction
	RestAfter Fraction
	Modifiers []Modifier
	// Velocity overrides the prevailing per-step dynamics for this one
	// note; set by pattern elaboration for ornaments with their own
	// velocity envelope (accelerating tremolo). Nil means "use whatever
	// dynamics are in effect at emission time."
	Velocity *uint8
}

// PitchOctave returns the (pitch, octave) pair this note sounds at.
func (n Note) PitchOctave() PitchOctave {
	return PitchOctave{n.Pitch, n.Octave}
}

// IsRest reports whether this note is silent.
func (n Note) IsRest() bool {
	return n.Pitch == PitchRest
}

// HasModifier reports whether the note carries a modifier of the given kind.
func (n Note) HasModifier(kind ModifierKind) bool {
	for _, m := range n.Modifiers {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

// TotalDuration is Duration+RestAfter, the note's full time footprint.
func (n Note) TotalDuration() Fraction {
	return n.Duration.Add(n.RestAfter)
}

// Rest builds a rest note spanning the given fraction of a base note.
func Rest(span Fraction) Note {
	return Note{Pitch: PitchRest, Duration: Zero, RestAfter: span}
}

// scaleOrder is the six-tone pelog/slendro scale in ascending order
// within one octave, used to step ornament pitches (norot and friends)
// by a signed number of scale degrees (spec.md §4.3).
var scaleOrder = []Pitch{PitchDing, PitchDong, PitchDeng, PitchDeung, PitchDung, PitchDang}

// StepPitch shifts a (pitch, octave) by the given number of scale
// degrees, wrapping into adjacent octaves as needed. Pitches outside
// scaleOrder (REST, EXTENSION, GONG) are returned unchanged.
func StepPitch(po PitchOctave, steps int) PitchOctave {
	idx := -1
	for i, p := range scaleOrder {
		if p == po.Pitch {
			idx = i
			break
		}
	}
	if idx < 0 {
		return po
	}
	n := len(scaleOrder)
	total := idx + steps
	octave := po.Octave + floorDiv(total, n)
	newIdx := total - floorDiv(total, n)*n
	return PitchOctave{Pitch: scaleOrder[newIdx], Octave: octave}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
