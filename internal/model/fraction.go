// Package model holds the core, immutable score entities shared across
// every pipeline stage: notes, measures, beats, gongans, scores and the
// linearized execution. Each stage consumes one value of these types and
// produces a new one; nothing here is mutated once published by a stage.
package model

import "fmt"

// Fraction is an exact rational, used for note durations so that beat
// arithmetic never drifts the way floating point would. Denominators stay
// small — the LCM of the subdivisions the notation actually uses, 24 by
// default (base_note_time).
type Fraction struct {
	Num, Den int
}

// NewFraction builds a reduced Fraction. A negative denominator moves its
// sign onto the numerator. A zero denominator panics: stages construct Fractions from table-driven constants, never
// from unchecked user input, so this is a programmer error if it fires.
func NewFraction(num, den int) Fraction {
	if den == 0 {
		panic("model: zero fraction denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	if g == 0 {
		return Fraction{0, 1}
	}
	return Fraction{num / g, den / g}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// Zero is the additive identity.
var Zero = Fraction{0, 1}

// One represents a single whole base note.
var One = Fraction{1, 1}

func (f Fraction) Add(o Fraction) Fraction {
	return NewFraction(f.Num*o.Den+o.Num*f.Den, f.Den*o.Den)
}

func (f Fraction) Sub(o Fraction) Fraction {
	return NewFraction(f.Num*o.Den-o.Num*f.Den, f.Den*o.Den)
}

func (f Fraction) Mul(o Fraction) Fraction {
	return NewFraction(f.Num*o.Num, f.Den*o.Den)
}

func (f Fraction) MulInt(n int) Fraction {
	return NewFraction(f.Num*n, f.Den)
}

func (f Fraction) Less(o Fraction) bool {
	return f.Num*o.Den < o.Num*f.Den
}

func (f Fraction) Equal(o Fraction) bool {
	return f.Num*o.Den == o.Num*f.Den
}

func (f Fraction) IsZero() bool {
	return f.Num == 0
}

// Ticks converts the fraction to an integer tick count given the number of
// ticks in one base note (base_note_time). Rounds to the nearest tick;
// stage 9 is the only consumer and base_note_time is chosen so this is
// always exact for notation-derived fractions.
func (f Fraction) Ticks(baseNoteTicks int) int {
	num := f.Num * baseNoteTicks
	if num%f.Den == 0 {
		return num / f.Den
	}
	// round to nearest
	q := num / f.Den
	r := num % f.Den
	if 2*abs(r) >= f.Den {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return q
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}
