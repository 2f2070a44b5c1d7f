// Package tempo implements the exact rational tick-to-second conversion
// used to build a song's timeline. A tempo is kept as a reduced fraction
// rather than a float so that long songs with many tempo changes never
// accumulate rounding error; only the final seconds value, once exposed
// to a caller, is a float64.
package tempo

// Fraction is a reduced nonnegative rational nom/denom. The zero value is
// not meaningful; use NewModel and Model.Current to obtain one.
type Fraction struct {
	Nom   uint64
	Denom uint64
}

// reduce divides nom and denom by their gcd, mirroring the teacher's
// TickCalculator precompute step and tempo_fraction.hpp's tempo_optimize:
// performed after every multiply so magnitudes stay bounded across a long
// song with many tempo changes.
func (f Fraction) reduce() Fraction {
	if f.Nom == 0 {
		return Fraction{Nom: 0, Denom: 1}
	}

	n1, n2 := f.Denom, f.Nom
	if f.Nom < f.Denom {
		n1, n2 = f.Nom, f.Denom
	}

	for tmp := n2 % n1; tmp != 0; tmp = n2 % n1 {
		n2 = n1
		n1 = tmp
	}

	return Fraction{Nom: f.Nom / n1, Denom: f.Denom / n1}
}

// Mul returns f * scalar, reduced.
func (f Fraction) Mul(scalar uint64) Fraction {
	return Fraction{Nom: f.Nom * scalar, Denom: f.Denom}.reduce()
}

// Seconds converts ticks to seconds using this fraction as
// microseconds-per-tick scaled by the model's inv_delta (see Model).
func (f Fraction) Seconds(ticks uint64) float64 {
	return float64(f.Nom) / float64(f.Denom) * float64(ticks)
}

// DefaultMicrosPerQuarter is the MIDI default tempo (120 BPM) used when a
// score never emits an explicit tempo meta event.
const DefaultMicrosPerQuarter = 500000

// Model tracks the current tempo fraction for one track/timeline cursor.
// It exposes set_division/set_tempo/ticks_to_seconds from the rational
// tempo model described for Component A.
type Model struct {
	division uint64 // ticks per quarter note
	invDelta Fraction
	current  Fraction
}

// NewModel creates a Model for the given ticks-per-quarter division,
// starting at the MIDI default tempo until a tempo meta event overrides
// it.
func NewModel(division uint64) *Model {
	m := &Model{division: division}
	m.invDelta = Fraction{Nom: 1, Denom: 1000000 * division}.reduce()
	m.current = m.invDelta.Mul(DefaultMicrosPerQuarter)
	return m
}

// SetTempo installs a new tempo given microseconds-per-quarter-note, as
// read from a MIDI tempo meta event.
func (m *Model) SetTempo(microsPerQuarter uint64) {
	m.current = m.invDelta.Mul(microsPerQuarter)
}

// Current returns the active tempo fraction.
func (m *Model) Current() Fraction {
	return m.current
}

// Division returns the ticks-per-quarter-note division this model was
// constructed with.
func (m *Model) Division() uint64 {
	return m.division
}

// TicksToSeconds converts a tick delta to seconds under the current
// tempo.
func (m *Model) TicksToSeconds(ticks uint64) float64 {
	return m.current.Seconds(ticks)
}
