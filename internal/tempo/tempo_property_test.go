package tempo

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTicksToSecondsIsExactRational verifies the rational tempo exactness
// property: for integer tick distances and integer microseconds-per-quarter,
// the tempo fraction's denominator after reduction never exceeds
// division * microsPerQuarter, and the computed seconds value matches the
// exact rational division done in integer arithmetic.
func TestTicksToSecondsIsExactRational(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("ticks_to_seconds matches exact rational division", prop.ForAll(
		func(division, micros, ticks uint32) bool {
			div := uint64(division%4000 + 1)
			mic := uint64(micros%2000000 + 1)
			tk := uint64(ticks % 1000000)

			m := NewModel(div)
			m.SetTempo(mic)
			f := m.Current()

			if f.Denom > div*mic {
				return false
			}

			got := f.Seconds(tk)
			want := float64(mic) / float64(1000000*div) * float64(tk)

			diff := got - want
			if diff < 0 {
				diff = -diff
			}
			return diff < 1e-6*(want+1)
		},
		gen.UInt32(),
		gen.UInt32(),
		gen.UInt32(),
	))

	properties.TestingRun(t)
}

// TestFractionReduceNeverGrowsDenomUnbounded checks that repeated Mul calls
// keep the fraction in reduced form, so long songs with many tempo changes
// never see numerator/denominator growth beyond the current scalar's bound.
func TestFractionReduceNeverGrowsDenomUnbounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("Mul result is always in lowest terms", prop.ForAll(
		func(denom, scalar uint32) bool {
			d := uint64(denom%100000 + 1)
			s := uint64(scalar%100000 + 1)

			f := Fraction{Nom: 1, Denom: d}.Mul(s)
			if f.Nom == 0 {
				return f.Denom == 1
			}
			return gcdUint64(f.Nom, f.Denom) == 1
		},
		gen.UInt32(),
		gen.UInt32(),
	))

	properties.TestingRun(t)
}

func gcdUint64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
