package tempo

import "testing"

func TestNewModelDefaultsTo120BPM(t *testing.T) {
	m := NewModel(96)
	got := m.TicksToSeconds(96)
	want := 0.5 // one quarter note at 120 BPM is half a second
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got %v seconds, want %v", got, want)
	}
}

func TestSetTempoChangesConversion(t *testing.T) {
	m := NewModel(480)
	m.SetTempo(1000000) // 60 BPM
	got := m.TicksToSeconds(480)
	want := 1.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got %v seconds, want %v", got, want)
	}
}

func TestFractionReducesAfterMultiply(t *testing.T) {
	f := Fraction{Nom: 1, Denom: 8}
	got := f.Mul(4)
	if got.Nom != 1 || got.Denom != 2 {
		t.Fatalf("got %+v, want {1 2}", got)
	}
}

func TestFractionZeroNomReducesToZeroOverOne(t *testing.T) {
	f := Fraction{Nom: 0, Denom: 7}
	got := f.reduce()
	if got.Nom != 0 || got.Denom != 1 {
		t.Fatalf("got %+v, want {0 1}", got)
	}
}

func TestFractionDenomNeverExceedsDivisionTimesScalar(t *testing.T) {
	m := NewModel(1000)
	for _, micros := range []uint64{500000, 250000, 1000000, 333333} {
		m.SetTempo(micros)
		f := m.Current()
		if f.Denom > m.Division()*1000000 {
			t.Fatalf("denom %d exceeds bound for division %d", f.Denom, m.Division())
		}
	}
}
