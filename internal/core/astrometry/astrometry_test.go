package astrometry

import (
	"math"
	"testing"
)

func TestBKJD(t *testing.T) {
	t.Parallel()
	b := Barycentric{CorrectionDays: 0.0025}
	got := b.BKJD(54953.0)
	want := 54953.0 + 2400000.5 - 2454833 + float64(float32(0.0025))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("BKJD = %.10f, want %.10f", got, want)
	}
	if z := (Barycentric{}).BKJD(54832.5); z != 0 {
		t.Fatalf("epoch should map to zero, got %v", z)
	}
}

func TestPolynomialSorted(t *testing.T) {
	t.Parallel()
	p := Polynomial{Order: 2, Terms: []Term{{P: 1, Q: 1, Value: 3}, {P: 0, Q: 2, Value: 1}, {P: 2, Q: 0, Value: 2}, {P: 3, Q: 0, Value: 9}}}
	got := p.Sorted()
	if len(got) != 3 {
		t.Fatalf("terms above order should be dropped, got %v", got)
	}
	if got[0].Key("A") != "A_0_2" || got[1].Key("A") != "A_1_1" || got[2].Key("BP") != "BP_2_0" {
		t.Fatalf("order = %v", got)
	}
}
