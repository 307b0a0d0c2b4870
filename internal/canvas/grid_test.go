package canvas

import (
	"testing"

	"kastom/internal/domain"
)

func TestSnapIdempotent(t *testing.T) {
	for _, v := range []float64{-400, -30, 0, 10, 19.99, 333, 9000.4} {
		once := Snap(v)
		twice := Snap(once)
		if once != twice {
			t.Fatalf("snap not idempotent for %v: %v then %v", v, once, twice)
		}
	}
}

func TestSnapRoundsToNearest(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		9:    0,
		11:   20,
		25:   20,
		31:   40,
		-9:   0,
		-11:  -20,
		-31:  -40,
		1234: 1240,
	}
	for in, want := range cases {
		if got := Snap(in); got != want {
			t.Fatalf("Snap(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestSnapSizeFloorsAtMinimum(t *testing.T) {
	s := SnapSize(domain.Size{Width: 10, Height: 10})
	if s.Width != domain.MinWidgetWidth || s.Height != domain.MinWidgetHeight {
		t.Fatalf("size not clamped: %+v", s)
	}
	// Large negative deltas end up far below zero; the floor must still hold.
	s = SnapSize(domain.Size{Width: -100000, Height: -4})
	if s.Width < domain.MinWidgetWidth || s.Height < domain.MinWidgetHeight {
		t.Fatalf("floor violated: %+v", s)
	}
}
