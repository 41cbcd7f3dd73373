package scoring

import "testing"

func TestScaleEndpoints(t *testing.T) {
	if got := Scale(0, 0, 100, false); got != 0 {
		t.Errorf("min value = %v, want 0", got)
	}
	if got := Scale(100, 0, 100, false); got != 10 {
		t.Errorf("max value = %v, want 10", got)
	}
	if got := Scale(50, 0, 100, false); got != 5 {
		t.Errorf("midpoint = %v, want 5", got)
	}
}

func TestScaleInverted(t *testing.T) {
	if got := Scale(0, 0, 100, true); got != 10 {
		t.Errorf("inverted min = %v, want 10", got)
	}
	if got := Scale(100, 0, 100, true); got != 0 {
		t.Errorf("inverted max = %v, want 0", got)
	}
}

// A degenerate range carries no information: every value maps to 5.
func TestScaleDegenerateRange(t *testing.T) {
	for _, v := range []float64{-10, 0, 42, 1e18} {
		if got := Scale(v, 7, 7, false); got != 5 {
			t.Errorf("Scale(%v, 7, 7) = %v, want 5", v, got)
		}
		if got := Scale(v, 7, 7, true); got != 5 {
			t.Errorf("Scale(%v, 7, 7, invert) = %v, want 5", v, got)
		}
	}
}

func TestScaleClampsOutOfRange(t *testing.T) {
	if got := Scale(-50, 0, 100, false); got != 0 {
		t.Errorf("below min = %v, want 0", got)
	}
	if got := Scale(250, 0, 100, false); got != 10 {
		t.Errorf("above max = %v, want 10", got)
	}
}

func TestScaleMonotonic(t *testing.T) {
	prev := Scale(0, 0, 100, false)
	for v := 1.0; v <= 100; v++ {
		cur := Scale(v, 0, 100, false)
		if cur < prev {
			t.Fatalf("not monotonic at %v: %v < %v", v, cur, prev)
		}
		prev = cur
	}
}

func TestScaleNegativeRange(t *testing.T) {
	// Signed metrics (net buys) can have a fully negative range.
	if got := Scale(-30, -30, -10, false); got != 0 {
		t.Errorf("negative range min = %v, want 0", got)
	}
	if got := Scale(-10, -30, -10, false); got != 10 {
		t.Errorf("negative range max = %v, want 10", got)
	}
}
