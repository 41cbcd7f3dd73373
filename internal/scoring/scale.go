package scoring

// Scale maps a raw metric value into a bounded 0-10 sub-score given a range.
// A degenerate range (max == min) carries no information content, so the
// neutral midpoint 5 is returned. Otherwise
// the value's position in [min, max] is linearly interpolated into [0, 10],
// flipping the ratio when invert is set (lower is better), then clamped to
// absorb floating-point overshoot.
func Scale(value, min, max float64, invert bool) float64 {
	if max == min {
		return 5
	}

	ratio := (value - min) / (max - min)
	if invert {
		ratio = 1 - ratio
	}

	score := ratio * 10
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
