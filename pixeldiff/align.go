package pixeldiff

// alignStrip finds the vertical offset in cand that best matches the
// reference strip starting at row y. Candidate offsets are scanned in
// ascending order over [-MaxShift, +MaxShift]; only offsets that keep
// the whole candidate region inside cand's bounds are scored, and the
// current best is replaced only on a strictly lower score. If no offset
// keeps the region in bounds, the strip is compared in place (offset 0).
func alignStrip(ref, cand *Bitmap, y, stripHeight int, opts Options) int {
	if !opts.Align || opts.MaxShift == 0 {
		return 0
	}

	bestOffset := 0
	bestScore := -1.0

	for d := -opts.MaxShift; d <= opts.MaxShift; d++ {
		top := y + d
		if top < 0 || top+stripHeight > cand.Height {
			continue
		}
		score := stripScore(ref, cand, y, top, stripHeight, opts)
		if bestScore < 0 || score < bestScore {
			bestScore = score
			bestOffset = d
		}
	}
	return bestOffset
}

// stripScore computes the mean absolute R/G/B difference between the
// reference strip at refY and the candidate strip at candY, sampled on
// a coarse grid for speed.
func stripScore(ref, cand *Bitmap, refY, candY, stripHeight int, opts Options) float64 {
	width := ref.Width
	if cand.Width < width {
		width = cand.Width
	}

	var sum, samples float64
	for dy := 0; dy < stripHeight; dy += opts.CoarseY {
		for x := 0; x < width; x += opts.CoarseX {
			r1, g1, b1 := ref.rgb(x, refY+dy)
			r2, g2, b2 := cand.rgb(x, candY+dy)
			sum += absDiff(r1, r2) + absDiff(g1, g2) + absDiff(b1, b2)
			samples++
		}
	}
	if samples == 0 {
		return 0
	}
	return sum / samples
}

func absDiff(a, b byte) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
