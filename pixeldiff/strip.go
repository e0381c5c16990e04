package pixeldiff

// Highlight color for changed pixels, blended over the original with
// partial opacity so page content stays recognizable underneath.
const (
	highlightR       = 0xFF
	highlightG       = 0x00
	highlightB       = 0x55
	highlightOpacity = 0.7
)

// compareStrip compares the reference strip at refY against the candidate
// strip at refY+offset, paints the result into out rows [refY, refY+stripHeight),
// and returns the changed-pixel count. Unchanged pixels carry the
// reference content; changed pixels get the highlight blend.
func compareStrip(ref, cand *Bitmap, refY, offset, stripHeight int, opts Options, out *Bitmap) int {
	candY := refY + offset
	changed := 0

	for dy := 0; dy < stripHeight; dy++ {
		ay := refY + dy
		by := candY + dy
		for x := 0; x < ref.Width; x++ {
			outIdx := out.at(x, ay)

			// A candidate row pushed out of bounds by the offset counts
			// as fully changed against white padding.
			if by < 0 || by >= cand.Height {
				paintChanged(ref, x, ay, out, outIdx)
				changed++
				continue
			}

			if !pixelDiffers(ref, cand, x, ay, x, by, opts.Threshold) {
				copyPixel(ref, x, ay, out, outIdx)
				continue
			}

			if opts.AntiAlias && looksAntiAliased(ref, cand, x, ay, x, by, opts.Threshold) {
				copyPixel(ref, x, ay, out, outIdx)
				continue
			}

			paintChanged(ref, x, ay, out, outIdx)
			changed++
		}
	}
	return changed
}

// pixelDiffers reports whether any R/G/B channel distance between the two
// pixels exceeds the normalized threshold.
func pixelDiffers(a, b *Bitmap, ax, ay, bx, by int, threshold float64) bool {
	r1, g1, b1 := a.rgb(ax, ay)
	r2, g2, b2 := b.rgb(bx, by)
	limit := threshold * 255
	return absDiff(r1, r2) > limit || absDiff(g1, g2) > limit || absDiff(b1, b2) > limit
}

// looksAntiAliased reports whether a changed pixel is anti-aliasing noise
// rather than a real content change: the color it shows in one image
// exists among its immediate neighbors in the other, in both directions.
// A genuine change differs sharply both ways; a sub-pixel edge shift
// finds its counterpart color right next door.
func looksAntiAliased(a, b *Bitmap, ax, ay, bx, by int, threshold float64) bool {
	return hasNearbyColor(a, ax, ay, b, bx, by, threshold) &&
		hasNearbyColor(b, bx, by, a, ax, ay, threshold)
}

// hasNearbyColor reports whether any 8-neighbor of (nx, ny) in img is
// within the threshold of the target pixel (tx, ty) in other.
func hasNearbyColor(img *Bitmap, nx, ny int, other *Bitmap, tx, ty int, threshold float64) bool {
	tr, tg, tb := other.rgb(tx, ty)
	limit := threshold * 255

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			x, y := nx+dx, ny+dy
			if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
				continue
			}
			r, g, bl := img.rgb(x, y)
			if absDiff(r, tr) <= limit && absDiff(g, tg) <= limit && absDiff(bl, tb) <= limit {
				return true
			}
		}
	}
	return false
}

// copyPixel copies the source pixel into the output buffer.
func copyPixel(src *Bitmap, x, y int, out *Bitmap, outIdx int) {
	i := src.at(x, y)
	copy(out.Pix[outIdx:outIdx+4], src.Pix[i:i+4])
}

// paintChanged blends the highlight color over the source pixel.
func paintChanged(src *Bitmap, x, y int, out *Bitmap, outIdx int) {
	i := src.at(x, y)
	out.Pix[outIdx] = blend(src.Pix[i], highlightR)
	out.Pix[outIdx+1] = blend(src.Pix[i+1], highlightG)
	out.Pix[outIdx+2] = blend(src.Pix[i+2], highlightB)
	out.Pix[outIdx+3] = 0xFF
}

func blend(base, over byte) byte {
	return byte(float64(base)*(1-highlightOpacity) + float64(over)*highlightOpacity)
}
