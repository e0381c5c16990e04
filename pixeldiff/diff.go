package pixeldiff

import (
	"bytes"
	"image"
	"image/png"

	"github.com/use-agent/pagediff/models"
)

// Compare runs the full shift-tolerant pixel comparison of two decoded
// images and returns an immutable result.
//
// Flow:
//  1. Record original dimensions (pre-padding, for mismatch reporting).
//  2. Zero-area short-circuit.
//  3. Normalize both images onto a common white canvas.
//  4. Per strip: find the best vertical offset, then compare aligned
//     strips pixel-by-pixel into the diff canvas.
//  5. Encode the diff canvas as PNG and compute summary statistics.
func Compare(a, b image.Image, opts Options) *models.DiffResult {
	opts = opts.normalized()

	w1, h1 := a.Bounds().Dx(), a.Bounds().Dy()
	w2, h2 := b.Bounds().Dx(), b.Bounds().Dy()

	result := &models.DiffResult{
		Width1: w1, Height1: h1,
		Width2: w2, Height2: h2,
		HeightMismatch: h1 != h2,
	}

	// Degenerate geometry: nothing to compare, nothing to divide by.
	if w1 == 0 || h1 == 0 || w2 == 0 || h2 == 0 {
		return result
	}

	ref, cand := Normalize(a, b)
	return compareNormalized(ref, cand, opts, result)
}

// CompareBitmaps is Compare for pre-converted pixel buffers.
func CompareBitmaps(a, b *Bitmap, opts Options) *models.DiffResult {
	opts = opts.normalized()

	result := &models.DiffResult{
		Width1: a.Width, Height1: a.Height,
		Width2: b.Width, Height2: b.Height,
		HeightMismatch: a.Height != b.Height,
	}
	if a.Width == 0 || a.Height == 0 || b.Width == 0 || b.Height == 0 {
		return result
	}

	ref, cand := NormalizeBitmaps(a, b)
	return compareNormalized(ref, cand, opts, result)
}

func compareNormalized(ref, cand *Bitmap, opts Options, result *models.DiffResult) *models.DiffResult {
	width, height := ref.Width, ref.Height
	diff := NewBitmap(width, height)

	changed := 0
	for y := 0; y < height; y += opts.StripHeight {
		stripHeight := opts.StripHeight
		if y+stripHeight > height {
			stripHeight = height - y
		}
		offset := alignStrip(ref, cand, y, stripHeight, opts)
		changed += compareStrip(ref, cand, y, offset, stripHeight, opts, diff)
	}

	result.TotalPixels = width * height
	result.ChangedPixels = changed
	result.PercentChanged = float64(changed) / float64(result.TotalPixels) * 100
	result.DiffImage = encodePNG(diff)
	return result
}

// encodePNG renders the diff bitmap as PNG bytes. An encode failure
// (out of memory, effectively) yields a nil image rather than an error:
// the counts are the contract, the overlay is presentation.
func encodePNG(b *Bitmap) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, b.ToImage()); err != nil {
		return nil
	}
	return buf.Bytes()
}
