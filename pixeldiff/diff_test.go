package pixeldiff

import (
	"testing"
)

// makePattern builds a deterministic test bitmap where every row has a
// distinct color signature, so alignment searches have a unique optimum.
func makePattern(width, height int) *Bitmap {
	b := NewBitmap(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := b.at(x, y)
			b.Pix[i] = byte((x*7 + y*13) % 256)
			b.Pix[i+1] = byte((x*3 + y*29) % 256)
			b.Pix[i+2] = byte((x + y*5) % 256)
			b.Pix[i+3] = 0xFF
		}
	}
	return b
}

// shiftDown builds a copy of src displaced down by k rows, the vacated
// top rows filled with opaque white (the padding color).
func shiftDown(src *Bitmap, k int) *Bitmap {
	out := NewBitmap(src.Width, src.Height)
	for y := k; y < src.Height; y++ {
		srcRow := src.Pix[(y-k)*src.Width*4 : (y-k+1)*src.Width*4]
		copy(out.Pix[y*src.Width*4:(y+1)*src.Width*4], srcRow)
	}
	return out
}

func TestCompareBitmaps_IdenticalIsZero(t *testing.T) {
	img := makePattern(120, 300)

	paramSets := []Options{
		DefaultOptions(),
		{StripHeight: 30, MaxShift: 50, Align: true, CoarseX: 2, CoarseY: 2, Threshold: 0.05, AntiAlias: true},
		{StripHeight: 7, MaxShift: 10, Align: true, CoarseX: 1, CoarseY: 1, Threshold: 0.3},
		{StripHeight: 500, Align: false, Threshold: 0.1},
	}

	for _, opts := range paramSets {
		result := CompareBitmaps(img, makePattern(120, 300), opts)
		if result.ChangedPixels != 0 {
			t.Errorf("opts %+v: identical bitmaps reported %d changed pixels", opts, result.ChangedPixels)
		}
		if result.PercentChanged != 0 {
			t.Errorf("opts %+v: identical bitmaps reported %.2f%% changed", opts, result.PercentChanged)
		}
		if result.TotalPixels != 120*300 {
			t.Errorf("opts %+v: total pixels = %d, want %d", opts, result.TotalPixels, 120*300)
		}
	}
}

func TestAlignStrip_RecoversUniformShift(t *testing.T) {
	const k = 40
	ref := makePattern(200, 400)
	cand := shiftDown(ref, k)

	opts := DefaultOptions()
	opts.MaxShift = 60
	opts.StripHeight = 50

	// Every strip whose shifted counterpart is fully inside the candidate
	// must recover exactly k.
	for y := 0; y+opts.StripHeight+k <= cand.Height; y += opts.StripHeight {
		got := alignStrip(ref, cand, y, opts.StripHeight, opts)
		if got != k {
			t.Errorf("strip at y=%d: offset = %d, want %d", y, got, k)
		}
	}
}

func TestCompareBitmaps_ShiftToleranceBeatsInPlace(t *testing.T) {
	const k = 40
	ref := makePattern(200, 400)
	cand := shiftDown(ref, k)

	aligned := DefaultOptions()
	aligned.MaxShift = 60
	aligned.StripHeight = 50

	inPlace := aligned
	inPlace.Align = false

	withAlign := CompareBitmaps(ref, cand, aligned)
	without := CompareBitmaps(ref, cand, inPlace)

	if withAlign.ChangedPixels >= without.ChangedPixels {
		t.Errorf("aligned comparison should report fewer changed pixels: aligned=%d in-place=%d",
			withAlign.ChangedPixels, without.ChangedPixels)
	}
	// The shifted copy matches exactly once aligned, so most of the page
	// should be clean. Only the trailing strips (whose counterparts fell
	// off the bottom) may differ.
	if withAlign.PercentChanged > 20 {
		t.Errorf("aligned comparison changed %.2f%%, expected under 20%%", withAlign.PercentChanged)
	}
}

func TestNormalizeBitmaps_PaddingSymmetry(t *testing.T) {
	a := makePattern(100, 50)
	b := makePattern(80, 200)

	a1, b1 := NormalizeBitmaps(a, b)
	b2, a2 := NormalizeBitmaps(b, a)

	for _, canvas := range []*Bitmap{a1, b1, a2, b2} {
		if canvas.Width != 100 || canvas.Height != 200 {
			t.Errorf("canvas = %dx%d, want 100x200", canvas.Width, canvas.Height)
		}
	}
}

func TestNormalizeBitmaps_PadsWithWhiteAndNeverAliases(t *testing.T) {
	a := makePattern(10, 10)
	b := makePattern(20, 5)

	na, nb := NormalizeBitmaps(a, b)

	// Beyond a's original width, the canvas must be opaque white.
	i := na.at(15, 3)
	if na.Pix[i] != 0xFF || na.Pix[i+1] != 0xFF || na.Pix[i+2] != 0xFF || na.Pix[i+3] != 0xFF {
		t.Errorf("padding pixel = %v, want opaque white", na.Pix[i:i+4])
	}

	// Mutating one output must not affect the other or the inputs.
	nb.Pix[0] = 0x01
	if na.Pix[0] == 0x01 {
		t.Error("normalized outputs share a buffer")
	}
	orig := makePattern(10, 10)
	if a.Pix[0] != orig.Pix[0] {
		t.Error("input buffer was mutated by normalization")
	}
}

func TestCompareBitmaps_ZeroAreaShortCircuits(t *testing.T) {
	empty := &Bitmap{Width: 0, Height: 0, Pix: nil}
	img := makePattern(10, 10)

	result := CompareBitmaps(empty, img, DefaultOptions())
	if result.TotalPixels != 0 || result.ChangedPixels != 0 || result.PercentChanged != 0 {
		t.Errorf("zero-area input: got total=%d changed=%d percent=%.2f, want all zero",
			result.TotalPixels, result.ChangedPixels, result.PercentChanged)
	}
}

func TestCompareBitmaps_ReportsSourceDimensions(t *testing.T) {
	a := makePattern(100, 300)
	b := makePattern(100, 340)

	result := CompareBitmaps(a, b, DefaultOptions())

	if result.Width1 != 100 || result.Height1 != 300 {
		t.Errorf("source 1 = %dx%d, want 100x300", result.Width1, result.Height1)
	}
	if result.Width2 != 100 || result.Height2 != 340 {
		t.Errorf("source 2 = %dx%d, want 100x340", result.Width2, result.Height2)
	}
	if !result.HeightMismatch {
		t.Error("height mismatch not flagged")
	}
	if result.TotalPixels != 100*340 {
		t.Errorf("total pixels = %d, want padded canvas %d", result.TotalPixels, 100*340)
	}
}

// fillRect paints a solid RGB rectangle.
func fillRect(b *Bitmap, x0, y0, x1, y1 int, r, g, bl byte) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := b.at(x, y)
			b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, 0xFF
		}
	}
}

func TestCompareStrip_AntiAliasSuppression(t *testing.T) {
	// A vertical black/white edge whose anti-aliased gray column moves
	// one pixel to the right: classic sub-pixel shift noise.
	a := NewBitmap(9, 9)
	fillRect(a, 0, 0, 4, 9, 0, 0, 0)       // black
	fillRect(a, 4, 0, 5, 9, 128, 128, 128) // AA column
	b := NewBitmap(9, 9)
	fillRect(b, 0, 0, 5, 9, 0, 0, 0)
	fillRect(b, 5, 0, 6, 9, 128, 128, 128)

	withAA := DefaultOptions()
	withAA.Align = false
	withAA.AntiAlias = true

	noAA := withAA
	noAA.AntiAlias = false

	suppressed := CompareBitmaps(a, b, withAA)
	raw := CompareBitmaps(a, b, noAA)

	if raw.ChangedPixels == 0 {
		t.Fatal("expected raw comparison to flag the moved edge")
	}
	if suppressed.ChangedPixels >= raw.ChangedPixels {
		t.Errorf("anti-alias suppression had no effect: with=%d without=%d",
			suppressed.ChangedPixels, raw.ChangedPixels)
	}
}

func TestCompareBitmaps_SolidChangeNotSuppressed(t *testing.T) {
	// A solid color block swap is a real change; AA suppression must not
	// swallow its interior.
	a := NewBitmap(20, 20)
	fillRect(a, 5, 5, 15, 15, 255, 0, 0)
	b := NewBitmap(20, 20)
	fillRect(b, 5, 5, 15, 15, 0, 0, 255)

	opts := DefaultOptions()
	opts.Align = false

	result := CompareBitmaps(a, b, opts)
	if result.ChangedPixels < 50 {
		t.Errorf("solid 10x10 block swap reported only %d changed pixels", result.ChangedPixels)
	}
}

func TestCompareBitmaps_ThresholdControlsSensitivity(t *testing.T) {
	a := NewBitmap(10, 10)
	b := NewBitmap(10, 10)
	// Nudge every pixel by 20/255 ≈ 0.078.
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i] = 0xFF - 20
	}

	loose := Options{StripHeight: 10, Threshold: 0.1, Align: false}
	strict := Options{StripHeight: 10, Threshold: 0.05, Align: false}

	if got := CompareBitmaps(a, b, loose); got.ChangedPixels != 0 {
		t.Errorf("threshold 0.1 should absorb a 20-unit nudge, got %d changed", got.ChangedPixels)
	}
	if got := CompareBitmaps(a, b, strict); got.ChangedPixels == 0 {
		t.Error("threshold 0.05 should flag a 20-unit nudge")
	}
}

func TestCompareBitmaps_ZeroThresholdMeansExactMatch(t *testing.T) {
	a := NewBitmap(10, 10)
	b := NewBitmap(10, 10)
	// One pixel off by a single unit in one channel.
	b.Pix[0] = 0xFE

	exact := Options{StripHeight: 10, Threshold: 0, Align: false}
	if got := CompareBitmaps(a, b, exact); got.ChangedPixels != 1 {
		t.Errorf("threshold 0 should flag a 1-unit difference, got %d changed", got.ChangedPixels)
	}

	fallback := Options{StripHeight: 10, Threshold: -1, Align: false}
	if got := CompareBitmaps(a, b, fallback); got.ChangedPixels != 0 {
		t.Errorf("negative threshold should fall back to the default, got %d changed", got.ChangedPixels)
	}
}

func TestCompareBitmaps_ProducesDiffImage(t *testing.T) {
	a := makePattern(16, 16)
	b := NewBitmap(16, 16)

	result := CompareBitmaps(a, b, DefaultOptions())
	if len(result.DiffImage) == 0 {
		t.Fatal("diff image not produced")
	}
	// PNG signature.
	if result.DiffImage[0] != 0x89 || string(result.DiffImage[1:4]) != "PNG" {
		t.Error("diff image is not a PNG")
	}
}
