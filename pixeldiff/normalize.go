package pixeldiff

import "image"

// Normalize decodes two bitmaps of arbitrary dimensions into a pair of
// same-size canvases. The smaller image is padded to max(w1,w2) ×
// max(h1,h2) with opaque white, content at the top-left origin. Nothing
// is ever cropped, and the returned buffers are always fresh copies,
// never aliased to each other or to the inputs.
func Normalize(a, b image.Image) (*Bitmap, *Bitmap) {
	return NormalizeBitmaps(FromImage(a), FromImage(b))
}

// NormalizeBitmaps is Normalize for already-converted buffers.
func NormalizeBitmaps(a, b *Bitmap) (*Bitmap, *Bitmap) {
	maxW := a.Width
	if b.Width > maxW {
		maxW = b.Width
	}
	maxH := a.Height
	if b.Height > maxH {
		maxH = b.Height
	}
	return padTo(a, maxW, maxH), padTo(b, maxW, maxH)
}

// padTo copies src into a fresh white canvas of the given size.
func padTo(src *Bitmap, width, height int) *Bitmap {
	out := NewBitmap(width, height)
	for y := 0; y < src.Height; y++ {
		srcRow := src.Pix[y*src.Width*4 : (y*src.Width+src.Width)*4]
		dstOff := y * width * 4
		copy(out.Pix[dstOff:dstOff+len(srcRow)], srcRow)
	}
	return out
}
