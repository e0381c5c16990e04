package pixeldiff

import (
	"image"
	"image/draw"
)

// Bitmap is a width × height row-major RGBA pixel buffer.
// Invariant: len(Pix) == Width*Height*4.
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// NewBitmap allocates a bitmap filled with opaque white.
func NewBitmap(width, height int) *Bitmap {
	b := &Bitmap{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
	for i := range b.Pix {
		b.Pix[i] = 0xFF
	}
	return b
}

// FromImage converts any decoded image into a Bitmap.
func FromImage(img image.Image) *Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &Bitmap{Width: w, Height: h, Pix: rgba.Pix}
}

// ToImage wraps the buffer in an *image.RGBA sharing the same pixels.
func (b *Bitmap) ToImage() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// at returns the byte offset of pixel (x, y).
func (b *Bitmap) at(x, y int) int {
	return (y*b.Width + x) * 4
}

// rgb returns the red, green and blue channels of pixel (x, y).
func (b *Bitmap) rgb(x, y int) (r, g, bl byte) {
	i := b.at(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}
