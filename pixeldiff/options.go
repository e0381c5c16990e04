package pixeldiff

// Options carries the comparison tunables. Start from DefaultOptions and
// override what you need; invalid numeric values fall back to defaults.
type Options struct {
	// StripHeight is the height of one alignment strip in pixels.
	StripHeight int

	// MaxShift bounds the vertical alignment search in either direction.
	// Set Align to false to force every strip to offset 0.
	MaxShift int
	Align    bool

	// CoarseX / CoarseY are the sampling strides used when scoring
	// candidate offsets (every CoarseX-th column, every CoarseY-th row).
	CoarseX int
	CoarseY int

	// Threshold is the per-pixel difference sensitivity, 0-1. A pixel is
	// changed when any channel's normalized distance exceeds it. Zero is
	// a valid value and means exact matching; a negative value falls
	// back to the default.
	Threshold float64

	// AntiAlias enables anti-aliased edge suppression: changed pixels
	// that look like sub-pixel edge shifts are excluded from the count.
	AntiAlias bool
}

// DefaultOptions returns the standard comparison parameters.
func DefaultOptions() Options {
	return Options{
		StripHeight: 100,
		MaxShift:    120,
		Align:       true,
		CoarseX:     4,
		CoarseY:     4,
		Threshold:   0.1,
		AntiAlias:   true,
	}
}

// normalized fills unset fields with their defaults.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.StripHeight <= 0 {
		o.StripHeight = def.StripHeight
	}
	if o.MaxShift < 0 {
		o.MaxShift = def.MaxShift
	}
	if o.CoarseX <= 0 {
		o.CoarseX = def.CoarseX
	}
	if o.CoarseY <= 0 {
		o.CoarseY = def.CoarseY
	}
	if o.Threshold < 0 {
		o.Threshold = def.Threshold
	}
	return o
}
