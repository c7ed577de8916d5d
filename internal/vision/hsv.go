package vision

import "math"

// HSV is one color bound in OpenCV scale: hue in [0,180], saturation and
// value in [0,255]. Band calibrations in config use this scale.
type HSV struct {
	H float64
	S float64
	V float64
}

// RGBToHSV converts an 8-bit RGB triple to OpenCV-scaled HSV. Hue is the
// standard sector decomposition halved into [0,180]; saturation and value
// scale to [0,255].
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	delta := max - min

	var hue float64
	switch {
	case delta == 0:
		hue = 0
	case max == rf:
		hue = 60 * math.Mod((gf-bf)/delta, 6)
	case max == gf:
		hue = 60 * ((bf-rf)/delta + 2)
	default:
		hue = 60 * ((rf-gf)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}

	var sat float64
	if max > 0 {
		sat = delta / max
	}

	return hue / 2, sat * 255, max * 255
}
