package vision

import (
	"math"
	"testing"
)

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		h, s, v float64
	}{
		{name: "pure red", r: 255, g: 0, b: 0, h: 0, s: 255, v: 255},
		{name: "pure green", r: 0, g: 255, b: 0, h: 60, s: 255, v: 255},
		{name: "pure blue", r: 0, g: 0, b: 255, h: 120, s: 255, v: 255},
		{name: "cyan", r: 0, g: 255, b: 255, h: 90, s: 255, v: 255},
		{name: "magenta wraps through negative hue", r: 255, g: 0, b: 255, h: 150, s: 255, v: 255},
		{name: "white has no hue or saturation", r: 255, g: 255, b: 255, h: 0, s: 0, v: 255},
		{name: "black", r: 0, g: 0, b: 0, h: 0, s: 0, v: 0},
		{name: "gray keeps only value", r: 128, g: 128, b: 128, h: 0, s: 0, v: 128},
		{name: "field-calibrated brown", r: 139, g: 90, b: 50, h: 13.48, s: 163.27, v: 139},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := RGBToHSV(tt.r, tt.g, tt.b)
			if math.Abs(h-tt.h) > 0.01 {
				t.Errorf("hue: expected %.2f, got %.2f", tt.h, h)
			}
			if math.Abs(s-tt.s) > 0.01 {
				t.Errorf("saturation: expected %.2f, got %.2f", tt.s, s)
			}
			if math.Abs(v-tt.v) > 0.01 {
				t.Errorf("value: expected %.2f, got %.2f", tt.v, v)
			}
		})
	}
}

func TestRGBToHSVRanges(t *testing.T) {
	// Every representable color must land in the OpenCV-scaled ranges.
	for r := 0; r < 256; r += 17 {
		for g := 0; g < 256; g += 17 {
			for b := 0; b < 256; b += 17 {
				h, s, v := RGBToHSV(uint8(r), uint8(g), uint8(b))
				if h < 0 || h > 180 {
					t.Fatalf("hue out of range for (%d,%d,%d): %.2f", r, g, b, h)
				}
				if s < 0 || s > 255 {
					t.Fatalf("saturation out of range for (%d,%d,%d): %.2f", r, g, b, s)
				}
				if v < 0 || v > 255 {
					t.Fatalf("value out of range for (%d,%d,%d): %.2f", r, g, b, v)
				}
			}
		}
	}
}
