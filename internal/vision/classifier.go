// Package vision classifies camera frames against configured material color
// bands. A frame matches the band containing the largest share of its
// pixels, provided that share clears the band's confidence floor.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"time"

	// Frames arrive as JPEG from the camera publisher; PNG covers tooling
	// and the simulator.
	_ "image/jpeg"
	_ "image/png"

	"github.com/chrissnell/remoterover/internal/types"
	"github.com/chrissnell/remoterover/pkg/config"
)

// Band is one material color range. Bounds are inclusive. A band whose
// lower hue exceeds its upper hue wraps around the hue origin, which is how
// red is calibrated; saturation and value never wrap.
type Band struct {
	Name          string
	Material      string
	Lower         HSV
	Upper         HSV
	MinConfidence float64
}

// Contains reports whether the HSV triple falls inside the band.
func (b *Band) Contains(h, s, v float64) bool {
	if s < b.Lower.S || s > b.Upper.S || v < b.Lower.V || v > b.Upper.V {
		return false
	}
	if b.Lower.H > b.Upper.H {
		return h >= b.Lower.H || h <= b.Upper.H
	}
	return h >= b.Lower.H && h <= b.Upper.H
}

// Classifier matches frames against an ordered set of material bands. Band
// order is semantic: at equal confidence the earliest declared band wins.
type Classifier struct {
	bands []Band
}

// NewClassifier builds a classifier from configured bands. Duplicate names
// and inverted saturation/value bounds are rejected here so classification
// never has to re-validate.
func NewClassifier(bands []config.BandData) (*Classifier, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("no material bands configured")
	}

	c := &Classifier{bands: make([]Band, 0, len(bands))}
	seen := make(map[string]bool)
	for _, b := range bands {
		if b.Name == "" {
			return nil, fmt.Errorf("band with empty name")
		}
		if seen[b.Name] {
			return nil, fmt.Errorf("duplicate band name %q", b.Name)
		}
		seen[b.Name] = true
		if b.Lower.S > b.Upper.S || b.Lower.V > b.Upper.V {
			return nil, fmt.Errorf("band %q: lower S/V bound exceeds upper", b.Name)
		}
		c.bands = append(c.bands, Band{
			Name:          b.Name,
			Material:      b.Material,
			Lower:         HSV{H: b.Lower.H, S: b.Lower.S, V: b.Lower.V},
			Upper:         HSV{H: b.Upper.H, S: b.Upper.S, V: b.Upper.V},
			MinConfidence: b.MinConfidence,
		})
	}
	return c, nil
}

// Bands returns the configured bands in declaration order.
func (c *Classifier) Bands() []Band {
	out := make([]Band, len(c.bands))
	copy(out, c.bands)
	return out
}

// Classify scans every pixel of the decoded frame and returns the best
// qualifying band as a DetectionResult. Zero-pixel images and frames with
// no qualifying band report Detected=false with nil material fields.
func (c *Classifier) Classify(img image.Image) types.DetectionResult {
	result := types.DetectionResult{Timestamp: time.Now()}

	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return result
	}

	counts := make([]int, len(c.bands))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			h, s, v := RGBToHSV(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			for i := range c.bands {
				if c.bands[i].Contains(h, s, v) {
					counts[i]++
				}
			}
		}
	}

	best := -1
	bestConfidence := 0.0
	for i := range c.bands {
		confidence := roundConfidence(float64(counts[i]) / float64(total))
		if confidence < c.bands[i].MinConfidence {
			continue
		}
		// Strictly greater keeps the earliest declared band on ties.
		if best == -1 || confidence > bestConfidence {
			best = i
			bestConfidence = confidence
		}
	}

	if best >= 0 {
		result.Detected = true
		result.Material = types.StringPtr(c.bands[best].Material)
		result.BandName = types.StringPtr(c.bands[best].Name)
		result.Confidence = types.FloatPtr(bestConfidence)
	}
	return result
}

// ClassifyFrame decodes an encoded frame and classifies it. Decode failures
// return the not-detected result alongside the error so callers can record
// a degraded scan without inventing a detection.
func (c *Classifier) ClassifyFrame(data []byte) (types.DetectionResult, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return types.DetectionResult{Timestamp: time.Now()}, fmt.Errorf("could not decode frame: %w", err)
	}
	return c.Classify(img), nil
}

// roundConfidence converts a pixel proportion to a percentage with two
// decimal places, clamped to [0,100].
func roundConfidence(proportion float64) float64 {
	confidence := math.Round(proportion*10000) / 100
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}
