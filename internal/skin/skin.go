package skin

import (
	"fmt"
	"image"
	"math"

	"dermaCareAi/internal/imaging"
)

// Tone is a 1..6 scale where 1 is the lightest complexion and 6 the darkest.
type Tone int

// Type buckets for the heuristic classifier.
const (
	TypeNormal      = "normal"
	TypeDry         = "dry"
	TypeOily        = "oily"
	TypeCombination = "combination"
)

// Profile aggregates the measurements taken from a face photo.
type Profile struct {
	Tone        Tone     `json:"tone"`
	Type        string   `json:"type"`
	HasAcne     bool     `json:"has_acne"`
	AcnePercent float64  `json:"acne_percent"`
	Concerns    []string `json:"concerns,omitempty"`
}

// AcneSeverity maps the redness fraction onto a 0..1 scale.
func (p Profile) AcneSeverity() float64 {
	if !p.HasAcne {
		return 0
	}
	severity := p.AcnePercent * 5
	if severity > 1 {
		severity = 1
	}
	return severity
}

const (
	// Fraction of reddish pixels above which acne is flagged.
	acneThreshold = 0.08

	// Saturation spread above which the skin reads as combination.
	combinationSatStdDev = 35

	dryLumaCeiling  = 130
	oilyLumaFloor   = 180
	minFaceRegionPx = 16
)

// Analyze derives a skin profile from an encoded face photo.
func Analyze(photo []byte, concerns []string) (Profile, error) {
	img, err := imaging.Prepare(photo, imaging.MaxAnalysisEdge)
	if err != nil {
		return Profile{}, err
	}
	return AnalyzeImage(img, concerns)
}

// AnalyzeImage runs the heuristic measurements over an already-decoded image.
// The center half of the frame is treated as the face region.
func AnalyzeImage(img *image.RGBA, concerns []string) (Profile, error) {
	region := faceRegion(img.Bounds())
	if region.Dx()*region.Dy() < minFaceRegionPx {
		return Profile{}, fmt.Errorf("skin: image too small for analysis (%dx%d)", img.Bounds().Dx(), img.Bounds().Dy())
	}

	stats := collectStats(img, region)

	profile := Profile{
		Tone:        toneFromValue(stats.meanV),
		Type:        typeFromStats(stats),
		AcnePercent: stats.redFraction,
		Concerns:    concerns,
	}
	profile.HasAcne = stats.redFraction > acneThreshold
	return profile, nil
}

func faceRegion(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	return image.Rect(
		bounds.Min.X+w/4,
		bounds.Min.Y+h/4,
		bounds.Min.X+3*w/4,
		bounds.Min.Y+3*h/4,
	)
}

type regionStats struct {
	meanV       float64
	meanY       float64
	satStdDev   float64
	redFraction float64
}

func collectStats(img *image.RGBA, region image.Rectangle) regionStats {
	var (
		sumV, sumY   float64
		sumS, sumSSq float64
		redCount     int
		total        int
	)

	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			off := img.PixOffset(x, y)
			r := img.Pix[off]
			g := img.Pix[off+1]
			b := img.Pix[off+2]

			h, s, v := rgbToHSV(r, g, b)
			sumV += v
			sumS += s
			sumSSq += s * s
			sumY += luma(r, g, b)

			if isReddish(h, s, v) {
				redCount++
			}
			total++
		}
	}

	if total == 0 {
		return regionStats{}
	}

	meanS := sumS / float64(total)
	variance := sumSSq/float64(total) - meanS*meanS
	if variance < 0 {
		variance = 0
	}

	return regionStats{
		meanV:       sumV / float64(total),
		meanY:       sumY / float64(total),
		satStdDev:   math.Sqrt(variance),
		redFraction: float64(redCount) / float64(total),
	}
}

// toneFromValue maps mean brightness to the 1..6 tone scale.
func toneFromValue(v float64) Tone {
	switch {
	case v > 200:
		return 1
	case v > 180:
		return 2
	case v > 160:
		return 3
	case v > 140:
		return 4
	case v > 120:
		return 5
	default:
		return 6
	}
}

func typeFromStats(stats regionStats) string {
	switch {
	case stats.satStdDev > combinationSatStdDev:
		return TypeCombination
	case stats.meanY < dryLumaCeiling:
		return TypeDry
	case stats.meanY > oilyLumaFloor:
		return TypeOily
	default:
		return TypeNormal
	}
}

// isReddish matches the hue band associated with inflamed skin:
// hue within 20 degrees of pure red, with enough saturation and brightness
// to exclude shadows and neutral tones.
func isReddish(h, s, v float64) bool {
	if s < 70 || v < 50 {
		return false
	}
	return h <= 20 || h >= 340
}

// rgbToHSV converts to hue in degrees [0,360) with s and v in [0,255].
func rgbToHSV(r8, g8, b8 uint8) (h, s, v float64) {
	r := float64(r8)
	g := float64(g8)
	b := float64(b8)

	maxC := max3(r, g, b)
	minC := min3(r, g, b)
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC * 255
	}
	if delta == 0 {
		return 0, s, v
	}

	switch maxC {
	case r:
		h = 60 * ((g - b) / delta)
	case g:
		h = 60*((b-r)/delta) + 120
	default:
		h = 60*((r-g)/delta) + 240
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// luma is the Y channel of YCrCb (BT.601).
func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
