package vision

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Brightness is the mean-luminance bucket of an image.
type Brightness string

const (
	BrightnessBright Brightness = "bright"
	BrightnessNormal Brightness = "normal"
	BrightnessDark   Brightness = "dark"
)

const (
	// Luminance thresholds at roughly 1/3 and 2/3 of the 0-255 range.
	darkBelow   = 85.0
	brightAbove = 170.0

	paletteSize  = 5
	thumbSize    = 64
	kmeansRounds = 8
)

// downsample scales src to w x h for cheap whole-image statistics.
func downsample(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// meanLuminance estimates brightness by collapsing the image to one pixel.
func meanLuminance(src image.Image) float64 {
	px := downsample(src, 1, 1)
	r, g, b := px.Pix[0], px.Pix[1], px.Pix[2]
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

func brightnessBucket(lum float64) Brightness {
	switch {
	case lum < darkBelow:
		return BrightnessDark
	case lum > brightAbove:
		return BrightnessBright
	default:
		return BrightnessNormal
	}
}

type rgb struct{ r, g, b float64 }

// dominantColor quantizes a small thumbnail to a 5-color palette and returns
// the most prominent entry as a hex RGB string.
func dominantColor(thumb *image.RGBA) string {
	var pixels []rgb
	for i := 0; i+3 < len(thumb.Pix); i += 4 {
		pixels = append(pixels, rgb{
			float64(thumb.Pix[i]),
			float64(thumb.Pix[i+1]),
			float64(thumb.Pix[i+2]),
		})
	}
	if len(pixels) == 0 {
		return "#000000"
	}

	// Seed centroids at evenly spaced pixels so the result is deterministic.
	centroids := make([]rgb, paletteSize)
	for i := range centroids {
		centroids[i] = pixels[i*len(pixels)/paletteSize]
	}

	counts := make([]int, paletteSize)

	for round := 0; round < kmeansRounds; round++ {
		for i := range counts {
			counts[i] = 0
		}
		sums := make([]rgb, paletteSize)

		for _, p := range pixels {
			best, bestDist := 0, math.MaxFloat64
			for j, c := range centroids {
				d := (p.r-c.r)*(p.r-c.r) + (p.g-c.g)*(p.g-c.g) + (p.b-c.b)*(p.b-c.b)
				if d < bestDist {
					best, bestDist = j, d
				}
			}
			counts[best]++
			sums[best].r += p.r
			sums[best].g += p.g
			sums[best].b += p.b
		}

		for j := range centroids {
			if counts[j] > 0 {
				centroids[j] = rgb{
					sums[j].r / float64(counts[j]),
					sums[j].g / float64(counts[j]),
					sums[j].b / float64(counts[j]),
				}
			}
		}
	}

	dominant := 0
	for j := 1; j < paletteSize; j++ {
		if counts[j] > counts[dominant] {
			dominant = j
		}
	}
	c := centroids[dominant]
	return fmt.Sprintf("#%02x%02x%02x",
		uint8(math.Round(c.r)), uint8(math.Round(c.g)), uint8(math.Round(c.b)))
}

// Skin-tone box in HSV space. Coarse: skin-toned non-skin content counts as
// skin.
const (
	skinHueMax = 50.0
	skinSatMin = 0.23
	skinSatMax = 0.68
	skinValMin = 0.35
)

// skinRatio is the percentage of pixels falling inside the skin-tone box,
// rounded to two decimals.
func skinRatio(thumb *image.RGBA) float64 {
	total := 0
	matched := 0
	for i := 0; i+3 < len(thumb.Pix); i += 4 {
		total++
		h, s, v := rgbToHSV(thumb.Pix[i], thumb.Pix[i+1], thumb.Pix[i+2])
		if h <= skinHueMax && s >= skinSatMin && s <= skinSatMax && v >= skinValMin {
			matched++
		}
	}
	if total == 0 {
		return 0
	}
	return math.Round(float64(matched)/float64(total)*100*100) / 100
}

// rgbToHSV converts 8-bit RGB to hue [0,360), saturation [0,1], value [0,1].
func rgbToHSV(r8, g8, b8 uint8) (h, s, v float64) {
	r := float64(r8) / 255
	g := float64(g8) / 255
	b := float64(b8) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}
	if delta == 0 {
		return 0, s, v
	}

	switch maxC {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}
