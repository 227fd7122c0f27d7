package render

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// BlendMode is the pixel-combination rule used when compositing an
// overlay over the accumulated canvas.
type BlendMode string

const (
	BlendNormal     BlendMode = "normal"
	BlendMultiply   BlendMode = "multiply"
	BlendScreen     BlendMode = "screen"
	BlendOverlay    BlendMode = "overlay"
	BlendDarken     BlendMode = "darken"
	BlendLighten    BlendMode = "lighten"
	BlendSoftLight  BlendMode = "soft-light"
	BlendDifference BlendMode = "difference"
)

// ParseBlendMode maps a clip's blend mode value to a known mode. Unknown
// or empty values fall back to normal; the bool reports whether the input
// was recognized.
func ParseBlendMode(s string) (BlendMode, bool) {
	switch BlendMode(s) {
	case BlendNormal, BlendMultiply, BlendScreen, BlendOverlay,
		BlendDarken, BlendLighten, BlendSoftLight, BlendDifference:
		return BlendMode(s), true
	case "":
		return BlendNormal, true
	default:
		return BlendNormal, false
	}
}

// FFmpegBlendMode returns the blend filter mode name for modes that the
// video compositor hands to ffmpeg. Normal mode composites with the
// plain overlay filter instead and returns false.
func (m BlendMode) FFmpegBlendMode() (string, bool) {
	switch m {
	case BlendMultiply:
		return "multiply", true
	case BlendScreen:
		return "screen", true
	case BlendOverlay:
		return "overlay", true
	case BlendDarken:
		return "darken", true
	case BlendLighten:
		return "lighten", true
	case BlendSoftLight:
		return "softlight", true
	case BlendDifference:
		return "difference", true
	default:
		return "", false
	}
}

// ApplyFilters runs the per-clip color adjustments over a frame in the
// fixed order brightness, contrast, saturation, hue, blur. Each step is
// skipped at its neutral level. The numerics here are the contract the
// video-side ffmpeg filter chain replicates; see VideoFilterChain.
func ApplyFilters(img image.Image, f timeline.Filters) *image.NRGBA {
	out := imaging.Clone(img)

	if f.Brightness != 100 {
		adjustEachPixel(out, func(r, g, b float64) (float64, float64, float64) {
			k := f.Brightness / 100
			return r * k, g * k, b * k
		})
	}
	if f.Contrast != 100 {
		adjustEachPixel(out, func(r, g, b float64) (float64, float64, float64) {
			k := f.Contrast / 100
			return (r-128)*k + 128, (g-128)*k + 128, (b-128)*k + 128
		})
	}
	if f.Saturation != 100 {
		adjustEachPixel(out, func(r, g, b float64) (float64, float64, float64) {
			k := f.Saturation / 100
			gray := luma(r, g, b)
			return gray + k*(r-gray), gray + k*(g-gray), gray + k*(b-gray)
		})
	}
	if f.Hue != 0 {
		adjustEachPixel(out, func(r, g, b float64) (float64, float64, float64) {
			h, s, v := rgbToHSV(r, g, b)
			h = math.Mod(h+f.Hue, 360)
			if h < 0 {
				h += 360
			}
			return hsvToRGB(h, s, v)
		})
	}
	if f.Blur > 0 {
		out = imaging.Blur(out, f.Blur)
	}

	return out
}

// BlendImage composites over onto base at the given offset with the
// given mode, weighting by the overlay's own alpha times opacity.
// Pixels outside base are discarded.
func BlendImage(base *image.NRGBA, over *image.NRGBA, at image.Point, mode BlendMode, opacity float64) {
	ob := over.Bounds()
	bb := base.Bounds()

	for y := ob.Min.Y; y < ob.Max.Y; y++ {
		for x := ob.Min.X; x < ob.Max.X; x++ {
			bx := at.X + x - ob.Min.X
			by := at.Y + y - ob.Min.Y
			if bx < bb.Min.X || bx >= bb.Max.X || by < bb.Min.Y || by >= bb.Max.Y {
				continue
			}

			oi := over.PixOffset(x, y)
			bi := base.PixOffset(bx, by)

			ao := float64(over.Pix[oi+3]) / 255 * opacity
			if ao <= 0 {
				continue
			}
			ab := float64(base.Pix[bi+3]) / 255
			outA := ao + ab*(1-ao)

			for c := 0; c < 3; c++ {
				cb := float64(base.Pix[bi+c]) / 255
				co := float64(over.Pix[oi+c]) / 255
				// Blend result only applies where the base has coverage;
				// over transparent base the source color passes unchanged.
				src := co + ab*(blendChannel(mode, cb, co)-co)
				out := (src*ao + cb*ab*(1-ao)) / outA
				base.Pix[bi+c] = clampByte(out * 255)
			}
			base.Pix[bi+3] = clampByte(outA * 255)
		}
	}
}

// blendChannel combines one normalized channel pair per the mode.
func blendChannel(mode BlendMode, a, b float64) float64 {
	switch mode {
	case BlendMultiply:
		return a * b
	case BlendScreen:
		return 1 - (1-a)*(1-b)
	case BlendOverlay:
		if a < 0.5 {
			return 2 * a * b
		}
		return 1 - 2*(1-a)*(1-b)
	case BlendDarken:
		return math.Min(a, b)
	case BlendLighten:
		return math.Max(a, b)
	case BlendSoftLight:
		if b <= 0.5 {
			return a - (1-2*b)*a*(1-a)
		}
		var d float64
		if a <= 0.25 {
			d = ((16*a-12)*a + 4) * a
		} else {
			d = math.Sqrt(a)
		}
		return a + (2*b-1)*(d-a)
	case BlendDifference:
		return math.Abs(a - b)
	default:
		return b
	}
}

func adjustEachPixel(img *image.NRGBA, fn func(r, g, b float64) (float64, float64, float64)) {
	for i := 0; i < len(img.Pix); i += 4 {
		r, g, b := fn(float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2]))
		img.Pix[i] = clampByte(r)
		img.Pix[i+1] = clampByte(g)
		img.Pix[i+2] = clampByte(b)
	}
}

// luma uses the Rec.601 weights, matching the preview renderer.
func luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}

func rgbToHSV(r, g, b float64) (h, s, v float64) {
	r, g, b = r/255, g/255, b/255
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	d := max - min

	v = max
	if max > 0 {
		s = d / max
	}

	switch {
	case d == 0:
		h = 0
	case max == r:
		h = 60 * math.Mod((g-b)/d, 6)
	case max == g:
		h = 60 * ((b-r)/d + 2)
	default:
		h = 60 * ((r-g)/d + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return (r + m) * 255, (g + m) * 255, (b + m) * 255
}
