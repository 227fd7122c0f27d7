package render

import (
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func TestApplyFiltersBrightness(t *testing.T) {
	img := solidNRGBA(2, 2, color.NRGBA{100, 100, 100, 255})
	out := ApplyFilters(img, timeline.Filters{Brightness: 150, Contrast: 100, Saturation: 100})

	if out.Pix[0] != 150 {
		t.Errorf("brightness 150%% of 100 = %d, want 150", out.Pix[0])
	}

	// Clamps at 255
	bright := solidNRGBA(1, 1, color.NRGBA{200, 200, 200, 255})
	out = ApplyFilters(bright, timeline.Filters{Brightness: 200, Contrast: 100, Saturation: 100})
	if out.Pix[0] != 255 {
		t.Errorf("overdriven brightness = %d, want 255", out.Pix[0])
	}
}

func TestApplyFiltersContrast(t *testing.T) {
	img := solidNRGBA(1, 1, color.NRGBA{178, 178, 178, 255})
	out := ApplyFilters(img, timeline.Filters{Brightness: 100, Contrast: 200, Saturation: 100})

	// (178-128)*2+128 = 228
	if out.Pix[0] != 228 {
		t.Errorf("contrast = %d, want 228", out.Pix[0])
	}

	// Zero contrast collapses to the midpoint
	out = ApplyFilters(img, timeline.Filters{Brightness: 100, Contrast: 0, Saturation: 100})
	if out.Pix[0] != 128 {
		t.Errorf("zero contrast = %d, want 128", out.Pix[0])
	}
}

func TestApplyFiltersSaturation(t *testing.T) {
	img := solidNRGBA(1, 1, color.NRGBA{200, 50, 50, 255})
	out := ApplyFilters(img, timeline.Filters{Brightness: 100, Contrast: 100, Saturation: 0})

	// Fully desaturated pixel is uniformly the luma value
	gray := clampByte(luma(200, 50, 50))
	if out.Pix[0] != gray || out.Pix[1] != gray || out.Pix[2] != gray {
		t.Errorf("desaturated = (%d,%d,%d), want uniform %d", out.Pix[0], out.Pix[1], out.Pix[2], gray)
	}
}

func TestApplyFiltersHueFullCircle(t *testing.T) {
	img := solidNRGBA(1, 1, color.NRGBA{200, 80, 30, 255})
	out := ApplyFilters(img, timeline.Filters{Brightness: 100, Contrast: 100, Saturation: 100, Hue: 360})

	// A full rotation wraps back to the original color (±1 rounding)
	for c := 0; c < 3; c++ {
		if diff := int(out.Pix[c]) - int(img.Pix[c]); diff < -1 || diff > 1 {
			t.Errorf("channel %d drifted by %d after 360° rotation", c, diff)
		}
	}
}

func TestApplyFiltersNeutralIsIdentity(t *testing.T) {
	img := solidNRGBA(2, 2, color.NRGBA{12, 200, 77, 255})
	out := ApplyFilters(img, timeline.NeutralFilters())
	for i := range img.Pix {
		if out.Pix[i] != img.Pix[i] {
			t.Fatalf("neutral filters changed pixel data at %d", i)
		}
	}
}

func TestBlendMultiplySquaresPixels(t *testing.T) {
	base := solidNRGBA(2, 2, color.NRGBA{128, 64, 255, 255})
	over := solidNRGBA(2, 2, color.NRGBA{128, 64, 255, 255})

	BlendImage(base, over, image.Point{}, BlendMultiply, 1.0)

	// A fully opaque overlay multiplied with itself squares the
	// normalized channel values.
	want := func(v float64) uint8 { return clampByte(v / 255 * v / 255 * 255) }
	if base.Pix[0] != want(128) || base.Pix[1] != want(64) || base.Pix[2] != want(255) {
		t.Errorf("multiply = (%d,%d,%d), want (%d,%d,%d)",
			base.Pix[0], base.Pix[1], base.Pix[2], want(128), want(64), want(255))
	}
}

func TestBlendChannelFormulas(t *testing.T) {
	tests := []struct {
		mode BlendMode
		a, b float64
		want float64
	}{
		{BlendNormal, 0.3, 0.8, 0.8},
		{BlendMultiply, 0.5, 0.5, 0.25},
		{BlendScreen, 0.5, 0.5, 0.75},
		{BlendOverlay, 0.25, 0.5, 0.25},  // dark base: 2ab
		{BlendOverlay, 0.75, 0.5, 0.75},  // light base: 1-2(1-a)(1-b)
		{BlendDarken, 0.3, 0.6, 0.3},
		{BlendLighten, 0.3, 0.6, 0.6},
		{BlendDifference, 0.2, 0.9, 0.7},
	}
	for _, tt := range tests {
		if got := blendChannel(tt.mode, tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("blendChannel(%s, %v, %v) = %v, want %v", tt.mode, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBlendRespectsOpacityAndAlpha(t *testing.T) {
	base := solidNRGBA(1, 1, color.NRGBA{0, 0, 0, 255})
	over := solidNRGBA(1, 1, color.NRGBA{255, 255, 255, 255})

	BlendImage(base, over, image.Point{}, BlendNormal, 0.5)
	if base.Pix[0] < 126 || base.Pix[0] > 129 {
		t.Errorf("half-opacity white over black = %d, want ~128", base.Pix[0])
	}

	// Transparent overlay pixels leave the base untouched
	base = solidNRGBA(1, 1, color.NRGBA{40, 40, 40, 255})
	over = solidNRGBA(1, 1, color.NRGBA{255, 255, 255, 0})
	BlendImage(base, over, image.Point{}, BlendNormal, 1.0)
	if base.Pix[0] != 40 {
		t.Errorf("transparent overlay changed base to %d", base.Pix[0])
	}
}

func TestBlendOntoTransparentBaseKeepsSourceColor(t *testing.T) {
	// Straight-alpha source-over: compositing onto an empty plate must
	// not darken the source color, only carry its alpha. This is what
	// shadow silhouettes and canvas padding depend on.
	base := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	over := solidNRGBA(1, 1, color.NRGBA{200, 120, 60, 128})

	BlendImage(base, over, image.Point{}, BlendNormal, 1.0)

	if base.Pix[0] != 200 || base.Pix[1] != 120 || base.Pix[2] != 60 {
		t.Errorf("color over transparent base = (%d,%d,%d), want (200,120,60)",
			base.Pix[0], base.Pix[1], base.Pix[2])
	}
	if base.Pix[3] != 128 {
		t.Errorf("alpha over transparent base = %d, want 128", base.Pix[3])
	}

	// Over a half-covered base the output alpha accumulates coverage.
	base = solidNRGBA(1, 1, color.NRGBA{0, 0, 0, 128})
	BlendImage(base, over, image.Point{}, BlendNormal, 1.0)
	// outA = 0.502 + 0.502*(1-0.502) ≈ 0.752
	if base.Pix[3] < 190 || base.Pix[3] > 193 {
		t.Errorf("accumulated alpha = %d, want ~192", base.Pix[3])
	}
}

func TestParseBlendModeFallback(t *testing.T) {
	if m, ok := ParseBlendMode("multiply"); !ok || m != BlendMultiply {
		t.Errorf("multiply not recognized: %v %v", m, ok)
	}
	if m, ok := ParseBlendMode(""); !ok || m != BlendNormal {
		t.Errorf("empty should be normal: %v %v", m, ok)
	}
	if m, ok := ParseBlendMode("plasma"); ok || m != BlendNormal {
		t.Errorf("unknown mode should fall back to normal: %v %v", m, ok)
	}
}

func TestVideoFilterChain(t *testing.T) {
	chain := VideoFilterChain(timeline.Filters{Brightness: 150, Contrast: 120, Saturation: 80, Hue: 90, Blur: 4})
	if len(chain) != 5 {
		t.Fatalf("expected 5 filters, got %d: %v", len(chain), chain)
	}

	// Fixed order: brightness, contrast, saturation, hue, blur
	wantPrefix := []string{"colorchannelmixer=", "eq=contrast=", "eq=saturation=", "hue=h=", "gblur=sigma="}
	for i, p := range wantPrefix {
		if !strings.HasPrefix(chain[i], p) {
			t.Errorf("filter[%d] = %q, want prefix %q", i, chain[i], p)
		}
	}

	if got := VideoFilterChain(timeline.NeutralFilters()); len(got) != 0 {
		t.Errorf("neutral filters compiled to %v", got)
	}
}

func TestFadeFilters(t *testing.T) {
	in := timeline.Transition{Kind: "fade", Duration: 1}
	out := timeline.Transition{Kind: "dissolve", Duration: 0.5}

	got := FadeFilters(in, out, 2, 3, true)
	if len(got) != 2 {
		t.Fatalf("expected 2 fades, got %v", got)
	}
	if got[0] != "fade=t=in:st=2.000:d=1.000:alpha=1" {
		t.Errorf("fade in = %q", got[0])
	}
	if got[1] != "fade=t=out:st=4.500:d=0.500:alpha=1" {
		t.Errorf("fade out = %q", got[1])
	}

	if got := FadeFilters(timeline.Transition{Kind: "none"}, timeline.Transition{}, 0, 5, false); len(got) != 0 {
		t.Errorf("none transition compiled to %v", got)
	}
}

func TestAtempoChain(t *testing.T) {
	tests := []struct {
		factor float64
		want   []string
	}{
		{1.0, nil},
		{1.5, []string{"atempo=1.5000"}},
		{3.0, []string{"atempo=2.0", "atempo=1.5000"}},
		{0.25, []string{"atempo=0.5", "atempo=0.5000"}},
	}
	for _, tt := range tests {
		got := AtempoChain(tt.factor)
		if len(got) != len(tt.want) {
			t.Errorf("AtempoChain(%v) = %v, want %v", tt.factor, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("AtempoChain(%v)[%d] = %q, want %q", tt.factor, i, got[i], tt.want[i])
			}
		}
	}
}
