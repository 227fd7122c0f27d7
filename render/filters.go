package render

import (
	"fmt"

	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// VideoFilterChain compiles per-clip color adjustments into ffmpeg video
// filters, in the same fixed order and with the same numerics as the
// pixel-side ApplyFilters: multiplicative brightness, contrast around the
// 128 midpoint, luma-anchored saturation, HSV hue rotation, gaussian
// blur. Neutral levels compile to nothing.
func VideoFilterChain(f timeline.Filters) []string {
	var filters []string

	if f.Brightness != 100 {
		k := f.Brightness / 100
		filters = append(filters, fmt.Sprintf("colorchannelmixer=rr=%.4f:gg=%.4f:bb=%.4f", k, k, k))
	}
	if f.Contrast != 100 {
		filters = append(filters, fmt.Sprintf("eq=contrast=%.4f", f.Contrast/100))
	}
	if f.Saturation != 100 {
		filters = append(filters, fmt.Sprintf("eq=saturation=%.4f", f.Saturation/100))
	}
	if f.Hue != 0 {
		filters = append(filters, fmt.Sprintf("hue=h=%.2f", f.Hue))
	}
	if f.Blur > 0 {
		filters = append(filters, fmt.Sprintf("gblur=sigma=%.2f", f.Blur))
	}

	return filters
}

// FadeFilters compiles a clip's entry/exit transitions into ffmpeg fade
// filters. start is the clip's position on the stream's own timebase and
// dur its duration; alpha selects alpha-channel fading for overlay
// plates (RGBA) versus fade-to-black for opaque video. Dissolve renders
// identically to fade; none compiles to nothing. Transitions never
// change the clip's duration.
func FadeFilters(in, out timeline.Transition, start, dur float64, alpha bool) []string {
	var filters []string

	suffix := ""
	if alpha {
		suffix = ":alpha=1"
	}

	if in.Active() {
		d := minf(in.Duration, dur)
		filters = append(filters, fmt.Sprintf("fade=t=in:st=%.3f:d=%.3f%s", start, d, suffix))
	}
	if out.Active() {
		d := minf(out.Duration, dur)
		filters = append(filters, fmt.Sprintf("fade=t=out:st=%.3f:d=%.3f%s", start+dur-d, d, suffix))
	}

	return filters
}

// AtempoChain builds a chain of atempo filters for audio speed changes.
// atempo only supports the 0.5-2.0 range, so larger factors are chained.
func AtempoChain(factor float64) []string {
	if factor <= 0 || factor == 1.0 {
		return nil
	}
	var filters []string
	remaining := factor
	for remaining > 2.0 {
		filters = append(filters, "atempo=2.0")
		remaining /= 2.0
	}
	for remaining < 0.5 {
		filters = append(filters, "atempo=0.5")
		remaining /= 0.5
	}
	if remaining != 1.0 {
		filters = append(filters, fmt.Sprintf("atempo=%.4f", remaining))
	}
	return filters
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
