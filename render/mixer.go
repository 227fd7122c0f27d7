package render

import (
	"fmt"
	"math"
	"strings"
)

// AudioSource is one normalized stem placed on the timeline. The stem is
// already exact-duration and full-volume; gain, fades and placement happen
// in the mix graph.
type AudioSource struct {
	Path     string
	Start    float64
	Duration float64
	Volume   float64
	FadeIn   float64
	FadeOut  float64
}

// BuildMixArgs plans the ffmpeg invocation that folds every stem into a
// single stereo wav spanning exactly timelineDur seconds. The argument
// list is a pure function of its inputs so identical edits mix
// identically. With no stems it synthesizes silence.
func BuildMixArgs(sources []AudioSource, timelineDur float64, out string) []string {
	if len(sources) == 0 {
		return []string{
			"-f", "lavfi",
			"-i", "anullsrc=r=44100:cl=stereo",
			"-t", fmt.Sprintf("%.4f", timelineDur),
			"-acodec", "pcm_s16le",
			out,
		}
	}

	args := make([]string, 0, 2*len(sources)+8)
	for _, s := range sources {
		args = append(args, "-i", s.Path)
	}

	var graph strings.Builder
	labels := make([]string, len(sources))
	for i, s := range sources {
		labels[i] = fmt.Sprintf("[a%d]", i)
		fmt.Fprintf(&graph, "[%d:a]%s%s;", i, sourceChain(s), labels[i])
	}

	fmt.Fprintf(&graph, "%samix=inputs=%d:normalize=0:dropout_transition=0,atrim=0:%.4f[out]",
		strings.Join(labels, ""), len(sources), timelineDur)

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[out]",
		"-acodec", "pcm_s16le",
		out,
	)
	return args
}

// sourceChain builds the per-stem filter chain: gain, fade ramps and the
// delay that places the stem at its timeline offset. Ramps are clamped to
// half the stem so in and out never overlap.
func sourceChain(s AudioSource) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("volume=%.4f", s.Volume/100))

	if in := clampRamp(s.FadeIn, s.Duration); in > 0 {
		parts = append(parts, fmt.Sprintf("afade=t=in:st=0:d=%.4f", in))
	}
	if out := clampRamp(s.FadeOut, s.Duration); out > 0 {
		parts = append(parts, fmt.Sprintf("afade=t=out:st=%.4f:d=%.4f", s.Duration-out, out))
	}

	if s.Start > 0 {
		ms := int(math.Round(s.Start * 1000))
		parts = append(parts, fmt.Sprintf("adelay=%d|%d", ms, ms))
	}

	return strings.Join(parts, ",")
}

func clampRamp(ramp, duration float64) float64 {
	if ramp <= 0 {
		return 0
	}
	return math.Min(ramp, duration/2)
}
