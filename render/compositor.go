package render

import (
	"fmt"
	"strings"

	"github.com/resolverai/burnie-mindshare-sub002/config"
	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// VideoLayer is one normalized video segment stacked onto the canvas,
// ordered bottom to top. Transition durations produce alpha ramps against
// whatever is underneath.
type VideoLayer struct {
	Path          string
	Start         float64
	Duration      float64
	TransitionIn  timeline.Transition
	TransitionOut timeline.Transition
}

// OverlayLayer is a decorated plate composited above every video layer.
// FullCanvas plates carry a blend mode and are merged through their own
// alpha mask instead of a plain overlay.
type OverlayLayer struct {
	Path          string
	X, Y          int
	Start         float64
	Duration      float64
	TransitionIn  timeline.Transition
	TransitionOut timeline.Transition
	Mode          BlendMode
	FullCanvas    bool
}

// CompositePlan is everything the final encode needs, resolved to local
// files and concrete numbers. BuildCompositeArgs is a pure function of
// the plan so the same edit always produces the same ffmpeg invocation.
type CompositePlan struct {
	Width, Height int
	FPS           int
	Duration      float64
	CRF           int
	Videos        []VideoLayer
	Overlays      []OverlayLayer
	Captions      string // ASS file path, empty when no captions
	Audio         string // mixed wav path
	Output        string
}

func (p CompositePlan) end(start, dur float64) float64 {
	end := start + dur
	if end > p.Duration {
		end = p.Duration
	}
	return end
}

// BuildCompositeArgs plans the single ffmpeg pass that layers every video
// segment and overlay plate over a black base canvas, burns captions in
// last, and muxes the mixed audio.
func BuildCompositeArgs(p CompositePlan) []string {
	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%.4f", p.Width, p.Height, p.FPS, p.Duration),
	}
	for _, v := range p.Videos {
		args = append(args, "-i", v.Path)
	}
	for _, o := range p.Overlays {
		// Plates are still PNGs; loop makes them a steady stream the
		// enable windows cut into.
		args = append(args, "-loop", "1", "-i", o.Path)
	}
	audioIdx := 1 + len(p.Videos) + len(p.Overlays)
	args = append(args, "-i", p.Audio)

	var graph strings.Builder
	prev := "[0:v]"

	for i, v := range p.Videos {
		in := fmt.Sprintf("[%d:v]", 1+i)
		lbl := fmt.Sprintf("[v%d]", i)
		end := p.end(v.Start, v.Duration)

		chain := []string{
			"format=yuva420p",
			fmt.Sprintf("setpts=PTS-STARTPTS+%.4f/TB", v.Start),
		}
		chain = append(chain, FadeFilters(v.TransitionIn, v.TransitionOut, v.Start, end-v.Start, true)...)
		fmt.Fprintf(&graph, "%s%s%s;", in, strings.Join(chain, ","), lbl)

		next := fmt.Sprintf("[s%d]", i)
		fmt.Fprintf(&graph, "%s%soverlay=0:0:eof_action=pass:enable='between(t,%.4f,%.4f)'%s;",
			prev, lbl, v.Start, end, next)
		prev = next
	}

	for i, o := range p.Overlays {
		in := fmt.Sprintf("[%d:v]", 1+len(p.Videos)+i)
		end := p.end(o.Start, o.Duration)

		if o.FullCanvas && o.Mode != BlendNormal {
			prev = blendStage(&graph, prev, in, o, end, i)
			continue
		}

		lbl := fmt.Sprintf("[p%d]", i)
		chain := []string{"format=rgba"}
		chain = append(chain, FadeFilters(o.TransitionIn, o.TransitionOut, o.Start, end-o.Start, true)...)
		fmt.Fprintf(&graph, "%s%s%s;", in, strings.Join(chain, ","), lbl)

		next := fmt.Sprintf("[o%d]", i)
		fmt.Fprintf(&graph, "%s%soverlay=%d:%d:enable='between(t,%.4f,%.4f)'%s;",
			prev, lbl, o.X, o.Y, o.Start, end, next)
		prev = next
	}

	final := []string{fmt.Sprintf("fps=%d", p.FPS)}
	if p.Captions != "" {
		final = append(final, fmt.Sprintf("ass=%s", escapeFilterPath(p.Captions)))
	}
	final = append(final, fmt.Sprintf("format=%s", config.PixelFormat))
	fmt.Fprintf(&graph, "%s%s[vout]", prev, strings.Join(final, ","))

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[vout]",
		"-map", fmt.Sprintf("%d:a", audioIdx),
	)
	args = append(args, EncodeArgs(p.CRF)...)
	args = append(args,
		"-t", fmt.Sprintf("%.4f", p.Duration),
		p.Output,
	)
	return args
}

// blendStage merges a full-canvas plate using its blend mode: the plate's
// alpha gates where the blended result replaces the base, so transparent
// plate regions and out-of-window frames pass the base through untouched.
func blendStage(graph *strings.Builder, prev, in string, o OverlayLayer, end float64, i int) string {
	mode, ok := o.Mode.FFmpegBlendMode()
	if !ok {
		mode = "normal"
	}

	chain := []string{
		"format=rgba",
		fmt.Sprintf("colorchannelmixer=aa=0:enable='not(between(t,%.4f,%.4f))'", o.Start, end),
	}
	chain = append(chain, FadeFilters(o.TransitionIn, o.TransitionOut, o.Start, end-o.Start, true)...)

	fmt.Fprintf(graph, "%s%s,split=2[p%d][pm%d];", in, strings.Join(chain, ","), i, i)
	fmt.Fprintf(graph, "[pm%d]alphaextract[m%d];", i, i)
	fmt.Fprintf(graph, "%sformat=rgba,split=2[b%d][bb%d];", prev, i, i)
	fmt.Fprintf(graph, "[b%d][p%d]blend=all_mode=%s[bl%d];", i, i, mode, i)

	next := fmt.Sprintf("[o%d]", i)
	fmt.Fprintf(graph, "[bb%d][bl%d][m%d]maskedmerge%s;", i, i, i, next)
	return next
}

// EncodeArgs is the shared output encode tail: H.264 in a broadly
// compatible pixel format, AAC audio, and the moov atom up front for
// streaming playback.
func EncodeArgs(crf int) []string {
	return []string{
		"-c:v", config.VideoCodec,
		"-preset", config.VideoPreset,
		"-crf", fmt.Sprintf("%d", crf),
		"-pix_fmt", config.PixelFormat,
		"-c:a", config.AudioCodec,
		"-b:a", config.AudioBitrate,
		"-movflags", "+faststart",
	}
}

// escapeFilterPath quotes a path for use inside a filter graph value.
func escapeFilterPath(path string) string {
	p := strings.ReplaceAll(path, ":", `\:`)
	return strings.ReplaceAll(p, "'", `\'`)
}
