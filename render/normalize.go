package render

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/resolverai/burnie-mindshare-sub002/config"
	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// LoopPlan describes how a source trim window fills a clip's timeline slot.
type LoopPlan struct {
	// SourceStart and SourceDur bound the trim window in source seconds,
	// before any speed change.
	SourceStart float64
	SourceDur   float64
	// WindowDur is the post-speed duration of one pass over the window.
	WindowDur float64
	// Loops is how many passes over the window fill the slot; the last
	// pass is cut hard at Target.
	Loops  int
	Target float64
}

// PlanFill computes the trim window and loop count needed for a clip to
// fill target seconds of timeline. An empty trim window is fatal for the
// whole render.
func PlanFill(c timeline.Clip, srcDuration, target float64) (LoopPlan, error) {
	start := c.SourceStart
	if start < 0 {
		start = 0
	}
	avail := srcDuration - start
	window := avail
	if c.SourceDuration > 0 && c.SourceDuration < avail {
		window = c.SourceDuration
	}
	if window <= config.DurationEpsilon {
		return LoopPlan{}, fmt.Errorf("clip %s: trim window is empty (start %.3fs of %.3fs source)", c.ID, start, srcDuration)
	}

	speed := c.Speed
	if speed <= 0 {
		speed = 1
	}
	post := window / speed

	loops := 1
	if post < target-config.DurationEpsilon {
		loops = int(math.Ceil(target / post))
	}

	return LoopPlan{
		SourceStart: start,
		SourceDur:   window,
		WindowDur:   post,
		Loops:       loops,
		Target:      target,
	}, nil
}

// Normalizer turns raw fetched assets into canvas-conformed video segments
// and exact-duration audio stems that the compositor and mixer consume.
type Normalizer struct {
	logger zerolog.Logger
}

func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With().Str("component", "normalize").Logger()}
}

// NormalizeVideo renders a video clip's slot into an intermediate file at
// canvas size: trimmed, retimed, scaled and padded, color filtered and
// looped to exactly the clip duration, with audio stripped.
func (n *Normalizer) NormalizeVideo(in, out string, c timeline.Clip, canvasW, canvasH, fps int) error {
	info, err := Probe(in)
	if err != nil {
		return err
	}
	if !info.HasVideo {
		return fmt.Errorf("clip %s: %s has no video stream", c.ID, in)
	}

	// Plan against the video stream only; trailing audio must not
	// inflate the loop window.
	plan, err := PlanFill(c, info.VideoDuration, c.Duration)
	if err != nil {
		return err
	}

	n.logger.Debug().
		Str("clip", c.ID).
		Float64("window", plan.WindowDur).
		Int("loops", plan.Loops).
		Msg("normalizing video clip")

	speed := c.Speed
	if speed <= 0 {
		speed = 1
	}

	var vf []string
	if speed != 1 {
		vf = append(vf, fmt.Sprintf("setpts=PTS/%.4f", speed))
	}
	vf = append(vf,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", canvasW, canvasH),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", canvasW, canvasH),
		"setsar=1",
	)
	vf = append(vf, VideoFilterChain(c.Filters)...)
	vf = append(vf, fmt.Sprintf("fps=%d", fps))

	single := plan.Loops == 1
	target := out
	if !single {
		target = out + ".window.mp4"
	}

	if err := runFFmpegGo(
		ffmpeg.Input(in, ffmpeg.KwArgs{
			"ss": fmt.Sprintf("%.4f", plan.SourceStart),
			"t":  fmt.Sprintf("%.4f", plan.SourceDur),
		}).Output(target, mezzanineArgs(ffmpeg.KwArgs{
			"vf": strings.Join(vf, ","),
			"t":  fmt.Sprintf("%.4f", math.Min(plan.WindowDur, plan.Target)),
			"an": "",
		})),
	); err != nil {
		return fmt.Errorf("clip %s: %w", c.ID, err)
	}
	if single {
		return n.fixDuration(out, plan.Target)
	}

	loopVF := []string{"setpts=PTS-STARTPTS"}
	if err := runFFmpegGo(
		ffmpeg.Input(target, ffmpeg.KwArgs{
			"stream_loop": plan.Loops - 1,
		}).Output(out, mezzanineArgs(ffmpeg.KwArgs{
			"vf": strings.Join(loopVF, ","),
			"t":  fmt.Sprintf("%.4f", plan.Target),
			"an": "",
		})),
	); err != nil {
		return fmt.Errorf("clip %s: loop pass: %w", c.ID, err)
	}
	return n.fixDuration(out, plan.Target)
}

// NormalizeAudio flattens an audio source into a wav stem of exactly
// target seconds: trimmed, retimed through the atempo chain, and looped
// with a hard cut. Volume and fades are applied later by the mixer so
// stems stay reusable across passes.
func (n *Normalizer) NormalizeAudio(in, out string, c timeline.Clip, target float64) error {
	info, err := Probe(in)
	if err != nil {
		return err
	}
	if !info.HasAudio {
		return fmt.Errorf("clip %s: %s has no audio stream", c.ID, in)
	}

	plan, err := PlanFill(c, info.AudioDuration, target)
	if err != nil {
		return err
	}

	n.logger.Debug().
		Str("clip", c.ID).
		Float64("window", plan.WindowDur).
		Int("loops", plan.Loops).
		Msg("normalizing audio clip")

	speed := c.Speed
	if speed <= 0 {
		speed = 1
	}

	af := AtempoChain(speed)

	single := plan.Loops == 1
	windowOut := out
	if !single {
		windowOut = out + ".window.wav"
	}

	inArgs := ffmpeg.KwArgs{
		"ss": fmt.Sprintf("%.4f", plan.SourceStart),
		"t":  fmt.Sprintf("%.4f", plan.SourceDur),
	}
	outArgs := wavArgs(ffmpeg.KwArgs{
		"t": fmt.Sprintf("%.4f", math.Min(plan.WindowDur, plan.Target)),
	})
	if len(af) > 0 {
		outArgs["af"] = strings.Join(af, ",")
	}
	if err := runFFmpegGo(ffmpeg.Input(in, inArgs).Output(windowOut, outArgs)); err != nil {
		return fmt.Errorf("clip %s: %w", c.ID, err)
	}
	if single {
		return nil
	}

	if err := runFFmpegGo(
		ffmpeg.Input(windowOut, ffmpeg.KwArgs{
			"stream_loop": plan.Loops - 1,
		}).Output(out, wavArgs(ffmpeg.KwArgs{
			"t": fmt.Sprintf("%.4f", plan.Target),
		})),
	); err != nil {
		return fmt.Errorf("clip %s: loop pass: %w", c.ID, err)
	}
	return nil
}

// fixDuration reconciles a normalized segment with its planned length.
// Segments longer than target get a copy retrim; segments that came up
// short, usually because the container overstated the stream length, are
// looped back up to target so the slot never shows the base canvas.
func (n *Normalizer) fixDuration(path string, target float64) error {
	info, err := Probe(path)
	if err != nil {
		return err
	}
	drift := info.Duration - target

	switch {
	case drift > config.DurationEpsilon:
		n.logger.Debug().
			Str("path", path).
			Float64("actual", info.Duration).
			Float64("target", target).
			Msg("retrimming drifted segment")

		tmp := path + ".trim.mp4"
		if err := runFFmpegGo(
			ffmpeg.Input(path).Output(tmp, ffmpeg.KwArgs{
				"t":   fmt.Sprintf("%.4f", target),
				"c:v": "copy",
				"an":  "",
			}),
		); err != nil {
			return fmt.Errorf("retrim: %w", err)
		}
		return os.Rename(tmp, path)

	case drift < -config.DurationEpsilon:
		if info.Duration <= config.DurationEpsilon {
			return fmt.Errorf("refill: segment %s is empty", path)
		}
		loops := int(math.Ceil(target/info.Duration)) - 1

		n.logger.Debug().
			Str("path", path).
			Float64("actual", info.Duration).
			Float64("target", target).
			Int("loops", loops).
			Msg("looping short segment up to target")

		tmp := path + ".fill.mp4"
		if err := runFFmpegGo(
			ffmpeg.Input(path, ffmpeg.KwArgs{
				"stream_loop": loops,
			}).Output(tmp, mezzanineArgs(ffmpeg.KwArgs{
				"vf": "setpts=PTS-STARTPTS",
				"t":  fmt.Sprintf("%.4f", target),
				"an": "",
			})),
		); err != nil {
			return fmt.Errorf("refill: %w", err)
		}
		return os.Rename(tmp, path)
	}
	return nil
}

// mezzanineArgs is the shared encode config for intermediate segments.
// Near-lossless CRF keeps generational loss out of the final encode.
func mezzanineArgs(extra ffmpeg.KwArgs) ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{
		"c:v":     config.VideoCodec,
		"preset":  config.VideoPreset,
		"crf":     18,
		"pix_fmt": config.PixelFormat,
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func wavArgs(extra ffmpeg.KwArgs) ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{
		"acodec": "pcm_s16le",
		"ar":     44100,
		"ac":     2,
		"vn":     "",
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func runFFmpegGo(s *ffmpeg.Stream) error {
	var buf bytes.Buffer
	if err := s.OverWriteOutput().WithErrorOutput(&buf).Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(buf.Bytes(), 2048))
	}
	return nil
}
