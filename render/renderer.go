package render

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/resolverai/burnie-mindshare-sub002/assets"
	"github.com/resolverai/burnie-mindshare-sub002/config"
	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// Renderer runs the full pipeline for one edit: fetch the referenced
// assets, normalize every clip, composite the layer stack and mix the
// audio bed, then encode the final file inside the job workspace.
type Renderer struct {
	resolver *assets.Resolver
	norm     *Normalizer
	runner   *Runner
	logger   zerolog.Logger
}

func NewRenderer(resolver *assets.Resolver, runner *Runner, logger zerolog.Logger) *Renderer {
	return &Renderer{
		resolver: resolver,
		norm:     NewNormalizer(logger),
		runner:   runner,
		logger:   logger.With().Str("component", "render").Logger(),
	}
}

// Render produces the final video for a timeline inside dir and returns
// its path. Any missing asset or failed ffmpeg pass aborts the whole
// job; the same timeline renders to the same output bit layout.
func (r *Renderer) Render(ctx context.Context, t *timeline.Timeline, dir string) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("invalid timeline: %w", err)
	}

	canvasW, canvasH := t.Canvas()
	fps := t.FPS()

	paths, err := r.resolver.FetchAll(ctx, collectRefs(t), dir)
	if err != nil {
		return "", err
	}

	parts, err := r.collectLayers(t, paths, dir, canvasW, canvasH, fps)
	if err != nil {
		return "", err
	}

	assPath := ""
	if len(parts.captions) > 0 {
		assPath = filepath.Join(dir, "captions.ass")
		if err := WriteASS(parts.captions, canvasW, canvasH, assPath); err != nil {
			return "", fmt.Errorf("failed to write captions: %w", err)
		}
	}

	mixPath := filepath.Join(dir, "mix.wav")
	if err := r.runner.Run(ctx, BuildMixArgs(parts.sources, t.Duration, mixPath)); err != nil {
		return "", fmt.Errorf("audio mix: %w", err)
	}

	outPath := filepath.Join(dir, "output."+t.Format())
	plan := CompositePlan{
		Width:    canvasW,
		Height:   canvasH,
		FPS:      fps,
		Duration: t.Duration,
		CRF:      config.QualityCRF(t.Export.Quality),
		Videos:   parts.videos,
		Overlays: parts.overlays,
		Captions: assPath,
		Audio:    mixPath,
		Output:   outPath,
	}
	if err := r.runner.Run(ctx, BuildCompositeArgs(plan)); err != nil {
		return "", fmt.Errorf("composite: %w", err)
	}

	r.logger.Info().
		Int("videos", len(parts.videos)).
		Int("overlays", len(parts.overlays)).
		Int("audio_sources", len(parts.sources)).
		Int("captions", len(parts.captions)).
		Msg("render complete")
	return outPath, nil
}

// renderParts is the prepared material for the final mix and composite
// passes, in compositing order.
type renderParts struct {
	videos   []VideoLayer
	overlays []OverlayLayer
	sources  []AudioSource
	captions []timeline.Clip
}

// collectLayers normalizes every clip on every visible track into layers
// and stems. Clips stack in track and list order; overlapping layers
// later in the list draw on top, regardless of their start times.
func (r *Renderer) collectLayers(t *timeline.Timeline, paths map[string]string, dir string, canvasW, canvasH, fps int) (renderParts, error) {
	var parts renderParts

	for ti, track := range t.Tracks {
		if !track.Visible {
			r.logger.Debug().Str("track", track.ID).Msg("skipping hidden track")
			continue
		}

		for ci, c := range track.Clips {
			switch c.Kind {
			case timeline.KindVideo:
				layer, src, err := r.prepareVideo(t, track, c, paths[c.Src], dir, ti, ci, canvasW, canvasH, fps)
				if err != nil {
					return renderParts{}, err
				}
				parts.videos = append(parts.videos, layer)
				if src != nil {
					parts.sources = append(parts.sources, *src)
				}

			case timeline.KindOverlay:
				layer, err := r.prepareOverlay(c, paths[c.Src], dir, ti, ci, canvasW, canvasH)
				if err != nil {
					return renderParts{}, err
				}
				parts.overlays = append(parts.overlays, layer)

			case timeline.KindAudio, timeline.KindMusic, timeline.KindVoiceover:
				if track.Muted {
					continue
				}
				src, err := r.prepareAudio(t, c, paths[c.Src], dir, ti, ci)
				if err != nil {
					return renderParts{}, err
				}
				if src != nil {
					parts.sources = append(parts.sources, *src)
				}

			case timeline.KindCaption:
				parts.captions = append(parts.captions, c)
			}
		}
	}
	return parts, nil
}

func (r *Renderer) prepareVideo(t *timeline.Timeline, track timeline.Track, c timeline.Clip, in, dir string, ti, ci, canvasW, canvasH, fps int) (VideoLayer, *AudioSource, error) {
	if in == "" {
		return VideoLayer{}, nil, fmt.Errorf("clip %s: asset %s was not fetched", c.ID, c.Src)
	}

	seg := filepath.Join(dir, fmt.Sprintf("seg_t%d_c%d.mp4", ti, ci))
	if err := r.norm.NormalizeVideo(in, seg, c, canvasW, canvasH, fps); err != nil {
		return VideoLayer{}, nil, err
	}

	layer := VideoLayer{
		Path:          seg,
		Start:         c.StartTime,
		Duration:      c.Duration,
		TransitionIn:  c.TransitionIn,
		TransitionOut: c.TransitionOut,
	}

	if track.Muted || c.Muted || c.Volume <= 0 {
		return layer, nil, nil
	}
	info, err := Probe(in)
	if err != nil {
		return VideoLayer{}, nil, err
	}
	if !info.HasAudio {
		return layer, nil, nil
	}

	target := t.EffectiveAudioDuration(c)
	if target <= config.DurationEpsilon {
		return layer, nil, nil
	}

	stem := filepath.Join(dir, fmt.Sprintf("aud_t%d_c%d.wav", ti, ci))
	if err := r.norm.NormalizeAudio(in, stem, c, target); err != nil {
		return VideoLayer{}, nil, err
	}
	return layer, &AudioSource{
		Path:     stem,
		Start:    c.StartTime,
		Duration: target,
		Volume:   c.Volume,
		FadeIn:   c.FadeIn,
		FadeOut:  c.FadeOut,
	}, nil
}

func (r *Renderer) prepareOverlay(c timeline.Clip, in, dir string, ti, ci, canvasW, canvasH int) (OverlayLayer, error) {
	if in == "" {
		return OverlayLayer{}, fmt.Errorf("clip %s: asset %s was not fetched", c.ID, c.Src)
	}

	src, err := LoadImage(in)
	if err != nil {
		return OverlayLayer{}, err
	}
	plate, err := BuildPlate(c, src, canvasW, canvasH)
	if err != nil {
		return OverlayLayer{}, err
	}

	path, err := plate.Save(dir, fmt.Sprintf("plate_t%d_c%d", ti, ci))
	if err != nil {
		return OverlayLayer{}, err
	}

	if _, ok := ParseBlendMode(c.BlendMode); !ok {
		r.logger.Warn().
			Str("clip", c.ID).
			Str("blend_mode", c.BlendMode).
			Msg("unknown blend mode, falling back to normal")
	}

	return OverlayLayer{
		Path:          path,
		X:             plate.X,
		Y:             plate.Y,
		Start:         c.StartTime,
		Duration:      c.Duration,
		TransitionIn:  c.TransitionIn,
		TransitionOut: c.TransitionOut,
		Mode:          plate.Mode,
		FullCanvas:    plate.Mode != BlendNormal,
	}, nil
}

func (r *Renderer) prepareAudio(t *timeline.Timeline, c timeline.Clip, in, dir string, ti, ci int) (*AudioSource, error) {
	if in == "" {
		return nil, fmt.Errorf("clip %s: asset %s was not fetched", c.ID, c.Src)
	}
	if c.Muted || c.Volume <= 0 {
		return nil, nil
	}

	target := t.EffectiveAudioDuration(c)
	if target <= config.DurationEpsilon {
		r.logger.Debug().Str("clip", c.ID).Msg("audio clip trimmed to nothing, dropping")
		return nil, nil
	}

	stem := filepath.Join(dir, fmt.Sprintf("aud_t%d_c%d.wav", ti, ci))
	if err := r.norm.NormalizeAudio(in, stem, c, target); err != nil {
		return nil, err
	}
	return &AudioSource{
		Path:     stem,
		Start:    c.StartTime,
		Duration: target,
		Volume:   c.Volume,
		FadeIn:   c.FadeIn,
		FadeOut:  c.FadeOut,
	}, nil
}

// collectRefs gathers the distinct asset references the render needs.
// Hidden tracks contribute nothing; muted tracks still need their video
// assets for the picture.
func collectRefs(t *timeline.Timeline) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, track := range t.Tracks {
		if !track.Visible {
			continue
		}
		for _, c := range track.Clips {
			if c.Src == "" || seen[c.Src] {
				continue
			}
			if track.Muted && c.Kind.IsAudio() {
				continue
			}
			seen[c.Src] = true
			refs = append(refs, c.Src)
		}
	}
	return refs
}
