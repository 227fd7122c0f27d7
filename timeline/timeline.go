package timeline

import (
	"encoding/json"
	"fmt"

	"github.com/resolverai/burnie-mindshare-sub002/config"
)

// ExportSettings controls the output container and encoding.
type ExportSettings struct {
	Resolution string `json:"resolution"`
	Format     string `json:"format"`
	Quality    string `json:"quality"`
	FPS        int    `json:"fps"`
}

// Track is an ordered, independently toggleable layer of clips. Tracks
// composite bottom-to-top: earlier tracks form the base.
type Track struct {
	ID      string
	Clips   []Clip
	Muted   bool
	Visible bool
	Locked  bool
}

// trackJSON handles the visible flag defaulting to true when absent.
type trackJSON struct {
	ID      string `json:"id"`
	Clips   []Clip `json:"clips"`
	Muted   bool   `json:"muted"`
	Visible *bool  `json:"visible"`
	Locked  bool   `json:"locked"`
}

func (t *Track) UnmarshalJSON(data []byte) error {
	var w trackJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.ID = w.ID
	t.Clips = w.Clips
	t.Muted = w.Muted
	t.Locked = w.Locked
	t.Visible = w.Visible == nil || *w.Visible
	return nil
}

// Timeline is the full declarative edit description for one job. It is
// built once from the request payload and consumed read-only by the
// render pipeline.
type Timeline struct {
	Tracks      []Track        `json:"tracks"`
	Duration    float64        `json:"duration"`
	AspectRatio string         `json:"aspect_ratio"`
	Export      ExportSettings `json:"export_settings"`
}

// Canvas returns the fixed output dimensions for the timeline's aspect ratio.
func (t *Timeline) Canvas() (width, height int) {
	return config.CanvasSize(t.AspectRatio)
}

// FPS returns the export frame rate, defaulting to 30.
func (t *Timeline) FPS() int {
	if t.Export.FPS > 0 {
		return t.Export.FPS
	}
	return config.DefaultFPS
}

// Format returns the export container format, defaulting to mp4.
func (t *Timeline) Format() string {
	if t.Export.Format != "" {
		return t.Export.Format
	}
	return "mp4"
}

// Validate checks the structural invariants the renderer depends on.
func (t *Timeline) Validate() error {
	if t.Duration <= 0 {
		return fmt.Errorf("timeline duration must be positive, got %.3f", t.Duration)
	}
	if len(t.Tracks) == 0 {
		return fmt.Errorf("timeline has no tracks")
	}
	for ti, track := range t.Tracks {
		for ci, clip := range track.Clips {
			if clip.Duration <= 0 {
				return fmt.Errorf("track %d clip %d (%s): duration must be positive", ti, ci, clip.ID)
			}
			if clip.StartTime < 0 {
				return fmt.Errorf("track %d clip %d (%s): negative start time", ti, ci, clip.ID)
			}
			if clip.Kind != KindCaption && clip.Src == "" {
				return fmt.Errorf("track %d clip %d (%s): missing src", ti, ci, clip.ID)
			}
		}
	}
	return nil
}

// FindClip returns the first clip with the given id across all tracks.
func (t *Timeline) FindClip(id string) (Clip, bool) {
	for _, track := range t.Tracks {
		for _, clip := range track.Clips {
			if clip.ID == id {
				return clip, true
			}
		}
	}
	return Clip{}, false
}

// EffectiveAudioDuration resolves the duration an audio clip actually
// plays for. A clip linked to a video clip via trim_to_clip_end is
// silently shortened so it never outlasts that clip's end on the
// timeline; the overall timeline duration caps everything. A result of
// zero means the source is dropped from the mix.
func (t *Timeline) EffectiveAudioDuration(c Clip) float64 {
	dur := c.Duration

	if c.TrimToClipEnd && c.TrimToVideoClipID != "" {
		if ref, ok := t.FindClip(c.TrimToVideoClipID); ok {
			if limit := ref.End() - c.StartTime; limit < dur {
				dur = limit
			}
		}
	}

	if end := t.Duration - c.StartTime; end < dur {
		dur = end
	}

	if dur < 0 {
		return 0
	}
	return dur
}

// EditRequest is the job input payload. Rendering is asynchronous; the
// request is acknowledged immediately and the outcome reported through
// the callback URL.
type EditRequest struct {
	AccountID          string `json:"account_id"`
	GeneratedContentID string `json:"generated_content_id"`
	PostIndex          int    `json:"post_index"`
	EditID             string `json:"edit_id"`
	OriginalVideoURL   string `json:"original_video_url"`
	CallbackURL        string `json:"callback_url"`
	Timeline
}

// Validate checks the request identifiers plus the embedded timeline.
func (r *EditRequest) Validate() error {
	if r.EditID == "" {
		return fmt.Errorf("edit_id is required")
	}
	if r.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}
	return r.Timeline.Validate()
}

// OutputKey derives the deterministic storage key for the rendered edit.
// Repeated renders of the same edit overwrite the same object.
func (r *EditRequest) OutputKey() string {
	return fmt.Sprintf("edits/%s/%s_%d_%s.%s",
		r.AccountID, r.GeneratedContentID, r.PostIndex, r.EditID, r.Format())
}

// CompletionCallback is the payload POSTed to the callback URL when a
// job finishes, successfully or not.
type CompletionCallback struct {
	EditID         string `json:"edit_id"`
	Success        bool   `json:"success"`
	EditedVideoURL string `json:"edited_video_url,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}
