package timeline

import (
	"encoding/json"
	"fmt"
)

// ClipKind discriminates the clip variants carried on a track.
type ClipKind string

const (
	KindVideo     ClipKind = "video"
	KindAudio     ClipKind = "audio"
	KindMusic     ClipKind = "music"
	KindVoiceover ClipKind = "voiceover"
	KindCaption   ClipKind = "caption"
	KindOverlay   ClipKind = "image"
)

// IsAudio reports whether the kind is a standalone audio variant.
func (k ClipKind) IsAudio() bool {
	return k == KindAudio || k == KindMusic || k == KindVoiceover
}

// IsVisual reports whether the kind produces pixels on the canvas.
func (k ClipKind) IsVisual() bool {
	return k == KindVideo || k == KindCaption || k == KindOverlay
}

// Transform positions an overlay in preview-relative units: x/y are offset
// units around center, scale multiplies the base size, opacity is 0-1 and
// rotation is degrees clockwise.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation"`
}

// Size holds the overlay's base width as a percentage of canvas width.
// Height follows the source aspect ratio.
type Size struct {
	WidthPercent float64 `json:"width"`
}

// Filters holds per-clip color adjustments. 100 is neutral for brightness,
// contrast and saturation; hue is degrees and blur a radius, both 0-neutral.
type Filters struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Hue        float64 `json:"hue"`
	Blur       float64 `json:"blur"`
}

// UnmarshalJSON defaults omitted levels to their neutral values, so a
// partial filters object never darkens or desaturates a clip.
func (f *Filters) UnmarshalJSON(data []byte) error {
	var w struct {
		Brightness *float64 `json:"brightness"`
		Contrast   *float64 `json:"contrast"`
		Saturation *float64 `json:"saturation"`
		Hue        float64  `json:"hue"`
		Blur       float64  `json:"blur"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*f = NeutralFilters()
	if w.Brightness != nil {
		f.Brightness = *w.Brightness
	}
	if w.Contrast != nil {
		f.Contrast = *w.Contrast
	}
	if w.Saturation != nil {
		f.Saturation = *w.Saturation
	}
	f.Hue = w.Hue
	f.Blur = w.Blur
	return nil
}

// IsNeutral reports whether applying the filters would be a no-op.
func (f Filters) IsNeutral() bool {
	return f.Brightness == 100 && f.Contrast == 100 && f.Saturation == 100 && f.Hue == 0 && f.Blur == 0
}

// Shadow describes an overlay drop shadow.
type Shadow struct {
	Enabled bool    `json:"enabled"`
	Color   string  `json:"color"`
	Blur    float64 `json:"blur"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// Transition is an opacity ramp at a clip boundary. Kind is "fade",
// "dissolve" or "none"; dissolve renders identically to fade.
type Transition struct {
	Kind     string  `json:"type"`
	Duration float64 `json:"duration"`
}

// Active reports whether the transition produces a visible ramp.
func (t Transition) Active() bool {
	return (t.Kind == "fade" || t.Kind == "dissolve") && t.Duration > 0
}

// CaptionStyle carries the text rendering parameters for caption clips.
type CaptionStyle struct {
	Font          string  `json:"font"`
	FontSize      float64 `json:"font_size"`
	Color         string  `json:"color"`
	Alignment     string  `json:"alignment"`
	ShadowEnabled bool    `json:"shadow_enabled"`
	Background    bool    `json:"background"`
	BackgroundCol string  `json:"background_color"`
}

// Clip is one timed element on a track, discriminated by Kind. Only the
// field subset belonging to the kind is populated by parsing; the rest stay
// at zero values.
type Clip struct {
	Kind ClipKind
	ID   string
	Src  string

	// Timing, in timeline seconds / source seconds
	StartTime      float64
	Duration       float64
	SourceStart    float64
	SourceDuration float64

	// Video / audio
	Speed   float64
	Volume  float64
	FadeIn  float64
	FadeOut float64
	Muted   bool

	// Audio linkage: cap duration to the end of a referenced video clip
	TrimToClipEnd     bool
	TrimToVideoClipID string

	// Overlay placement and decoration
	Transform    Transform
	Size         Size
	CornerRadius float64
	BorderWidth  float64
	BorderColor  string
	Shadow       Shadow
	FlipH        bool
	FlipV        bool
	BlendMode    string

	// Video / overlay
	Filters       Filters
	TransitionIn  Transition
	TransitionOut Transition

	// Caption
	Text  string
	Style CaptionStyle
}

// End returns the clip's end time on the timeline.
func (c Clip) End() float64 { return c.StartTime + c.Duration }

// clipCommon is the wire subset shared by every clip kind.
type clipCommon struct {
	Type           string  `json:"type"`
	ID             string  `json:"id"`
	Src            string  `json:"src"`
	StartTime      float64 `json:"start_time"`
	Duration       float64 `json:"duration"`
	SourceStart    float64 `json:"source_start"`
	SourceDuration float64 `json:"source_duration"`
}

// mediaClipJSON is the wire shape for video and audio kinds.
type mediaClipJSON struct {
	clipCommon
	Speed             *float64    `json:"speed"`
	Volume            *float64    `json:"volume"`
	FadeIn            float64     `json:"fade_in"`
	FadeOut           float64     `json:"fade_out"`
	Muted             bool        `json:"muted"`
	TrimToClipEnd     bool        `json:"trim_to_clip_end"`
	TrimToVideoClipID string      `json:"trim_to_video_clip_id"`
	Filters           *Filters    `json:"filters"`
	TransitionIn      *Transition `json:"transition_in"`
	TransitionOut     *Transition `json:"transition_out"`
}

// overlayClipJSON is the wire shape for image overlays.
type overlayClipJSON struct {
	clipCommon
	Transform     *Transform  `json:"transform"`
	Size          *Size       `json:"size"`
	CornerRadius  float64     `json:"corner_radius"`
	BorderWidth   float64     `json:"border_width"`
	BorderColor   string      `json:"border_color"`
	ShadowEnabled bool        `json:"shadow_enabled"`
	ShadowColor   string      `json:"shadow_color"`
	ShadowBlur    float64     `json:"shadow_blur"`
	ShadowOffsetX float64     `json:"shadow_offset_x"`
	ShadowOffsetY float64     `json:"shadow_offset_y"`
	FlipH         bool        `json:"flip_horizontal"`
	FlipV         bool        `json:"flip_vertical"`
	BlendMode     string      `json:"blend_mode"`
	Filters       *Filters    `json:"filters"`
	TransitionIn  *Transition `json:"transition_in"`
	TransitionOut *Transition `json:"transition_out"`
}

// captionClipJSON is the wire shape for caption clips.
type captionClipJSON struct {
	clipCommon
	Text  string        `json:"text"`
	Style *CaptionStyle `json:"style"`
}

// UnmarshalJSON parses a clip record into the strict field subset belonging
// to its kind. Unknown kinds are an error rather than a silently skipped
// record; unrecognized extra fields are dropped.
func (c *Clip) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("clip record is not an object: %w", err)
	}

	switch ClipKind(tag.Type) {
	case KindVideo, KindAudio, KindMusic, KindVoiceover:
		var w mediaClipJSON
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("%s clip: %w", tag.Type, err)
		}
		*c = clipFromMedia(ClipKind(tag.Type), w)
		return nil

	case KindOverlay:
		var w overlayClipJSON
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("image clip: %w", err)
		}
		*c = clipFromOverlay(w)
		return nil

	case KindCaption:
		var w captionClipJSON
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("caption clip: %w", err)
		}
		*c = clipFromCaption(w)
		return nil

	default:
		return fmt.Errorf("unknown clip type %q", tag.Type)
	}
}

func applyCommon(c *Clip, w clipCommon) {
	c.ID = w.ID
	c.Src = w.Src
	c.StartTime = w.StartTime
	c.Duration = w.Duration
	c.SourceStart = w.SourceStart
	c.SourceDuration = w.SourceDuration
}

func clipFromMedia(kind ClipKind, w mediaClipJSON) Clip {
	c := Clip{Kind: kind, Speed: 1, Volume: 100, Filters: NeutralFilters()}
	applyCommon(&c, w.clipCommon)
	if w.Speed != nil && *w.Speed > 0 {
		c.Speed = *w.Speed
	}
	if w.Volume != nil {
		c.Volume = clamp(*w.Volume, 0, 100)
	}
	c.FadeIn = w.FadeIn
	c.FadeOut = w.FadeOut
	c.Muted = w.Muted
	c.TrimToClipEnd = w.TrimToClipEnd
	c.TrimToVideoClipID = w.TrimToVideoClipID
	if w.Filters != nil {
		c.Filters = *w.Filters
	}
	if w.TransitionIn != nil {
		c.TransitionIn = *w.TransitionIn
	}
	if w.TransitionOut != nil {
		c.TransitionOut = *w.TransitionOut
	}
	return c
}

func clipFromOverlay(w overlayClipJSON) Clip {
	c := Clip{
		Kind:      KindOverlay,
		Transform: Transform{Scale: 1, Opacity: 1},
		Size:      Size{WidthPercent: 100},
		Filters:   NeutralFilters(),
	}
	applyCommon(&c, w.clipCommon)
	if w.Transform != nil {
		c.Transform = *w.Transform
		if c.Transform.Scale <= 0 {
			c.Transform.Scale = 1
		}
		if c.Transform.Opacity <= 0 || c.Transform.Opacity > 1 {
			c.Transform.Opacity = 1
		}
	}
	if w.Size != nil && w.Size.WidthPercent > 0 {
		c.Size = *w.Size
	}
	c.CornerRadius = w.CornerRadius
	c.BorderWidth = w.BorderWidth
	c.BorderColor = w.BorderColor
	c.Shadow = Shadow{
		Enabled: w.ShadowEnabled,
		Color:   w.ShadowColor,
		Blur:    w.ShadowBlur,
		OffsetX: w.ShadowOffsetX,
		OffsetY: w.ShadowOffsetY,
	}
	c.FlipH = w.FlipH
	c.FlipV = w.FlipV
	c.BlendMode = w.BlendMode
	if w.Filters != nil {
		c.Filters = *w.Filters
	}
	if w.TransitionIn != nil {
		c.TransitionIn = *w.TransitionIn
	}
	if w.TransitionOut != nil {
		c.TransitionOut = *w.TransitionOut
	}
	return c
}

func clipFromCaption(w captionClipJSON) Clip {
	c := Clip{Kind: KindCaption, Style: DefaultCaptionStyle()}
	applyCommon(&c, w.clipCommon)
	c.Text = w.Text
	if w.Style != nil {
		c.Style = *w.Style
		if c.Style.Font == "" {
			c.Style.Font = DefaultCaptionStyle().Font
		}
		if c.Style.FontSize <= 0 {
			c.Style.FontSize = DefaultCaptionStyle().FontSize
		}
		if c.Style.Color == "" {
			c.Style.Color = DefaultCaptionStyle().Color
		}
	}
	return c
}

// NeutralFilters returns the identity filter levels.
func NeutralFilters() Filters {
	return Filters{Brightness: 100, Contrast: 100, Saturation: 100}
}

// DefaultCaptionStyle returns the caption styling used when a clip carries none.
func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		Font:      "Arial",
		FontSize:  48,
		Color:     "#FFFFFF",
		Alignment: "center",
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
