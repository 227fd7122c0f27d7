package config

import "time"

// Encoding Constants
const (
	// VideoCodec is the video encoding codec
	VideoCodec = "libx264"

	// AudioCodec is the audio encoding codec
	AudioCodec = "aac"

	// AudioBitrate is the audio quality bitrate
	AudioBitrate = "192k"

	// VideoPreset is the ffmpeg encoding speed preset
	VideoPreset = "fast"

	// PixelFormat is forced for broad player compatibility
	PixelFormat = "yuv420p"

	// DefaultCRF is the x264 quality used when no export quality is requested
	DefaultCRF = 23

	// HighQualityCRF is used for the "high" export quality tier
	HighQualityCRF = 21

	// MaxQualityCRF is used for the "max" export quality tier
	MaxQualityCRF = 18

	// DefaultFPS is the output frame rate when export settings omit one
	DefaultFPS = 30
)

// Rendering Constants
const (
	// DurationEpsilon is the tolerance, in seconds, when reconciling a clip's
	// rendered duration against its declared timeline duration (one frame at
	// the default frame rate).
	DurationEpsilon = 1.0 / float64(DefaultFPS)

	// ReferenceOverlayWidth is the overlay width in pixels that the preview
	// editor lays out against. Corner radius and border width values from the
	// editor are expressed relative to this width and are rescaled to export
	// resolution. Versioned contract with the preview component; do not
	// rederive it from canvas math.
	ReferenceOverlayWidth = 360.0
)

// Processing Constants
const (
	// MaxConcurrentJobs limits the number of edits rendered simultaneously in batch mode
	MaxConcurrentJobs = 3

	// AssetFetchTimeout bounds a single source media download
	AssetFetchTimeout = 2 * time.Minute

	// CallbackTimeout bounds the completion callback POST
	CallbackTimeout = 30 * time.Second

	// PresignExpiry is the lifetime of regenerated authorization URLs
	PresignExpiry = 15 * time.Minute

	// JobStatusTTL is how long job status records are kept in Redis
	JobStatusTTL = 24 * time.Hour
)

// Directory Constants
const (
	// InputDir is the directory containing edit request JSON files in batch mode
	InputDir = "input"

	// OutputDir is the directory for locally kept renders in batch mode
	OutputDir = "output"
)

// CanvasSize maps an aspect ratio tag to fixed output dimensions.
// Unrecognized tags fall back to vertical 9:16.
func CanvasSize(aspectRatio string) (width, height int) {
	switch aspectRatio {
	case "16:9":
		return 1920, 1080
	case "1:1":
		return 1080, 1080
	case "9:16":
		return 1080, 1920
	default:
		return 1080, 1920
	}
}

// QualityCRF maps an export quality name to an x264 CRF value.
func QualityCRF(quality string) int {
	switch quality {
	case "high":
		return HighQualityCRF
	case "max":
		return MaxQualityCRF
	default:
		return DefaultCRF
	}
}
