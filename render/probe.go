package render

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MediaInfo summarizes the probe results a render pass needs. Duration
// is the longest stream; loop planning must use the per-stream duration
// of the stream it consumes, since trailing audio past video EOF is
// common in screen recordings.
type MediaInfo struct {
	Duration      float64
	VideoDuration float64
	AudioDuration float64
	Width         int
	Height        int
	HasVideo      bool
	HasAudio      bool
}

// probeResult mirrors the ffprobe JSON fields we read.
type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects a media file and returns its duration, dimensions and
// stream layout.
func Probe(path string) (MediaInfo, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return parseProbe(raw, path)
}

func parseProbe(raw, path string) (MediaInfo, error) {
	var pr probeResult
	if err := json.Unmarshal([]byte(raw), &pr); err != nil {
		return MediaInfo{}, fmt.Errorf("failed to parse probe output for %s: %w", path, err)
	}

	var info MediaInfo
	for _, s := range pr.Streams {
		d, derr := strconv.ParseFloat(s.Duration, 64)
		switch s.CodecType {
		case "video":
			info.HasVideo = true
			if s.Width > 0 {
				info.Width = s.Width
				info.Height = s.Height
			}
			if derr == nil && d > info.VideoDuration {
				info.VideoDuration = d
			}
		case "audio":
			info.HasAudio = true
			if derr == nil && d > info.AudioDuration {
				info.AudioDuration = d
			}
		}
	}

	// Stream-level duration wins over container duration when present
	info.Duration = math.Max(info.VideoDuration, info.AudioDuration)
	if info.Duration == 0 {
		if d, err := strconv.ParseFloat(pr.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	// Containers without per-stream duration tags fall back to overall
	if info.HasVideo && info.VideoDuration == 0 {
		info.VideoDuration = info.Duration
	}
	if info.HasAudio && info.AudioDuration == 0 {
		info.AudioDuration = info.Duration
	}

	if !info.HasVideo && !info.HasAudio {
		return MediaInfo{}, fmt.Errorf("no usable streams in %s", path)
	}
	return info, nil
}
