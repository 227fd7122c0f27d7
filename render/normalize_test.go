package render

import (
	"math"
	"testing"

	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

func TestPlanFill(t *testing.T) {
	tests := []struct {
		name      string
		clip      timeline.Clip
		srcDur    float64
		target    float64
		wantLoops int
		wantWin   float64
		wantErr   bool
	}{
		{
			name:      "source covers slot",
			clip:      timeline.Clip{ID: "a", Speed: 1},
			srcDur:    10,
			target:    5,
			wantLoops: 1,
			wantWin:   10,
		},
		{
			name:      "short source loops",
			clip:      timeline.Clip{ID: "b", Speed: 1},
			srcDur:    2,
			target:    5,
			wantLoops: 3,
			wantWin:   2,
		},
		{
			name:      "speedup halves window",
			clip:      timeline.Clip{ID: "c", Speed: 2},
			srcDur:    10,
			target:    5,
			wantLoops: 1,
			wantWin:   5,
		},
		{
			name:      "slowdown stretches window past slot",
			clip:      timeline.Clip{ID: "d", Speed: 0.5, SourceDuration: 3},
			srcDur:    10,
			target:    5,
			wantLoops: 1,
			wantWin:   6,
		},
		{
			name:      "trim window within source",
			clip:      timeline.Clip{ID: "e", Speed: 1, SourceStart: 8, SourceDuration: 4},
			srcDur:    10,
			target:    6,
			wantLoops: 3,
			wantWin:   2,
		},
		{
			name:    "trim start past end of source",
			clip:    timeline.Clip{ID: "f", Speed: 1, SourceStart: 12},
			srcDur:  10,
			target:  5,
			wantErr: true,
		},
		{
			name:      "zero speed treated as unity",
			clip:      timeline.Clip{ID: "g"},
			srcDur:    4,
			target:    4,
			wantLoops: 1,
			wantWin:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanFill(tt.clip, tt.srcDur, tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("PlanFill: %v", err)
			}
			if plan.Loops != tt.wantLoops {
				t.Errorf("loops = %d, want %d", plan.Loops, tt.wantLoops)
			}
			if math.Abs(plan.WindowDur-tt.wantWin) > 1e-9 {
				t.Errorf("window = %v, want %v", plan.WindowDur, tt.wantWin)
			}
			if plan.Target != tt.target {
				t.Errorf("target = %v, want %v", plan.Target, tt.target)
			}
		})
	}
}

func TestPlanFillDeterministic(t *testing.T) {
	c := timeline.Clip{ID: "x", Speed: 1.5, SourceStart: 1, SourceDuration: 2.5}
	first, err := PlanFill(c, 20, 9)
	if err != nil {
		t.Fatalf("PlanFill: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := PlanFill(c, 20, 9)
		if err != nil {
			t.Fatalf("PlanFill: %v", err)
		}
		if again != first {
			t.Fatalf("plan changed between runs: %+v vs %+v", again, first)
		}
	}
}

func TestParseProbe(t *testing.T) {
	raw := `{
		"streams": [
			{"codec_type": "video", "width": 1920, "height": 1080, "duration": "12.512000"},
			{"codec_type": "audio", "duration": "12.480000"}
		],
		"format": {"duration": "12.520000"}
	}`

	info, err := parseProbe(raw, "clip.mp4")
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("stream flags = video %v audio %v, want both true", info.HasVideo, info.HasAudio)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", info.Width, info.Height)
	}
	if math.Abs(info.Duration-12.512) > 1e-9 {
		t.Errorf("duration = %v, want 12.512", info.Duration)
	}
}

func TestParseProbeTrailingAudio(t *testing.T) {
	// Screen recordings often carry audio past video EOF. The video
	// duration must not be inflated by the audio stream, or loop
	// planning under-fills the slot and leaves the base canvas showing.
	raw := `{
		"streams": [
			{"codec_type": "video", "width": 1280, "height": 720, "duration": "3.000000"},
			{"codec_type": "audio", "duration": "10.000000"}
		],
		"format": {"duration": "10.000000"}
	}`

	info, err := parseProbe(raw, "trailing.mp4")
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.VideoDuration != 3 {
		t.Errorf("video duration = %v, want 3", info.VideoDuration)
	}
	if info.AudioDuration != 10 {
		t.Errorf("audio duration = %v, want 10", info.AudioDuration)
	}
	if info.Duration != 10 {
		t.Errorf("overall duration = %v, want 10", info.Duration)
	}

	// An 8 second slot planned on the video stream loops 3 times
	plan, err := PlanFill(timeline.Clip{ID: "t", Speed: 1}, info.VideoDuration, 8)
	if err != nil {
		t.Fatalf("PlanFill: %v", err)
	}
	if plan.Loops != 3 {
		t.Errorf("loops = %d, want 3", plan.Loops)
	}
}

func TestParseProbeStreamDurationFallback(t *testing.T) {
	// Containers without per-stream duration tags fall back to the
	// container duration for both streams.
	raw := `{
		"streams": [
			{"codec_type": "video", "width": 640, "height": 360},
			{"codec_type": "audio"}
		],
		"format": {"duration": "7.500000"}
	}`

	info, err := parseProbe(raw, "untagged.mkv")
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.VideoDuration != 7.5 || info.AudioDuration != 7.5 {
		t.Errorf("per-stream durations = %v/%v, want 7.5/7.5", info.VideoDuration, info.AudioDuration)
	}
}

func TestParseProbeAudioOnly(t *testing.T) {
	raw := `{
		"streams": [{"codec_type": "audio"}],
		"format": {"duration": "3.000000"}
	}`

	info, err := parseProbe(raw, "music.mp3")
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.HasVideo {
		t.Error("HasVideo = true for audio-only file")
	}
	if info.Duration != 3 {
		t.Errorf("duration = %v, want 3", info.Duration)
	}
}

func TestParseProbeNoStreams(t *testing.T) {
	if _, err := parseProbe(`{"streams": [], "format": {}}`, "empty.bin"); err == nil {
		t.Fatal("expected error for file without streams")
	}
}
