package render

import (
	"reflect"
	"strings"
	"testing"

	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

func basePlan() CompositePlan {
	return CompositePlan{
		Width:    1080,
		Height:   1920,
		FPS:      30,
		Duration: 10,
		CRF:      23,
		Audio:    "mix.wav",
		Output:   "out.mp4",
	}
}

func TestBuildCompositeArgsBareCanvas(t *testing.T) {
	args := BuildCompositeArgs(basePlan())

	if args[0] != "-f" || args[1] != "lavfi" {
		t.Fatalf("base canvas input missing: %v", args[:4])
	}
	if args[3] != "color=c=black:s=1080x1920:r=30:d=10.0000" {
		t.Errorf("canvas source = %q", args[3])
	}

	graph := extractFilterComplex(t, args)
	if graph != "[0:v]fps=30,format=yuv420p[vout]" {
		t.Errorf("graph = %q", graph)
	}

	if !hasPair(args, "-map", "[vout]") || !hasPair(args, "-map", "1:a") {
		t.Errorf("stream mapping wrong: %v", args)
	}
	if !hasPair(args, "-t", "10.0000") {
		t.Errorf("output duration missing: %v", args)
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("output path = %q", args[len(args)-1])
	}
}

func TestBuildCompositeArgsVideoLayers(t *testing.T) {
	p := basePlan()
	p.Videos = []VideoLayer{
		{Path: "a.mp4", Start: 0, Duration: 6},
		{
			Path: "b.mp4", Start: 5, Duration: 5,
			TransitionIn: timeline.Transition{Kind: "fade", Duration: 1},
		},
	}
	args := BuildCompositeArgs(p)

	if args[5] != "a.mp4" || args[7] != "b.mp4" {
		t.Fatalf("video inputs out of order: %v", args[4:8])
	}

	graph := extractFilterComplex(t, args)
	for _, want := range []string{
		"[1:v]format=yuva420p,setpts=PTS-STARTPTS+0.0000/TB[v0]",
		"[0:v][v0]overlay=0:0:eof_action=pass:enable='between(t,0.0000,6.0000)'[s0]",
		"[2:v]format=yuva420p,setpts=PTS-STARTPTS+5.0000/TB,fade=t=in:st=5.000:d=1.000:alpha=1[v1]",
		"[s0][v1]overlay=0:0:eof_action=pass:enable='between(t,5.0000,10.0000)'[s1]",
		"[s1]fps=30,format=yuv420p[vout]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph missing %q:\n%s", want, graph)
		}
	}
}

func TestBuildCompositeArgsOverlayNormal(t *testing.T) {
	p := basePlan()
	p.Overlays = []OverlayLayer{
		{Path: "plate.png", X: 378, Y: 798, Start: 2, Duration: 4, Mode: BlendNormal},
	}
	args := BuildCompositeArgs(p)

	// Plates loop so the enable window decides visibility
	found := false
	for i := 0; i+3 < len(args); i++ {
		if args[i] == "-loop" && args[i+1] == "1" && args[i+2] == "-i" && args[i+3] == "plate.png" {
			found = true
		}
	}
	if !found {
		t.Fatalf("looped plate input missing: %v", args)
	}

	graph := extractFilterComplex(t, args)
	if !strings.Contains(graph, "[1:v]format=rgba[p0]") {
		t.Errorf("plate prep missing: %s", graph)
	}
	if !strings.Contains(graph, "[0:v][p0]overlay=378:798:enable='between(t,2.0000,6.0000)'[o0]") {
		t.Errorf("plate overlay missing: %s", graph)
	}
}

func TestBuildCompositeArgsOverlayBlend(t *testing.T) {
	p := basePlan()
	p.Overlays = []OverlayLayer{
		{Path: "plate.png", Start: 1, Duration: 3, Mode: BlendMultiply, FullCanvas: true},
	}
	graph := extractFilterComplex(t, BuildCompositeArgs(p))

	for _, want := range []string{
		"colorchannelmixer=aa=0:enable='not(between(t,1.0000,4.0000))'",
		"[pm0]alphaextract[m0]",
		"blend=all_mode=multiply[bl0]",
		"[bb0][bl0][m0]maskedmerge[o0]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("blend stage missing %q:\n%s", want, graph)
		}
	}
}

func TestBuildCompositeArgsLayerClampedToTimeline(t *testing.T) {
	p := basePlan()
	p.Videos = []VideoLayer{{Path: "a.mp4", Start: 8, Duration: 5}}
	graph := extractFilterComplex(t, BuildCompositeArgs(p))

	if !strings.Contains(graph, "enable='between(t,8.0000,10.0000)'") {
		t.Errorf("layer window not clamped to timeline end:\n%s", graph)
	}
}

func TestBuildCompositeArgsCaptions(t *testing.T) {
	p := basePlan()
	p.Captions = "/tmp/job/captions.ass"
	graph := extractFilterComplex(t, BuildCompositeArgs(p))

	if !strings.Contains(graph, "ass=/tmp/job/captions.ass,format=yuv420p[vout]") {
		t.Errorf("caption burn-in missing or out of order:\n%s", graph)
	}
}

func TestBuildCompositeArgsDeterministic(t *testing.T) {
	p := basePlan()
	p.Videos = []VideoLayer{{Path: "a.mp4", Duration: 10}}
	p.Overlays = []OverlayLayer{
		{Path: "p.png", X: 10, Y: 20, Start: 1, Duration: 2, Mode: BlendScreen, FullCanvas: true},
	}
	first := BuildCompositeArgs(p)
	for i := 0; i < 5; i++ {
		if again := BuildCompositeArgs(p); !reflect.DeepEqual(again, first) {
			t.Fatalf("composite args changed between runs")
		}
	}
}

func TestEncodeArgs(t *testing.T) {
	args := EncodeArgs(21)
	for _, pair := range [][2]string{
		{"-c:v", "libx264"},
		{"-preset", "fast"},
		{"-crf", "21"},
		{"-pix_fmt", "yuv420p"},
		{"-c:a", "aac"},
		{"-b:a", "192k"},
		{"-movflags", "+faststart"},
	} {
		if !hasPair(args, pair[0], pair[1]) {
			t.Errorf("encode args missing %s %s: %v", pair[0], pair[1], args)
		}
	}
}

func TestEscapeFilterPath(t *testing.T) {
	if got := escapeFilterPath("/tmp/it's.ass"); got != `/tmp/it\'s.ass` {
		t.Errorf("escaped = %q", got)
	}
	if got := escapeFilterPath("/tmp/a:b.ass"); got != `/tmp/a\:b.ass` {
		t.Errorf("escaped = %q", got)
	}
}

// The reference scenario: a 10s base video with a 3s overlay appearing
// at 2s on a vertical canvas. Checks the whole plan shape end to end.
func TestBuildCompositeArgsReferenceScenario(t *testing.T) {
	p := CompositePlan{
		Width:    1080,
		Height:   1920,
		FPS:      30,
		Duration: 10,
		CRF:      23,
		Videos:   []VideoLayer{{Path: "base.mp4", Start: 0, Duration: 10}},
		Overlays: []OverlayLayer{
			{Path: "logo.png", X: 378, Y: 798, Start: 2, Duration: 3, Mode: BlendNormal},
		},
		Audio:  "mix.wav",
		Output: "out.mp4",
	}

	args := BuildCompositeArgs(p)

	if args[3] != "color=c=black:s=1080x1920:r=30:d=10.0000" {
		t.Errorf("canvas = %q", args[3])
	}

	graph := extractFilterComplex(t, args)
	want := "[1:v]format=yuva420p,setpts=PTS-STARTPTS+0.0000/TB[v0];" +
		"[0:v][v0]overlay=0:0:eof_action=pass:enable='between(t,0.0000,10.0000)'[s0];" +
		"[2:v]format=rgba[p0];" +
		"[s0][p0]overlay=378:798:enable='between(t,2.0000,5.0000)'[o0];" +
		"[o0]fps=30,format=yuv420p[vout]"
	if graph != want {
		t.Errorf("graph:\n got %s\nwant %s", graph, want)
	}

	// Audio input sits after the base canvas, one video and one plate
	if !hasPair(args, "-map", "3:a") {
		t.Errorf("audio mapping wrong: %v", args)
	}
}

func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
