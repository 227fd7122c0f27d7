package render

import (
	"fmt"
	"image/color"
	"os"
	"sort"

	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// WriteASS renders every caption clip into a single ASS subtitle file at
// outputPath. Each clip gets its own named style so per-caption fonts,
// colors and alignment survive the burn-in. Font sizes are authored
// against the preview width and scaled up to the export canvas.
func WriteASS(captions []timeline.Clip, canvasW, canvasH int, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	sorted := make([]timeline.Clip, len(captions))
	copy(sorted, captions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	fmt.Fprintln(file, "[Script Info]")
	fmt.Fprintln(file, "Title: Timeline Captions")
	fmt.Fprintln(file, "ScriptType: v4.00+")
	fmt.Fprintf(file, "PlayResX: %d\n", canvasW)
	fmt.Fprintf(file, "PlayResY: %d\n", canvasH)
	fmt.Fprintln(file, "")
	fmt.Fprintln(file, "[V4+ Styles]")
	fmt.Fprintln(file, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding")

	for i, c := range sorted {
		fmt.Fprintln(file, styleLine(fmt.Sprintf("Cap%d", i), c.Style, canvasW, canvasH))
	}

	fmt.Fprintln(file, "")
	fmt.Fprintln(file, "[Events]")
	fmt.Fprintln(file, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text")

	for i, c := range sorted {
		fmt.Fprintf(file, "Dialogue: 0,%s,%s,Cap%d,,0,0,0,,%s\n",
			formatASSTimestamp(c.StartTime),
			formatASSTimestamp(c.End()),
			i,
			escapeASSText(c.Text))
	}

	return nil
}

// styleLine builds one ASS Style record for a caption clip's styling.
func styleLine(name string, s timeline.CaptionStyle, canvasW, canvasH int) string {
	fontSize := int(ExportScale(s.FontSize, float64(canvasW)))
	primary := assColor(s.Color, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	// BorderStyle 4 draws an opaque box behind the text; OutlineColour
	// becomes the box color in that mode.
	borderStyle := 1
	outlineCol := "&H00000000"
	outline := 2
	if s.Background {
		borderStyle = 4
		outlineCol = assColor(s.BackgroundCol, color.NRGBA{A: 200})
		outline = int(ExportScale(6, float64(canvasW)))
	}

	shadow := 0
	if s.ShadowEnabled {
		shadow = int(ExportScale(2, float64(canvasW)))
		if shadow < 1 {
			shadow = 1
		}
	}

	alignment, marginV := assAlignment(s.Alignment, canvasH)

	return fmt.Sprintf("Style: %s,%s,%d,%s,%s,%s,&H80000000,0,0,0,0,100,100,0,0,%d,%d,%d,%d,40,40,%d,1",
		name, s.Font, fontSize, primary, primary, outlineCol,
		borderStyle, outline, shadow, alignment, marginV)
}

// assAlignment maps the caption alignment keyword to a numpad-style ASS
// alignment code and a vertical margin.
func assAlignment(alignment string, canvasH int) (code, marginV int) {
	switch alignment {
	case "top":
		return 8, canvasH / 16
	case "center", "middle":
		return 5, 0
	default:
		return 2, canvasH / 16
	}
}

// assColor converts a #RRGGBB hex color to ASS &HAABBGGRR form.
func assColor(hex string, def color.NRGBA) string {
	c := parseColor(hex, def)
	return fmt.Sprintf("&H%02X%02X%02X%02X", 255-c.A, c.B, c.G, c.R)
}

// formatASSTimestamp converts seconds to ASS timestamp format (h:mm:ss.cc).
func formatASSTimestamp(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)
	secs := int(seconds) % 60
	centisecs := int((seconds - float64(int(seconds))) * 100)

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centisecs)
}

// escapeASSText neutralizes characters with meaning inside ASS dialogue
// text. Newlines become hard line breaks.
func escapeASSText(text string) string {
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			out = append(out, '\\', 'N')
		case '\r':
		case '{':
			out = append(out, '(')
		case '}':
			out = append(out, ')')
		default:
			out = append(out, text[i])
		}
	}
	return string(out)
}
