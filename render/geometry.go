package render

import (
	"math"

	"github.com/resolverai/burnie-mindshare-sub002/config"
	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// Placement is an overlay's absolute pixel geometry on the canvas. It
// reproduces the preview editor's layout formula exactly so the export
// matches what the user saw; any change here must ship together with a
// preview change.
type Placement struct {
	// Content box before decoration
	X, Y          int
	Width, Height int

	// Center in canvas pixels (kept as float for rounding decisions)
	CenterX, CenterY float64

	// Corner radius and border width rescaled to export resolution
	RadiusPx float64
	BorderPx float64
}

// ComputePlacement converts preview-relative transform parameters into
// canvas pixel coordinates. x/y are offset units where 5 units move the
// center by one percent of the canvas; size.width is a percentage of
// canvas width scaled by transform.scale; height follows the source
// aspect ratio.
func ComputePlacement(c timeline.Clip, canvasW, canvasH, srcW, srcH int) Placement {
	centerXPercent := 50 + c.Transform.X/5
	centerYPercent := 50 + c.Transform.Y/5

	centerX := centerXPercent / 100 * float64(canvasW)
	centerY := centerYPercent / 100 * float64(canvasH)

	width := float64(canvasW) * (c.Size.WidthPercent / 100) * c.Transform.Scale
	height := width
	if srcW > 0 && srcH > 0 {
		height = width * float64(srcH) / float64(srcW)
	}

	return Placement{
		X:        int(math.Round(centerX - width/2)),
		Y:        int(math.Round(centerY - height/2)),
		Width:    int(math.Round(width)),
		Height:   int(math.Round(height)),
		CenterX:  centerX,
		CenterY:  centerY,
		RadiusPx: ExportScale(c.CornerRadius, width),
		BorderPx: ExportScale(c.BorderWidth, width),
	}
}

// ExportScale rescales a preview-space decoration value (corner radius,
// border width) to export resolution, proportional to the rendered width
// against the preview's reference overlay width.
func ExportScale(value, targetWidthPx float64) float64 {
	return value * (targetWidthPx / config.ReferenceOverlayWidth)
}
