package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/resolverai/burnie-mindshare-sub002/timeline"
)

// Plate is a fully decorated overlay image ready for compositing: the
// source picture flipped, filtered, resized, rounded, bordered, rotated
// and shadowed, with transform opacity baked into its alpha channel.
type Plate struct {
	Image *image.NRGBA
	// X, Y is the plate's top-left position on the canvas. Zero when the
	// plate has been padded to full canvas size for blend-mode compositing.
	X, Y int
	Mode BlendMode
}

// BuildPlate renders an overlay clip into a Plate. The decoration order
// is fixed to match the preview renderer: flips first, then filters,
// then the resize to canvas-target size, then corner mask and border on
// the unrotated image, rotation of the decorated image as a rigid unit,
// and the drop shadow last. Blend modes other than normal pad the plate
// to full canvas so the compositor can blend it against the base.
func BuildPlate(c timeline.Clip, src image.Image, canvasW, canvasH int) (*Plate, error) {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("overlay %s: empty source image", c.ID)
	}

	p := ComputePlacement(c, canvasW, canvasH, b.Dx(), b.Dy())
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("overlay %s: degenerate target size %dx%d", c.ID, p.Width, p.Height)
	}

	img := imaging.Clone(src)
	if c.FlipH {
		img = imaging.FlipH(img)
	}
	if c.FlipV {
		img = imaging.FlipV(img)
	}

	img = ApplyFilters(img, c.Filters)
	img = imaging.Resize(img, p.Width, p.Height, imaging.Lanczos)

	if p.RadiusPx > 0 || p.BorderPx > 0 {
		img = roundAndBorder(img, p.RadiusPx, p.BorderPx, parseColor(c.BorderColor, color.NRGBA{A: 255}))
	}

	// Rotation happens after decoration so corners and border rotate as
	// a rigid unit. The rotated bounding box grows; keep the center fixed.
	x, y := p.X, p.Y
	if rot := c.Transform.Rotation; rot != 0 {
		img = imaging.Rotate(img, -rot, color.NRGBA{})
		rb := img.Bounds()
		x = int(math.Round(p.CenterX - float64(rb.Dx())/2))
		y = int(math.Round(p.CenterY - float64(rb.Dy())/2))
	}

	if c.Shadow.Enabled {
		img, x, y = applyShadow(img, c.Shadow, x, y)
	}

	if c.Transform.Opacity < 1 {
		scaleAlpha(img, c.Transform.Opacity)
	}

	mode, _ := ParseBlendMode(c.BlendMode)
	if mode != BlendNormal {
		img, x, y = padToCanvas(img, x, y, canvasW, canvasH)
	}

	return &Plate{Image: img, X: x, Y: y, Mode: mode}, nil
}

// Save writes the plate image as a PNG into dir and returns the path.
func (p *Plate) Save(dir, name string) (string, error) {
	path := filepath.Join(dir, name+".png")
	if err := imaging.Save(p.Image, path); err != nil {
		return "", fmt.Errorf("failed to save overlay plate: %w", err)
	}
	return path, nil
}

// roundAndBorder masks the image to a rounded rectangle and strokes a
// border ring just inside the edge. Uses the signed distance to the
// rounded-rect boundary for antialiased coverage.
func roundAndBorder(img *image.NRGBA, radius, border float64, borderCol color.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	// Radius cannot exceed half the short side
	r := math.Min(radius, math.Min(w, h)/2)

	out := imaging.Clone(img)
	for py := 0; py < b.Dy(); py++ {
		for px := 0; px < b.Dx(); px++ {
			d := roundedRectDist(float64(px)+0.5, float64(py)+0.5, w, h, r)
			i := out.PixOffset(b.Min.X+px, b.Min.Y+py)

			switch {
			case d > 0.5:
				out.Pix[i+3] = 0
			case d > -0.5:
				// Boundary pixel: antialias, border color if stroked
				cov := 0.5 - d
				if border > 0 {
					out.Pix[i] = borderCol.R
					out.Pix[i+1] = borderCol.G
					out.Pix[i+2] = borderCol.B
				}
				out.Pix[i+3] = clampByte(float64(out.Pix[i+3]) * cov)
			case border > 0 && d > -border:
				out.Pix[i] = borderCol.R
				out.Pix[i+1] = borderCol.G
				out.Pix[i+2] = borderCol.B
				out.Pix[i+3] = borderCol.A
			}
		}
	}
	return out
}

// roundedRectDist is the signed distance from point (x, y) to the border
// of a w×h rounded rectangle with corner radius r; negative inside.
func roundedRectDist(x, y, w, h, r float64) float64 {
	qx := math.Abs(x-w/2) - (w/2 - r)
	qy := math.Abs(y-h/2) - (h/2 - r)
	outside := math.Hypot(math.Max(qx, 0), math.Max(qy, 0))
	inside := math.Min(math.Max(qx, qy), 0)
	return outside + inside - r
}

// applyShadow composites a blurred, offset silhouette behind the image,
// expanding the plate by the blur radius plus the offset so nothing clips.
func applyShadow(img *image.NRGBA, s timeline.Shadow, x, y int) (*image.NRGBA, int, int) {
	margin := int(math.Ceil(s.Blur + math.Max(math.Abs(s.OffsetX), math.Abs(s.OffsetY))))
	if margin <= 0 {
		margin = 1
	}

	b := img.Bounds()
	col := parseColor(s.Color, color.NRGBA{A: 160})

	silhouette := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for py := 0; py < b.Dy(); py++ {
		for px := 0; px < b.Dx(); px++ {
			a := img.Pix[img.PixOffset(b.Min.X+px, b.Min.Y+py)+3]
			if a == 0 {
				continue
			}
			i := silhouette.PixOffset(px, py)
			silhouette.Pix[i] = col.R
			silhouette.Pix[i+1] = col.G
			silhouette.Pix[i+2] = col.B
			silhouette.Pix[i+3] = clampByte(float64(a) * float64(col.A) / 255)
		}
	}
	if s.Blur > 0 {
		silhouette = imaging.Blur(silhouette, s.Blur)
	}

	plate := image.NewNRGBA(image.Rect(0, 0, b.Dx()+2*margin, b.Dy()+2*margin))
	BlendImage(plate, silhouette, image.Pt(margin+int(s.OffsetX), margin+int(s.OffsetY)), BlendNormal, 1)
	BlendImage(plate, img, image.Pt(margin, margin), BlendNormal, 1)

	return plate, x - margin, y - margin
}

// padToCanvas places the plate on a transparent canvas-sized image so
// blend-mode compositing sees equal-sized inputs. Off-canvas parts of
// the plate are cropped away.
func padToCanvas(img *image.NRGBA, x, y, canvasW, canvasH int) (*image.NRGBA, int, int) {
	full := image.NewNRGBA(image.Rect(0, 0, canvasW, canvasH))
	BlendImage(full, img, image.Pt(x, y), BlendNormal, 1)
	return full, 0, 0
}

func scaleAlpha(img *image.NRGBA, opacity float64) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = clampByte(float64(img.Pix[i]) * opacity)
	}
}

// parseColor parses #RGB, #RRGGBB and #RRGGBBAA hex colors, falling back
// to def for anything it does not recognize.
func parseColor(s string, def color.NRGBA) color.NRGBA {
	if len(s) == 0 || s[0] != '#' {
		return def
	}
	hex := s[1:]
	var vals []uint8
	switch len(hex) {
	case 3:
		for i := 0; i < 3; i++ {
			v, ok := hexNibble(hex[i])
			if !ok {
				return def
			}
			vals = append(vals, v*16+v)
		}
		vals = append(vals, 255)
	case 6, 8:
		for i := 0; i+1 < len(hex); i += 2 {
			hi, ok1 := hexNibble(hex[i])
			lo, ok2 := hexNibble(hex[i+1])
			if !ok1 || !ok2 {
				return def
			}
			vals = append(vals, hi*16+lo)
		}
		if len(vals) == 3 {
			vals = append(vals, 255)
		}
	default:
		return def
	}
	return color.NRGBA{R: vals[0], G: vals[1], B: vals[2], A: vals[3]}
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// LoadImage decodes an image file from the job workspace.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
