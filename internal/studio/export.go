package studio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"studio/internal/domain"
)

const (
	DefaultExportMinDimension = 4000
	DefaultThumbnailMax       = 480
)

// ExportRequest is everything needed to render one context offscreen.
// Rendering replays State, never the live canvas.
type ExportRequest struct {
	DesignID  string            `json:"designId"`
	ColorKey  string            `json:"colorKey"`
	View      domain.View       `json:"view"`
	MockupURL string            `json:"mockupUrl"`
	Area      domain.DesignArea `json:"area"`
	State     domain.RatioState `json:"state"`
}

// ExportResult is a flattened PNG and the images left out of it.
type ExportResult struct {
	PNG     []byte   `json:"-"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Skipped []string `json:"skipped,omitempty"`
}

type ExportOptions struct {
	MinDimension int
	ThumbnailMax int
}

// Exporter renders designs onto their mockups.
type Exporter struct {
	loader ImageLoader
	opts   ExportOptions
}

func NewExporter(loader ImageLoader, opts ExportOptions) *Exporter {
	if opts.MinDimension <= 0 {
		opts.MinDimension = DefaultExportMinDimension
	}
	if opts.ThumbnailMax <= 0 {
		opts.ThumbnailMax = DefaultThumbnailMax
	}
	return &Exporter{loader: loader, opts: opts}
}

// HighResURL asks Cloudinary for a width-scaled rendition of a mockup.
// Other URLs, and URLs that already carry a width transform, are returned
// unchanged.
func HighResURL(url string, width int) string {
	const marker = "/upload/"
	if !strings.Contains(url, "res.cloudinary.com") {
		return url
	}
	i := strings.Index(url, marker)
	if i < 0 {
		return url
	}
	rest := url[i+len(marker):]
	if strings.HasPrefix(rest, "w_") {
		return url
	}
	return url[:i+len(marker)] + "w_" + strconv.Itoa(width) + ",c_scale/" + rest
}

// Export renders the design at print resolution: the mockup is scaled so
// its smaller side is at least MinDimension.
func (e *Exporter) Export(ctx context.Context, req ExportRequest) (ExportResult, error) {
	target := e.opts.MinDimension
	return e.render(ctx, req, HighResURL(req.MockupURL, target), func(w, h int) float64 {
		return math.Max(1, float64(target)/float64(minInt(w, h)))
	}, target)
}

// Thumbnail renders a small preview bounded by ThumbnailMax on its larger
// side.
func (e *Exporter) Thumbnail(ctx context.Context, req ExportRequest) (ExportResult, error) {
	limit := e.opts.ThumbnailMax
	return e.render(ctx, req, req.MockupURL, func(w, h int) float64 {
		return math.Min(1, float64(limit)/float64(maxInt(w, h)))
	}, limit)
}

func (e *Exporter) render(ctx context.Context, req ExportRequest, mockupURL string, scale func(w, h int) float64, fallback int) (ExportResult, error) {
	if len(req.State.Objects) == 0 {
		return ExportResult{}, ErrNothingToExport
	}

	var mockup image.Image
	if mockupURL != "" && e.loader != nil {
		img, err := e.loader.Load(ctx, mockupURL)
		if err != nil {
			return ExportResult{}, &AssetError{Src: mockupURL, Err: err}
		}
		mockup = img
	}

	w, h := fallback, fallback
	if mockup != nil {
		b := mockup.Bounds()
		k := scale(b.Dx(), b.Dy())
		w, h = int(math.Round(float64(b.Dx())*k)), int(math.Round(float64(b.Dy())*k))
	}
	if w <= 0 || h <= 0 {
		return ExportResult{}, fmt.Errorf("export: empty mockup")
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if mockup != nil {
		draw.CatmullRom.Scale(dst, dst.Bounds(), mockup, mockup.Bounds(), draw.Over, nil)
	}

	area := AreaRect(req.Area, float64(w), float64(h))
	restored, err := Deserialize(ctx, req.State, area, e.loader)
	if err != nil {
		return ExportResult{}, err
	}

	dc := gg.NewContextForRGBA(dst)
	for _, o := range restored.Objects {
		if o.Opacity <= 0 {
			continue
		}
		if o.Opacity >= 1 {
			clipTo(dc, area)
			if err := drawObject(dc, o, restored.Images[o.ID]); err != nil {
				return ExportResult{}, err
			}
			dc.ResetClip()
			continue
		}
		// translucent objects go through a layer composited with a uniform
		// alpha mask
		layer := gg.NewContext(w, h)
		clipTo(layer, area)
		if err := drawObject(layer, o, restored.Images[o.ID]); err != nil {
			return ExportResult{}, err
		}
		mask := image.NewUniform(color.Alpha{A: uint8(math.Round(o.Opacity * 255))})
		draw.DrawMask(dst, dst.Bounds(), layer.Image(), image.Point{}, mask, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return ExportResult{}, fmt.Errorf("encode png: %w", err)
	}
	return ExportResult{PNG: buf.Bytes(), Width: w, Height: h, Skipped: restored.Skipped}, nil
}

func clipTo(dc *gg.Context, r Rect) {
	dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	dc.Clip()
}

// drawObject paints o with its rotation about its center.
func drawObject(dc *gg.Context, o *Object, img image.Image) error {
	cx, cy := o.Left+o.Width/2, o.Top+o.Height/2
	dc.Push()
	defer dc.Pop()
	dc.RotateAbout(gg.Radians(o.Rotation), cx, cy)

	switch {
	case o.Image != nil:
		if img == nil {
			return nil
		}
		b := img.Bounds()
		dc.Translate(o.Left, o.Top)
		dc.Scale(o.Width/float64(b.Dx()), o.Height/float64(b.Dy()))
		dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	case o.Text != nil:
		t := *o.Text
		face, err := FontFace(t.FontFamily, t.FontWeight, t.FontSize)
		if err != nil {
			return err
		}
		defer face.Close()
		baseW, baseH := MeasureText(t, t.FontSize)
		dc.Translate(o.Left, o.Top)
		dc.Scale(o.Width/baseW, o.Height/baseH)
		dc.SetFontFace(face)
		dc.SetColor(parseColor(t.Color))
		lineH := t.FontSize * LineHeight
		x, ax := textAnchor(t.TextAlign, baseW)
		for i, line := range strings.Split(t.Content, "\n") {
			dc.DrawStringAnchored(line, x, lineH*float64(i)+lineH/2, ax, 0.5)
		}
	}
	return nil
}

func textAnchor(align string, width float64) (float64, float64) {
	switch strings.ToLower(align) {
	case "left", "start":
		return 0, 0
	case "right", "end":
		return width, 1
	default:
		return width / 2, 0.5
	}
}

// parseColor reads #rgb, #rrggbb or a known color name, defaulting to black.
func parseColor(s string) color.Color {
	h, ok := hexForColor(s)
	if !ok {
		return color.Black
	}
	v, err := strconv.ParseUint(h[1:], 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
