package studio

import (
	"context"
	"image"
	"math"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// ImageMaxFraction bounds a new image to this fraction of the smaller
// design-area side. Images already smaller keep their natural size.
const ImageMaxFraction = 0.6

// ImageLoader fetches and decodes an image source (http URL, data URL or
// local path).
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// DefaultTextStyle is the style applied to freshly added text.
func DefaultTextStyle() domain.TextStyle {
	return domain.TextStyle{
		FontSize:   32,
		FontFamily: "Arial",
		Color:      "#000000",
		FontWeight: "normal",
		TextAlign:  "center",
	}
}

// Factory builds new canvas objects centered in the design area.
type Factory struct {
	loader   ImageLoader
	Defaults domain.TextStyle
	newID    func() string
}

func NewFactory(loader ImageLoader) *Factory {
	return &Factory{
		loader:   loader,
		Defaults: DefaultTextStyle(),
		newID:    uuid.NewString,
	}
}

// NewText creates a text object with the default style, measured and
// centered in area. Text wider than the area is scaled down to fit.
func (f *Factory) NewText(content string, area Rect) *Object {
	style := f.Defaults
	style.Content = content
	w, h := MeasureText(style, style.FontSize)
	if w > area.W || h > area.H {
		k := math.Min(area.W/w, area.H/h)
		style.FontSize *= k
		w, h = w*k, h*k
	}
	return &Object{
		ID:      f.newID(),
		Kind:    domain.ElementText,
		Left:    area.X + (area.W-w)/2,
		Top:     area.Y + (area.H-h)/2,
		Width:   w,
		Height:  h,
		Opacity: 1,
		Text:    &style,
	}
}

// NewImage loads src and scales it down to at most ImageMaxFraction of the
// smaller area side, preserving aspect ratio. It never upscales. A load
// failure returns an *AssetError and no object.
func (f *Factory) NewImage(ctx context.Context, src string, area Rect) (*Object, error) {
	img, err := f.loader.Load(ctx, src)
	if err != nil {
		return nil, &AssetError{Src: src, Err: err}
	}
	b := img.Bounds()
	nw, nh := float64(b.Dx()), float64(b.Dy())
	if nw <= 0 || nh <= 0 {
		return nil, &AssetError{Src: src, Err: errEmptyImage}
	}
	side := ImageMaxFraction * math.Min(area.W, area.H)
	k := math.Min(1, math.Min(side/nw, side/nh))
	w, h := nw*k, nh*k
	return &Object{
		ID:      f.newID(),
		Kind:    domain.ElementImage,
		Left:    area.X + (area.W-w)/2,
		Top:     area.Y + (area.H-h)/2,
		Width:   w,
		Height:  h,
		Opacity: 1,
		Image: &domain.ImageSource{
			Src:           src,
			NaturalWidth:  b.Dx(),
			NaturalHeight: b.Dy(),
		},
	}, nil
}
