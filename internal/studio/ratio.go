package studio

import (
	"context"
	"fmt"
	"image"
	"log"

	"golang.org/x/sync/errgroup"

	"studio/internal/domain"
)

// prefetchLimit bounds concurrent image loads during Deserialize.
const prefetchLimit = 4

// Serialize expresses objects relative to the design-area pixel rect.
// Text font size is stored as a fraction of the area width.
func Serialize(objs []*Object, area domain.DesignArea, px Rect) domain.RatioState {
	state := domain.RatioState{Area: area, Objects: make([]domain.RatioObject, 0, len(objs))}
	if px.W <= 0 || px.H <= 0 {
		return state
	}
	for _, o := range objs {
		r := domain.RatioObject{
			ID:       o.ID,
			Type:     o.Kind,
			Content:  o.Content(),
			X:        (o.Left - px.X) / px.W,
			Y:        (o.Top - px.Y) / px.H,
			Width:    o.Width / px.W,
			Height:   o.Height / px.H,
			Rotation: o.Rotation,
			Opacity:  o.Opacity,
		}
		if o.Text != nil {
			r.FontSize = o.Text.FontSize / px.W
			r.FontFamily = o.Text.FontFamily
			r.Color = o.Text.Color
			r.FontWeight = o.Text.FontWeight
			r.TextAlign = o.Text.TextAlign
		}
		state.Objects = append(state.Objects, r)
	}
	return state
}

// Restored is the outcome of Deserialize. Images holds the decoded source
// of every image object by id; Skipped lists the ids of image objects whose
// source could not be loaded.
type Restored struct {
	Objects []*Object
	Images  map[string]image.Image
	Skipped []string
}

// Deserialize rebuilds pixel-space objects from a ratio state against px.
// Images are fetched concurrently; objects are returned in stored order.
// Images that fail to load are left out and reported in Skipped.
func Deserialize(ctx context.Context, state domain.RatioState, px Rect, loader ImageLoader) (Restored, error) {
	images := make([]image.Image, len(state.Objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchLimit)
	for i, r := range state.Objects {
		if r.Type != domain.ElementImage || loader == nil {
			continue
		}
		g.Go(func() error {
			img, err := loader.Load(gctx, r.Content)
			if err != nil {
				log.Printf("studio: skip image %s: %v", r.ID, &AssetError{Src: r.Content, Err: err})
				return nil
			}
			images[i] = img
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Restored{}, fmt.Errorf("deserialize: %w", err)
	}

	out := Restored{
		Objects: make([]*Object, 0, len(state.Objects)),
		Images:  make(map[string]image.Image),
	}
	for i, r := range state.Objects {
		o := &Object{
			ID:       r.ID,
			Kind:     r.Type,
			Left:     px.X + r.X*px.W,
			Top:      px.Y + r.Y*px.H,
			Width:    r.Width * px.W,
			Height:   r.Height * px.H,
			Rotation: r.Rotation,
			Opacity:  r.Opacity,
		}
		switch r.Type {
		case domain.ElementImage:
			img := images[i]
			if img == nil {
				out.Skipped = append(out.Skipped, r.ID)
				continue
			}
			out.Images[r.ID] = img
			b := img.Bounds()
			o.Image = &domain.ImageSource{Src: r.Content, NaturalWidth: b.Dx(), NaturalHeight: b.Dy()}
		case domain.ElementText:
			o.Text = &domain.TextStyle{
				Content:    r.Content,
				FontSize:   r.FontSize * px.W,
				FontFamily: r.FontFamily,
				Color:      r.Color,
				FontWeight: r.FontWeight,
				TextAlign:  r.TextAlign,
			}
		default:
			log.Printf("studio: skip %s: unknown element type %q", r.ID, r.Type)
			continue
		}
		out.Objects = append(out.Objects, o)
	}
	return out, nil
}
