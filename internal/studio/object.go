package studio

import "studio/internal/domain"

// Object is one live canvas object in pixel space. Exactly one of Text or
// Image is set, matching Kind.
type Object struct {
	ID       string              `json:"id"`
	Kind     domain.ElementKind  `json:"kind"`
	Left     float64             `json:"left"`
	Top      float64             `json:"top"`
	Width    float64             `json:"width"`
	Height   float64             `json:"height"`
	Rotation float64             `json:"rotation"`
	Opacity  float64             `json:"opacity"`
	Text     *domain.TextStyle   `json:"text,omitempty"`
	Image    *domain.ImageSource `json:"image,omitempty"`
}

func (o *Object) clone() *Object {
	c := *o
	if o.Text != nil {
		t := *o.Text
		c.Text = &t
	}
	if o.Image != nil {
		im := *o.Image
		c.Image = &im
	}
	return &c
}

func (o *Object) bounds() Rect {
	return rotatedBounds(o.Left, o.Top, o.Width, o.Height, o.Rotation)
}

// Content is the text for text objects and the source URL for images.
func (o *Object) Content() string {
	switch {
	case o.Text != nil:
		return o.Text.Content
	case o.Image != nil:
		return o.Image.Src
	}
	return ""
}

// Element projects the object into a DesignElement.
func (o *Object) Element() domain.DesignElement {
	el := domain.DesignElement{
		ID:       o.ID,
		Type:     o.Kind,
		Content:  o.Content(),
		X:        o.Left,
		Y:        o.Top,
		Width:    o.Width,
		Height:   o.Height,
		Rotation: o.Rotation,
		Opacity:  o.Opacity,
	}
	if o.Text != nil {
		el.FontSize = o.Text.FontSize
		el.FontFamily = o.Text.FontFamily
		el.Color = o.Text.Color
		el.FontWeight = o.Text.FontWeight
		el.TextAlign = o.Text.TextAlign
	}
	return el
}
