package domain

// ElementKind tags the variant of a design element.
type ElementKind string

const (
	ElementText  ElementKind = "text"
	ElementImage ElementKind = "image"
)

// TextStyle holds the text variant of a canvas object.
type TextStyle struct {
	Content    string  `json:"content"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	Color      string  `json:"color"`
	FontWeight string  `json:"fontWeight"`
	TextAlign  string  `json:"textAlign"`
}

// ImageSource holds the image variant of a canvas object.
type ImageSource struct {
	Src           string `json:"src"`
	NaturalWidth  int    `json:"naturalWidth"`
	NaturalHeight int    `json:"naturalHeight"`
}

// DesignElement is the pixel-space projection of a canvas object,
// recomputed from the live surface after every flush.
type DesignElement struct {
	ID         string      `json:"id"`
	Type       ElementKind `json:"type"`
	Content    string      `json:"content"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Rotation   float64     `json:"rotation"`
	Opacity    float64     `json:"opacity"`
	FontSize   float64     `json:"fontSize,omitempty"`
	FontFamily string      `json:"fontFamily,omitempty"`
	Color      string      `json:"color,omitempty"`
	FontWeight string      `json:"fontWeight,omitempty"`
	TextAlign  string      `json:"textAlign,omitempty"`
}

// RatioObject mirrors DesignElement with X/Y/Width/Height expressed as
// fractions of the design-area rect and FontSize as a fraction of its width.
type RatioObject struct {
	ID         string      `json:"id"`
	Type       ElementKind `json:"type"`
	Content    string      `json:"content"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Rotation   float64     `json:"rotation"`
	Opacity    float64     `json:"opacity"`
	FontSize   float64     `json:"fontSize,omitempty"`
	FontFamily string      `json:"fontFamily,omitempty"`
	Color      string      `json:"color,omitempty"`
	FontWeight string      `json:"fontWeight,omitempty"`
	TextAlign  string      `json:"textAlign,omitempty"`
}

// RatioState is the resolution-independent serialization of a view.
type RatioState struct {
	Area    DesignArea    `json:"area"`
	Objects []RatioObject `json:"objects"`
}
