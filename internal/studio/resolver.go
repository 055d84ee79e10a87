package studio

import (
	"strings"

	"studio/internal/domain"
)

// DefaultDesignArea is used whenever a product's design-area record is
// missing or invalid.
var DefaultDesignArea = domain.DesignArea{X: 0.18, Y: 0.2, Width: 0.64, Height: 0.55}

// Resolution is everything the surface needs for one (color, view) context.
type Resolution struct {
	Color     domain.ProductColor
	ColorKey  string
	View      domain.View
	MockupURL string
	Area      domain.DesignArea
}

// Resolve picks the color, mockup and design area for a requested context.
func Resolve(p domain.StudioProduct, color string, view domain.View) Resolution {
	c, _ := ResolveColor(p, color)
	key := domain.ColorKey(c.Name)
	if key == "" {
		key = domain.ColorKey(color)
	}
	return Resolution{
		Color:     c,
		ColorKey:  key,
		View:      view,
		MockupURL: ResolveMockup(p, c, view),
		Area:      ResolveDesignArea(p, view),
	}
}

// ResolveColor matches the requested color by name first, then by hex
// equivalence, and otherwise falls back to the product's first color.
// The bool reports whether a match (not the fallback) was found.
func ResolveColor(p domain.StudioProduct, requested string) (domain.ProductColor, bool) {
	if len(p.Colors) == 0 {
		return domain.ProductColor{Name: strings.TrimSpace(requested)}, false
	}
	want := domain.ColorKey(requested)
	for _, c := range p.Colors {
		if domain.ColorKey(c.Name) == want {
			return c, true
		}
	}
	if wantHex, ok := hexForColor(requested); ok {
		for _, c := range p.Colors {
			if h, ok := productColorHex(c); ok && h == wantHex {
				return c, true
			}
		}
	}
	return p.Colors[0], false
}

func productColorHex(c domain.ProductColor) (string, bool) {
	if h, ok := normalizeHex(c.Hex); ok {
		return h, true
	}
	return hexForColor(c.Name)
}

// ResolveDesignArea validates the product's design area for a view.
// Any missing, non-numeric or out-of-range field yields DefaultDesignArea.
func ResolveDesignArea(p domain.StudioProduct, view domain.View) domain.DesignArea {
	raw, ok := p.DesignAreas[string(view)]
	if !ok {
		return DefaultDesignArea
	}
	area, ok := ValidateDesignArea(raw)
	if !ok {
		return DefaultDesignArea
	}
	return area
}

// ValidateDesignArea converts a raw record into a DesignArea. All four
// fields must be numbers in [0,1] and the rect must have a positive size.
func ValidateDesignArea(raw domain.RawDesignArea) (domain.DesignArea, bool) {
	var vals [4]float64
	for i, k := range []string{"x", "y", "width", "height"} {
		f, ok := raw[k].(float64)
		if !ok || f < 0 || f > 1 {
			return domain.DesignArea{}, false
		}
		vals[i] = f
	}
	area := domain.DesignArea{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if area.Width <= 0 || area.Height <= 0 {
		return domain.DesignArea{}, false
	}
	return area, true
}

// ResolveMockup returns the mockup image for a color and view. The chest
// view prints on the front face, so it shares the front mockup when it has
// none of its own.
func ResolveMockup(p domain.StudioProduct, c domain.ProductColor, view domain.View) string {
	candidates := []string{string(view)}
	if view != domain.ViewFront {
		candidates = append(candidates, string(domain.ViewFront))
	}
	for _, v := range candidates {
		if u := c.Mockups[v]; u != "" {
			return u
		}
	}
	for _, v := range candidates {
		if u := p.Mockups[v]; u != "" {
			return u
		}
	}
	return ""
}
