package studio

import "strings"

// namedColors maps common garment color names to hex.
var namedColors = map[string]string{
	"black":          "#000000",
	"white":          "#ffffff",
	"red":            "#ff0000",
	"maroon":         "#800000",
	"burgundy":       "#800020",
	"pink":           "#ffc0cb",
	"light pink":     "#ffb6c1",
	"orange":         "#ffa500",
	"yellow":         "#ffff00",
	"gold":           "#ffd700",
	"mustard":        "#ffdb58",
	"green":          "#008000",
	"forest green":   "#228b22",
	"olive":          "#808000",
	"mint":           "#98ff98",
	"teal":           "#008080",
	"blue":           "#0000ff",
	"navy":           "#000080",
	"navy blue":      "#000080",
	"royal blue":     "#4169e1",
	"sky blue":       "#87ceeb",
	"light blue":     "#add8e6",
	"purple":         "#800080",
	"lavender":       "#e6e6fa",
	"brown":          "#a52a2a",
	"beige":          "#f5f5dc",
	"cream":          "#fffdd0",
	"khaki":          "#c3b091",
	"gray":           "#808080",
	"grey":           "#808080",
	"light gray":     "#d3d3d3",
	"light grey":     "#d3d3d3",
	"dark gray":      "#a9a9a9",
	"dark grey":      "#a9a9a9",
	"charcoal":       "#36454f",
	"heather grey":   "#b6b6b4",
	"heather gray":   "#b6b6b4",
	"sport grey":     "#9e9e9e",
	"ash":            "#b2beb5",
	"off white":      "#faf9f6",
	"natural":        "#f5f0e1",
}

// hexForColor returns the normalized hex for a color name or a literal hex
// string, and false when neither applies.
func hexForColor(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if h, ok := normalizeHex(s); ok {
		return h, true
	}
	h, ok := namedColors[s]
	return h, ok
}

// normalizeHex expands #rgb to #rrggbb and lowercases the result.
func normalizeHex(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "#") {
		return "", false
	}
	body := s[1:]
	for _, c := range body {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return "", false
		}
	}
	switch len(body) {
	case 3:
		return "#" + string([]byte{body[0], body[0], body[1], body[1], body[2], body[2]}), true
	case 6:
		return s, true
	default:
		return "", false
	}
}
