package studio

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"studio/internal/domain"
)

// LineHeight is the text line height as a multiple of the font size.
const LineHeight = 1.16

var (
	fontsOnce sync.Once
	fontSet   map[string]*opentype.Font
	fontsErr  error
)

func loadFonts() {
	fontSet = make(map[string]*opentype.Font)
	for name, ttf := range map[string][]byte{
		"sans":      goregular.TTF,
		"sans-bold": gobold.TTF,
		"italic":    goitalic.TTF,
		"mono":      gomono.TTF,
		"mono-bold": gomonobold.TTF,
	} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			fontsErr = fmt.Errorf("parse font %s: %w", name, err)
			return
		}
		fontSet[name] = f
	}
}

// fontName maps a CSS-ish family and weight onto one of the bundled Go fonts.
func fontName(family, weight string) string {
	fam := strings.ToLower(family)
	bold := isBold(weight)
	switch {
	case strings.Contains(fam, "mono") || strings.Contains(fam, "courier"):
		if bold {
			return "mono-bold"
		}
		return "mono"
	case strings.Contains(fam, "italic") || strings.Contains(fam, "script"):
		return "italic"
	case bold:
		return "sans-bold"
	default:
		return "sans"
	}
}

func isBold(weight string) bool {
	w := strings.ToLower(strings.TrimSpace(weight))
	if w == "bold" || w == "bolder" {
		return true
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 600
}

// FontFace returns a new face for the given family, weight and pixel size.
// Faces are not safe for concurrent use; callers own the returned face.
func FontFace(family, weight string, size float64) (font.Face, error) {
	fontsOnce.Do(loadFonts)
	if fontsErr != nil {
		return nil, fontsErr
	}
	if size <= 0 {
		size = 1
	}
	face, err := opentype.NewFace(fontSet[fontName(family, weight)], &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	return face, nil
}

// MeasureText returns the unscaled box of a text object at the given font
// size: the widest line's advance by the stacked line heights.
func MeasureText(style domain.TextStyle, size float64) (float64, float64) {
	lines := strings.Split(style.Content, "\n")
	h := size * LineHeight * float64(len(lines))
	face, err := FontFace(style.FontFamily, style.FontWeight, size)
	if err != nil {
		// rough fallback: half an em per rune
		w := 0.0
		for _, l := range lines {
			if lw := float64(len([]rune(l))) * size * 0.5; lw > w {
				w = lw
			}
		}
		return maxf(w, 1), h
	}
	defer face.Close()
	w := 0.0
	for _, l := range lines {
		adv := font.MeasureString(face, l)
		if lw := float64(adv) / 64; lw > w {
			w = lw
		}
	}
	return maxf(w, 1), h
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
