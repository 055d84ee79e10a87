package studio

import (
	"math"

	"studio/internal/domain"
)

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MaxY() float64 { return r.Y + r.H }

// AreaRect projects a ratio design area onto a canvas of the given size.
func AreaRect(area domain.DesignArea, width, height float64) Rect {
	return Rect{
		X: area.X * width,
		Y: area.Y * height,
		W: area.Width * width,
		H: area.Height * height,
	}
}

// rotatedBounds returns the axis-aligned bounding box of a w×h rect whose
// top-left corner is (left, top) before rotating deg degrees about its center.
func rotatedBounds(left, top, w, h, deg float64) Rect {
	cx, cy := left+w/2, top+h/2
	rad := deg * math.Pi / 180
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	bw := w*cos + h*sin
	bh := w*sin + h*cos
	return Rect{X: cx - bw/2, Y: cy - bh/2, W: bw, H: bh}
}

// clampDelta returns the smallest (dx, dy) that moves box inside area.
// A box larger than the area on an axis is aligned to the area's start.
func clampDelta(box, area Rect) (float64, float64) {
	return axisDelta(box.X, box.W, area.X, area.W), axisDelta(box.Y, box.H, area.Y, area.H)
}

func axisDelta(pos, size, min, span float64) float64 {
	switch {
	case size > span:
		return min - pos
	case pos < min:
		return min - pos
	case pos+size > min+span:
		return min + span - (pos + size)
	default:
		return 0
	}
}

// remap moves a point-and-size from one area rect into another, keeping
// its position and size relative to the area.
func remap(x, y, w, h float64, from, to Rect) (float64, float64, float64, float64) {
	if from.W == 0 || from.H == 0 {
		return x, y, w, h
	}
	sx, sy := to.W/from.W, to.H/from.H
	return to.X + (x-from.X)*sx, to.Y + (y-from.Y)*sy, w * sx, h * sy
}
