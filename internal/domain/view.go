package domain

import (
	"strings"
	"time"
)

// View is one printable face of a product.
type View string

const (
	ViewFront View = "front"
	ViewChest View = "chest"
	ViewBack  View = "back"
)

// Views lists every supported face in display order.
var Views = []View{ViewFront, ViewChest, ViewBack}

// ParseView maps a view string to a View, defaulting to front.
func ParseView(s string) View {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewChest:
		return ViewChest
	case ViewBack:
		return ViewBack
	default:
		return ViewFront
	}
}

// ColorKey normalizes a color name for use as a map key.
func ColorKey(color string) string {
	return strings.ToLower(strings.TrimSpace(color))
}

// ContextKey identifies one (color, view) editing context.
func ContextKey(colorKey string, view View) string {
	return colorKey + "::" + string(view)
}

// Size is a pixel width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DesignArea is the printable region of a mockup as ratios (0..1) of the
// mockup's natural pixel size.
type DesignArea struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ViewState is the saved editing state of one (color, view) pair.
// CanvasJSON is a full snapshot used when RatioState is unavailable.
type ViewState struct {
	View        View        `json:"view"`
	ColorKey    string      `json:"colorKey"`
	CanvasJSON  string      `json:"canvasJson"`
	RatioState  *RatioState `json:"ratioState"`
	PreviewSize Size        `json:"previewSize"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// HistoryState is a snapshot stack with a cursor.
type HistoryState struct {
	Stack []string `json:"stack"`
	Index int      `json:"index"`
}

// ViewStateStore persists the per-(color, view) states of a design.
type ViewStateStore interface {
	SaveViewStates(designID string, states []ViewState) error
	LoadViewStates(designID string) ([]ViewState, error)
	DeleteViewStates(designID string) error
}

// HistoryStore persists per-context history stacks of a design.
type HistoryStore interface {
	SaveHistory(designID string, states map[string]HistoryState) error
	LoadHistory(designID string) (map[string]HistoryState, error)
	DeleteHistory(designID string) error
}
