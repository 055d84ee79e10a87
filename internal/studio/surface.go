package studio

import (
	"encoding/json"
	"fmt"
	"math"

	"studio/internal/domain"
)

const defaultCanvasSize = 600.0

// Background is the mockup drawn behind the design.
type Background struct {
	URL           string `json:"url"`
	NaturalWidth  int    `json:"naturalWidth"`
	NaturalHeight int    `json:"naturalHeight"`
}

// Guide is the non-interactive outline drawn around the design area.
type Guide struct {
	Rect       Rect      `json:"rect"`
	Stroke     string    `json:"stroke"`
	Dash       []float64 `json:"dash"`
	Selectable bool      `json:"selectable"`
}

// TextPatch changes selected text properties; nil fields are left alone.
type TextPatch struct {
	Content    *string  `json:"content,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
	Color      *string  `json:"color,omitempty"`
	FontWeight *string  `json:"fontWeight,omitempty"`
	TextAlign  *string  `json:"textAlign,omitempty"`
}

// Surface is the model behind the interactive canvas: pixel dimensions,
// the mockup background, the design area and the ordered object list.
// Editable content is clipped to the design area and every transform keeps
// objects inside it. Surface is not safe for concurrent use.
type Surface struct {
	width, height float64
	container     domain.Size
	background    Background
	area          domain.DesignArea

	objects  []*Object
	selected string

	onChange func()
}

type surfaceSnapshot struct {
	Width   float64   `json:"width"`
	Height  float64   `json:"height"`
	Area    Rect      `json:"area"`
	Objects []*Object `json:"objects"`
}

// NewSurface creates an empty surface using the default design area.
func NewSurface() *Surface {
	s := &Surface{area: DefaultDesignArea}
	s.layout()
	return s
}

// SetOnChange installs the hook fired once after every content mutation.
func (s *Surface) SetOnChange(fn func()) {
	s.onChange = fn
}

func (s *Surface) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Configure switches background and design area, remapping existing
// objects into the new area.
func (s *Surface) Configure(bg Background, area domain.DesignArea) {
	old := s.AreaRect()
	s.background = bg
	s.area = area
	s.layout()
	s.remapObjects(old)
}

// Resize recomputes the canvas for a new container size. Objects keep their
// position relative to the design area.
func (s *Surface) Resize(containerW, containerH float64) {
	old := s.AreaRect()
	s.container = domain.Size{Width: containerW, Height: containerH}
	s.layout()
	s.remapObjects(old)
}

// layout fits the canvas to the container while keeping the mockup's aspect.
func (s *Surface) layout() {
	s.width, s.height = fitCanvas(s.container, s.background)
}

// fitCanvas sizes a canvas for the container and mockup. A zero container
// falls back to the mockup's natural width, then to defaultCanvasSize.
func fitCanvas(container domain.Size, bg Background) (float64, float64) {
	nw, nh := 1.0, 1.0
	if bg.NaturalWidth > 0 && bg.NaturalHeight > 0 {
		nw, nh = float64(bg.NaturalWidth), float64(bg.NaturalHeight)
	}
	cw, ch := container.Width, container.Height
	if cw <= 0 {
		switch {
		case bg.NaturalWidth > 0:
			cw = float64(bg.NaturalWidth)
		default:
			cw = defaultCanvasSize
		}
	}
	w, h := cw, cw*nh/nw
	if ch > 0 && h > ch {
		h = ch
		w = ch * nw / nh
	}
	return w, h
}

// AreaRectFor is the design-area rect a surface would have after being
// configured with bg and area inside container.
func AreaRectFor(container domain.Size, bg Background, area domain.DesignArea) Rect {
	w, h := fitCanvas(container, bg)
	return AreaRect(area, w, h)
}

// Container is the size last passed to Resize.
func (s *Surface) Container() domain.Size { return s.container }

func (s *Surface) remapObjects(from Rect) {
	to := s.AreaRect()
	if from == to {
		return
	}
	for _, o := range s.objects {
		o.Left, o.Top, o.Width, o.Height = remap(o.Left, o.Top, o.Width, o.Height, from, to)
		if o.Text != nil && from.W > 0 {
			o.Text.FontSize *= to.W / from.W
		}
	}
}

func (s *Surface) Size() domain.Size {
	return domain.Size{Width: s.width, Height: s.height}
}

func (s *Surface) Background() Background { return s.background }

func (s *Surface) DesignArea() domain.DesignArea { return s.area }

// AreaRect is the design area in canvas pixels.
func (s *Surface) AreaRect() Rect {
	return AreaRect(s.area, s.width, s.height)
}

// ClipRect is the region outside which content is not rendered.
func (s *Surface) ClipRect() Rect {
	return s.AreaRect()
}

// Guide describes the dashed design-area outline.
func (s *Surface) Guide() Guide {
	return Guide{
		Rect:       s.AreaRect(),
		Stroke:     "#9ca3af",
		Dash:       []float64{6, 4},
		Selectable: false,
	}
}

func (s *Surface) Len() int { return len(s.objects) }

// Objects returns copies of the objects in layer order (bottom first).
func (s *Surface) Objects() []*Object {
	out := make([]*Object, len(s.objects))
	for i, o := range s.objects {
		out[i] = o.clone()
	}
	return out
}

// Object returns a copy of the object with the given id.
func (s *Surface) Object(id string) (*Object, bool) {
	if _, o := s.find(id); o != nil {
		return o.clone(), true
	}
	return nil, false
}

func (s *Surface) find(id string) (int, *Object) {
	for i, o := range s.objects {
		if o.ID == id {
			return i, o
		}
	}
	return -1, nil
}

func (s *Surface) mustFind(id string) (int, *Object, error) {
	i, o := s.find(id)
	if o == nil {
		return -1, nil, fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	return i, o, nil
}

// Add appends an object on top of the stack.
func (s *Surface) Add(o *Object) {
	s.objects = append(s.objects, o.clone())
	s.changed()
}

// Replace swaps the whole object list in one change.
func (s *Surface) Replace(objs []*Object) {
	s.objects = make([]*Object, 0, len(objs))
	for _, o := range objs {
		s.objects = append(s.objects, o.clone())
	}
	if _, o := s.find(s.selected); o == nil {
		s.selected = ""
	}
	s.changed()
}

func (s *Surface) Remove(id string) error {
	i, _, err := s.mustFind(id)
	if err != nil {
		return err
	}
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	s.changed()
	return nil
}

// Clear removes every object. It is a no-op on an empty surface.
func (s *Surface) Clear() {
	if len(s.objects) == 0 {
		return
	}
	s.objects = nil
	s.selected = ""
	s.changed()
}

func (s *Surface) Select(id string) error {
	if id == "" {
		s.selected = ""
		return nil
	}
	if _, _, err := s.mustFind(id); err != nil {
		return err
	}
	s.selected = id
	return nil
}

func (s *Surface) Selected() string { return s.selected }

// Move places the object's top-left corner and clamps it into the area.
func (s *Surface) Move(id string, left, top float64) error {
	_, o, err := s.mustFind(id)
	if err != nil {
		return err
	}
	o.Left, o.Top = left, top
	s.clamp(o)
	s.changed()
	return nil
}

// Scale sets the on-canvas size. Objects that no longer fit are shrunk
// about their center before being clamped.
func (s *Surface) Scale(id string, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("scale %s: size must be positive", id)
	}
	_, o, err := s.mustFind(id)
	if err != nil {
		return err
	}
	cx, cy := o.Left+o.Width/2, o.Top+o.Height/2
	o.Width, o.Height = width, height
	o.Left, o.Top = cx-width/2, cy-height/2
	s.fit(o)
	s.clamp(o)
	s.changed()
	return nil
}

func (s *Surface) Rotate(id string, deg float64) error {
	_, o, err := s.mustFind(id)
	if err != nil {
		return err
	}
	o.Rotation = math.Mod(deg, 360)
	s.fit(o)
	s.clamp(o)
	s.changed()
	return nil
}

func (s *Surface) SetOpacity(id string, opacity float64) error {
	_, o, err := s.mustFind(id)
	if err != nil {
		return err
	}
	o.Opacity = math.Max(0, math.Min(1, opacity))
	s.changed()
	return nil
}

// UpdateText restyles a text object, keeping its current scale factor.
func (s *Surface) UpdateText(id string, p TextPatch) error {
	_, o, err := s.mustFind(id)
	if err != nil {
		return err
	}
	if o.Text == nil {
		return fmt.Errorf("update text %s: not a text element", id)
	}
	sx, sy := 1.0, 1.0
	if baseW, baseH := MeasureText(*o.Text, o.Text.FontSize); baseH > 0 {
		sx, sy = o.Width/baseW, o.Height/baseH
	}

	t := o.Text
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.FontSize != nil && *p.FontSize > 0 {
		t.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		t.FontFamily = *p.FontFamily
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.FontWeight != nil {
		t.FontWeight = *p.FontWeight
	}
	if p.TextAlign != nil {
		t.TextAlign = *p.TextAlign
	}

	newW, newH := MeasureText(*t, t.FontSize)
	o.Width, o.Height = newW*sx, newH*sy
	s.fit(o)
	s.clamp(o)
	s.changed()
	return nil
}

// Reorder moves an object to a new layer index (0 is the bottom).
func (s *Surface) Reorder(id string, index int) error {
	i, o, err := s.mustFind(id)
	if err != nil {
		return err
	}
	if index < 0 {
		index = 0
	}
	if index >= len(s.objects) {
		index = len(s.objects) - 1
	}
	if index == i {
		return nil
	}
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	s.objects = append(s.objects[:index], append([]*Object{o}, s.objects[index:]...)...)
	s.changed()
	return nil
}

// fit shrinks an object about its center until its rotated box fits the area.
func (s *Surface) fit(o *Object) {
	area := s.AreaRect()
	box := o.bounds()
	if box.W <= area.W && box.H <= area.H {
		return
	}
	f := math.Min(area.W/box.W, area.H/box.H)
	cx, cy := o.Left+o.Width/2, o.Top+o.Height/2
	o.Width *= f
	o.Height *= f
	if o.Text != nil {
		o.Text.FontSize *= f
	}
	o.Left, o.Top = cx-o.Width/2, cy-o.Height/2
}

func (s *Surface) clamp(o *Object) {
	dx, dy := clampDelta(o.bounds(), s.AreaRect())
	o.Left += dx
	o.Top += dy
}

// Snapshot serializes the full canvas state.
func (s *Surface) Snapshot() (string, error) {
	snap := surfaceSnapshot{
		Width:   s.width,
		Height:  s.height,
		Area:    s.AreaRect(),
		Objects: s.objects,
	}
	if snap.Objects == nil {
		snap.Objects = []*Object{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

// LoadSnapshot replaces the objects with a snapshot's, remapping them when
// the snapshot was taken at a different canvas size.
func (s *Surface) LoadSnapshot(data string) error {
	objs, err := parseSnapshot(data, s.AreaRect())
	if err != nil {
		return err
	}
	s.Replace(objs)
	return nil
}

// parseSnapshot decodes a snapshot and remaps its objects into the area
// rect to.
func parseSnapshot(data string, to Rect) ([]*Object, error) {
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	if snap.Area != to {
		for _, o := range snap.Objects {
			o.Left, o.Top, o.Width, o.Height = remap(o.Left, o.Top, o.Width, o.Height, snap.Area, to)
			if o.Text != nil && snap.Area.W > 0 {
				o.Text.FontSize *= to.W / snap.Area.W
			}
		}
	}
	return snap.Objects, nil
}

func decodeSnapshot(data string) (surfaceSnapshot, error) {
	var snap surfaceSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return snap, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}
