package studio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/bep/debounce"

	"studio/internal/domain"
)

// Events emitted by a Session.
const (
	EventElements = "studio:elements"
	EventHistory  = "studio:history"
	EventContext  = "studio:context"
	EventWarning  = "studio:warning"
)

// DefaultFlushDelay batches rapid mutations before the element list is
// recomputed.
const DefaultFlushDelay = 150 * time.Millisecond

// ErrContextChanged is returned when the (color, view) context moved while
// an operation was waiting on an image load.
var ErrContextChanged = errors.New("studio context changed")

// Observer receives session events. service.EventEmitter satisfies it.
type Observer interface {
	Emit(ctx context.Context, event string, data any)
}

// HistoryEvent describes the undo/redo availability of the current context.
type HistoryEvent struct {
	Key     string `json:"key"`
	Index   int    `json:"index"`
	Size    int    `json:"size"`
	CanUndo bool   `json:"canUndo"`
	CanRedo bool   `json:"canRedo"`
}

// ContextEvent announces a newly loaded (color, view) context.
type ContextEvent struct {
	Color     string            `json:"color"`
	ColorKey  string            `json:"colorKey"`
	View      domain.View       `json:"view"`
	MockupURL string            `json:"mockupUrl"`
	Area      domain.DesignArea `json:"area"`
	Canvas    domain.Size       `json:"canvas"`
	Guide     Guide             `json:"guide"`
	Snapshot  string            `json:"snapshot"`
}

// Warning reports recoverable problems, such as images dropped on load.
type Warning struct {
	Message string   `json:"message"`
	IDs     []string `json:"ids,omitempty"`
}

// SessionOptions tunes a Session. Zero values use the defaults.
type SessionOptions struct {
	HistoryLimit int
	FlushDelay   time.Duration
	Container    domain.Size
}

// OpenOptions selects the initial context and any persisted state to
// resume from.
type OpenOptions struct {
	DesignID   string
	Color      string
	View       domain.View
	ViewStates []domain.ViewState
	History    map[string]domain.HistoryState
}

// Session owns one editing session: the live surface, the per-context
// history and view states, and the current product/color/view. All methods
// are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	base     context.Context
	observer Observer
	loader   ImageLoader
	factory  *Factory
	surface  *Surface
	history  *HistoryManager
	views    map[string]domain.ViewState

	product  *domain.StudioProduct
	designID string
	res      Resolution

	// gen increments on every context switch; loads that finish under an
	// older generation are discarded.
	gen       uint64
	restoring bool
	dirty     bool
	closed    bool
	elements  []domain.DesignElement

	debounced func(func())
}

// NewSession builds an idle session. base is used for events emitted from
// the background flush.
func NewSession(base context.Context, observer Observer, loader ImageLoader, opts SessionOptions) *Session {
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = DefaultFlushDelay
	}
	s := &Session{
		base:      base,
		observer:  observer,
		loader:    loader,
		factory:   NewFactory(loader),
		surface:   NewSurface(),
		history:   NewHistoryManager(opts.HistoryLimit),
		views:     make(map[string]domain.ViewState),
		debounced: debounce.New(opts.FlushDelay),
	}
	if opts.Container.Width > 0 {
		s.surface.Resize(opts.Container.Width, opts.Container.Height)
	}
	s.surface.SetOnChange(s.onChange)
	return s
}

// ── Lifecycle ───────────────────────────────────────────────

// Open starts editing product, resuming from any persisted view states and
// history stacks in opts.
func (s *Session) Open(ctx context.Context, p domain.StudioProduct, opts OpenOptions) error {
	s.mu.Lock()
	s.product = &p
	s.designID = opts.DesignID
	s.res = Resolution{}
	s.views = make(map[string]domain.ViewState)
	s.history.Reset()
	for _, vs := range opts.ViewStates {
		s.views[domain.ContextKey(domain.ColorKey(vs.ColorKey), vs.View)] = vs
	}
	for k, st := range opts.History {
		s.history.Restore(k, st)
	}
	s.restoring = true
	s.surface.Replace(nil)
	s.restoring = false
	s.mu.Unlock()

	return s.SwitchContext(ctx, opts.Color, opts.View)
}

// Close stops background flushing. The session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.debounced(func() {})
}

// SwitchContext persists the outgoing (color, view) state and loads the
// incoming one. Image and mockup loads happen without the lock; if another
// switch starts meanwhile, this one's results are discarded.
func (s *Session) SwitchContext(ctx context.Context, color string, view domain.View) error {
	return s.switchTo(ctx, color, view, true)
}

func (s *Session) switchTo(ctx context.Context, color string, view domain.View, persist bool) error {
	s.mu.Lock()
	if s.product == nil {
		s.mu.Unlock()
		return ErrNoProduct
	}
	if persist {
		s.persistLocked()
	}
	res := Resolve(*s.product, color, view)
	s.gen++
	gen := s.gen
	vs, hasState := s.views[domain.ContextKey(res.ColorKey, res.View)]
	container := s.surface.Container()
	s.mu.Unlock()

	bg := s.loadBackground(ctx, res.MockupURL)
	areaPx := AreaRectFor(container, bg, res.Area)
	objs, skipped, err := s.restoreObjects(ctx, vs, hasState, areaPx)
	if err != nil {
		return fmt.Errorf("switch to %s: %w", domain.ContextKey(res.ColorKey, res.View), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		return nil
	}
	// edits may have landed on the outgoing context during the load
	if persist {
		s.persistLocked()
	}
	s.enterLocked(ctx, res, bg, objs)
	if len(skipped) > 0 {
		s.emit(ctx, EventWarning, Warning{
			Message: fmt.Sprintf("%d image(s) could not be loaded and were left out", len(skipped)),
			IDs:     skipped,
		})
	}
	return nil
}

func (s *Session) loadBackground(ctx context.Context, url string) Background {
	bg := Background{URL: url}
	if url == "" || s.loader == nil {
		return bg
	}
	img, err := s.loader.Load(ctx, url)
	if err != nil {
		log.Printf("studio: mockup %s: %v", shortSrc(url), err)
		return bg
	}
	b := img.Bounds()
	bg.NaturalWidth, bg.NaturalHeight = b.Dx(), b.Dy()
	return bg
}

// restoreObjects rebuilds a context's objects. A snapshot taken at the same
// area rect is used as-is; otherwise the ratio state is replayed, with the
// remapped snapshot as the last fallback.
func (s *Session) restoreObjects(ctx context.Context, vs domain.ViewState, ok bool, areaPx Rect) ([]*Object, []string, error) {
	if !ok {
		return nil, nil, nil
	}
	if vs.CanvasJSON != "" {
		if snap, err := decodeSnapshot(vs.CanvasJSON); err == nil && snap.Area == areaPx {
			return snap.Objects, nil, nil
		}
	}
	if vs.RatioState != nil {
		restored, err := Deserialize(ctx, *vs.RatioState, areaPx, s.loader)
		if err != nil {
			return nil, nil, err
		}
		return restored.Objects, restored.Skipped, nil
	}
	if vs.CanvasJSON != "" {
		objs, err := parseSnapshot(vs.CanvasJSON, areaPx)
		if err != nil {
			return nil, nil, err
		}
		return objs, nil, nil
	}
	return nil, nil, nil
}

func (s *Session) enterLocked(ctx context.Context, res Resolution, bg Background, objs []*Object) {
	s.res = res
	s.restoring = true
	s.surface.Configure(bg, res.Area)
	s.surface.Replace(objs)
	s.restoring = false

	key := s.keyLocked()
	if snap, err := s.surface.Snapshot(); err == nil {
		s.history.Init(key, snap)
	}
	s.emit(ctx, EventContext, s.contextEventLocked())
	s.emitHistoryLocked(ctx)
	s.flushLocked(ctx)
}

func (s *Session) contextEventLocked() ContextEvent {
	snap, _ := s.surface.Snapshot()
	return ContextEvent{
		Color:     s.res.Color.Name,
		ColorKey:  s.res.ColorKey,
		View:      s.res.View,
		MockupURL: s.res.MockupURL,
		Area:      s.res.Area,
		Canvas:    s.surface.Size(),
		Guide:     s.surface.Guide(),
		Snapshot:  snap,
	}
}

// persistLocked stores the current surface as the ViewState of the current
// context.
func (s *Session) persistLocked() {
	if s.product == nil || s.res.View == "" {
		return
	}
	snap, err := s.surface.Snapshot()
	if err != nil {
		log.Printf("studio: persist %s: %v", s.keyLocked(), err)
		return
	}
	rs := Serialize(s.surface.objects, s.res.Area, s.surface.AreaRect())
	s.views[s.keyLocked()] = domain.ViewState{
		View:        s.res.View,
		ColorKey:    s.res.ColorKey,
		CanvasJSON:  snap,
		RatioState:  &rs,
		PreviewSize: s.surface.Size(),
		UpdatedAt:   time.Now(),
	}
}

func (s *Session) keyLocked() string {
	return domain.ContextKey(s.res.ColorKey, s.res.View)
}

// ── Change tracking ─────────────────────────────────────────

// onChange runs under s.mu from every surface mutation.
func (s *Session) onChange() {
	s.dirty = true
	s.debounced(s.flushAsync)
	if !s.restoring {
		s.pushHistoryLocked(s.base)
	}
}

func (s *Session) flushAsync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.dirty {
		return
	}
	s.flushLocked(s.base)
}

func (s *Session) flushLocked(ctx context.Context) {
	objs := s.surface.objects
	els := make([]domain.DesignElement, len(objs))
	for i, o := range objs {
		els[i] = o.Element()
	}
	s.elements = els
	s.dirty = false
	s.emit(ctx, EventElements, els)
}

func (s *Session) pushHistoryLocked(ctx context.Context) {
	if s.product == nil {
		return
	}
	snap, err := s.surface.Snapshot()
	if err != nil {
		log.Printf("studio: history snapshot: %v", err)
		return
	}
	if s.history.Push(s.keyLocked(), snap) {
		s.emitHistoryLocked(ctx)
	}
}

func (s *Session) emitHistoryLocked(ctx context.Context) {
	key := s.keyLocked()
	st, _ := s.history.State(key)
	s.emit(ctx, EventHistory, HistoryEvent{
		Key:     key,
		Index:   st.Index,
		Size:    len(st.Stack),
		CanUndo: s.history.CanUndo(key),
		CanRedo: s.history.CanRedo(key),
	})
}

func (s *Session) emit(ctx context.Context, event string, data any) {
	if s.observer == nil {
		return
	}
	if ctx == nil {
		ctx = s.base
	}
	s.observer.Emit(ctx, event, data)
}

// ── Edits ───────────────────────────────────────────────────

// AddText adds a default-styled text object centered in the design area
// and selects it.
func (s *Session) AddText(content string) (*Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.product == nil {
		return nil, ErrNoProduct
	}
	o := s.factory.NewText(content, s.surface.AreaRect())
	s.surface.Add(o)
	s.surface.selected = o.ID
	return o.clone(), nil
}

// AddImage loads src and adds it centered in the design area. A failed
// load returns an *AssetError and adds nothing.
func (s *Session) AddImage(ctx context.Context, src string) (*Object, error) {
	s.mu.Lock()
	if s.product == nil {
		s.mu.Unlock()
		return nil, ErrNoProduct
	}
	gen := s.gen
	area := s.surface.AreaRect()
	s.mu.Unlock()

	o, err := s.factory.NewImage(ctx, src, area)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, ErrContextChanged
	}
	if now := s.surface.AreaRect(); now != area {
		o.Left, o.Top, o.Width, o.Height = remap(o.Left, o.Top, o.Width, o.Height, area, now)
	}
	s.surface.Add(o)
	s.surface.selected = o.ID
	return o.clone(), nil
}

func (s *Session) edit(fn func(*Surface) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.product == nil {
		return ErrNoProduct
	}
	return fn(s.surface)
}

func (s *Session) Move(id string, left, top float64) error {
	return s.edit(func(sf *Surface) error { return sf.Move(id, left, top) })
}

func (s *Session) Scale(id string, width, height float64) error {
	return s.edit(func(sf *Surface) error { return sf.Scale(id, width, height) })
}

func (s *Session) Rotate(id string, deg float64) error {
	return s.edit(func(sf *Surface) error { return sf.Rotate(id, deg) })
}

func (s *Session) UpdateText(id string, p TextPatch) error {
	return s.edit(func(sf *Surface) error { return sf.UpdateText(id, p) })
}

func (s *Session) SetOpacity(id string, opacity float64) error {
	return s.edit(func(sf *Surface) error { return sf.SetOpacity(id, opacity) })
}

func (s *Session) Remove(id string) error {
	return s.edit(func(sf *Surface) error { return sf.Remove(id) })
}

func (s *Session) Reorder(id string, index int) error {
	return s.edit(func(sf *Surface) error { return sf.Reorder(id, index) })
}

func (s *Session) Select(id string) error {
	return s.edit(func(sf *Surface) error { return sf.Select(id) })
}

func (s *Session) Clear() error {
	return s.edit(func(sf *Surface) error {
		sf.Clear()
		return nil
	})
}

// ClearContext clears the canvas only while key ("<colorKey>::<view>") is
// still the live context; otherwise it returns ErrContextChanged.
func (s *Session) ClearContext(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.product == nil {
		return ErrNoProduct
	}
	if s.keyLocked() != key {
		return ErrContextChanged
	}
	s.surface.Clear()
	return nil
}

// Resize refits the canvas to a new container. Objects are remapped but
// no history entry is recorded.
func (s *Session) Resize(ctx context.Context, width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface.Resize(width, height)
	s.emit(ctx, EventContext, s.contextEventLocked())
	s.flushLocked(ctx)
}

// ── History ─────────────────────────────────────────────────

// PushHistory records the current canvas if it differs from the snapshot
// at the cursor.
func (s *Session) PushHistory(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushHistoryLocked(ctx)
}

// Undo reloads the previous snapshot of the current context. It reports
// whether the cursor moved.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	return s.step(ctx, s.history.Undo)
}

// Redo reloads the next snapshot of the current context.
func (s *Session) Redo(ctx context.Context) (bool, error) {
	return s.step(ctx, s.history.Redo)
}

func (s *Session) step(ctx context.Context, move func(string) (string, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.product == nil {
		return false, ErrNoProduct
	}
	snap, ok := move(s.keyLocked())
	if !ok {
		return false, nil
	}
	s.restoring = true
	err := s.surface.LoadSnapshot(snap)
	s.restoring = false
	if err != nil {
		return false, err
	}
	s.emitHistoryLocked(ctx)
	s.emit(ctx, EventContext, s.contextEventLocked())
	s.flushLocked(ctx)
	return true, nil
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo(s.keyLocked())
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo(s.keyLocked())
}

// ── State accessors ─────────────────────────────────────────

// Elements returns the pixel-space element list, flushing pending changes.
func (s *Session) Elements() []domain.DesignElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.flushLocked(s.base)
	}
	return append([]domain.DesignElement(nil), s.elements...)
}

// Objects returns copies of the live objects in layer order.
func (s *Session) Objects() []*Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Objects()
}

func (s *Session) Object(id string) (*Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Object(id)
}

func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Selected()
}

// Snapshot is the full JSON state of the live canvas.
func (s *Session) Snapshot() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Snapshot()
}

// Context describes the currently loaded (color, view).
func (s *Session) Context() ContextEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextEventLocked()
}

func (s *Session) Resolution() Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res
}

func (s *Session) Product() (domain.StudioProduct, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.product == nil {
		return domain.StudioProduct{}, false
	}
	return *s.product, true
}

func (s *Session) DesignID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.designID
}

func (s *Session) SetDesignID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.designID = id
}

// RatioState serializes the live canvas against its design area.
func (s *Session) RatioState() domain.RatioState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Serialize(s.surface.objects, s.res.Area, s.surface.AreaRect())
}

// ViewStates returns every saved context, including the current one.
func (s *Session) ViewStates() []domain.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
	out := make([]domain.ViewState, 0, len(s.views))
	for _, k := range sortedKeys(s.views) {
		out = append(out, s.views[k])
	}
	return out
}

// LoadViewStates merges persisted states. If the current context is among
// them it is reloaded from the merged state.
func (s *Session) LoadViewStates(ctx context.Context, states []domain.ViewState) error {
	s.mu.Lock()
	if s.product == nil {
		s.mu.Unlock()
		return ErrNoProduct
	}
	reload := false
	for _, vs := range states {
		key := domain.ContextKey(domain.ColorKey(vs.ColorKey), vs.View)
		s.views[key] = vs
		reload = reload || key == s.keyLocked()
	}
	color, view := s.res.Color.Name, s.res.View
	s.mu.Unlock()
	if !reload {
		return nil
	}
	return s.switchTo(ctx, color, view, false)
}

// HistoryStates copies every context's history stack.
func (s *Session) HistoryStates() map[string]domain.HistoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.States()
}

// RestoreHistory installs persisted history stacks.
func (s *Session) RestoreHistory(ctx context.Context, states map[string]domain.HistoryState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, st := range states {
		s.history.Restore(k, st)
	}
	if s.product != nil {
		s.emitHistoryLocked(ctx)
	}
}

// ExportRequest captures what the exporter needs to render the current
// context from its ratio state.
func (s *Session) ExportRequest() ExportRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ExportRequest{
		DesignID:  s.designID,
		ColorKey:  s.res.ColorKey,
		View:      s.res.View,
		MockupURL: s.res.MockupURL,
		Area:      s.res.Area,
		State:     Serialize(s.surface.objects, s.res.Area, s.surface.AreaRect()),
	}
}

func sortedKeys(m map[string]domain.ViewState) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
