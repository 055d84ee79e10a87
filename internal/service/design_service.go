package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/assets"
	"studio/internal/domain"
	"studio/internal/storage"
	"studio/internal/studio"
)

// ─────────────────────────────────────────────────────────────
// Design Service — local-first save, drafts, remote designs
// ─────────────────────────────────────────────────────────────

// ErrBusy is returned when the same save or export is already running.
var ErrBusy = errors.New("operation already in progress")

// DesignBackend is the part of the storefront API the design service uses.
// *backend.Client implements it.
type DesignBackend interface {
	ListMyDesigns(ctx context.Context) ([]domain.Design, error)
	GetDesign(ctx context.Context, id string) (*domain.Design, error)
	CreateDesign(ctx context.Context, d domain.Design) (*domain.Design, error)
	UploadAsset(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// DesignStores groups the persistence a design needs.
type DesignStores struct {
	Drafts  domain.DraftStore
	Views   domain.ViewStateStore
	History domain.HistoryStore
}

// DesignService saves the live session as a draft and to the backend, and
// reopens drafts and remote designs into the session.
type DesignService struct {
	backend  DesignBackend
	stores   DesignStores
	studio   *StudioService
	exporter *studio.Exporter
	emitter  EventEmitter
	guard    busyGuard

	mu           sync.Mutex
	lastAutosave string
}

func NewDesignService(backend DesignBackend, stores DesignStores, st *StudioService, exporter *studio.Exporter, emitter EventEmitter) *DesignService {
	return &DesignService{
		backend:  backend,
		stores:   stores,
		studio:   st,
		exporter: exporter,
		emitter:  emitter,
	}
}

// SaveInput carries the user-editable fields of a design.
type SaveInput struct {
	Name   string  `json:"name"`
	Size   string  `json:"size"`
	Price  float64 `json:"price"`
	Submit bool    `json:"submit"`
}

// ── Save ───────────────────────────────────────────────────

// Save writes the session to a local draft and then to the backend. If the
// remote save fails the draft is kept and the error returned.
func (s *DesignService) Save(ctx context.Context, in SaveInput) (*domain.Draft, error) {
	if !s.guard.TryLock("save") {
		return nil, ErrBusy
	}
	defer s.guard.Unlock("save")

	d, err := s.saveLocal(ctx, in, true)
	if err != nil {
		if errors.Is(err, studio.ErrNothingToSave) {
			toast(ctx, s.emitter, "warning", "Add at least one element before saving")
		}
		return nil, err
	}

	remote, err := s.backend.CreateDesign(ctx, d.Design)
	if err != nil {
		toast(ctx, s.emitter, "error", err.Error())
		return d, fmt.Errorf("save design remotely: %w", err)
	}
	d.RemoteID = remote.ID
	d.Design.ID = remote.ID
	if err := s.stores.Drafts.SaveDraft(d); err != nil {
		return d, fmt.Errorf("record remote id: %w", err)
	}

	s.emitter.Emit(ctx, EventDesignSaved, d)
	toast(ctx, s.emitter, "success", "Design saved")
	return d, nil
}

// Autosave writes the session to its local draft when it changed since
// the last autosave. An empty canvas is skipped.
func (s *DesignService) Autosave(ctx context.Context) error {
	sess := s.studio.Session()
	if _, ok := sess.Product(); !ok || len(sess.Elements()) == 0 {
		return nil
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return err
	}
	s.mu.Lock()
	unchanged := sess.DesignID()+"|"+snap == s.lastAutosave
	s.mu.Unlock()
	if unchanged {
		return nil
	}
	if !s.guard.TryLock("save") {
		return nil
	}
	defer s.guard.Unlock("save")

	d, err := s.saveLocal(ctx, SaveInput{}, false)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lastAutosave = d.ID + "|" + snap
	s.mu.Unlock()
	return nil
}

func (s *DesignService) saveLocal(ctx context.Context, in SaveInput, thumbnail bool) (*domain.Draft, error) {
	sess := s.studio.Session()
	elements := sess.Elements()
	if len(elements) == 0 {
		return nil, studio.ErrNothingToSave
	}
	p, ok := sess.Product()
	if !ok {
		return nil, studio.ErrNoProduct
	}

	id := sess.DesignID()
	if id == "" {
		id = uuid.NewString()
		sess.SetDesignID(id)
	}
	var existing *domain.Draft
	if d, err := s.stores.Drafts.GetDraft(id); err == nil {
		existing = d
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	res := sess.Resolution()
	states := sess.ViewStates()
	now := time.Now()
	design := domain.Design{
		Name:          in.Name,
		BaseProduct:   domain.BaseProduct{Type: p.Type, Color: res.Color.Name, Size: in.Size},
		BaseProductID: p.ID,
		Elements:      elements,
		Views:         toDesignViews(states),
		DesignMetadata: map[string]any{
			"draftId":  id,
			"colorKey": res.ColorKey,
			"view":     string(res.View),
		},
		Price:     in.Price,
		Status:    domain.DesignStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Submit {
		design.Status = domain.DesignStatusSubmitted
	}
	remoteID := ""
	if existing != nil {
		remoteID = existing.RemoteID
		mergeDesign(&design, existing.Design)
	}
	design.ID = remoteID
	if design.Name == "" {
		design.Name = p.Name + " design"
	}
	if design.Price == 0 {
		design.Price = p.Price
	}
	if design.BaseProduct.Size == "" && len(p.Sizes) > 0 {
		design.BaseProduct.Size = p.Sizes[0]
	}
	if thumbnail {
		if url := s.thumbnail(ctx, id, sess.ExportRequest()); url != "" {
			design.Thumbnail = url
		}
	}

	d := &domain.Draft{
		ID:        id,
		RemoteID:  remoteID,
		Name:      design.Name,
		ProductID: p.ID,
		Design:    design,
	}
	if err := s.stores.Drafts.SaveDraft(d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	if err := s.stores.Views.SaveViewStates(id, states); err != nil {
		return nil, fmt.Errorf("save view states: %w", err)
	}
	if err := s.stores.History.SaveHistory(id, sess.HistoryStates()); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	s.emitter.Emit(ctx, EventDraftsChanged, d.ID)
	return d, nil
}

// mergeDesign fills fields the caller left empty from the stored design.
func mergeDesign(d *domain.Design, prev domain.Design) {
	if d.Name == "" {
		d.Name = prev.Name
	}
	if d.Price == 0 {
		d.Price = prev.Price
	}
	if d.BaseProduct.Size == "" {
		d.BaseProduct.Size = prev.BaseProduct.Size
	}
	if d.Status == domain.DesignStatusDraft && prev.Status != "" {
		d.Status = prev.Status
	}
	if !prev.CreatedAt.IsZero() {
		d.CreatedAt = prev.CreatedAt
	}
	d.Thumbnail = prev.Thumbnail
}

// thumbnail renders a preview and uploads it. The data URL is used when
// the upload fails; an empty string means no thumbnail could be rendered.
func (s *DesignService) thumbnail(ctx context.Context, id string, req studio.ExportRequest) string {
	if s.exporter == nil {
		return ""
	}
	res, err := s.exporter.Thumbnail(ctx, req)
	if err != nil {
		log.Printf("design: thumbnail for %s failed: %v", id, err)
		return ""
	}
	url, err := s.backend.UploadAsset(ctx, "thumbnail-"+id+".png", "image/png", res.PNG)
	if err != nil {
		log.Printf("design: thumbnail upload failed, embedding: %v", err)
		return assets.DataURL("image/png", res.PNG)
	}
	return url
}

// ── Open ───────────────────────────────────────────────────

// OpenDraft loads a draft with its view states and history into the
// session.
func (s *DesignService) OpenDraft(ctx context.Context, id string) (*domain.Draft, error) {
	d, err := s.stores.Drafts.GetDraft(id)
	if err != nil {
		return nil, err
	}
	p, err := s.studio.Product(ctx, d.ProductID)
	if err != nil {
		return nil, err
	}
	states, err := s.stores.Views.LoadViewStates(id)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		states = fromDesignViews(d.Design.Views)
	}
	hist, err := s.stores.History.LoadHistory(id)
	if err != nil {
		log.Printf("design: history for %s unavailable: %v", id, err)
		hist = nil
	}

	color, view := openContext(d.Design)
	err = s.studio.Session().Open(ctx, p, studio.OpenOptions{
		DesignID:   id,
		Color:      color,
		View:       view,
		ViewStates: states,
		History:    hist,
	})
	if err != nil {
		return nil, fmt.Errorf("open draft %s: %w", id, err)
	}
	s.mu.Lock()
	s.lastAutosave = ""
	s.mu.Unlock()
	return d, nil
}

// OpenRemote opens a backend design, reusing its local draft if one
// exists.
func (s *DesignService) OpenRemote(ctx context.Context, remoteID string) (*domain.Draft, error) {
	drafts, err := s.stores.Drafts.ListDrafts()
	if err != nil {
		return nil, err
	}
	for _, d := range drafts {
		if d.RemoteID == remoteID {
			return s.OpenDraft(ctx, d.ID)
		}
	}

	design, err := s.backend.GetDesign(ctx, remoteID)
	if err != nil {
		return nil, fmt.Errorf("get design: %w", err)
	}
	d := &domain.Draft{
		ID:        uuid.NewString(),
		RemoteID:  remoteID,
		Name:      design.Name,
		ProductID: design.BaseProductID,
		Design:    *design,
	}
	if err := s.stores.Drafts.SaveDraft(d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	if err := s.stores.Views.SaveViewStates(d.ID, fromDesignViews(design.Views)); err != nil {
		return nil, fmt.Errorf("save view states: %w", err)
	}
	return s.OpenDraft(ctx, d.ID)
}

// openContext picks the (color, view) a design was last edited in.
func openContext(d domain.Design) (string, domain.View) {
	color := d.BaseProduct.Color
	view := domain.ViewFront
	if v, ok := d.DesignMetadata["view"].(string); ok {
		view = domain.ParseView(v)
	} else if len(d.Views) > 0 {
		view = d.Views[0].View
	}
	if color == "" && len(d.Views) > 0 {
		color = d.Views[0].Color
	}
	return color, view
}

// ── Listing ────────────────────────────────────────────────

func (s *DesignService) ListDrafts() ([]domain.Draft, error) {
	return s.stores.Drafts.ListDrafts()
}

func (s *DesignService) ListRemote(ctx context.Context) ([]domain.Design, error) {
	designs, err := s.backend.ListMyDesigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	return designs, nil
}

// DeleteDraft removes a draft and its stored states. The remote design,
// if any, is left alone.
func (s *DesignService) DeleteDraft(ctx context.Context, id string) error {
	if err := s.stores.Views.DeleteViewStates(id); err != nil {
		return fmt.Errorf("delete view states: %w", err)
	}
	if err := s.stores.History.DeleteHistory(id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if err := s.stores.Drafts.DeleteDraft(id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if sess := s.studio.Session(); sess.DesignID() == id {
		sess.SetDesignID("")
	}
	s.emitter.Emit(ctx, EventDraftsChanged, id)
	return nil
}

// WaitIdle blocks until a running save finishes.
func (s *DesignService) WaitIdle(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

func toDesignViews(states []domain.ViewState) []domain.DesignView {
	out := make([]domain.DesignView, 0, len(states))
	for _, vs := range states {
		out = append(out, domain.DesignView{
			View:        vs.View,
			Color:       vs.ColorKey,
			CanvasJSON:  vs.CanvasJSON,
			RatioState:  vs.RatioState,
			PreviewSize: vs.PreviewSize,
		})
	}
	return out
}

func fromDesignViews(views []domain.DesignView) []domain.ViewState {
	out := make([]domain.ViewState, 0, len(views))
	for _, v := range views {
		out = append(out, domain.ViewState{
			View:        domain.ParseView(string(v.View)),
			ColorKey:    domain.ColorKey(v.Color),
			CanvasJSON:  v.CanvasJSON,
			RatioState:  v.RatioState,
			PreviewSize: v.PreviewSize,
		})
	}
	return out
}
