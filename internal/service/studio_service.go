package service

import (
	"context"
	"fmt"
	"sync"

	"studio/internal/domain"
	"studio/internal/studio"
)

// ─────────────────────────────────────────────────────────────
// Studio Service — product catalog + the live editing session
// ─────────────────────────────────────────────────────────────

// ProductSource lists the products that can be customized.
// *backend.Client implements it.
type ProductSource interface {
	ActiveProducts(ctx context.Context) ([]domain.StudioProduct, error)
}

// StudioService owns the editing session and the cached product catalog.
type StudioService struct {
	products ProductSource
	session  *studio.Session
	emitter  EventEmitter

	mu      sync.Mutex
	catalog []domain.StudioProduct
}

func NewStudioService(products ProductSource, session *studio.Session, emitter EventEmitter) *StudioService {
	return &StudioService{products: products, session: session, emitter: emitter}
}

func (s *StudioService) Session() *studio.Session {
	return s.session
}

// ListProducts returns the active catalog, fetching it on first use or
// when refresh is set.
func (s *StudioService) ListProducts(ctx context.Context, refresh bool) ([]domain.StudioProduct, error) {
	s.mu.Lock()
	cached := s.catalog
	s.mu.Unlock()
	if cached != nil && !refresh {
		return cached, nil
	}

	products, err := s.products.ActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []domain.StudioProduct{}
	}
	s.mu.Lock()
	s.catalog = products
	s.mu.Unlock()
	return products, nil
}

// Product looks a product up by id, refreshing the catalog once if it
// is not cached.
func (s *StudioService) Product(ctx context.Context, id string) (domain.StudioProduct, error) {
	for attempt := 0; attempt < 2; attempt++ {
		products, err := s.ListProducts(ctx, attempt > 0)
		if err != nil {
			return domain.StudioProduct{}, err
		}
		for _, p := range products {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return domain.StudioProduct{}, fmt.Errorf("product %s: not found", id)
}

// OpenProduct starts a new, unsaved design on a product.
func (s *StudioService) OpenProduct(ctx context.Context, productID, color string, view domain.View) (studio.ContextEvent, error) {
	p, err := s.Product(ctx, productID)
	if err != nil {
		return studio.ContextEvent{}, err
	}
	if err := s.session.Open(ctx, p, studio.OpenOptions{Color: color, View: view}); err != nil {
		return studio.ContextEvent{}, fmt.Errorf("open %s: %w", p.Name, err)
	}
	return s.session.Context(), nil
}

// SwitchContext moves the session to another (color, view).
func (s *StudioService) SwitchContext(ctx context.Context, color string, view domain.View) (studio.ContextEvent, error) {
	if err := s.session.SwitchContext(ctx, color, view); err != nil {
		return studio.ContextEvent{}, err
	}
	return s.session.Context(), nil
}

// AddImage adds src to the canvas. Load failures are reported as a
// warning toast as well as returned.
func (s *StudioService) AddImage(ctx context.Context, src string) (*studio.Object, error) {
	o, err := s.session.AddImage(ctx, src)
	if err != nil {
		toast(ctx, s.emitter, "error", err.Error())
		return nil, err
	}
	return o, nil
}

// UndoRedoState is the undo/redo availability of the current context.
type UndoRedoState struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

func (s *StudioService) Undo(ctx context.Context) (UndoRedoState, error) {
	if _, err := s.session.Undo(ctx); err != nil {
		return UndoRedoState{}, err
	}
	return s.UndoRedo(), nil
}

func (s *StudioService) Redo(ctx context.Context) (UndoRedoState, error) {
	if _, err := s.session.Redo(ctx); err != nil {
		return UndoRedoState{}, err
	}
	return s.UndoRedo(), nil
}

func (s *StudioService) UndoRedo() UndoRedoState {
	return UndoRedoState{CanUndo: s.session.CanUndo(), CanRedo: s.session.CanRedo()}
}
