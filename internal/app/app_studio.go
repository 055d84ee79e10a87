package app

// ─────────────────────────────────────────────────────────────
// Studio Handlers — thin delegates to StudioService and Session
// ─────────────────────────────────────────────────────────────

import (
	"studio/internal/domain"
	"studio/internal/studio"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// ── Catalog + context ──────────────────────────────────────

func (a *App) ListProducts(refresh bool) (_ []domain.StudioProduct, err error) {
	defer a.rescue("ListProducts", &err)
	return a.st.studio.ListProducts(a.ctx, refresh)
}

// OpenProduct starts a new design. Empty color or view pick the product's
// first color and the front view.
func (a *App) OpenProduct(productID, color, view string) (_ studio.ContextEvent, err error) {
	defer a.rescue("OpenProduct", &err)
	wailsRuntime.LogInfof(a.ctx, "[OpenProduct] %s color=%q view=%q", productID, color, view)
	ev, err := a.st.studio.OpenProduct(a.ctx, productID, color, domain.ParseView(view))
	if err != nil {
		return ev, err
	}
	if err := a.st.windows.SetLastProduct(productID); err != nil {
		wailsRuntime.LogWarningf(a.ctx, "Failed to remember product: %v", err)
	}
	return ev, nil
}

func (a *App) SwitchContext(color, view string) (_ studio.ContextEvent, err error) {
	defer a.rescue("SwitchContext", &err)
	return a.st.studio.SwitchContext(a.ctx, color, domain.ParseView(view))
}

// LastProduct is the product opened most recently, or "".
func (a *App) LastProduct() string {
	return a.st.windows.LastProduct()
}

// GetStudioState snapshots the session for a frontend reload.
func (a *App) GetStudioState() (state StudioState, err error) {
	defer a.rescue("GetStudioState", &err)
	s := a.st.session
	p, open := s.Product()
	state = StudioState{Open: open, UndoRedo: a.st.studio.UndoRedo()}
	if !open {
		return state, nil
	}
	state.ProductID = p.ID
	state.DesignID = s.DesignID()
	state.Context = s.Context()
	state.Elements = s.Elements()
	state.Selected = s.Selected()
	return state, nil
}

// Resize tells the session the canvas container changed size.
func (a *App) Resize(width, height float64) {
	defer a.rescue("Resize", nil)
	a.st.session.Resize(a.ctx, width, height)
}

// ── Elements ───────────────────────────────────────────────

func (a *App) GetElements() (_ []domain.DesignElement, err error) {
	defer a.rescue("GetElements", &err)
	return a.st.session.Elements(), nil
}

func (a *App) AddText(content string) (_ *studio.Object, err error) {
	defer a.rescue("AddText", &err)
	return a.st.session.AddText(content)
}

func (a *App) AddImage(src string) (_ *studio.Object, err error) {
	defer a.rescue("AddImage", &err)
	return a.st.studio.AddImage(a.ctx, src)
}

func (a *App) MoveElement(id string, left, top float64) (err error) {
	defer a.rescue("MoveElement", &err)
	return a.st.session.Move(id, left, top)
}

func (a *App) ScaleElement(id string, width, height float64) (err error) {
	defer a.rescue("ScaleElement", &err)
	return a.st.session.Scale(id, width, height)
}

func (a *App) RotateElement(id string, deg float64) (err error) {
	defer a.rescue("RotateElement", &err)
	return a.st.session.Rotate(id, deg)
}

func (a *App) UpdateText(id string, patch studio.TextPatch) (err error) {
	defer a.rescue("UpdateText", &err)
	return a.st.session.UpdateText(id, patch)
}

func (a *App) SetOpacity(id string, opacity float64) (err error) {
	defer a.rescue("SetOpacity", &err)
	return a.st.session.SetOpacity(id, opacity)
}

func (a *App) RemoveElement(id string) (err error) {
	defer a.rescue("RemoveElement", &err)
	return a.st.session.Remove(id)
}

func (a *App) ReorderElement(id string, index int) (err error) {
	defer a.rescue("ReorderElement", &err)
	return a.st.session.Reorder(id, index)
}

func (a *App) SelectElement(id string) (err error) {
	defer a.rescue("SelectElement", &err)
	return a.st.session.Select(id)
}

func (a *App) ClearDesign() (err error) {
	defer a.rescue("ClearDesign", &err)
	return a.st.session.Clear()
}
