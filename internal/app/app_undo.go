package app

import "studio/internal/service"

// ============================================================
// Undo / Redo (per color + view)
// ============================================================

func (a *App) Undo() (_ service.UndoRedoState, err error) {
	defer a.rescue("Undo", &err)
	return a.st.studio.Undo(a.ctx)
}

func (a *App) Redo() (_ service.UndoRedoState, err error) {
	defer a.rescue("Redo", &err)
	return a.st.studio.Redo(a.ctx)
}

// PushHistory records the current canvas, e.g. at the end of a drag.
// Pushing an unchanged canvas is a no-op.
func (a *App) PushHistory() service.UndoRedoState {
	defer a.rescue("PushHistory", nil)
	a.st.session.PushHistory(a.ctx)
	return a.st.studio.UndoRedo()
}

func (a *App) GetUndoRedo() service.UndoRedoState {
	return a.st.studio.UndoRedo()
}
