package app

import (
	"studio/internal/domain"
	"studio/internal/service"
	"studio/internal/studio"
)

// StudioState is everything the frontend needs to redraw after a reload.
type StudioState struct {
	Open      bool                   `json:"open"`
	ProductID string                 `json:"productId"`
	DesignID  string                 `json:"designId"`
	Context   studio.ContextEvent    `json:"context"`
	Elements  []domain.DesignElement `json:"elements"`
	Selected  string                 `json:"selected"`
	UndoRedo  service.UndoRedoState  `json:"undoRedo"`
}

// TokenStatus reports whether an API token is configured, never the token.
type TokenStatus struct {
	Set    bool   `json:"set"`
	Source string `json:"source"`
}
