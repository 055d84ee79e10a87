package service

import (
	"fmt"

	"studio/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Window Size Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the main Wails window size between sessions. The
// canvas container is derived from it on startup.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSettingsService persists window size between sessions.
type WindowSettingsService struct {
	settings *storage.SettingsStore
}

func NewWindowSettingsService(settings *storage.SettingsStore) *WindowSettingsService {
	return &WindowSettingsService{settings: settings}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	settingLastProduct  = "last_product_id"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
)

// LoadWindowSize returns the saved window dimensions, or sensible defaults.
func (s *WindowSettingsService) LoadWindowSize() WindowSize {
	if s.settings == nil {
		return WindowSize{Width: defaultWindowWidth, Height: defaultWindowHeight}
	}
	w := s.settings.GetInt(settingWindowWidth, defaultWindowWidth)
	h := s.settings.GetInt(settingWindowHeight, defaultWindowHeight)
	if w < 800 {
		w = defaultWindowWidth
	}
	if h < 600 {
		h = defaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

// SaveWindowSize persists the current window dimensions.
func (s *WindowSettingsService) SaveWindowSize(width, height int) error {
	if s.settings == nil {
		return fmt.Errorf("window settings: no store")
	}
	if err := s.settings.SetInt(settingWindowWidth, width); err != nil {
		return err
	}
	return s.settings.SetInt(settingWindowHeight, height)
}

// LastProduct returns the product opened most recently, if any.
func (s *WindowSettingsService) LastProduct() string {
	if s.settings == nil {
		return ""
	}
	v, _, _ := s.settings.Get(settingLastProduct)
	return v
}

func (s *WindowSettingsService) SetLastProduct(id string) error {
	if s.settings == nil {
		return nil
	}
	return s.settings.Set(settingLastProduct, id)
}
