package app

import (
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"studio/internal/assets"
	"studio/internal/studio"
)

// ── Local asset folder ─────────────────────────────────────

func (a *App) AssetDir() string {
	return a.st.assets.Dir()
}

func (a *App) ListAssets() (_ []assets.Asset, err error) {
	defer a.rescue("ListAssets", &err)
	return a.st.assets.List()
}

// ImportImageFile adds a local image to the canvas. With an empty path a
// file dialog is shown; cancelling it returns nil.
func (a *App) ImportImageFile(path string) (_ *studio.Object, err error) {
	defer a.rescue("ImportImageFile", &err)
	if path == "" {
		path, err = wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
			Title:            "Add image",
			DefaultDirectory: a.st.assets.Dir(),
			Filters: []wailsRuntime.FileFilter{
				{DisplayName: "Images", Pattern: "*.png;*.jpg;*.jpeg;*.gif;*.webp"},
			},
		})
		if err != nil || path == "" {
			return nil, err
		}
	}
	return a.st.assets.Import(a.ctx, path)
}
