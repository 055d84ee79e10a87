package app

import (
	"path/filepath"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"studio/internal/service"
)

// ExportDesign renders the current color and view at print resolution and
// saves it where the user picks. Returns nil when the dialog is cancelled.
func (a *App) ExportDesign() (_ *service.ExportInfo, err error) {
	defer a.rescue("ExportDesign", &err)

	// Empty canvas: let the service warn before any dialog opens
	if len(a.st.session.ExportRequest().State.Objects) == 0 {
		return a.st.exports.Export(a.ctx, "")
	}

	path, err := wailsRuntime.SaveFileDialog(a.ctx, wailsRuntime.SaveDialogOptions{
		Title:            "Export design",
		DefaultDirectory: a.cfg.Export.Dir,
		DefaultFilename:  a.st.exports.DefaultFilename(),
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "PNG image", Pattern: "*.png"},
		},
	})
	if err != nil || path == "" {
		return nil, err
	}
	return a.ExportDesignTo(path)
}

// ExportDesignTo writes the export to path without a dialog. A bare file
// name goes into the configured export directory.
func (a *App) ExportDesignTo(path string) (_ *service.ExportInfo, err error) {
	defer a.rescue("ExportDesignTo", &err)
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.cfg.Export.Dir, path)
	}
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	info, err := a.st.exports.Export(a.ctx, path)
	if err != nil {
		return nil, err
	}
	wailsRuntime.LogInfof(a.ctx, "[ExportDesign] %s (%dx%d)", info.Path, info.Width, info.Height)
	return info, nil
}
