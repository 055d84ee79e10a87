package app

import (
	"context"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"studio/internal/config"
	"studio/internal/secret"
	"studio/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context
	cfg *config.Config

	st        *stack
	autosaver *service.Autosaver
	watcher   *studioWatcher
}

// New creates a new App.
func New() *App {
	return &App{}
}

// Emit forwards service and session events to the frontend. Events always
// go out on the startup context so background work can emit too.
func (a *App) Emit(_ context.Context, event string, data any) {
	if a.ctx == nil {
		return
	}
	wailsRuntime.EventsEmit(a.ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load(config.DefaultPath())
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Invalid config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	a.cfg = cfg

	st, err := buildStack(ctx, cfg, secret.Default(), a)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open storage: %v", err)
		return
	}
	a.st = st

	size := st.windows.LoadWindowSize()
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)

	autosaver, err := service.NewAutosaver(cfg.Drafts.Autosave, st.designs.Autosave)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Autosave disabled: %v", err)
	} else {
		a.autosaver = autosaver
		autosaver.Start()
	}

	if err := st.assets.Watch(ctx); err != nil {
		wailsRuntime.LogErrorf(ctx, "Asset folder not watched: %v", err)
	}

	// Picks up approvals and drafts written by a standalone MCP process
	a.watcher = newStudioWatcher(ctx, st.approvals, fingerprinterOf(st), a)
	a.watcher.Start()

	wailsRuntime.LogInfof(ctx, "Studio ready (api %s, storage %s)", cfg.API.BaseURL, st.db.Dialect())
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.autosaver != nil {
		a.autosaver.Stop()
	}
	if a.st == nil {
		return
	}
	if w, h := wailsRuntime.WindowGetSize(ctx); w > 0 && h > 0 {
		if err := a.st.windows.SaveWindowSize(w, h); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to save window size: %v", err)
		}
	}
	a.st.close(shutdownTimeout)
}
