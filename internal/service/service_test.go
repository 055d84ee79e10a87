package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studio/internal/domain"
	"studio/internal/service"
	"studio/internal/storage"
	"studio/internal/studio"
)

// ─────────────────────────────────────────────────────────────
// BusyGuard tests
// ─────────────────────────────────────────────────────────────

func TestBusyGuard_TryLock(t *testing.T) {
	var g service.ExportedBusyGuard

	if !g.TryLock("save") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("save") {
		t.Fatal("expected second TryLock for same key to fail")
	}
	if !g.TryLock("export") {
		t.Fatal("expected TryLock for different key to succeed")
	}
	g.Unlock("save")
	g.Unlock("export")

	if !g.TryLock("save") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("save")
}

func TestBusyGuard_WaitAllIncludesBackgroundWork(t *testing.T) {
	var g service.ExportedBusyGuard
	finished := make(chan struct{})
	g.Go(func() {
		time.Sleep(20 * time.Millisecond)
		close(finished)
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	g.WaitAll(ctx)

	select {
	case <-finished:
	default:
		t.Fatal("WaitAll returned before background work finished")
	}
}

// ─────────────────────────────────────────────────────────────
// Window settings
// ─────────────────────────────────────────────────────────────

func TestWindowSettings(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	svc := service.NewWindowSettingsService(storage.NewSettingsStore(db))

	if got := svc.LoadWindowSize(); got.Width != 1280 || got.Height != 800 {
		t.Errorf("expected defaults, got %+v", got)
	}
	if err := svc.SaveWindowSize(1500, 900); err != nil {
		t.Fatal(err)
	}
	if got := svc.LoadWindowSize(); got.Width != 1500 || got.Height != 900 {
		t.Errorf("expected saved size, got %+v", got)
	}
	// Too small falls back to the defaults
	svc.SaveWindowSize(300, 200)
	if got := svc.LoadWindowSize(); got.Width != 1280 || got.Height != 800 {
		t.Errorf("expected defaults for tiny window, got %+v", got)
	}
	svc.SetLastProduct("tee")
	if svc.LastProduct() != "tee" {
		t.Errorf("last product = %q", svc.LastProduct())
	}
}

// ─────────────────────────────────────────────────────────────
// Studio service
// ─────────────────────────────────────────────────────────────

func TestStudioService_ProductCatalogIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.studio.ListProducts(ctx, false); err != nil {
		t.Fatal(err)
	}
	f.studio.ListProducts(ctx, false)
	if f.backend.productCalls != 1 {
		t.Errorf("expected 1 backend call, got %d", f.backend.productCalls)
	}
	if _, err := f.studio.Product(ctx, "missing"); err == nil {
		t.Error("expected error for unknown product")
	}
	// an unknown id forces one refresh
	if f.backend.productCalls != 2 {
		t.Errorf("expected refresh on miss, got %d calls", f.backend.productCalls)
	}
}

func TestStudioService_OpenAndUndoRedo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.studio.OpenProduct(ctx, "tee", "white", domain.ViewFront)
	if err != nil {
		t.Fatal(err)
	}
	if ev.ColorKey != "white" || ev.View != domain.ViewFront {
		t.Errorf("unexpected context %+v", ev)
	}

	f.session.AddText("Hello")
	state, err := f.studio.Undo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.session.Elements()) != 0 || !state.CanRedo {
		t.Errorf("undo should empty the canvas, state %+v", state)
	}
	state, _ = f.studio.Redo(ctx)
	if len(f.session.Elements()) != 1 || state.CanRedo {
		t.Errorf("redo should restore Hello, state %+v", state)
	}
}

func TestStudioService_AddImageFailureToasts(t *testing.T) {
	f := newFixture(t)
	f.open(t)

	_, err := f.studio.AddImage(context.Background(), filepath.Join(f.dir, "missing.png"))
	var assetErr *studio.AssetError
	if !errors.As(err, &assetErr) {
		t.Fatalf("expected AssetError, got %v", err)
	}
	if len(f.emitter.Named(service.EventToast)) != 1 {
		t.Error("expected an error toast")
	}
}

// ─────────────────────────────────────────────────────────────
// Design service
// ─────────────────────────────────────────────────────────────

func TestDesignService_SaveEmptyCanvas(t *testing.T) {
	f := newFixture(t)
	f.open(t)

	_, err := f.designs.Save(context.Background(), service.SaveInput{Name: "Empty"})
	if !errors.Is(err, studio.ErrNothingToSave) {
		t.Fatalf("expected ErrNothingToSave, got %v", err)
	}
	if len(f.backend.created) != 0 {
		t.Error("nothing should reach the backend")
	}
	drafts, _ := f.designs.ListDrafts()
	if len(drafts) != 0 {
		t.Errorf("no draft should be written, got %d", len(drafts))
	}
	toasts := f.emitter.Named(service.EventToast)
	if len(toasts) != 1 || toasts[0].(service.Toast).Level != "warning" {
		t.Errorf("expected one warning toast, got %+v", toasts)
	}
}

func TestDesignService_SaveLocalThenRemote(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	f.session.AddText("Hello")

	d, err := f.designs.Save(ctx, service.SaveInput{Name: "Hello tee", Size: "M"})
	if err != nil {
		t.Fatal(err)
	}
	if d.RemoteID != "remote-1" {
		t.Errorf("expected remote id, got %q", d.RemoteID)
	}
	if len(f.backend.created) != 1 {
		t.Fatalf("expected one remote save, got %d", len(f.backend.created))
	}
	sent := f.backend.created[0]
	if len(sent.Elements) != 1 || sent.Elements[0].Content != "Hello" {
		t.Errorf("unexpected elements %+v", sent.Elements)
	}
	if sent.BaseProduct.Size != "M" || sent.Price != 20 || sent.BaseProductID != "tee" {
		t.Errorf("unexpected design fields %+v", sent)
	}
	if !strings.HasPrefix(sent.Thumbnail, "https://cdn.test/thumbnail-") {
		t.Errorf("expected uploaded thumbnail, got %q", sent.Thumbnail)
	}
	if len(sent.Views) != 1 || sent.Views[0].RatioState == nil {
		t.Errorf("expected one view with ratio state, got %+v", sent.Views)
	}

	stored, err := f.stores.Drafts.GetDraft(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.RemoteID != "remote-1" {
		t.Errorf("draft should record remote id, got %q", stored.RemoteID)
	}
	states, _ := f.stores.Views.LoadViewStates(d.ID)
	if len(states) != 1 {
		t.Errorf("expected 1 stored view state, got %d", len(states))
	}
	hist, _ := f.stores.History.LoadHistory(d.ID)
	if len(hist) != 1 {
		t.Errorf("expected history for one context, got %d", len(hist))
	}

	// a second save updates the same remote design
	f.session.AddText("Again")
	if _, err := f.designs.Save(ctx, service.SaveInput{}); err != nil {
		t.Fatal(err)
	}
	second := f.backend.created[1]
	if second.ID != "remote-1" || second.Name != "Hello tee" || second.BaseProduct.Size != "M" {
		t.Errorf("second save should reuse id and fields, got %+v", second)
	}
}

func TestDesignService_RemoteFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	f.backend.createErr = errors.New("backend down")
	f.backend.uploadErr = errors.New("upload down")
	f.session.AddText("Hello")

	d, err := f.designs.Save(context.Background(), service.SaveInput{Name: "Offline"})
	if err == nil {
		t.Fatal("expected remote error")
	}
	if d == nil || d.RemoteID != "" {
		t.Fatalf("expected local draft without remote id, got %+v", d)
	}
	stored, err := f.stores.Drafts.GetDraft(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stored.Design.Thumbnail, "data:image/png;base64,") {
		t.Errorf("thumbnail should fall back to a data url, got %.40q", stored.Design.Thumbnail)
	}
}

func TestDesignService_OpenDraftRestoresCanvas(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	o, _ := f.session.AddText("Hello")
	f.session.Move(o.ID, 200, 250)
	want, _ := f.session.Object(o.ID)

	d, err := f.designs.Save(ctx, service.SaveInput{Name: "Keep"})
	if err != nil {
		t.Fatal(err)
	}

	// start over on a fresh design, then reopen the draft
	f.open(t)
	if len(f.session.Elements()) != 0 {
		t.Fatal("fresh design should be empty")
	}
	if _, err := f.designs.OpenDraft(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if f.session.DesignID() != d.ID {
		t.Errorf("session design id = %q", f.session.DesignID())
	}
	got, ok := f.session.Object(o.ID)
	if !ok {
		t.Fatal("object not restored")
	}
	if got.Left != want.Left || got.Top != want.Top {
		t.Errorf("position %v,%v want %v,%v", got.Left, got.Top, want.Left, want.Top)
	}
	if !f.session.CanUndo() {
		t.Error("history should be restored with the draft")
	}
}

func TestDesignService_OpenRemoteCreatesDraft(t *testing.T) {
	f := newFixture(t)
	f.backend.designs = map[string]*domain.Design{
		"r9": {
			ID:            "r9",
			Name:          "Remote",
			BaseProductID: "tee",
			BaseProduct:   domain.BaseProduct{Color: "White"},
			Views: []domain.DesignView{{
				View:  domain.ViewFront,
				Color: "white",
				RatioState: &domain.RatioState{Objects: []domain.RatioObject{{
					ID: "t1", Type: domain.ElementText, Content: "Remote", X: 0.1, Y: 0.1,
					Width: 0.5, Height: 0.2, Opacity: 1, FontSize: 0.1, Color: "#000000",
				}}},
			}},
		},
	}
	ctx := context.Background()

	d, err := f.designs.OpenRemote(ctx, "r9")
	if err != nil {
		t.Fatal(err)
	}
	if d.RemoteID != "r9" {
		t.Errorf("remote id = %q", d.RemoteID)
	}
	els := f.session.Elements()
	if len(els) != 1 || els[0].Content != "Remote" {
		t.Errorf("unexpected elements %+v", els)
	}

	// opening again reuses the local draft
	again, err := f.designs.OpenRemote(ctx, "r9")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != d.ID {
		t.Errorf("expected draft %s to be reused, got %s", d.ID, again.ID)
	}
}

func TestDesignService_DeleteDraft(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	f.session.AddText("Hello")
	d, err := f.designs.Save(ctx, service.SaveInput{})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.designs.DeleteDraft(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.stores.Drafts.GetDraft(d.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if f.session.DesignID() != "" {
		t.Error("session should detach from the deleted draft")
	}
}

type countingDrafts struct {
	domain.DraftStore
	saves int
}

func (c *countingDrafts) SaveDraft(d *domain.Draft) error {
	c.saves++
	return c.DraftStore.SaveDraft(d)
}

func TestDesignService_AutosaveSkipsUnchanged(t *testing.T) {
	f := newFixture(t)
	counting := &countingDrafts{DraftStore: f.stores.Drafts}
	stores := f.stores
	stores.Drafts = counting
	designs := service.NewDesignService(f.backend, stores, f.studio, nil, f.emitter)
	f.open(t)
	ctx := context.Background()

	if err := designs.Autosave(ctx); err != nil || counting.saves != 0 {
		t.Fatalf("empty canvas should not autosave: %v, %d saves", err, counting.saves)
	}
	f.session.AddText("Hello")
	designs.Autosave(ctx)
	designs.Autosave(ctx)
	if counting.saves != 1 {
		t.Errorf("expected 1 save, got %d", counting.saves)
	}
	if len(f.backend.created) != 0 {
		t.Error("autosave must stay local")
	}
	f.session.AddText("More")
	designs.Autosave(ctx)
	if counting.saves != 2 {
		t.Errorf("expected 2 saves after a change, got %d", counting.saves)
	}
}

// ─────────────────────────────────────────────────────────────
// Export service
// ─────────────────────────────────────────────────────────────

func TestExportService_NothingToExport(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	path := filepath.Join(f.dir, "out", "empty.png")

	_, err := f.exports.Export(context.Background(), path)
	if !errors.Is(err, studio.ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be written")
	}
}

func TestExportService_WritesFileAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	f.session.AddText("Hello")
	if _, err := f.designs.Save(ctx, service.SaveInput{Name: "Tee"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(f.dir, "out", f.exports.DefaultFilename())
	info, err := f.exports.Export(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 120 || info.Height != 144 {
		t.Errorf("size %dx%d, want 120x144", info.Width, info.Height)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "\x89PNG") {
		t.Error("export is not a PNG")
	}
	if filepath.Base(path) != "classic-tee-white-front.png" {
		t.Errorf("filename = %s", filepath.Base(path))
	}

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	f.exports.Wait(wctx)
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	if len(f.backend.notices) != 1 || f.backend.notices[0].Color != "white" {
		t.Errorf("expected one export notice, got %+v", f.backend.notices)
	}
}

// ─────────────────────────────────────────────────────────────
// Assets + autosave
// ─────────────────────────────────────────────────────────────

func TestAssetService_ImportFallsBackToDataURL(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	f.backend.uploadErr = errors.New("offline")
	svc := service.NewAssetService(f.dir, assetsLoader(), f.backend, f.studio, f.emitter)

	o, err := svc.Import(context.Background(), filepath.Join(f.dir, "logo.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(o.Image.Src, "data:image/png;base64,") {
		t.Errorf("expected data url source, got %.40q", o.Image.Src)
	}

	if _, err := svc.Import(context.Background(), filepath.Join(f.dir, "notes.txt")); err == nil {
		t.Error("expected error for non-image file")
	}
	list, err := svc.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 images in the asset folder, got %d", len(list))
	}
}

func TestAutosaver_InvalidSchedule(t *testing.T) {
	if _, err := service.NewAutosaver("every now and then", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected invalid schedule error")
	}
	a, err := service.NewAutosaver("@every 1h", func(context.Context) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	a.Start()
	a.Stop()
}
