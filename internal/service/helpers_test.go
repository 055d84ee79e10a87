package service_test

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"studio/internal/assets"
	"studio/internal/backend"
	"studio/internal/domain"
	"studio/internal/service"
	"studio/internal/storage"
	"studio/internal/studio"
)

// ─────────────────────────────────────────────────────────────
// Fakes and fixtures shared by the service tests
// ─────────────────────────────────────────────────────────────

type fakeBackend struct {
	mu           sync.Mutex
	products     []domain.StudioProduct
	productCalls int
	created      []domain.Design
	createErr    error
	uploadErr    error
	uploads      []string
	notices      []backend.ExportNotice
	designs      map[string]*domain.Design
}

func (f *fakeBackend) ActiveProducts(context.Context) ([]domain.StudioProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	return f.products, nil
}

func (f *fakeBackend) ListMyDesigns(context.Context) ([]domain.Design, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Design{}
	for _, d := range f.designs {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeBackend) GetDesign(_ context.Context, id string) (*domain.Design, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.designs[id]
	if !ok {
		return nil, &backend.APIError{Status: 404, Message: "design not found"}
	}
	cp := *d
	return &cp, nil
}

func (f *fakeBackend) CreateDesign(_ context.Context, d domain.Design) (*domain.Design, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if d.ID == "" {
		d.ID = fmt.Sprintf("remote-%d", len(f.created)+1)
	}
	f.created = append(f.created, d)
	if f.designs == nil {
		f.designs = make(map[string]*domain.Design)
	}
	f.designs[d.ID] = &d
	return &d, nil
}

func (f *fakeBackend) UploadAsset(_ context.Context, filename, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, filename)
	return "https://cdn.test/" + filename, nil
}

func (f *fakeBackend) NotifyExport(_ context.Context, _ string, n backend.ExportNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return nil
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// fixture wires real storage and a real session around a fake backend.
type fixture struct {
	dir     string
	backend *fakeBackend
	emitter *service.MockEmitter
	session *studio.Session
	db      *storage.DB
	stores  service.DesignStores
	studio  *service.StudioService
	designs *service.DesignService
	exports *service.ExportService
	product domain.StudioProduct
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "white-front.png"), 50, 60)
	writePNG(t, filepath.Join(dir, "white-back.png"), 50, 60)
	writePNG(t, filepath.Join(dir, "logo.png"), 40, 20)

	product := domain.StudioProduct{
		ID:    "tee",
		Name:  "Classic Tee",
		Type:  "tshirt",
		Price: 20,
		Sizes: []string{"S", "M"},
		Colors: []domain.ProductColor{
			{Name: "White", Hex: "#ffffff", Mockups: map[string]string{
				"front": filepath.Join(dir, "white-front.png"),
				"back":  filepath.Join(dir, "white-back.png"),
			}},
		},
		DesignAreas: map[string]domain.RawDesignArea{
			"front": {"x": 0.25, "y": 0.2, "width": 0.5, "height": 0.5},
		},
	}

	db, err := storage.New(filepath.Join(dir, "studio.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	fb := &fakeBackend{products: []domain.StudioProduct{product}}
	em := &service.MockEmitter{}
	loader := assets.NewLoader()
	sess := studio.NewSession(context.Background(), em, loader, studio.SessionOptions{
		Container: domain.Size{Width: 500, Height: 600},
	})
	t.Cleanup(sess.Close)

	stores := service.DesignStores{
		Drafts:  storage.NewDraftStore(db),
		Views:   storage.NewViewStateStore(db),
		History: storage.NewHistoryStore(db, 40),
	}
	exporter := studio.NewExporter(loader, studio.ExportOptions{MinDimension: 120, ThumbnailMax: 40})
	st := service.NewStudioService(fb, sess, em)
	return &fixture{
		dir:     dir,
		backend: fb,
		emitter: em,
		session: sess,
		db:      db,
		stores:  stores,
		studio:  st,
		designs: service.NewDesignService(fb, stores, st, exporter, em),
		exports: service.NewExportService(exporter, sess, stores.Drafts, fb, em),
		product: product,
	}
}

func (f *fixture) open(t *testing.T) {
	t.Helper()
	if _, err := f.studio.OpenProduct(context.Background(), "tee", "White", domain.ViewFront); err != nil {
		t.Fatalf("open product: %v", err)
	}
}

func assetsLoader() *assets.Loader {
	return assets.NewLoader()
}
