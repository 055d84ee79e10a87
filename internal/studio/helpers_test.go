package studio

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/google/go-cmp/cmp/cmpopts"

	"studio/internal/domain"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// fakeLoader serves solid images of fixed sizes keyed by source.
type fakeLoader struct {
	mu    sync.Mutex
	sizes map[string]image.Point
	calls map[string]int
}

func newFakeLoader(sizes map[string]image.Point) *fakeLoader {
	return &fakeLoader{sizes: sizes, calls: make(map[string]int)}
}

func (f *fakeLoader) Load(ctx context.Context, src string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls[src]++
	p, ok := f.sizes[src]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("not found: %s", src)
	}
	img := image.NewRGBA(image.Rect(0, 0, p.X, p.Y))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 200, A: 255}), image.Point{}, draw.Src)
	return img, nil
}

type recordedEvent struct {
	Event string
	Data  any
}

// recorder is an Observer that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Emit(_ context.Context, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Event: event, Data: data})
}

func (r *recorder) named(event string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}

func testProduct() domain.StudioProduct {
	return domain.StudioProduct{
		ID:    "prod-1",
		Name:  "Classic Tee",
		Type:  "tshirt",
		Price: 25,
		Colors: []domain.ProductColor{
			{Name: "White", Hex: "#ffffff", Mockups: map[string]string{
				"front": "mock://white-front",
				"back":  "mock://white-back",
			}},
			{Name: "Black", Hex: "#000000", Mockups: map[string]string{
				"front": "mock://black-front",
				"back":  "mock://black-back",
			}},
		},
		Mockups: map[string]string{"front": "mock://front"},
		DesignAreas: map[string]domain.RawDesignArea{
			"front": {"x": 0.25, "y": 0.2, "width": 0.5, "height": 0.5},
			"back":  {"x": 0.2, "y": 0.15, "width": 0.6, "height": 0.6},
		},
	}
}

func testLoader() *fakeLoader {
	return newFakeLoader(map[string]image.Point{
		"mock://front":       {X: 500, Y: 600},
		"mock://white-front": {X: 500, Y: 600},
		"mock://white-back":  {X: 500, Y: 600},
		"mock://black-front": {X: 500, Y: 600},
		"mock://black-back":  {X: 500, Y: 600},
		"img://logo":         {X: 400, Y: 200},
		"img://square":       {X: 100, Y: 100},
	})
}

func domainState(stack []string, index int) domain.HistoryState {
	return domain.HistoryState{Stack: stack, Index: index}
}

// gatedLoader holds loads of one source until release is closed, so a test
// can act while that load is in flight.
type gatedLoader struct {
	*fakeLoader
	src     string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedLoader(src string) *gatedLoader {
	return &gatedLoader{
		fakeLoader: testLoader(),
		src:        src,
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (g *gatedLoader) Load(ctx context.Context, src string) (image.Image, error) {
	if src == g.src {
		g.once.Do(func() { close(g.started) })
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.fakeLoader.Load(ctx, src)
}
