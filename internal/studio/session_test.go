package studio

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"studio/internal/domain"
)

func openSession(t *testing.T, color string, view domain.View) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := NewSession(context.Background(), rec, testLoader(), SessionOptions{
		Container: domain.Size{Width: 600, Height: 600},
	})
	t.Cleanup(s.Close)
	if err := s.Open(context.Background(), testProduct(), OpenOptions{Color: color, View: view}); err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, rec
}

func TestSession_EditsRequireProduct(t *testing.T) {
	s := NewSession(context.Background(), nil, testLoader(), SessionOptions{})
	defer s.Close()
	if _, err := s.AddText("x"); !errors.Is(err, ErrNoProduct) {
		t.Errorf("expected ErrNoProduct, got %v", err)
	}
	if err := s.SwitchContext(context.Background(), "white", domain.ViewFront); !errors.Is(err, ErrNoProduct) {
		t.Errorf("expected ErrNoProduct, got %v", err)
	}
}

func TestSession_OpenUsesMockupAspect(t *testing.T) {
	s, rec := openSession(t, "White", domain.ViewFront)
	c := s.Context()
	if c.Canvas.Width != 500 || c.Canvas.Height != 600 {
		t.Errorf("expected 500x600 canvas, got %+v", c.Canvas)
	}
	if c.MockupURL != "mock://white-front" || c.ColorKey != "white" {
		t.Errorf("unexpected context %+v", c)
	}
	if len(rec.named(EventContext)) == 0 {
		t.Error("expected a context event")
	}
}

// Add "Hello", undo to an empty canvas, redo back to the same element.
func TestSession_HelloUndoRedo(t *testing.T) {
	ctx := context.Background()
	s, _ := openSession(t, "White", domain.ViewFront)

	added, err := s.AddText("Hello")
	if err != nil {
		t.Fatal(err)
	}
	if s.Selected() != added.ID {
		t.Errorf("new text should be selected")
	}
	if len(s.Elements()) != 1 {
		t.Fatalf("expected 1 element")
	}

	if ok, err := s.Undo(ctx); !ok || err != nil {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if n := len(s.Objects()); n != 0 {
		t.Fatalf("expected empty canvas after undo, got %d", n)
	}
	if len(s.Elements()) != 0 {
		t.Errorf("element list should follow undo")
	}

	if ok, err := s.Redo(ctx); !ok || err != nil {
		t.Fatalf("redo: %v %v", ok, err)
	}
	got, ok := s.Object(added.ID)
	if !ok {
		t.Fatal("Hello missing after redo")
	}
	if diff := cmp.Diff(added, got); diff != "" {
		t.Errorf("redo changed the element (-want +got):\n%s", diff)
	}
}

func TestSession_UndoRedoRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	s, _ := openSession(t, "White", domain.ViewFront)
	o, _ := s.AddText("One")
	_ = s.Move(o.ID, 140, 150)
	_ = s.Rotate(o.ID, 30)

	before, _ := s.Snapshot()
	_, _ = s.Undo(ctx)
	mid, _ := s.Snapshot()
	if mid == before {
		t.Fatal("undo should change the canvas")
	}
	_, _ = s.Redo(ctx)
	after, _ := s.Snapshot()
	if after != before {
		t.Errorf("redo did not restore the snapshot\nwant %s\ngot  %s", before, after)
	}
}

func TestSession_PushHistoryNoDuplicates(t *testing.T) {
	ctx := context.Background()
	s, _ := openSession(t, "White", domain.ViewFront)
	_, _ = s.AddText("One")

	key := domain.ContextKey("white", domain.ViewFront)
	before := s.HistoryStates()[key]
	s.PushHistory(ctx)
	s.PushHistory(ctx)
	after := s.HistoryStates()[key]
	if len(after.Stack) != len(before.Stack) {
		t.Errorf("unchanged canvas should not grow history: %d -> %d", len(before.Stack), len(after.Stack))
	}
}

func TestSession_UndoDoesNotRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := openSession(t, "White", domain.ViewFront)
	_, _ = s.AddText("One")
	_, _ = s.AddText("Two")
	_, _ = s.Undo(ctx)

	st := s.HistoryStates()[domain.ContextKey("white", domain.ViewFront)]
	if len(st.Stack) != 3 || st.Index != 1 {
		t.Errorf("expected 3 entries with cursor 1, got %d@%d", len(st.Stack), st.Index)
	}
	if !s.CanRedo() {
		t.Error("redo should be available")
	}
}

func TestSession_SwitchContextRestoresPositions(t *testing.T) {
	ctx := context.Background()
	s, _ := openSession(t, "White", domain.ViewFront)

	o, _ := s.AddText("Front")
	area := s.Context().Guide.Rect
	if err := s.Move(o.ID, area.X+10, area.Y+12); err != nil {
		t.Fatal(err)
	}
	before := s.Objects()

	if err := s.SwitchContext(ctx, "Black", domain.ViewBack); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Objects()); n != 0 {
		t.Fatalf("black/back should start empty, got %d objects", n)
	}
	if s.CanUndo() {
		t.Error("black/back history should be fresh")
	}
	_, _ = s.AddText("Back")

	if err := s.SwitchContext(ctx, "white", domain.ViewFront); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, s.Objects()); diff != "" {
		t.Errorf("white/front not restored (-want +got):\n%s", diff)
	}
	if !s.CanUndo() {
		t.Error("white/front history should survive the switch")
	}

	states := s.ViewStates()
	if len(states) != 2 {
		t.Fatalf("expected 2 view states, got %d", len(states))
	}
	for _, vs := range states {
		if vs.RatioState == nil || len(vs.RatioState.Objects) != 1 {
			t.Errorf("view state %s::%s missing ratio objects", vs.ColorKey, vs.View)
		}
	}
}

func TestSession_ResumeFromRatioStateWarnsOnSkippedImages(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s := NewSession(ctx, rec, testLoader(), SessionOptions{Container: domain.Size{Width: 600, Height: 600}})
	defer s.Close()

	state := domain.RatioState{Area: DefaultDesignArea, Objects: []domain.RatioObject{
		{ID: "gone", Type: domain.ElementImage, Content: "img://missing", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2, Opacity: 1},
		{ID: "logo", Type: domain.ElementImage, Content: "img://logo", X: 0.1, Y: 0.1, Width: 0.4, Height: 0.2, Opacity: 1},
	}}
	err := s.Open(ctx, testProduct(), OpenOptions{
		Color: "white",
		View:  domain.ViewFront,
		ViewStates: []domain.ViewState{
			{View: domain.ViewFront, ColorKey: "White", RatioState: &state},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	objs := s.Objects()
	if len(objs) != 1 || objs[0].ID != "logo" {
		t.Fatalf("expected only the logo, got %v", objs)
	}
	warnings := rec.named(EventWarning)
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
	if w := warnings[0].(Warning); len(w.IDs) != 1 || w.IDs[0] != "gone" {
		t.Errorf("unexpected warning %+v", w)
	}
}

func TestSession_AddImage(t *testing.T) {
	ctx := context.Background()
	s, _ := openSession(t, "White", domain.ViewFront)

	o, err := s.AddImage(ctx, "img://logo")
	if err != nil {
		t.Fatal(err)
	}
	area := s.Context().Guide.Rect
	side := ImageMaxFraction * area.W
	if area.H < area.W {
		side = ImageMaxFraction * area.H
	}
	if o.Width > side+eps || o.Height > side+eps {
		t.Errorf("image %.2fx%.2f exceeds %.2f", o.Width, o.Height, side)
	}
	if math.Abs(o.Width/o.Height-2) > eps {
		t.Errorf("aspect not preserved: %.4f", o.Width/o.Height)
	}

	_, err = s.AddImage(ctx, "img://missing")
	var assetErr *AssetError
	if !errors.As(err, &assetErr) {
		t.Fatalf("expected AssetError, got %v", err)
	}
	if n := len(s.Objects()); n != 1 {
		t.Errorf("failed load should add nothing, got %d objects", n)
	}
}

func TestSession_AddImageNeverUpscales(t *testing.T) {
	s, _ := openSession(t, "White", domain.ViewFront)
	area := s.Context().Guide.Rect
	if ImageMaxFraction*math.Min(area.W, area.H) <= 100 {
		t.Fatalf("area %+v too small for this check", area)
	}

	o, err := s.AddImage(context.Background(), "img://square")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(o.Width-100) > eps || math.Abs(o.Height-100) > eps {
		t.Errorf("expected natural 100x100, got %.2fx%.2f", o.Width, o.Height)
	}
	if math.Abs(o.Left+o.Width/2-(area.X+area.W/2)) > eps {
		t.Errorf("image not centered horizontally: left %.2f", o.Left)
	}
}

func TestSession_ResizeKeepsRatios(t *testing.T) {
	ctx := context.Background()
	s, _ := openSession(t, "White", domain.ViewFront)
	_, _ = s.AddText("Scale me")
	before := s.RatioState()

	s.Resize(ctx, 300, 300)
	after := s.RatioState()
	if diff := cmp.Diff(before, after, approx); diff != "" {
		t.Errorf("ratio state changed on resize (-want +got):\n%s", diff)
	}
}

func TestSession_ExportRequestUsesCurrentContext(t *testing.T) {
	s, _ := openSession(t, "Black", domain.ViewBack)
	s.SetDesignID("d-1")
	_, _ = s.AddText("Print")
	req := s.ExportRequest()
	if req.DesignID != "d-1" || req.MockupURL != "mock://black-back" || req.View != domain.ViewBack {
		t.Errorf("unexpected request %+v", req)
	}
	if len(req.State.Objects) != 1 {
		t.Errorf("expected 1 ratio object, got %d", len(req.State.Objects))
	}
}

func openGated(t *testing.T, src string) (*Session, *gatedLoader) {
	t.Helper()
	gl := newGatedLoader(src)
	s := NewSession(context.Background(), &recorder{}, gl, SessionOptions{
		Container: domain.Size{Width: 600, Height: 600},
	})
	t.Cleanup(s.Close)
	if err := s.Open(context.Background(), testProduct(), OpenOptions{Color: "White", View: domain.ViewFront}); err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, gl
}

func contents(objs []*Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Content()
	}
	return out
}

// A slow switch that is overtaken by a newer one must not land.
func TestSession_OvertakenSwitchIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s, gl := openGated(t, "mock://black-back")
	if _, err := s.AddText("white front"); err != nil {
		t.Fatal(err)
	}

	slow := make(chan error, 1)
	go func() { slow <- s.SwitchContext(ctx, "Black", domain.ViewBack) }()
	<-gl.started

	if err := s.SwitchContext(ctx, "White", domain.ViewBack); err != nil {
		t.Fatalf("fast switch: %v", err)
	}
	if _, err := s.AddText("white back"); err != nil {
		t.Fatal(err)
	}

	close(gl.release)
	if err := <-slow; err != nil {
		t.Fatalf("slow switch: %v", err)
	}

	cur := s.Context()
	if cur.ColorKey != "white" || cur.View != domain.ViewBack {
		t.Fatalf("context = %s/%s, want white/back", cur.ColorKey, cur.View)
	}
	if diff := cmp.Diff([]string{"white back"}, contents(s.Objects())); diff != "" {
		t.Errorf("white/back objects (-want +got):\n%s", diff)
	}

	if err := s.SwitchContext(ctx, "White", domain.ViewFront); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"white front"}, contents(s.Objects())); diff != "" {
		t.Errorf("white/front objects (-want +got):\n%s", diff)
	}
}

func TestSession_AddImageAfterSwitchReportsContextChanged(t *testing.T) {
	ctx := context.Background()
	s, gl := openGated(t, "img://logo")

	added := make(chan error, 1)
	go func() {
		_, err := s.AddImage(ctx, "img://logo")
		added <- err
	}()
	<-gl.started

	if err := s.SwitchContext(ctx, "White", domain.ViewBack); err != nil {
		t.Fatal(err)
	}
	close(gl.release)
	if err := <-added; !errors.Is(err, ErrContextChanged) {
		t.Fatalf("expected ErrContextChanged, got %v", err)
	}
	if n := len(s.Objects()); n != 0 {
		t.Errorf("white/back should stay empty, got %d objects", n)
	}

	if err := s.SwitchContext(ctx, "White", domain.ViewFront); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Objects()); n != 0 {
		t.Errorf("white/front should stay empty, got %d objects", n)
	}
}

func TestSession_ClearContext(t *testing.T) {
	ctx := context.Background()
	s, _ := openSession(t, "White", domain.ViewFront)
	if _, err := s.AddText("keep"); err != nil {
		t.Fatal(err)
	}
	front := domain.ContextKey("white", domain.ViewFront)

	if err := s.SwitchContext(ctx, "White", domain.ViewBack); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddText("back"); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearContext(front); !errors.Is(err, ErrContextChanged) {
		t.Fatalf("expected ErrContextChanged, got %v", err)
	}
	if n := len(s.Objects()); n != 1 {
		t.Errorf("back view should keep its element, got %d", n)
	}

	if err := s.ClearContext(domain.ContextKey("white", domain.ViewBack)); err != nil {
		t.Fatalf("clear live context: %v", err)
	}
	if n := len(s.Objects()); n != 0 {
		t.Errorf("expected empty canvas, got %d", n)
	}
}
