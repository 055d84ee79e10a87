package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"studio/internal/backend"
	"studio/internal/domain"
)

func newClient(srv *httptest.Server, opts ...backend.Option) *backend.Client {
	opts = append([]backend.Option{backend.WithHTTPClient(srv.Client()), backend.WithRetry(2, time.Millisecond)}, opts...)
	return backend.New(srv.URL+"/", opts...)
}

func TestClient_UnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/studio-products/active" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{"success":true,"data":[{"id":"p1","name":"Tee","colors":[{"name":"White","hex":"#fff"}],
			"designAreas":{"front":{"x":0.2,"y":0.2,"width":0.5,"height":"oops"}}}]}`)
	}))
	defer srv.Close()

	products, err := newClient(srv).ActiveProducts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 || products[0].ID != "p1" || products[0].Colors[0].Hex != "#fff" {
		t.Fatalf("unexpected products %+v", products)
	}
	if _, ok := products[0].DesignAreas["front"]["height"].(string); !ok {
		t.Error("raw design area fields should keep their JSON type")
	}
}

func TestClient_PlainJSONPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"d1","name":"Mine","status":"draft"}]`)
	}))
	defer srv.Close()

	designs, err := newClient(srv).ListMyDesigns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(designs) != 1 || designs[0].ID != "d1" || designs[0].Status != domain.DesignStatusDraft {
		t.Errorf("unexpected designs %+v", designs)
	}
}

func TestClient_EnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"message":"design not found"}`)
	}))
	defer srv.Close()

	_, err := newClient(srv).GetDesign(context.Background(), "nope")
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "design not found" {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"success":false,"message":"missing"}`)
	}))
	defer srv.Close()

	_, err := newClient(srv).GetDesign(context.Background(), "x")
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "missing" {
		t.Fatalf("unexpected error %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"success":true,"data":{"id":"d9","name":"Saved"}}`)
	}))
	defer srv.Close()

	d, err := newClient(srv).CreateDesign(context.Background(), domain.Design{Name: "Saved"})
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != "d9" || calls.Load() != 3 {
		t.Errorf("got %+v after %d calls", d, calls.Load())
	}
}

func TestClient_GivesUpAfterTwoRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(srv).ListMyDesigns(context.Background())
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("unexpected error %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

// flakyTransport fails the first n round trips with a transport error.
type flakyTransport struct {
	n     atomic.Int32
	fails int32
	next  http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if f.n.Add(1) <= f.fails {
		return nil, errors.New("connection reset")
	}
	return f.next.RoundTrip(r)
}

func TestClient_RetriesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	ft := &flakyTransport{fails: 2, next: srv.Client().Transport}
	c := backend.New(srv.URL, backend.WithHTTPClient(&http.Client{Transport: ft}), backend.WithRetry(2, time.Millisecond))
	if _, err := c.ListMyDesigns(context.Background()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if n := ft.n.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestClient_CancelledContextIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newClient(srv).ListMyDesigns(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("expected no calls, got %d", n)
	}
}

func TestClient_SendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newClient(srv, backend.WithToken(func() string { return "s3cret" }))
	if _, err := c.ListMyDesigns(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestClient_UploadAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/designs/upload" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "logo.png" || string(data) != "pngdata" {
			t.Errorf("unexpected upload %s %q", hdr.Filename, data)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]string{"url": "https://cdn/logo.png"}})
	}))
	defer srv.Close()

	u, err := newClient(srv).UploadAsset(context.Background(), "logo.png", "image/png", []byte("pngdata"))
	if err != nil {
		t.Fatal(err)
	}
	if u != "https://cdn/logo.png" {
		t.Errorf("unexpected url %q", u)
	}
}

func TestClient_NotifyExport(t *testing.T) {
	var got backend.ExportNotice
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/designs/d1/export" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	err := newClient(srv).NotifyExport(context.Background(), "d1", backend.ExportNotice{View: domain.ViewBack, Width: 4000, Height: 4800})
	if err != nil {
		t.Fatal(err)
	}
	if got.View != domain.ViewBack || got.Width != 4000 {
		t.Errorf("unexpected notice %+v", got)
	}
}
