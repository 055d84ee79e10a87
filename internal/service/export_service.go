package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"studio/internal/backend"
	"studio/internal/domain"
	"studio/internal/studio"
)

// ─────────────────────────────────────────────────────────────
// Export Service — print-resolution PNG + backend notification
// ─────────────────────────────────────────────────────────────

// ExportNotifier uploads an exported file and records it on the design.
// *backend.Client implements it.
type ExportNotifier interface {
	UploadAsset(ctx context.Context, filename, contentType string, data []byte) (string, error)
	NotifyExport(ctx context.Context, designID string, n backend.ExportNotice) error
}

const defaultNotifyTimeout = 2 * time.Minute

// ExportService renders the current context and writes it to disk. When
// the design exists remotely the file is also uploaded in the background.
type ExportService struct {
	exporter *studio.Exporter
	session  *studio.Session
	drafts   domain.DraftStore
	notifier ExportNotifier
	emitter  EventEmitter
	guard    busyGuard

	notifyTimeout time.Duration
}

func NewExportService(exporter *studio.Exporter, session *studio.Session, drafts domain.DraftStore, notifier ExportNotifier, emitter EventEmitter) *ExportService {
	return &ExportService{
		exporter:      exporter,
		session:       session,
		drafts:        drafts,
		notifier:      notifier,
		emitter:       emitter,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// ExportInfo describes a written export.
type ExportInfo struct {
	Path    string   `json:"path"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Skipped []string `json:"skipped,omitempty"`
}

// DefaultFilename suggests a file name for the current context.
func (s *ExportService) DefaultFilename() string {
	req := s.session.ExportRequest()
	name := "design"
	if p, ok := s.session.Product(); ok && p.Name != "" {
		name = p.Name
	}
	return fmt.Sprintf("%s-%s-%s.png", slug(name), slug(req.ColorKey), req.View)
}

// Export renders the current context and writes the PNG to path. Nothing
// is written when the canvas is empty.
func (s *ExportService) Export(ctx context.Context, path string) (*ExportInfo, error) {
	req := s.session.ExportRequest()
	if len(req.State.Objects) == 0 {
		toast(ctx, s.emitter, "warning", "Nothing to export: add an element first")
		return nil, studio.ErrNothingToExport
	}
	key := "export:" + domain.ContextKey(req.ColorKey, req.View)
	if !s.guard.TryLock(key) {
		return nil, ErrBusy
	}
	defer s.guard.Unlock(key)

	res, err := s.exporter.Export(ctx, req)
	if err != nil {
		toast(ctx, s.emitter, "error", err.Error())
		return nil, fmt.Errorf("export: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, res.PNG, 0644); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}

	info := &ExportInfo{Path: path, Width: res.Width, Height: res.Height, Skipped: res.Skipped}
	if len(res.Skipped) > 0 {
		toast(ctx, s.emitter, "warning", fmt.Sprintf("%d image(s) could not be loaded and were left out of the export", len(res.Skipped)))
	}
	s.emitter.Emit(ctx, EventExportDone, info)
	log.Printf("export: wrote %s (%dx%d)", path, res.Width, res.Height)

	if remoteID := s.remoteID(req.DesignID); remoteID != "" && s.notifier != nil {
		s.guard.Go(func() { s.notify(remoteID, req, res) })
	}
	return info, nil
}

func (s *ExportService) remoteID(draftID string) string {
	if draftID == "" || s.drafts == nil {
		return ""
	}
	d, err := s.drafts.GetDraft(draftID)
	if err != nil {
		return ""
	}
	return d.RemoteID
}

// notify uploads the export and records it on the design. Failures are
// logged only; the local file is already written.
func (s *ExportService) notify(remoteID string, req studio.ExportRequest, res studio.ExportResult) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()

	name := fmt.Sprintf("export-%s-%s-%s.png", remoteID, slug(req.ColorKey), req.View)
	url, err := s.notifier.UploadAsset(ctx, name, "image/png", res.PNG)
	if err != nil {
		log.Printf("export: upload for design %s failed: %v", remoteID, err)
		return
	}
	err = s.notifier.NotifyExport(ctx, remoteID, backend.ExportNotice{
		ImageURL: url,
		View:     req.View,
		Color:    req.ColorKey,
		Width:    res.Width,
		Height:   res.Height,
	})
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		log.Printf("export: backend rejected notice for %s: %v", remoteID, apiErr)
	case err != nil:
		log.Printf("export: notify for design %s failed: %v", remoteID, err)
	}
}

// Wait blocks until background uploads finish or ctx is done.
func (s *ExportService) Wait(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			dash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			dash = false
		default:
			if !dash && len(out) > 0 {
				out = append(out, '-')
				dash = true
			}
		}
	}
	if dash {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "design"
	}
	return string(out)
}
