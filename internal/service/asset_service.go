package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"studio/internal/assets"
	"studio/internal/studio"
)

// ─────────────────────────────────────────────────────────────
// Asset Service — local asset folder and image import
// ─────────────────────────────────────────────────────────────

// AssetUploader stores an image on the backend and returns its URL.
type AssetUploader interface {
	UploadAsset(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// AssetFetcher reads raw bytes for a source. *assets.Loader implements it.
type AssetFetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, string, error)
}

const assetWatchDelay = 300 * time.Millisecond

type AssetService struct {
	dir      string
	fetcher  AssetFetcher
	uploader AssetUploader
	studio   *StudioService
	emitter  EventEmitter
	watcher  *assets.Watcher
}

func NewAssetService(dir string, fetcher AssetFetcher, uploader AssetUploader, st *StudioService, emitter EventEmitter) *AssetService {
	return &AssetService{dir: dir, fetcher: fetcher, uploader: uploader, studio: st, emitter: emitter}
}

func (s *AssetService) Dir() string { return s.dir }

func (s *AssetService) List() ([]assets.Asset, error) {
	return assets.ListAssets(s.dir)
}

// Watch emits EventAssetsChanged whenever images in the folder change.
func (s *AssetService) Watch(ctx context.Context) error {
	if s.watcher != nil {
		return nil
	}
	w, err := assets.NewWatcher(s.dir, assetWatchDelay, func(list []assets.Asset) {
		s.emitter.Emit(ctx, EventAssetsChanged, list)
	})
	if err != nil {
		return fmt.Errorf("watch assets: %w", err)
	}
	s.watcher = w
	return nil
}

func (s *AssetService) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

// Import uploads a local image and adds it to the canvas. If the upload
// fails the image is embedded as a data URL instead.
func (s *AssetService) Import(ctx context.Context, path string) (*studio.Object, error) {
	if !assets.IsImageFile(path) {
		return nil, fmt.Errorf("import %s: not an image file", filepath.Base(path))
	}
	data, mime, err := s.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, &studio.AssetError{Src: path, Err: err}
	}

	src, err := s.uploader.UploadAsset(ctx, filepath.Base(path), mime, data)
	if err != nil {
		log.Printf("assets: upload of %s failed, embedding: %v", filepath.Base(path), err)
		src = assets.DataURL(mime, data)
	}
	return s.studio.AddImage(ctx, src)
}
