package assets

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Asset is an image file in the local asset folder.
type Asset struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// ListAssets returns the image files directly inside dir, sorted by name.
func ListAssets(dir string) ([]Asset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	assets := make([]Asset, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		assets = append(assets, Asset{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })
	return assets, nil
}

// ChangeHandler receives the full asset list after the folder changes.
type ChangeHandler func(assets []Asset)

// Watcher reports changes to the image files in a folder. Bursts of
// events (a file copied in several writes) are coalesced.
type Watcher struct {
	dir       string
	watcher   *fsnotify.Watcher
	onChange  ChangeHandler
	debounced func(func())
}

// NewWatcher creates dir if needed and starts watching it.
func NewWatcher(dir string, delay time.Duration, onChange ChangeHandler) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:       dir,
		watcher:   fw,
		onChange:  onChange,
		debounced: debounce.New(delay),
	}
	go w.watchLoop()
	return w, nil
}

func (w *Watcher) Dir() string { return w.dir }

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !IsImageFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.debounced(w.notify)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("assets: watcher error: %v", err)
		}
	}
}

func (w *Watcher) notify() {
	assets, err := ListAssets(w.dir)
	if err != nil {
		log.Printf("assets: %v", err)
		return
	}
	if w.onChange != nil {
		w.onChange(assets)
	}
}
