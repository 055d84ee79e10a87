// Package assets loads and decodes design images and watches the local
// asset folder.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/webp"
)

const (
	defaultCacheSize = 64
	defaultMaxBytes  = 32 << 20
)

// Loader fetches images from http(s) URLs, data URLs and local files and
// keeps recently used decoded images in an LRU cache. It satisfies
// studio.ImageLoader.
type Loader struct {
	client   *http.Client
	maxBytes int64
	capacity int

	// nil when caching is disabled
	cache *lru.Cache[string, image.Image]
}

type Option func(*Loader)

func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithCacheSize bounds the number of decoded images kept in memory.
// Zero disables caching.
func WithCacheSize(n int) Option {
	return func(l *Loader) { l.capacity = n }
}

// WithMaxBytes caps every source. Non-positive values keep the default.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: defaultMaxBytes,
		capacity: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.capacity > 0 {
		// only fails for a non-positive size
		l.cache, _ = lru.New[string, image.Image](l.capacity)
	}
	return l
}

// Load returns the decoded image for src.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	if l.cache != nil {
		if img, ok := l.cache.Get(src); ok {
			return img, nil
		}
	}
	data, _, err := l.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if l.cache != nil {
		l.cache.Add(src, img)
	}
	return img, nil
}

// Fetch returns the raw bytes and content type of src.
func (l *Loader) Fetch(ctx context.Context, src string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		// base64 inflates by 4/3
		if int64(len(src)) > l.maxBytes*4/3+1024 {
			return nil, "", l.tooLarge()
		}
		mime, data, err := DecodeDataURL(src)
		if err != nil {
			return nil, "", err
		}
		if int64(len(data)) > l.maxBytes {
			return nil, "", l.tooLarge()
		}
		return data, mime, nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetchHTTP(ctx, src)
	default:
		path := src
		if strings.HasPrefix(src, "file://") {
			u, err := url.Parse(src)
			if err != nil {
				return nil, "", fmt.Errorf("parse file url: %w", err)
			}
			path = u.Path
		}
		data, err := l.readFile(path)
		if err != nil {
			return nil, "", err
		}
		return data, http.DetectContentType(data), nil
	}
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if info.Size() > l.maxBytes {
		return nil, l.tooLarge()
	}
	data, err := io.ReadAll(io.LimitReader(f, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, l.tooLarge()
	}
	return data, nil
}

func (l *Loader) tooLarge() error {
	return fmt.Errorf("image exceeds %d bytes", l.maxBytes)
}

func (l *Loader) fetchHTTP(ctx context.Context, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("fetch image: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, "", l.tooLarge()
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

// Forget drops src from the cache.
func (l *Loader) Forget(src string) {
	if l.cache != nil {
		l.cache.Remove(src)
	}
}

// ── Data URLs ───────────────────────────────────────────────

// DataURL encodes data as a base64 data URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a data URL into its media type and payload.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data url")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if mime == "" {
		mime = "text/plain"
	}
	if !isBase64 {
		text, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("decode data url: %w", err)
		}
		return mime, []byte(text), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return mime, data, nil
}
