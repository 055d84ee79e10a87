package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"studio/internal/domain"
)

// ListMyDesigns lists the signed-in user's designs.
func (c *Client) ListMyDesigns(ctx context.Context) ([]domain.Design, error) {
	var designs []domain.Design
	if err := c.getJSON(ctx, "/designs/my-designs", &designs); err != nil {
		return nil, err
	}
	return designs, nil
}

func (c *Client) GetDesign(ctx context.Context, id string) (*domain.Design, error) {
	var d domain.Design
	if err := c.getJSON(ctx, "/designs/"+url.PathEscape(id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDesign stores a design and returns it as saved by the backend.
func (c *Client) CreateDesign(ctx context.Context, d domain.Design) (*domain.Design, error) {
	var saved domain.Design
	if err := c.postJSON(ctx, "/designs", d, &saved); err != nil {
		return nil, err
	}
	if saved.ID == "" {
		saved = d
	}
	return &saved, nil
}

// UploadAsset uploads an image as the multipart field "image" and returns
// its public URL.
func (c *Client) UploadAsset(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	var out struct {
		URL string `json:"url"`
	}
	r := request{
		method:      http.MethodPost,
		path:        "/designs/upload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	if err := c.do(ctx, r, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload: response has no url")
	}
	return out.URL, nil
}

// ExportNotice describes an exported print file.
type ExportNotice struct {
	ImageURL string      `json:"imageUrl,omitempty"`
	View     domain.View `json:"view"`
	Color    string      `json:"color"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
}

// NotifyExport tells the backend a design was exported.
func (c *Client) NotifyExport(ctx context.Context, designID string, n ExportNotice) error {
	return c.postJSON(ctx, "/designs/"+url.PathEscape(designID)+"/export", n, nil)
}
