package domain

import "time"

type DesignStatus string

const (
	DesignStatusDraft     DesignStatus = "draft"
	DesignStatusSubmitted DesignStatus = "submitted"
)

// BaseProduct records the blank a design was made for.
type BaseProduct struct {
	Type  string `json:"type"`
	Color string `json:"color"`
	Size  string `json:"size"`
}

// DesignView is the persisted form of a ViewState inside a Design.
type DesignView struct {
	View        View        `json:"view"`
	Color       string      `json:"color"`
	CanvasJSON  string      `json:"canvasJson,omitempty"`
	RatioState  *RatioState `json:"ratioState,omitempty"`
	PreviewSize Size        `json:"previewSize"`
}

// Design is the multi-view design document stored by the backend.
type Design struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name"`
	BaseProduct    BaseProduct     `json:"baseProduct"`
	BaseProductID  string          `json:"baseProductId"`
	Elements       []DesignElement `json:"elements"`
	Views          []DesignView    `json:"views"`
	Thumbnail      string          `json:"thumbnail,omitempty"`
	DesignMetadata map[string]any  `json:"designMetadata,omitempty"`
	Price          float64         `json:"price"`
	Status         DesignStatus    `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Draft is a locally stored design. RemoteID is empty until the design
// has been saved to the backend at least once.
type Draft struct {
	ID        string    `json:"id"`
	RemoteID  string    `json:"remoteId"`
	Name      string    `json:"name"`
	ProductID string    `json:"productId"`
	Design    Design    `json:"design"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DraftStore persists local drafts.
type DraftStore interface {
	SaveDraft(d *Draft) error
	GetDraft(id string) (*Draft, error)
	ListDrafts() ([]Draft, error)
	DeleteDraft(id string) error
}
