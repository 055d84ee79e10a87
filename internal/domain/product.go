package domain

// RawDesignArea is a design-area record as received from the backend.
// Fields stay untyped so the resolver can reject non-numeric values.
type RawDesignArea map[string]any

// ProductColor is one color variant with its per-view mockups.
type ProductColor struct {
	Name    string            `json:"name"`
	Hex     string            `json:"hex"`
	Mockups map[string]string `json:"mockups"`
}

// StudioProduct is a blank product that can be customized in the studio.
type StudioProduct struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Type        string                   `json:"type"`
	Price       float64                  `json:"price"`
	Sizes       []string                 `json:"sizes"`
	Colors      []ProductColor           `json:"colors"`
	Mockups     map[string]string        `json:"mockups"`
	DesignAreas map[string]RawDesignArea `json:"designAreas"`
}
