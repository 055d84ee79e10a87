package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── studio://products ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"studio://products",
		"Studio Products",
		mcp.WithMIMEType("application/json"),
	), s.handleProductsResource)

	// ── studio://design ────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"studio://design",
		"Current Design",
		mcp.WithResourceDescription("Elements and ratio state of the open color and view"),
		mcp.WithMIMEType("application/json"),
	), s.handleDesignResource)
}

func (s *Server) handleProductsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	products, err := s.studio.ListProducts(ctx, false)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, products)
}

func (s *Server) handleDesignResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sess := s.studio.Session()
	cur := sess.Context()
	return jsonResource(req.Params.URI, map[string]any{
		"designId":   sess.DesignID(),
		"color":      cur.ColorKey,
		"view":       cur.View,
		"elements":   sess.Elements(),
		"ratioState": sess.RatioState(),
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
