package mcpserver

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/studio"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerStudioTools() {
	// ── list_studio_products ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_studio_products",
		mcp.WithDescription("List the blank products that can be customized, with their colors and views"),
		mcp.WithBoolean("refresh", mcp.Description("Refetch the catalog from the store")),
	), s.handleListProducts)

	// ── open_studio ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_studio",
		mcp.WithDescription("Start a new design on a product. Replaces the design currently open."),
		mcp.WithString("productId", mcp.Description("ID of the product"), mcp.Required()),
		mcp.WithString("color", mcp.Description("Color name or hex (defaults to the first color)")),
		mcp.WithString("view", mcp.Description("Product face"), mcp.Enum("front", "chest", "back")),
	), s.handleOpenStudio)

	// ── switch_context ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("switch_context",
		mcp.WithDescription("Switch to another color and/or view. Each (color, view) keeps its own elements and history."),
		mcp.WithString("color", mcp.Description("Color name or hex"), mcp.Required()),
		mcp.WithString("view", mcp.Description("Product face"), mcp.Enum("front", "chest", "back"), mcp.Required()),
	), s.handleSwitchContext)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change in the current color and view"),
	), s.handleUndo)
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change in the current color and view"),
	), s.handleRedo)
}

func (s *Server) handleListProducts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	products, err := s.studio.ListProducts(ctx, req.GetBool("refresh", false))
	if err != nil {
		return nil, err
	}

	type productSummary struct {
		ID     string   `json:"id"`
		Name   string   `json:"name"`
		Type   string   `json:"type"`
		Price  float64  `json:"price"`
		Colors []string `json:"colors"`
		Sizes  []string `json:"sizes"`
	}
	summaries := make([]productSummary, 0, len(products))
	for _, p := range products {
		colors := make([]string, 0, len(p.Colors))
		for _, c := range p.Colors {
			colors = append(colors, c.Name)
		}
		summaries = append(summaries, productSummary{
			ID: p.ID, Name: p.Name, Type: p.Type, Price: p.Price, Colors: colors, Sizes: p.Sizes,
		})
	}
	return jsonResult(summaries)
}

func (s *Server) handleOpenStudio(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID := req.GetString("productId", "")
	if productID == "" {
		return nil, fmt.Errorf("productId is required")
	}
	ev, err := s.studio.OpenProduct(ctx, productID, req.GetString("color", ""), domain.ParseView(req.GetString("view", "")))
	if err != nil {
		return nil, err
	}
	s.emitDesignChanged(ctx, "open_studio")
	return jsonResult(contextSummary(ev.ColorKey, ev.View, ev.Canvas, ev.Guide.Rect))
}

func (s *Server) handleSwitchContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	color := req.GetString("color", "")
	if color == "" {
		return nil, fmt.Errorf("color is required")
	}
	ev, err := s.studio.SwitchContext(ctx, color, domain.ParseView(req.GetString("view", "")))
	if err != nil {
		return nil, err
	}
	s.emitDesignChanged(ctx, "switch_context")
	return jsonResult(contextSummary(ev.ColorKey, ev.View, ev.Canvas, ev.Guide.Rect))
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := s.studio.Undo(ctx)
	if err != nil {
		return nil, err
	}
	s.emitDesignChanged(ctx, "undo")
	return jsonResult(state)
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := s.studio.Redo(ctx)
	if err != nil {
		return nil, err
	}
	s.emitDesignChanged(ctx, "redo")
	return jsonResult(state)
}

// contextSummary is what agents need to place elements: the canvas size and
// the printable rect inside it.
func contextSummary(colorKey string, view domain.View, canvas domain.Size, area studio.Rect) map[string]any {
	return map[string]any{
		"color":      colorKey,
		"view":       view,
		"canvas":     canvas,
		"designArea": area,
	}
}
