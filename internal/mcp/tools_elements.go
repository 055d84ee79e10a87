package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"studio/internal/domain"
	"studio/internal/studio"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerElementTools() {
	// ── add_text ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_text",
		mcp.WithDescription("Add a text element centered in the design area"),
		mcp.WithString("text", mcp.Description("Text content"), mcp.Required()),
	), s.handleAddText)

	// ── add_image ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_image",
		mcp.WithDescription("Add an image by URL, data URL or local path, sized to fit the design area"),
		mcp.WithString("src", mcp.Description("Image source"), mcp.Required()),
	), s.handleAddImage)

	// ── list_elements ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_elements",
		mcp.WithDescription("List the elements of the current color and view in layer order (pixel coordinates)"),
	), s.handleListElements)

	// ── move_element ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_element",
		mcp.WithDescription("Move an element; it is kept inside the design area"),
		mcp.WithString("elementId", mcp.Description("ID of the element"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New left edge in canvas pixels"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New top edge in canvas pixels"), mcp.Required()),
	), s.handleMoveElement)

	// ── update_text ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_text",
		mcp.WithDescription("Change the content or style of a text element. Omitted fields are kept."),
		mcp.WithString("elementId", mcp.Description("ID of the text element"), mcp.Required()),
		mcp.WithString("text", mcp.Description("New content")),
		mcp.WithNumber("fontSize", mcp.Description("Font size in canvas pixels")),
		mcp.WithString("fontFamily", mcp.Description("Font family")),
		mcp.WithString("color", mcp.Description("Hex color, e.g. #ff0000")),
		mcp.WithString("fontWeight", mcp.Description("normal or bold"), mcp.Enum("normal", "bold")),
		mcp.WithString("textAlign", mcp.Description("Alignment"), mcp.Enum("left", "center", "right")),
	), s.handleUpdateText)

	// ── delete_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_element",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove an element from the design. Requires user approval."),
		mcp.WithString("elementId", mcp.Description("ID of the element"), mcp.Required()),
	), s.handleDeleteElement)

	// ── clear_design ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("clear_design",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove every element in the current color and view. Requires user approval."),
	), s.handleClearDesign)
}

func (s *Server) handleAddText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	o, err := s.studio.Session().AddText(text)
	if err != nil {
		return nil, err
	}
	s.emitDesignChanged(ctx, "add_text")
	return jsonResult(o.Element())
}

func (s *Server) handleAddImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src := req.GetString("src", "")
	if src == "" {
		return nil, fmt.Errorf("src is required")
	}
	o, err := s.studio.AddImage(ctx, src)
	if err != nil {
		return nil, err
	}
	s.emitDesignChanged(ctx, "add_image")
	return jsonResult(o.Element())
}

func (s *Server) handleListElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.studio.Session().Elements())
}

func (s *Server) handleMoveElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	o, err := s.getElementForTool(req)
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()
	x, okX := args["x"].(float64)
	y, okY := args["y"].(float64)
	if !okX || !okY {
		return nil, fmt.Errorf("x and y are required")
	}
	sess := s.studio.Session()
	if err := sess.Move(o.ID, x, y); err != nil {
		return nil, err
	}
	moved, err := readBack(sess, o.ID)
	if err != nil {
		return nil, fmt.Errorf("move element: %w", err)
	}
	s.emitDesignChanged(ctx, "move_element")
	return jsonResult(moved)
}

func (s *Server) handleUpdateText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	o, err := s.getElementForTool(req)
	if err != nil {
		return nil, err
	}
	patch := textPatchFromArgs(req.GetArguments())
	sess := s.studio.Session()
	if err := sess.UpdateText(o.ID, patch); err != nil {
		return nil, err
	}
	updated, err := readBack(sess, o.ID)
	if err != nil {
		return nil, fmt.Errorf("update text: %w", err)
	}
	s.emitDesignChanged(ctx, "update_text")
	return jsonResult(updated)
}

// readBack returns an element after an edit. The frontend may have removed
// it in between.
func readBack(sess *studio.Session, id string) (domain.DesignElement, error) {
	o, ok := sess.Object(id)
	if !ok {
		return domain.DesignElement{}, fmt.Errorf("element %s: %w", id, studio.ErrUnknownElement)
	}
	return o.Element(), nil
}

func textPatchFromArgs(args map[string]any) studio.TextPatch {
	var p studio.TextPatch
	str := func(key string) *string {
		if v, ok := args[key].(string); ok && v != "" {
			return &v
		}
		return nil
	}
	p.Content = str("text")
	p.FontFamily = str("fontFamily")
	p.Color = str("color")
	p.FontWeight = str("fontWeight")
	p.TextAlign = str("textAlign")
	if v, ok := args["fontSize"].(float64); ok && v > 0 {
		p.FontSize = &v
	}
	return p
}

func (s *Server) handleDeleteElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	o, err := s.getElementForTool(req)
	if err != nil {
		return nil, err
	}

	meta, _ := json.Marshal(map[string][]string{"elementIds": {o.ID}})
	if _, err := s.approval.Request("delete_element",
		fmt.Sprintf("Delete %s element %q", o.Kind, o.Content()), string(meta)); err != nil {
		return textResult(approvalReply(err)), nil
	}

	if err := s.studio.Session().Remove(o.ID); err != nil {
		return nil, fmt.Errorf("delete element: %w", err)
	}
	s.emitDesignChanged(ctx, "delete_element")
	return textResult(fmt.Sprintf("Element %s deleted", o.ID)), nil
}

func (s *Server) handleClearDesign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := s.studio.Session()
	objs := sess.Objects()
	if len(objs) == 0 {
		return textResult("Design is already empty"), nil
	}
	ids := make([]string, len(objs))
	for i, o := range objs {
		ids[i] = o.ID
	}
	cur := sess.Context()
	key := domain.ContextKey(cur.ColorKey, cur.View)
	meta, _ := json.Marshal(map[string][]string{"elementIds": ids})
	if _, err := s.approval.Request("clear_design",
		fmt.Sprintf("Remove all %d element(s) from %s / %s", len(ids), cur.Color, cur.View), string(meta)); err != nil {
		return textResult(approvalReply(err)), nil
	}

	if err := sess.ClearContext(key); err != nil {
		if errors.Is(err, studio.ErrContextChanged) {
			return textResult("Context changed while waiting for approval; nothing was cleared"), nil
		}
		return nil, fmt.Errorf("clear design: %w", err)
	}
	s.emitDesignChanged(ctx, "clear_design")
	return textResult(fmt.Sprintf("Removed %d element(s)", len(ids))), nil
}
