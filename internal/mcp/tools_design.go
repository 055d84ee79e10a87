package mcpserver

import (
	"context"
	"fmt"
	"path/filepath"

	"studio/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerDesignTools() {
	// ── save_design ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_design",
		mcp.WithDescription("Save the design locally and to the store"),
		mcp.WithString("name", mcp.Description("Design name")),
		mcp.WithString("size", mcp.Description("Product size")),
		mcp.WithNumber("price", mcp.Description("Selling price (defaults to the product price)")),
		mcp.WithBoolean("submit", mcp.Description("Submit the design for review instead of keeping it as a draft")),
	), s.handleSaveDesign)

	// ── export_design ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("export_design",
		mcp.WithDescription("Render the current color and view as a print-resolution PNG"),
		mcp.WithString("path", mcp.Description("Output file (defaults to the export folder)")),
	), s.handleExportDesign)

	// ── list_drafts / open_draft ───────────────────────
	s.mcp.AddTool(mcp.NewTool("list_drafts",
		mcp.WithDescription("List locally saved designs, most recent first"),
	), s.handleListDrafts)
	s.mcp.AddTool(mcp.NewTool("open_draft",
		mcp.WithDescription("Open a saved design with all its colors, views and history"),
		mcp.WithString("draftId", mcp.Description("ID of the draft"), mcp.Required()),
	), s.handleOpenDraft)
}

func (s *Server) handleSaveDesign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.designs.Save(ctx, service.SaveInput{
		Name:   req.GetString("name", ""),
		Size:   req.GetString("size", ""),
		Price:  req.GetFloat("price", 0),
		Submit: req.GetBool("submit", false),
	})
	if err != nil && d == nil {
		return nil, err
	}
	if err != nil {
		return textResult(fmt.Sprintf("Saved locally as draft %s; store save failed: %v", d.ID, err)), nil
	}
	return textResult(fmt.Sprintf("Design %q saved (draft %s, remote %s)", d.Name, d.ID, d.RemoteID)), nil
}

func (s *Server) handleExportDesign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		path = filepath.Join(s.exportDir, s.exports.DefaultFilename())
	}
	info, err := s.exports.Export(ctx, path)
	if err != nil {
		return nil, err
	}
	return jsonResult(info)
}

func (s *Server) handleListDrafts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	drafts, err := s.designs.ListDrafts()
	if err != nil {
		return nil, err
	}
	type draftSummary struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		ProductID string `json:"productId"`
		RemoteID  string `json:"remoteId,omitempty"`
		UpdatedAt string `json:"updatedAt"`
	}
	out := make([]draftSummary, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, draftSummary{
			ID: d.ID, Name: d.Name, ProductID: d.ProductID, RemoteID: d.RemoteID,
			UpdatedAt: d.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return jsonResult(out)
}

func (s *Server) handleOpenDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("draftId", "")
	if id == "" {
		return nil, fmt.Errorf("draftId is required")
	}
	d, err := s.designs.OpenDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emitDesignChanged(ctx, "open_draft")
	return textResult(fmt.Sprintf("Opened %q", d.Name)), nil
}
