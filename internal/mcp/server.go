package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"studio/internal/service"
	"studio/internal/studio"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the design studio.
// It exposes tools, resources, and prompts so AI agents can build designs.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue

	// Services (injected from app layer)
	studio  *service.StudioService
	designs *service.DesignService
	exports *service.ExportService

	exportDir string
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter   EventEmitter
	Studio    *service.StudioService
	Designs   *service.DesignService
	Exports   *service.ExportService
	ExportDir string
	// When set, approvals go through the shared database (standalone mode)
	Approvals ApprovalStore
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	approval := NewApprovalQueue(ctx, deps.Emitter)
	if deps.Approvals != nil {
		approval.SetStore(deps.Approvals)
	}
	s := &Server{
		emitter:   deps.Emitter,
		approval:  approval,
		studio:    deps.Studio,
		designs:   deps.Designs,
		exports:   deps.Exports,
		exportDir: deps.ExportDir,
	}

	s.mcp = server.NewMCPServer(
		"studio-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerStudioTools()
	s.registerElementTools()
	s.registerDesignTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// emitDesignChanged tells the frontend an agent edited the canvas.
func (s *Server) emitDesignChanged(ctx context.Context, tool string) {
	s.emitter.Emit(ctx, "mcp:design-changed", map[string]string{"tool": tool})
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// getElementForTool resolves the elementId argument against the live canvas.
func (s *Server) getElementForTool(req mcp.CallToolRequest) (*studio.Object, error) {
	id := req.GetString("elementId", "")
	if id == "" {
		return nil, fmt.Errorf("elementId is required")
	}
	o, ok := s.studio.Session().Object(id)
	if !ok {
		return nil, fmt.Errorf("element %s: %w", id, studio.ErrUnknownElement)
	}
	return o, nil
}
