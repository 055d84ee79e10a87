package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"studio/internal/config"
	mcpserver "studio/internal/mcp"
	"studio/internal/secret"
)

// noopEmitter is a no-op EventEmitter used in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// It shares the desktop app's database, so drafts saved here show up there
// and destructive tools wait for approval in the running app.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	st, err := buildStack(ctx, cfg, secret.Default(), noopEmitter{})
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer st.close(shutdownTimeout)

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:   noopEmitter{},
		Studio:    st.studio,
		Designs:   st.designs,
		Exports:   st.exports,
		ExportDir: cfg.Export.Dir,
		Approvals: st.approvals, // approvals go through the shared database
	})

	log.Println("[MCP] Starting standalone stdio server...")
	if err := mcpSrv.ServeStdio(); err != nil {
		log.Printf("MCP server error: %v", err)
	}
}
