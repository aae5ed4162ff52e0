package mcp

import (
	"context"
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/config"
	"github.com/hpungsan/chartd/internal/identity"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"chart_render_url": {
		def:     renderURLToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRenderURL },
	},
	"chart_presets": {
		def:     presetsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePresets },
	},
	"chart_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"chart_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"chart_load": {
		def:     loadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLoad },
	},
	"chart_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with chartd tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
//
// owner is the identity the saved-chart tools act as. With a nil owner those
// tools still register but answer UNAUTHENTICATED.
func NewServer(db *sql.DB, cfg *config.Config, presets chart.Presets, owner *identity.Identity, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"chartd",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, presets, owner)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, presets chart.Presets, owner *identity.Identity, version string) error {
	s := NewServer(db, cfg, presets, owner, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
