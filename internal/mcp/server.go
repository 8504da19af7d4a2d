package mcp

import (
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/chat"
	"github.com/hpungsan/workboard/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"board", "chat"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"board_add_card": {
		def:     addCardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddCard },
	},
	"board_snapshot": {
		def:     snapshotToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnapshot },
	},
	"board_due_soon": {
		def:     dueSoonToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDueSoon },
	},
	"board_urgent": {
		def:     urgentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUrgent },
	},
	"board_clear_highlight": {
		def:     clearHighlightToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClearHighlight },
	},
	"board_dismiss": {
		def:     dismissToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDismiss },
	},
	"chat_send": {
		def:     chatSendToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleChatSend },
	},
	"chat_create_task": {
		def:     chatCreateTaskToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleChatCreateTask },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
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

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "board_urgent" → "board").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	// Build set of types for O(1) lookup
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	// Collect tools belonging to disabled types
	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// Deps are the components the tools operate on.
type Deps struct {
	Board *board.Store
	Chat  *chat.Session
	Clock func() time.Time
}

// NewServer creates a new MCP server with workboard tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(deps Deps, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"workboard",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps.Board, deps.Chat, deps.Clock)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
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
func Run(deps Deps, cfg *config.Config, version string) error {
	s := NewServer(deps, cfg, version)
	return server.ServeStdio(s)
}
