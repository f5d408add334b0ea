package mcp

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/teamtalk/talktome/internal/config"
	"github.com/teamtalk/talktome/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"folder", "meeting", "transcript", "text"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"folder_list": {
		def:     folderListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderList },
	},
	"folder_create": {
		def:     folderCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderCreate },
	},
	"folder_rename": {
		def:     folderRenameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderRename },
	},
	"folder_delete": {
		def:     folderDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFolderDelete },
	},
	"meeting_list": {
		def:     meetingListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMeetingList },
	},
	"meeting_create": {
		def:     meetingCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMeetingCreate },
	},
	"meeting_get": {
		def:     meetingGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMeetingGet },
	},
	"meeting_update": {
		def:     meetingUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMeetingUpdate },
	},
	"meeting_delete": {
		def:     meetingDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMeetingDelete },
	},
	"meeting_clear": {
		def:     meetingClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMeetingClear },
	},
	"meeting_ics": {
		def:     meetingICSToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMeetingICS },
	},
	"meeting_summarize": {
		def:     meetingSummarizeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMeetingSummarize },
	},
	"transcript_update": {
		def:     transcriptUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTranscriptUpdate },
	},
	"transcript_history": {
		def:     transcriptHistoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTranscriptHistory },
	},
	"text_translate": {
		def:     textTranslateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTextTranslate },
	},
}

// AllToolNames returns all valid tool names, sorted.
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
// Tool names follow the pattern "type_action" (e.g., "meeting_get" → "meeting").
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

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with TalkToMe tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, gw ops.Gateway, cfg *config.Config, log zerolog.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"talktome",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, gw, cfg, log)

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
func Run(db *sql.DB, gw ops.Gateway, cfg *config.Config, log zerolog.Logger, version string) error {
	s := NewServer(db, gw, cfg, log, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
