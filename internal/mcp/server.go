package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/critter/internal/config"
	"github.com/hpungsan/critter/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"game", "creature", "egg", "capsule", "shop", "photo"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"game_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"game_report": {
		def:     reportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReport },
	},
	"game_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"game_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"creature_list": {
		def:     listCreaturesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListCreatures },
	},
	"creature_evolve": {
		def:     evolveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEvolve },
	},
	"creature_breed": {
		def:     breedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBreed },
	},
	"creature_cooldowns": {
		def:     cooldownsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCooldowns },
	},
	"creature_recycle": {
		def:     recycleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecycle },
	},
	"creature_seen": {
		def:     seenToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSeen },
	},
	"egg_list": {
		def:     listEggsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListEggs },
	},
	"egg_hatch": {
		def:     hatchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHatch },
	},
	"egg_warm": {
		def:     warmToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWarm },
	},
	"capsule_open": {
		def:     openCapsuleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOpenCapsule },
	},
	"shop_buy_capsule": {
		def:     buyCapsuleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBuyCapsule },
	},
	"shop_buy_rare": {
		def:     buyRareToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBuyRare },
	},
	"photo_capture": {
		def:     photoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePhoto },
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
// Tool names follow the pattern "type_action" (e.g., "egg_hatch" → "egg").
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

// NewServer creates a new MCP server with the game tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(p *ops.Presenter, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"critter",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(p)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport. It returns when stdin
// closes or the process is signaled.
func Run(p *ops.Presenter, cfg *config.Config, version string) error {
	s := NewServer(p, cfg, version)
	return server.ServeStdio(s)
}
