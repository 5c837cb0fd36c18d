package capture

import "strings"

// Prefixes is the dual-form self-referential prefix set. A tool name
// starting with either prefix is Laminark's own surface calling itself
// and must never be captured — doing so would create a feedback loop of
// memory-about-memory.
//
// The two forms mirror how a host typically namespaces project-scoped
// vs. plugin-scoped MCP tools: "mcp__laminark__*" for a project-local
// server, "mcp__plugin_laminark_*" for a plugin-distributed one.
var Prefixes = []string{
	"mcp__laminark__",
	"mcp__plugin_laminark_",
}

// IsSelfReferential reports whether toolName originates from Laminark's
// own tool surface under either prefix form. Both forms must be tested —
// a filter that only recognizes one is a feedback-loop bug.
func IsSelfReferential(toolName string) bool {
	for _, p := range Prefixes {
		if strings.HasPrefix(toolName, p) {
			return true
		}
	}
	return false
}
