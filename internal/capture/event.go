// Package capture implements the hook process's short-lived pipeline:
// parse one host event, derive scope, extract a semantic summary, apply
// privacy redaction and an admission filter, and commit at most one
// observation. Every step absorbs its own errors — the hook process
// must exit 0 regardless of what it encounters.
package capture

import "encoding/json"

// Event is the hook's stdin contract. The schema is open by design:
// known fields are typed, everything else rides along raw for handlers
// that need it (e.g. tool_response's shape varies by tool).
type Event struct {
	HookEventName string          `json:"hook_event_name"`
	SessionID     string          `json:"session_id"`
	CWD           string          `json:"cwd"`
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	ToolResponse  json.RawMessage `json:"tool_response,omitempty"`
	ToolUseID     string          `json:"tool_use_id,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// EventName enumerates the hook events the pipeline dispatches on.
type EventName string

const (
	EventPostToolUse        EventName = "PostToolUse"
	EventPostToolUseFailure EventName = "PostToolUseFailure"
	EventSessionStart       EventName = "SessionStart"
	EventSessionEnd         EventName = "SessionEnd"
	EventStop               EventName = "Stop"
)

// ParseEvent decodes stdin bytes as JSON. A parse failure is reported to
// the caller, which must treat it as "exit success silently" — ParseEvent
// itself just surfaces the error so the caller can make that call once,
// at the top.
func ParseEvent(raw []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
