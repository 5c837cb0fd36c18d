package capture

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	maxCommandChars = 100
	maxOutputChars  = 200
	maxWritePreview = 200
	maxGenericChars = 200
)

// toolInputShape covers the subset of tool_input fields the summarizer
// reads across the tools it special-cases. Unknown fields are ignored;
// absent ones simply decode to their zero value.
type toolInputShape struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
	Command  string `json:"command"`
	Pattern  string `json:"pattern"`
}

type toolResponseShape struct {
	Output  string `json:"output"`
	Stdout  string `json:"stdout"`
	Content string `json:"content"`
}

// Summarize extracts the tool-type-specific semantic summary used as an
// observation's content. It never fails: a tool it doesn't recognize
// falls back to a truncated JSON rendering of the input.
func Summarize(toolName string, input, response json.RawMessage) (summary string, filePath string) {
	var in toolInputShape
	_ = json.Unmarshal(input, &in)

	switch toolName {
	case "Write":
		return fmt.Sprintf("[Write] Created %s\n%s", in.FilePath, truncate(in.Content, maxWritePreview)), in.FilePath
	case "Edit":
		return fmt.Sprintf("[Edit] Modified %s\n%s", in.FilePath, truncate(in.Content, maxWritePreview)), in.FilePath
	case "Bash":
		var out toolResponseShape
		_ = json.Unmarshal(response, &out)
		result := firstNonEmpty(out.Output, out.Stdout, out.Content)
		return fmt.Sprintf("[Bash] $ %s\n%s", truncate(in.Command, maxCommandChars), truncate(result, maxOutputChars)), ""
	case "Read", "Grep", "Glob":
		subject := firstNonEmpty(in.FilePath, in.Pattern)
		return fmt.Sprintf("[%s] %s", toolName, truncate(subject, maxGenericChars)), in.FilePath
	default:
		return fmt.Sprintf("[%s] %s", toolName, truncate(string(input), maxGenericChars)), ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
