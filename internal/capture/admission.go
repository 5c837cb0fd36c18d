package capture

import (
	"regexp"
	"strings"
)

// noisePatterns flag low-value shell/read/search output that should
// never become an observation, independent of score. Write and Edit are
// exempt — a file write is evidence of intent even when its diff looks
// mundane.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(ls|pwd|cd|clear|echo)\b`),
	regexp.MustCompile(`(?i)no (files|matches|results) found`),
	regexp.MustCompile(`^\s*$`),
}

var contentWritingTools = map[string]bool{
	"Write": true,
	"Edit":  true,
}

var toolTypeWeight = map[string]float64{
	"Write": 0.4,
	"Edit":  0.4,
	"Bash":  0.2,
	"Read":  0.1,
}

var decisionKeywords = regexp.MustCompile(`(?i)\b(decided|because|instead of|chose|rather than|trade-?off)\b`)
var errorKeywords = regexp.MustCompile(`(?i)\b(error|failed|exception|panic|traceback)\b`)
var filePathPattern = regexp.MustCompile(`[\w./-]+\.\w{1,6}\b`)

// AdmissionFloor is the minimum relevance score an observation needs to
// survive the filter. Below it the event is discarded without being
// written.
const AdmissionFloor = 0.35

// IsNoise reports whether toolName/content matches one of the
// low-signal shell/read/search patterns. Write and Edit are never
// flagged here — their content always proceeds to scoring.
func IsNoise(toolName, content string) bool {
	if contentWritingTools[toolName] {
		return false
	}
	switch toolName {
	case "Bash", "Read", "Grep", "Glob":
		for _, p := range noisePatterns {
			if p.MatchString(content) {
				return true
			}
		}
	}
	return false
}

// Score computes the relevance factors and returns their sum. Accept
// reports whether the result clears AdmissionFloor.
func Score(toolName, content string, hasFilePath bool) float64 {
	score := toolTypeWeight[toolName]

	switch n := len(content); {
	case n >= 10 && n < 200:
		score += 0.2
	case n >= 200 && n < 500:
		score += 0.3
	case n >= 500:
		score += 0.1
	}

	if decisionKeywords.MatchString(content) {
		score += 0.2
	}
	if errorKeywords.MatchString(content) {
		score += 0.15
	}
	if hasFilePath || filePathPattern.MatchString(content) {
		score += 0.15
	}

	return score
}

// Accept runs the full admission decision for one candidate observation:
// content writers always pass, everything else is first checked against
// the noise patterns, then scored against AdmissionFloor.
func Accept(toolName, content string, hasFilePath bool) bool {
	if contentWritingTools[toolName] {
		return strings.TrimSpace(content) != ""
	}
	if IsNoise(toolName, content) {
		return false
	}
	return Score(toolName, content, hasFilePath) >= AdmissionFloor
}
