package capture

import (
	"path/filepath"
	"strings"
)

// defaultExcludedFilePatterns are glob patterns (matched against the
// basename) for files whose content must never become an observation,
// regardless of admission score.
var defaultExcludedFilePatterns = []string{
	".env*",
	"credentials*",
	"secrets*",
	"*.pem",
	"*.key",
	"id_rsa*",
}

// IsExcludedFile reports whether path's basename matches any excluded
// pattern, case-insensitively. additional lets the config layer's
// privacy.excludedFiles extend the built-in set without replacing it.
func IsExcludedFile(path string, additional []string) bool {
	if path == "" {
		return false
	}
	base := strings.ToLower(filepath.Base(path))
	for _, pattern := range append(append([]string{}, defaultExcludedFilePatterns...), additional...) {
		if ok, _ := filepath.Match(strings.ToLower(pattern), base); ok {
			return true
		}
	}
	return false
}
