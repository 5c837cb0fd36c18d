package capture

import "regexp"

// redactionRule is one ordered category in the privacy pass. Order
// matters: PEM blocks run first because they are multiline and would
// otherwise get mangled by the single-line rules that follow.
type redactionRule struct {
	category string
	pattern  *regexp.Regexp
}

// builtinRedactionRules is the fixed category list of secret shapes worth
// masking before anything is persisted. Length floors (e.g. the
// env-assignment value needing >=8 chars) keep
// short, common-looking names from false-positiving on their prefix
// alone.
var builtinRedactionRules = []redactionRule{
	{
		category: "PRIVATE_KEY",
		pattern:  regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`),
	},
	{
		category: "JWT",
		pattern:  regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`),
	},
	{
		category: "CONNECTION_URI",
		pattern:  regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]*://[^:/\s@]+:[^@/\s]+@[^\s/]+`),
	},
	{
		category: "API_KEY",
		pattern: regexp.MustCompile(
			`\b(?:sk-[A-Za-z0-9]{20,}|ghp_[A-Za-z0-9]{30,}|gho_[A-Za-z0-9]{30,}|AKIA[0-9A-Z]{16}|xox[baprs]-[A-Za-z0-9-]{10,}|AIza[A-Za-z0-9_-]{30,})\b`,
		),
	},
	{
		category: "ENV_SECRET",
		pattern:  regexp.MustCompile(`\b[A-Z][A-Z0-9_]{2,}\s*=\s*\S{8,}`),
	},
}

// Redact applies the ordered builtin categories plus any operator-
// supplied additional patterns (from privacy.additionalPatterns),
// replacing every match with "[REDACTED:<category>]". Additional
// patterns are matched as a single generic "CUSTOM" category, applied
// after the builtins so they can't interfere with PEM/JWT detection.
func Redact(text string, additional []string) string {
	for _, rule := range builtinRedactionRules {
		text = rule.pattern.ReplaceAllString(text, "[REDACTED:"+rule.category+"]")
	}
	for _, raw := range additional {
		re, err := regexp.Compile(raw)
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, "[REDACTED:CUSTOM]")
	}
	return text
}
