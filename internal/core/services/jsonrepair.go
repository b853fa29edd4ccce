package services

import (
	"regexp"
	"strings"
)

// Rating models frequently wrap JSON in markdown fences, prepend prose or
// leave a trailing comma. repairJSON is the deliberate leniency boundary:
// a best-effort cleanup pass whose output still goes through strict
// json.Unmarshal. It never invents content, only strips wrapping.

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// repairJSON extracts the outermost JSON object from a model response and
// removes common formatting damage. Returns the input trimmed when no
// object brackets are found; the strict decode then reports the failure.
func repairJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Strip markdown code fences.
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")

	// Trim to the outermost object.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	// Drop trailing commas before closing brackets.
	s = trailingCommaRe.ReplaceAllString(s, "$1")

	return strings.TrimSpace(s)
}
