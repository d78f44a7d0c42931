package client

import (
	"regexp"
	"strings"
)

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailComma   = regexp.MustCompile(`,(\s*[}\]])`)
)

// SanitizeModelJSON strips the decorations vision models like to wrap JSON
// in: code fences, comments, trailing commas, and surrounding prose. The
// result is the outermost {...} or [...] block if one exists, otherwise the
// trimmed input.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost JSON value
	raw = sliceOutermost(raw, '{', '}')
	raw = sliceOutermost(raw, '[', ']')

	return strings.TrimSpace(raw)
}

func sliceOutermost(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return s
	}
	// An object may legitimately contain arrays; only slice on the opener
	// that comes first.
	if other := strings.IndexAny(s, "{["); other >= 0 && s[other] != open {
		return s
	}
	end := strings.LastIndexByte(s, close)
	if end <= start {
		return s
	}
	return s[start : end+1]
}
